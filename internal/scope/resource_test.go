package scope

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResource_NullScopeGuardIssuesNoFetch(t *testing.T) {
	var calls atomic.Int64
	r := NewResource(func(ctx context.Context, s Scope) ([]string, error) {
		calls.Add(1)
		return []string{"row"}, nil
	}, KeyDealerGroup, KeyDealership)

	// Missing dealership id: hold empty state, zero calls.
	require.NoError(t, r.Bind(context.Background(), Scope{DealerGroupID: "G1"}))
	require.NoError(t, r.Refetch(context.Background()))

	state := r.State()
	assert.Empty(t, state.Items)
	assert.False(t, state.Loading)
	assert.Empty(t, state.Err)
	assert.Equal(t, int64(0), calls.Load())

	// Completing the scope triggers exactly one fetch.
	require.NoError(t, r.Bind(context.Background(), Scope{DealerGroupID: "G1", DealershipID: "D1"}))
	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, []string{"row"}, r.State().Items)
}

func TestResource_ScopedFetchReceivesBoundIDs(t *testing.T) {
	var got Scope
	r := NewResource(func(ctx context.Context, s Scope) ([]int, error) {
		got = s
		return nil, nil
	})

	require.NoError(t, r.Bind(context.Background(), Scope{DealerGroupID: "G7"}))
	assert.Equal(t, "G7", got.DealerGroupID)
}

func TestResource_ErrorSurfacesLocally(t *testing.T) {
	r := NewResource(func(ctx context.Context, s Scope) ([]string, error) {
		return nil, errors.New("permission denied for relation leads")
	})

	err := r.Bind(context.Background(), Scope{DealerGroupID: "G1"})
	assert.Error(t, err)

	state := r.State()
	assert.False(t, state.Loading)
	assert.Equal(t, "permission denied for relation leads", state.Err)
}

func TestResource_LateResultNeverOverwritesNewerState(t *testing.T) {
	release := make(chan struct{})
	firstInFlight := make(chan struct{})
	var calls atomic.Int64

	r := NewResource(func(ctx context.Context, s Scope) ([]string, error) {
		if calls.Add(1) == 1 {
			// First call: stall until the second has fully resolved.
			close(firstInFlight)
			<-release
			return []string{"stale"}, nil
		}
		return []string{"fresh"}, nil
	})

	r.mu.Lock()
	r.scope = Scope{DealerGroupID: "G1"}
	r.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = r.Refetch(context.Background()) // slow first call
	}()

	// Wait for the first fetch to be in flight before dispatching the second.
	<-firstInFlight
	require.NoError(t, r.Refetch(context.Background()))
	assert.Equal(t, []string{"fresh"}, r.State().Items)

	close(release)
	wg.Wait()

	// The first (earlier-dispatched, later-resolved) result was discarded.
	assert.Equal(t, []string{"fresh"}, r.State().Items)
	assert.Empty(t, r.State().Err)
}

func TestResource_CloseStopsApplyingResults(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	r := NewResource(func(ctx context.Context, s Scope) ([]string, error) {
		close(started)
		<-release
		return []string{"late"}, nil
	})

	r.mu.Lock()
	r.scope = Scope{DealerGroupID: "G1"}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = r.Refetch(context.Background())
		close(done)
	}()

	<-started
	r.Close()
	close(release)
	<-done

	assert.Empty(t, r.State().Items, "results after Close are dropped")
}

func TestResource_RebindToIncompleteScopeInvalidatesInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	r := NewResource(func(ctx context.Context, s Scope) ([]string, error) {
		close(started)
		<-release
		return []string{"old-scope"}, nil
	})

	done := make(chan struct{})
	go func() {
		_ = r.Bind(context.Background(), Scope{DealerGroupID: "G1"})
		close(done)
	}()

	<-started
	// Scope becomes incomplete (e.g. user switched dealer group and the new
	// id has not resolved yet): in-flight result must not land.
	require.NoError(t, r.Bind(context.Background(), Scope{}))
	close(release)
	<-done

	assert.Empty(t, r.State().Items)
}
