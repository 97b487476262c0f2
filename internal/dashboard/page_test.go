package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/dealerdesk/internal/scope"
)

type row struct {
	ID   string
	Name string
}

func newTestPage(t *testing.T, items []row, pageSize int) (*Page[row], *atomic.Int32) {
	t.Helper()
	calls := new(atomic.Int32)
	res := scope.NewResource(func(ctx context.Context, s scope.Scope) ([]row, error) {
		calls.Add(1)
		return items, nil
	}, scope.KeyDealerGroup)

	p := NewPage(res, pageSize)
	require.NoError(t, p.Bind(context.Background(), scope.Scope{DealerGroupID: "G1"}))
	return p, calls
}

func TestPage_PaginatesFilteredItems(t *testing.T) {
	items := []row{
		{ID: "1", Name: "Avalon Ford"},
		{ID: "2", Name: "Avalon Honda"},
		{ID: "3", Name: "Harbour Motors"},
		{ID: "4", Name: "Avalon Toyota"},
	}
	p, _ := newTestPage(t, items, 2)

	p.SetFilter(func(r row) bool { return strings.HasPrefix(r.Name, "Avalon") })

	v := p.View()
	assert.Equal(t, 3, v.TotalItems)
	assert.Equal(t, 2, v.PageCount)
	assert.Len(t, v.Items, 2)

	p.SetPage(1)
	v = p.View()
	assert.Len(t, v.Items, 1)
	assert.Equal(t, "4", v.Items[0].ID)
}

func TestPage_FilterChangeIssuesNoFetch(t *testing.T) {
	p, calls := newTestPage(t, []row{{ID: "1"}}, 10)
	before := calls.Load()

	p.SetFilter(func(r row) bool { return true })
	p.SetPage(3)
	p.View()

	assert.Equal(t, before, calls.Load())
}

func TestPage_OutOfRangePageClamps(t *testing.T) {
	p, _ := newTestPage(t, []row{{ID: "1"}, {ID: "2"}}, 10)

	p.SetPage(99)
	v := p.View()
	assert.Equal(t, 0, v.Page)
	assert.Len(t, v.Items, 2)
}

func TestPage_MutateRefetchesOnSuccess(t *testing.T) {
	p, calls := newTestPage(t, []row{{ID: "1"}}, 10)
	before := calls.Load()

	err := p.Mutate(context.Background(), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, before+1, calls.Load())
}

func TestPage_MutateSkipsRefetchOnFailure(t *testing.T) {
	p, calls := newTestPage(t, []row{{ID: "1"}}, 10)
	before := calls.Load()

	wantErr := errors.New("write rejected")
	err := p.Mutate(context.Background(), func(ctx context.Context) error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, before, calls.Load())
}

func TestPage_UnboundScopeShowsEmptyView(t *testing.T) {
	calls := new(atomic.Int32)
	res := scope.NewResource(func(ctx context.Context, s scope.Scope) ([]row, error) {
		calls.Add(1)
		return []row{{ID: "1"}}, nil
	}, scope.KeyDealerGroup)
	p := NewPage(res, 10)

	require.NoError(t, p.Bind(context.Background(), scope.Scope{}))
	v := p.View()
	assert.Empty(t, v.Items)
	assert.Equal(t, int32(0), calls.Load())
}
