package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/dealerdesk/internal/identity"
)

type mockGroupReader struct {
	mock.Mock
}

func (m *mockGroupReader) SubscriptionState(ctx context.Context, dealerGroupID string) (*SubscriptionState, error) {
	args := m.Called(ctx, dealerGroupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SubscriptionState), args.Error(1)
}

func affiliated(group string) *identity.Identity {
	return &identity.Identity{
		ID:          "user-1",
		Affiliation: &identity.Affiliation{DealerGroupID: group, Role: identity.RoleStaff},
	}
}

func TestResolver_UnaffiliatedResolvesNilWithoutFetch(t *testing.T) {
	reader := new(mockGroupReader)
	r := NewResolver(reader)

	ctxVal, err := r.Resolve(context.Background(), &identity.Identity{ID: "user-1"})
	require.NoError(t, err)
	assert.Nil(t, ctxVal)

	ctxVal, err = r.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, ctxVal)

	reader.AssertNotCalled(t, "SubscriptionState", mock.Anything, mock.Anything)
}

func TestResolver_ActiveSubscription(t *testing.T) {
	reader := new(mockGroupReader)
	reader.On("SubscriptionState", mock.Anything, "G1").
		Return(&SubscriptionState{Status: StatusActive}, nil).Once()

	r := NewResolver(reader)
	ctxVal, err := r.Resolve(context.Background(), affiliated("G1"))
	require.NoError(t, err)
	require.NotNil(t, ctxVal)
	assert.True(t, ctxVal.Active)
	assert.False(t, ctxVal.Trialing)

	// Second resolve is served from the memo; reader fires once.
	_, err = r.Resolve(context.Background(), affiliated("G1"))
	require.NoError(t, err)
	reader.AssertExpectations(t)
}

func TestResolver_TrialBoundary(t *testing.T) {
	trialEnd := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		now        time.Time
		wantActive bool
	}{
		{"before trial end", trialEnd.Add(-time.Hour), true},
		{"after trial end", trialEnd.Add(time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := new(mockGroupReader)
			reader.On("SubscriptionState", mock.Anything, "G2").
				Return(&SubscriptionState{Status: StatusTrialing, TrialEnd: &trialEnd}, nil)

			r := NewResolver(reader)
			r.now = func() time.Time { return tt.now }

			ctxVal, err := r.Resolve(context.Background(), affiliated("G2"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantActive, ctxVal.Active)
			assert.Equal(t, tt.wantActive, ctxVal.Trialing)
		})
	}
}

func TestResolver_TrialExpiryCorrectedOnRefresh(t *testing.T) {
	trialEnd := time.Now().Add(time.Minute)
	reader := new(mockGroupReader)
	reader.On("SubscriptionState", mock.Anything, "G2").
		Return(&SubscriptionState{Status: StatusTrialing, TrialEnd: &trialEnd}, nil)

	r := NewResolver(reader)
	now := trialEnd.Add(-time.Second)
	r.now = func() time.Time { return now }

	first, err := r.Resolve(context.Background(), affiliated("G2"))
	require.NoError(t, err)
	assert.True(t, first.Active)

	// Clock passes trial_end: the memoized context stays stale until a
	// fresh resolution is forced.
	now = trialEnd.Add(time.Second)
	stale, err := r.Resolve(context.Background(), affiliated("G2"))
	require.NoError(t, err)
	assert.True(t, stale.Active, "memoized context is not recomputed on a timer")

	fresh, err := r.Refresh(context.Background(), affiliated("G2"))
	require.NoError(t, err)
	assert.False(t, fresh.Active)
	assert.NotSame(t, first, fresh, "context is replaced wholesale, never mutated")
	assert.True(t, first.Active, "previous context object remains untouched")
}

func TestResolver_LookupFailureIsUnknownNotInactive(t *testing.T) {
	reader := new(mockGroupReader)
	reader.On("SubscriptionState", mock.Anything, "G3").
		Return(nil, errors.New("connection reset"))

	r := NewResolver(reader)
	ctxVal, err := r.Resolve(context.Background(), affiliated("G3"))
	assert.Error(t, err)
	assert.Nil(t, ctxVal)
}

func TestResolver_AuthChangeFlushesMemo(t *testing.T) {
	reader := new(mockGroupReader)
	reader.On("SubscriptionState", mock.Anything, "G1").
		Return(&SubscriptionState{Status: StatusActive}, nil).Twice()

	r := NewResolver(reader)
	_, err := r.Resolve(context.Background(), affiliated("G1"))
	require.NoError(t, err)

	r.HandleAuthChange(nil)

	_, err = r.Resolve(context.Background(), affiliated("G1"))
	require.NoError(t, err)
	reader.AssertExpectations(t)
}

func TestResolver_AffiliatedAuthChangeDropsOnlyThatGroup(t *testing.T) {
	reader := new(mockGroupReader)
	reader.On("SubscriptionState", mock.Anything, "G1").
		Return(&SubscriptionState{Status: StatusCanceled}, nil).Once()
	reader.On("SubscriptionState", mock.Anything, "G1").
		Return(&SubscriptionState{Status: StatusActive}, nil).Once()
	reader.On("SubscriptionState", mock.Anything, "G2").
		Return(&SubscriptionState{Status: StatusActive}, nil).Once()

	r := NewResolver(reader)
	stale, err := r.Resolve(context.Background(), affiliated("G1"))
	require.NoError(t, err)
	assert.False(t, stale.Active)
	_, err = r.Resolve(context.Background(), affiliated("G2"))
	require.NoError(t, err)

	// A token refresh for a G1 user drops G1's memo; G2 stays memoized.
	r.HandleAuthChange(affiliated("G1"))

	fresh, err := r.Resolve(context.Background(), affiliated("G1"))
	require.NoError(t, err)
	assert.True(t, fresh.Active)

	_, err = r.Resolve(context.Background(), affiliated("G2"))
	require.NoError(t, err)
	reader.AssertExpectations(t)
}

func TestDerive_Invariant(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		status       SubscriptionStatus
		trialEnd     *time.Time
		wantActive   bool
		wantTrialing bool
	}{
		{StatusActive, nil, true, false},
		{StatusTrialing, &future, true, true},
		{StatusTrialing, &past, false, false},
		{StatusTrialing, nil, false, false},
		{StatusPastDue, nil, false, false},
		{StatusCanceled, nil, false, false},
	}
	for _, tt := range tests {
		got := Derive("G", SubscriptionState{Status: tt.status, TrialEnd: tt.trialEnd}, now)
		assert.Equal(t, tt.wantActive, got.Active, "status=%s", tt.status)
		assert.Equal(t, tt.wantTrialing, got.Trialing, "status=%s", tt.status)
	}
}
