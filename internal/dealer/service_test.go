package dealer

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/dealerdesk/internal/access"
	"github.com/dealerdesk/dealerdesk/internal/audit"
)

type mockGroupRepo struct {
	mock.Mock
}

func (m *mockGroupRepo) Create(ctx context.Context, g *DealerGroup) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *mockGroupRepo) GetByID(ctx context.Context, id string) (*DealerGroup, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DealerGroup), args.Error(1)
}

func (m *mockGroupRepo) Update(ctx context.Context, g *DealerGroup) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *mockGroupRepo) SubscriptionState(ctx context.Context, id string) (*access.SubscriptionState, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*access.SubscriptionState), args.Error(1)
}

type mockDealershipRepo struct {
	mock.Mock
}

func (m *mockDealershipRepo) Create(ctx context.Context, d *Dealership) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *mockDealershipRepo) GetByID(ctx context.Context, groupID, id string) (*Dealership, error) {
	args := m.Called(ctx, groupID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Dealership), args.Error(1)
}

func (m *mockDealershipRepo) ListByGroup(ctx context.Context, groupID string) ([]Dealership, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Dealership), args.Error(1)
}

func (m *mockDealershipRepo) Update(ctx context.Context, d *Dealership) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *mockDealershipRepo) Delete(ctx context.Context, groupID, id string) error {
	args := m.Called(ctx, groupID, id)
	return args.Error(0)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, u *User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, groupID, id string) (*User, error) {
	args := m.Called(ctx, groupID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *mockUserRepo) ListByGroup(ctx context.Context, groupID string) ([]User, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]User), args.Error(1)
}

func (m *mockUserRepo) ListByDealership(ctx context.Context, groupID, dealershipID string) ([]User, error) {
	args := m.Called(ctx, groupID, dealershipID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]User), args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, u *User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockUserRepo) Delete(ctx context.Context, groupID, id string) error {
	args := m.Called(ctx, groupID, id)
	return args.Error(0)
}

func (m *mockUserRepo) AssignDealership(ctx context.Context, link *UserDealership) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) Log(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

func newTestService(groups *mockGroupRepo, dealerships *mockDealershipRepo, users *mockUserRepo, auditLogger *mockAudit) *Service {
	return NewService(groups, dealerships, users, nil, auditLogger)
}

func TestService_CreateDealership_InheritsGroupID(t *testing.T) {
	groups := new(mockGroupRepo)
	dealerships := new(mockDealershipRepo)
	auditLogger := new(mockAudit)
	svc := newTestService(groups, dealerships, new(mockUserRepo), auditLogger)

	groups.On("GetByID", mock.Anything, "G1").Return(&DealerGroup{ID: "G1"}, nil)
	dealerships.On("Create", mock.Anything, mock.MatchedBy(func(d *Dealership) bool {
		if _, err := uuid.Parse(d.ID); err != nil {
			return false
		}
		return d.DealerGroupID == "G1" && d.Name == "Harbour Motors"
	})).Return(nil)
	auditLogger.On("Log", mock.Anything, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeDealershipCreated && e.DealerGroup == "G1"
	})).Return()

	d, err := svc.CreateDealership(context.Background(), "G1", "Harbour Motors", "St. John's", "NL", "actor-1")
	require.NoError(t, err)
	assert.Equal(t, "G1", d.DealerGroupID)

	groups.AssertExpectations(t)
	dealerships.AssertExpectations(t)
	auditLogger.AssertExpectations(t)
}

func TestService_CreateDealership_RequiresScope(t *testing.T) {
	svc := newTestService(new(mockGroupRepo), new(mockDealershipRepo), new(mockUserRepo), new(mockAudit))

	_, err := svc.CreateDealership(context.Background(), "", "Harbour Motors", "", "", "actor-1")
	assert.ErrorIs(t, err, ErrMissingScope)
}

func TestService_UpdateDealership_RejectsCrossGroupWrite(t *testing.T) {
	svc := newTestService(new(mockGroupRepo), new(mockDealershipRepo), new(mockUserRepo), new(mockAudit))

	err := svc.UpdateDealership(context.Background(), "G1", &Dealership{ID: "D1", DealerGroupID: "G2"})
	assert.ErrorIs(t, err, ErrGroupMismatch)
}

func TestService_CreateUser_ValidatesDealershipBelongsToGroup(t *testing.T) {
	groups := new(mockGroupRepo)
	dealerships := new(mockDealershipRepo)
	users := new(mockUserRepo)
	svc := newTestService(groups, dealerships, users, new(mockAudit))

	dealerships.On("GetByID", mock.Anything, "G1", "D-other").Return(nil, ErrDealershipNotFound)

	_, err := svc.CreateUser(context.Background(), &User{
		DealerGroupID: "G1",
		DealershipID:  "D-other",
		Email:         "staff@example.com",
	}, "actor-1")
	assert.ErrorIs(t, err, ErrGroupMismatch)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_ListUsers_NarrowsToDealershipWhenGiven(t *testing.T) {
	users := new(mockUserRepo)
	svc := newTestService(new(mockGroupRepo), new(mockDealershipRepo), users, new(mockAudit))

	users.On("ListByDealership", mock.Anything, "G1", "D1").Return([]User{{ID: "u1"}}, nil)
	got, err := svc.ListUsers(context.Background(), "G1", "D1")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	users.On("ListByGroup", mock.Anything, "G1").Return([]User{{ID: "u1"}, {ID: "u2"}}, nil)
	got, err = svc.ListUsers(context.Background(), "G1", "")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	users.AssertExpectations(t)
}

func TestService_ListUsers_RequiresScope(t *testing.T) {
	users := new(mockUserRepo)
	svc := newTestService(new(mockGroupRepo), new(mockDealershipRepo), users, new(mockAudit))

	_, err := svc.ListUsers(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrMissingScope)
	users.AssertNotCalled(t, "ListByGroup", mock.Anything, mock.Anything)
}

func TestService_AssignDealership_RejectsForeignRooftop(t *testing.T) {
	dealerships := new(mockDealershipRepo)
	users := new(mockUserRepo)
	svc := newTestService(new(mockGroupRepo), dealerships, users, new(mockAudit))

	users.On("GetByID", mock.Anything, "G1", "u1").Return(&User{ID: "u1", DealerGroupID: "G1"}, nil)
	dealerships.On("GetByID", mock.Anything, "G1", "D9").Return(nil, ErrDealershipNotFound)

	err := svc.AssignDealership(context.Background(), "G1", "u1", "D9", false)
	assert.ErrorIs(t, err, ErrGroupMismatch)
	users.AssertNotCalled(t, "AssignDealership", mock.Anything, mock.Anything)
}
