package intake

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/dealerdesk/internal/audit"
	"github.com/dealerdesk/dealerdesk/internal/lead"
)

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) Create(ctx context.Context, s *Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockSessionRepo) GetByID(ctx context.Context, dealerGroupID, id string) (*Session, error) {
	args := m.Called(ctx, dealerGroupID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *mockSessionRepo) Update(ctx context.Context, s *Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type mockBanList struct {
	mock.Mock
}

func (m *mockBanList) Exists(ctx context.Context, dealerGroupID, digest string) (bool, error) {
	args := m.Called(ctx, dealerGroupID, digest)
	return args.Bool(0), args.Error(1)
}

func (m *mockBanList) Add(ctx context.Context, dealerGroupID, digest, reason string) error {
	args := m.Called(ctx, dealerGroupID, digest, reason)
	return args.Error(0)
}

type mockLicenseRepo struct {
	mock.Mock
}

func (m *mockLicenseRepo) Create(ctx context.Context, r *LicenseRecord) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

type mockLeadCreator struct {
	mock.Mock
}

func (m *mockLeadCreator) Create(ctx context.Context, l *lead.Lead, actorID string) (*lead.Lead, error) {
	args := m.Called(ctx, l, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lead.Lead), args.Error(1)
}

type mockDecoder struct {
	mock.Mock
}

func (m *mockDecoder) Decode(ctx context.Context, imageURL string) (*LicenseData, error) {
	args := m.Called(ctx, imageURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*LicenseData), args.Error(1)
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) Log(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

type testHarness struct {
	sessions *mockSessionRepo
	banList  *mockBanList
	licenses *mockLicenseRepo
	leads    *mockLeadCreator
	decoder  *mockDecoder
	audit    *mockAudit
	svc      *Service
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	hasher, err := NewHasher("unit-test-pepper")
	require.NoError(t, err)

	h := &testHarness{
		sessions: new(mockSessionRepo),
		banList:  new(mockBanList),
		licenses: new(mockLicenseRepo),
		leads:    new(mockLeadCreator),
		decoder:  new(mockDecoder),
		audit:    new(mockAudit),
	}
	h.svc = NewService(h.sessions, h.banList, h.licenses, h.leads, h.decoder, hasher, h.audit, 0)
	return h
}

func TestService_Start_OpensAtCaptureStep(t *testing.T) {
	h := newHarness(t)

	h.sessions.On("Create", mock.Anything, mock.MatchedBy(func(s *Session) bool {
		return s.Step == StepCapture && s.DealerGroupID == "G1" && s.ImageKey != ""
	})).Return(nil)
	h.audit.On("Log", mock.Anything, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeIntakeStarted
	})).Return()

	sess, err := h.svc.Start(context.Background(), "G1", "D1", "actor-1")
	require.NoError(t, err)
	assert.Equal(t, StepCapture, sess.Step)
	assert.Contains(t, sess.ImageKey, "licenses/G1/")
	h.sessions.AssertExpectations(t)
}

func TestService_StepsRejectOutOfOrderCalls(t *testing.T) {
	h := newHarness(t)

	// Session still waiting on capture; decode and submit must refuse.
	sess := &Session{ID: "s1", DealerGroupID: "G1", Step: StepCapture, ExpiresAt: time.Now().Add(time.Hour)}
	h.sessions.On("GetByID", mock.Anything, "G1", "s1").Return(sess, nil)

	_, err := h.svc.Decode(context.Background(), "G1", "s1", "https://img")
	assert.ErrorIs(t, err, ErrStepOrder)

	_, err = h.svc.Submit(context.Background(), "G1", "s1")
	assert.ErrorIs(t, err, ErrStepOrder)

	h.decoder.AssertNotCalled(t, "Decode", mock.Anything, mock.Anything)
	h.leads.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ExpiredSessionRefusesEveryStep(t *testing.T) {
	h := newHarness(t)

	sess := &Session{ID: "s1", DealerGroupID: "G1", Step: StepDecode, ExpiresAt: time.Now().Add(-time.Minute)}
	h.sessions.On("GetByID", mock.Anything, "G1", "s1").Return(sess, nil)

	_, err := h.svc.Decode(context.Background(), "G1", "s1", "https://img")
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestService_CheckBan_HitHaltsWorkflow(t *testing.T) {
	h := newHarness(t)

	sess := &Session{
		ID:            "s1",
		DealerGroupID: "G1",
		ActorID:       "actor-1",
		Step:          StepBanCheck,
		License:       &LicenseData{Number: "N 123-456"},
		ExpiresAt:     time.Now().Add(time.Hour),
	}
	h.sessions.On("GetByID", mock.Anything, "G1", "s1").Return(sess, nil)
	h.banList.On("Exists", mock.Anything, "G1", mock.Anything).Return(true, nil)
	h.sessions.On("Update", mock.Anything, mock.MatchedBy(func(s *Session) bool {
		return s.Banned && s.Step == StepDone
	})).Return(nil)
	h.audit.On("Log", mock.Anything, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeBanListHit && e.DealerGroup == "G1"
	})).Return()

	_, err := h.svc.CheckBan(context.Background(), "G1", "s1")
	assert.ErrorIs(t, err, ErrBanned)
	h.audit.AssertExpectations(t)
}

func TestService_CheckBan_DigestIgnoresFormatting(t *testing.T) {
	hasher, err := NewHasher("unit-test-pepper")
	require.NoError(t, err)

	a, err := hasher.Digest("N 123-456")
	require.NoError(t, err)
	b, err := hasher.Digest("n123456")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other, err := hasher.Digest("n123457")
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}

func TestService_Submit_CreatesLeadAndStoresDigestOnly(t *testing.T) {
	h := newHarness(t)

	sess := &Session{
		ID:            "s1",
		DealerGroupID: "G1",
		DealershipID:  "D1",
		ActorID:       "actor-1",
		Step:          StepSubmit,
		License:       &LicenseData{Number: "N123456", FirstName: "Pat", LastName: "Doyle", Province: "NL"},
		ExpiresAt:     time.Now().Add(time.Hour),
	}
	h.sessions.On("GetByID", mock.Anything, "G1", "s1").Return(sess, nil)
	h.leads.On("Create", mock.Anything, mock.MatchedBy(func(l *lead.Lead) bool {
		return l.Source == lead.SourceLicenseScan && l.DealerGroupID == "G1" && l.FirstName == "Pat"
	}), "actor-1").Return(&lead.Lead{ID: "lead-1", DealerGroupID: "G1"}, nil)
	h.licenses.On("Create", mock.Anything, mock.MatchedBy(func(r *LicenseRecord) bool {
		// Digest stored, raw number nowhere on the record.
		return r.LeadID == "lead-1" && len(r.NumberDigest) == 64 && r.NumberDigest != "N123456"
	})).Return(nil)
	h.sessions.On("Update", mock.Anything, mock.MatchedBy(func(s *Session) bool {
		return s.Step == StepDone && s.License == nil
	})).Return(nil)
	h.audit.On("Log", mock.Anything, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeIntakeSubmitted
	})).Return()

	created, err := h.svc.Submit(context.Background(), "G1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "lead-1", created.ID)
	h.licenses.AssertExpectations(t)
}

func TestService_SweepExpired_DeletesPastDeadline(t *testing.T) {
	h := newHarness(t)

	h.sessions.On("DeleteExpired", mock.Anything, mock.Anything).Return(int64(3), nil)
	h.svc.SweepExpired(context.Background())
	h.sessions.AssertExpectations(t)
}
