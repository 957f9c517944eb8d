package prescriptions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Diegogtz03/kofy-app/pkg/logger"
	"github.com/Diegogtz03/kofy-app/pkg/types"
)

// MockSessionAPI is a mock implementation of SessionAPI
type MockSessionAPI struct {
	mock.Mock
}

func (m *MockSessionAPI) OpenSession(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *MockSessionAPI) SubmitTranscript(ctx context.Context, token, sessionID, text string) error {
	args := m.Called(ctx, token, sessionID, text)
	return args.Error(0)
}

func (m *MockSessionAPI) PollSummary(ctx context.Context, token, sessionID string) (*types.SummaryPoll, error) {
	args := m.Called(ctx, token, sessionID)
	return args.Get(0).(*types.SummaryPoll), args.Error(1)
}

func (m *MockSessionAPI) EndSession(ctx context.Context, token, sessionID string) error {
	args := m.Called(ctx, token, sessionID)
	return args.Error(0)
}

func (m *MockSessionAPI) SubmitPrescriptionText(ctx context.Context, token, text, patientContext string) (*types.PrescriptionExtraction, error) {
	args := m.Called(ctx, token, text, patientContext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PrescriptionExtraction), args.Error(1)
}

// MockVisitStore is a mock implementation of VisitStore
type MockVisitStore struct {
	mock.Mock
}

func (m *MockVisitStore) Create(ctx context.Context, record *types.VisitRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockVisitStore) GetByID(ctx context.Context, id string) (*types.VisitRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.VisitRecord), args.Error(1)
}

func (m *MockVisitStore) List(ctx context.Context) ([]*types.VisitRecord, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*types.VisitRecord), args.Error(1)
}

func (m *MockVisitStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockVisitStore) FindBySessionID(ctx context.Context, sessionID string) (*types.VisitRecord, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(*types.VisitRecord), args.Error(1)
}

func (m *MockVisitStore) AttachSessionID(ctx context.Context, record *types.VisitRecord, sessionID string) error {
	args := m.Called(ctx, record, sessionID)
	return args.Error(0)
}

func (m *MockVisitStore) MarkProcessing(ctx context.Context, record *types.VisitRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockVisitStore) MarkReady(ctx context.Context, record *types.VisitRecord, lines []string) error {
	args := m.Called(ctx, record, lines)
	return args.Error(0)
}

func (m *MockVisitStore) AppendPrescriptionResults(ctx context.Context, record *types.VisitRecord, explanations []types.Explanation, reminders []types.ReminderSpec) error {
	args := m.Called(ctx, record, explanations, reminders)
	if args.Error(0) == nil {
		record.Prescription.Explanations = append(record.Prescription.Explanations, explanations...)
		record.Prescription.Reminders = append(record.Prescription.Reminders, reminders...)
	}
	return args.Error(0)
}

func setupTestIngestor() (*Ingestor, *MockSessionAPI, *MockVisitStore) {
	mockAPI := &MockSessionAPI{}
	mockVisits := &MockVisitStore{}

	creds := types.Credentials{Token: "test-token", UserID: "user-1"}
	ingestor := NewIngestor(mockAPI, mockVisits, creds, logger.New("debug"))

	return ingestor, mockAPI, mockVisits
}

func TestIngest_AppendsExplanationsOnly(t *testing.T) {
	ingestor, mockAPI, mockVisits := setupTestIngestor()

	record := &types.VisitRecord{ID: "visit-1", Name: "Checkup"}
	extraction := &types.PrescriptionExtraction{
		Explanations: []types.Explanation{
			{DrugGroupName: "Amoxicillin", Lines: []string{"Antibiotic for bacterial infections"}},
			{DrugGroupName: "Ibuprofen", Lines: []string{"Pain and fever relief"}},
		},
		Reminders: []types.ReminderCandidate{
			{DrugName: "Amoxicillin", Dosage: "500mg", EveryXHours: 8},
		},
	}

	mockVisits.On("GetByID", mock.Anything, "visit-1").Return(record, nil)
	mockAPI.On("SubmitPrescriptionText", mock.Anything, "test-token",
		"Amoxicillin 500mg, Ibuprofen 200mg", "adult").Return(extraction, nil)
	mockVisits.On("AppendPrescriptionResults", mock.Anything, record,
		extraction.Explanations, []types.ReminderSpec(nil)).Return(nil).Once()

	result, err := ingestor.Ingest(context.Background(), "Amoxicillin 500mg, Ibuprofen 200mg", "adult", "visit-1")
	require.NoError(t, err)

	// Both explanations land on the record; the candidate does not, it waits
	// for user confirmation
	assert.Len(t, record.Prescription.Explanations, 2)
	assert.Empty(t, record.Prescription.Reminders)
	assert.Len(t, result.Reminders, 1)

	mockVisits.AssertNumberOfCalls(t, "AppendPrescriptionResults", 1)
}

func TestIngest_ExtractionFailureAppendsNothing(t *testing.T) {
	ingestor, mockAPI, mockVisits := setupTestIngestor()

	record := &types.VisitRecord{ID: "visit-1", Name: "Checkup"}
	mockVisits.On("GetByID", mock.Anything, "visit-1").Return(record, nil)
	mockAPI.On("SubmitPrescriptionText", mock.Anything, "test-token", "illegible scan", "").
		Return(nil, types.NewServerError(types.ErrCodeServerError, "extraction failed", nil))

	_, err := ingestor.Ingest(context.Background(), "illegible scan", "", "visit-1")
	require.Error(t, err)

	assert.Empty(t, record.Prescription.Explanations)
	mockVisits.AssertNotCalled(t, "AppendPrescriptionResults")
}

func TestIngest_UnknownVisitFails(t *testing.T) {
	ingestor, mockAPI, mockVisits := setupTestIngestor()

	mockVisits.On("GetByID", mock.Anything, "missing").
		Return(nil, types.NewNotFoundError(types.ErrCodeNotFound, "visit record not found"))

	_, err := ingestor.Ingest(context.Background(), "text", "", "missing")
	require.Error(t, err)
	assert.True(t, types.IsType(err, types.ErrorTypeNotFound))
	mockAPI.AssertNotCalled(t, "SubmitPrescriptionText")
}

func TestConfirmReminder_AppendsConfirmedSpec(t *testing.T) {
	ingestor, _, mockVisits := setupTestIngestor()

	record := &types.VisitRecord{ID: "visit-1", Name: "Checkup"}
	reminder := &types.ReminderSpec{
		ID:                 "rem-1",
		DrugName:           "Amoxicillin",
		Dosage:             "500mg",
		EveryXHours:        8,
		NotificationHandle: "trigger-1",
		StartTime:          time.Now().Add(1 * time.Hour),
		ExpirationDate:     time.Now().AddDate(0, 0, 7),
	}

	mockVisits.On("GetByID", mock.Anything, "visit-1").Return(record, nil)
	mockVisits.On("AppendPrescriptionResults", mock.Anything, record,
		[]types.Explanation(nil), []types.ReminderSpec{*reminder}).Return(nil)

	require.NoError(t, ingestor.ConfirmReminder(context.Background(), "visit-1", reminder))
	assert.Len(t, record.Prescription.Reminders, 1)
	assert.Equal(t, "trigger-1", record.Prescription.Reminders[0].NotificationHandle)
}
