package session

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Diegogtz03/kofy-app/pkg/logger"
	"github.com/Diegogtz03/kofy-app/pkg/types"
)

// memoryVisitStore is an in-memory VisitStore with the same guard semantics as
// the Postgres store
type memoryVisitStore struct {
	mu      sync.Mutex
	records map[string]*types.VisitRecord
}

func newMemoryVisitStore() *memoryVisitStore {
	return &memoryVisitStore{records: make(map[string]*types.VisitRecord)}
}

func (s *memoryVisitStore) Create(ctx context.Context, record *types.VisitRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *record
	s.records[record.ID] = &stored
	return nil
}

func (s *memoryVisitStore) GetByID(ctx context.Context, id string) (*types.VisitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, "visit record not found")
	}
	copied := *record
	return &copied, nil
}

func (s *memoryVisitStore) List(ctx context.Context) ([]*types.VisitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []*types.VisitRecord
	for _, record := range s.records {
		copied := *record
		records = append(records, &copied)
	}
	return records, nil
}

func (s *memoryVisitStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return types.NewNotFoundError(types.ErrCodeNotFound, "visit record not found")
	}
	delete(s.records, id)
	return nil
}

func (s *memoryVisitStore) FindBySessionID(ctx context.Context, sessionID string) (*types.VisitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.records {
		if record.SessionID == sessionID {
			copied := *record
			return &copied, nil
		}
	}
	return nil, types.NewNotFoundError(types.ErrCodeNotFound, "visit record not found")
}

func (s *memoryVisitStore) AttachSessionID(ctx context.Context, record *types.VisitRecord, sessionID string) error {
	if record.SessionID != "" {
		panic("session id already attached")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.records[record.ID]
	if stored.SessionID != "" {
		panic("session id already attached")
	}
	stored.SessionID = sessionID
	record.SessionID = sessionID
	return nil
}

func (s *memoryVisitStore) MarkProcessing(ctx context.Context, record *types.VisitRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.records[record.ID]
	if len(stored.SummaryLines) > 0 {
		return types.NewConflictError(types.ErrCodeConflict, "summary already applied")
	}
	stored.IsProcessing = true
	record.IsProcessing = true
	return nil
}

func (s *memoryVisitStore) MarkReady(ctx context.Context, record *types.VisitRecord, lines []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.records[record.ID]
	if !stored.IsProcessing {
		return types.NewConflictError(types.ErrCodeConflict, "summary already applied")
	}
	stored.IsProcessing = false
	stored.SummaryLines = lines
	record.IsProcessing = false
	record.SummaryLines = lines
	return nil
}

func (s *memoryVisitStore) AppendPrescriptionResults(ctx context.Context, record *types.VisitRecord, explanations []types.Explanation, reminders []types.ReminderSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.records[record.ID]
	stored.Prescription.Explanations = append(stored.Prescription.Explanations, explanations...)
	stored.Prescription.Reminders = append(stored.Prescription.Reminders, reminders...)
	return nil
}

// flakyAPI answers remote calls with seeded randomness: submissions sometimes
// fail and polls become ready eventually
type flakyAPI struct {
	rng      *rand.Rand
	sessions int
}

func (f *flakyAPI) OpenSession(ctx context.Context, token string) (string, error) {
	if f.rng.Intn(5) == 0 {
		return "", types.NewNetworkError(types.ErrCodeNetworkFailure, "timeout", nil)
	}
	f.sessions++
	return fmt.Sprintf("S%d", f.sessions), nil
}

func (f *flakyAPI) SubmitTranscript(ctx context.Context, token, sessionID, text string) error {
	if f.rng.Intn(4) == 0 {
		return types.NewNetworkError(types.ErrCodeNetworkFailure, "connection reset", nil)
	}
	return nil
}

func (f *flakyAPI) PollSummary(ctx context.Context, token, sessionID string) (*types.SummaryPoll, error) {
	switch f.rng.Intn(3) {
	case 0:
		return &types.SummaryPoll{Ready: true, Lines: []string{"summary for " + sessionID}}, nil
	case 1:
		return &types.SummaryPoll{Ready: false}, nil
	default:
		return nil, types.NewServerError(types.ErrCodeServerError, "unavailable", nil)
	}
}

func (f *flakyAPI) EndSession(ctx context.Context, token, sessionID string) error {
	if f.rng.Intn(3) == 0 {
		return types.NewServerError(types.ErrCodeServerError, "unavailable", nil)
	}
	return nil
}

func (f *flakyAPI) SubmitPrescriptionText(ctx context.Context, token, text, patientContext string) (*types.PrescriptionExtraction, error) {
	return &types.PrescriptionExtraction{}, nil
}

// TestLifecycle_RandomSequencesKeepInvariants drives random operation
// sequences against a controller backed by a flaky backend and checks the
// record invariants after every step:
//   - a processing record never carries summary lines
//   - once a summary is applied it never changes and processing never resumes
//   - an attached session id never changes
func TestLifecycle_RandomSequencesKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	store := newMemoryVisitStore()
	api := &flakyAPI{rng: rng}
	creds := types.Credentials{Token: freshToken, UserID: "user-1"}
	controller := NewController(api, store, creds, logger.New("error"))

	ctx := context.Background()

	const visitCount = 5
	visitIDs := make([]string, visitCount)
	for i := range visitIDs {
		record := newVisit(fmt.Sprintf("visit-%d", i))
		require.NoError(t, store.Create(ctx, record))
		visitIDs[i] = record.ID
	}

	finalSummaries := make(map[string][]string)
	finalSessions := make(map[string]string)

	for step := 0; step < 500; step++ {
		visitID := visitIDs[rng.Intn(visitCount)]

		// Errors are expected constantly (wrong state, flaky backend); the
		// invariants must hold regardless
		switch rng.Intn(4) {
		case 0:
			controller.StartSession(ctx, visitID)
		case 1:
			controller.FinishSession(ctx, visitID, "patient reports cough")
		case 2:
			controller.Poll(ctx, visitID)
		case 3:
			controller.Cancel(ctx, visitID)
		}

		for _, id := range visitIDs {
			record, err := store.GetByID(ctx, id)
			require.NoError(t, err)

			if record.IsProcessing {
				assert.Empty(t, record.SummaryLines,
					"visit %s is processing but carries a summary", id)
			}

			if lines, done := finalSummaries[id]; done {
				assert.Equal(t, lines, record.SummaryLines,
					"visit %s summary changed after ready", id)
				assert.False(t, record.IsProcessing,
					"visit %s re-entered processing after ready", id)
			} else if record.Ready() {
				finalSummaries[id] = record.SummaryLines
			}

			if session, attached := finalSessions[id]; attached {
				assert.Equal(t, session, record.SessionID,
					"visit %s session id changed", id)
			} else if record.SessionID != "" {
				finalSessions[id] = record.SessionID
			}
		}
	}
}
