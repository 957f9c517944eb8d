package session

import (
	"context"
	"sync"
	"time"

	"github.com/Diegogtz03/kofy-app/pkg/interfaces"
	"github.com/Diegogtz03/kofy-app/pkg/logger"
	"github.com/Diegogtz03/kofy-app/pkg/monitoring"
	"github.com/Diegogtz03/kofy-app/pkg/types"
)

// Controller drives the consultation session lifecycle for visit records.
//
// Per visit the states move NEW -> OPENING -> LISTENING -> SUBMITTING ->
// PROCESSING -> READY, with ERROR reachable from any state on an unrecoverable
// remote failure. The controller owns exclusive logical write access to a
// visit record while a transition is in flight: the mutex serializes
// transition bookkeeping only, remote calls always happen outside it.
type Controller struct {
	api    interfaces.SessionAPI
	visits interfaces.VisitStore
	creds  types.Credentials
	logger *logger.Logger

	mu       sync.Mutex
	contexts map[string]*types.SessionContext
	polling  map[string]bool
}

// NewController creates a new session lifecycle controller. Credentials are an
// explicit value fixed at construction or login; there is no ambient global
// session state.
func NewController(api interfaces.SessionAPI, visits interfaces.VisitStore, creds types.Credentials, log *logger.Logger) *Controller {
	return &Controller{
		api:      api,
		visits:   visits,
		creds:    creds,
		logger:   log,
		contexts: make(map[string]*types.SessionContext),
		polling:  make(map[string]bool),
	}
}

// StartSession opens a remote session for the visit and attaches the returned
// id. Failure leaves the visit in ERROR with a user-visible message; the user
// must re-trigger, there is no automatic retry.
func (c *Controller) StartSession(ctx context.Context, visitID string) (*types.SessionContext, error) {
	record, err := c.visits.GetByID(ctx, visitID)
	if err != nil {
		return nil, err
	}

	if record.SessionID != "" {
		return nil, types.NewConflictError(types.ErrCodeConflict,
			"a session was already opened for this visit")
	}

	if c.creds.Expired(time.Now()) {
		return nil, types.NewUnauthorizedError(types.ErrCodeUnauthorized,
			"your session has expired, please sign in again")
	}

	c.mu.Lock()
	if existing, ok := c.contexts[visitID]; ok && existing.State != types.StateError {
		c.mu.Unlock()
		return nil, types.NewConflictError(types.ErrCodeConflict,
			"a session is already active for this visit")
	}
	sctx := &types.SessionContext{VisitID: visitID, State: types.StateOpening}
	c.contexts[visitID] = sctx
	c.mu.Unlock()

	c.logger.Transition(visitID, string(types.StateNew), string(types.StateOpening))
	monitoring.RecordSessionTransition(string(types.StateNew), string(types.StateOpening))

	sessionID, err := c.api.OpenSession(ctx, c.creds.Token)
	if err != nil {
		c.setState(sctx, types.StateError)
		return nil, err
	}

	if err := c.visits.AttachSessionID(ctx, record, sessionID); err != nil {
		c.setState(sctx, types.StateError)
		return nil, err
	}

	sctx.SessionID = sessionID
	c.setState(sctx, types.StateListening)
	return sctx, nil
}

// FinishSession submits the accumulated transcript. The visit enters
// PROCESSING regardless of the submit outcome: the remote side may hold the
// data even when the response was dropped, so availability wins over
// precision here. A submit failure is still surfaced to the caller.
func (c *Controller) FinishSession(ctx context.Context, visitID, transcript string) error {
	c.mu.Lock()
	sctx, ok := c.contexts[visitID]
	if !ok || sctx.State != types.StateListening {
		c.mu.Unlock()
		return types.NewConflictError(types.ErrCodeConflict,
			"no listening session for this visit")
	}
	sctx.State = types.StateSubmitting
	c.mu.Unlock()

	c.logger.Transition(visitID, string(types.StateListening), string(types.StateSubmitting))
	monitoring.RecordSessionTransition(string(types.StateListening), string(types.StateSubmitting))

	submitErr := c.api.SubmitTranscript(ctx, c.creds.Token, sctx.SessionID, transcript)
	if submitErr != nil {
		c.logger.WithVisitID(visitID).WithError(submitErr).
			Warn("Transcript submission failed, entering processing anyway")
	}

	record, err := c.visits.GetByID(ctx, visitID)
	if err != nil {
		c.setState(sctx, types.StateError)
		return err
	}

	if err := c.visits.MarkProcessing(ctx, record); err != nil {
		c.setState(sctx, types.StateError)
		return err
	}

	c.setState(sctx, types.StateProcessing)
	return submitErr
}

// Poll checks whether the backend has finished processing the visit. Not
// ready is a success that mutates nothing, so the call is safe to repeat from
// any UI entry point; that repetition is the retry mechanism. At most one
// poll per visit is in flight at a time, a concurrent second request is
// ignored rather than queued. The READY transition is first-success-wins: a
// late poll against an already-ready record changes nothing.
func (c *Controller) Poll(ctx context.Context, visitID string) (*types.VisitRecord, error) {
	record, err := c.visits.GetByID(ctx, visitID)
	if err != nil {
		return nil, err
	}

	if !record.IsProcessing {
		return record, nil
	}

	if record.SessionID == "" {
		return nil, types.NewConflictError(types.ErrCodeConflict,
			"visit is processing but has no session id")
	}

	c.mu.Lock()
	if c.polling[visitID] {
		c.mu.Unlock()
		return record, nil
	}
	c.polling[visitID] = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.polling, visitID)
		c.mu.Unlock()
	}()

	poll, err := c.api.PollSummary(ctx, c.creds.Token, record.SessionID)
	if err != nil {
		return nil, err
	}

	if !poll.Ready {
		return record, nil
	}

	if err := c.visits.MarkReady(ctx, record, poll.Lines); err != nil {
		// A concurrent poll already finalized the record; its success stands
		if types.IsType(err, types.ErrorTypeConflict) {
			return c.visits.GetByID(ctx, visitID)
		}
		return nil, err
	}

	c.logger.Transition(visitID, string(types.StateProcessing), string(types.StateReady))
	monitoring.RecordSessionTransition(string(types.StateProcessing), string(types.StateReady))

	// Best-effort teardown: the local record already reached its terminal
	// success point, an endSession failure is logged and never retried
	if err := c.api.EndSession(ctx, c.creds.Token, record.SessionID); err != nil {
		c.logger.WithSessionID(record.SessionID).WithError(err).
			Warn("Failed to end remote session")
	}

	c.mu.Lock()
	if sctx, ok := c.contexts[visitID]; ok {
		sctx.State = types.StateReady
	}
	c.mu.Unlock()

	return record, nil
}

// Cancel abandons an open session without submitting a transcript. The remote
// session is ended best-effort and the local context discarded.
func (c *Controller) Cancel(ctx context.Context, visitID string) error {
	c.mu.Lock()
	sctx, ok := c.contexts[visitID]
	if ok {
		delete(c.contexts, visitID)
	}
	c.mu.Unlock()

	if !ok {
		return types.NewNotFoundError(types.ErrCodeNotFound,
			"no active session for this visit")
	}

	if sctx.SessionID != "" {
		if err := c.api.EndSession(ctx, c.creds.Token, sctx.SessionID); err != nil {
			c.logger.WithSessionID(sctx.SessionID).WithError(err).
				Warn("Failed to end remote session on cancel")
		}
	}

	c.logger.WithVisitID(visitID).Info("Session cancelled")
	return nil
}

// State reports the controller's view of the visit's session state
func (c *Controller) State(visitID string) types.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sctx, ok := c.contexts[visitID]; ok {
		return sctx.State
	}
	return types.StateNew
}

// setState applies a transition under the controller lock and records it
func (c *Controller) setState(sctx *types.SessionContext, to types.SessionState) {
	c.mu.Lock()
	from := sctx.State
	sctx.State = to
	c.mu.Unlock()

	c.logger.Transition(sctx.VisitID, string(from), string(to))
	monitoring.RecordSessionTransition(string(from), string(to))
}
