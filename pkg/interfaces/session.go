package interfaces

import (
	"context"

	"github.com/Diegogtz03/kofy-app/pkg/types"
)

// SessionAPI defines the typed wrapper over the remote consultation backend.
// All calls are single-shot request/response; the implementation owns
// timeouts, which surface as Network errors.
type SessionAPI interface {
	// OpenSession asks the backend for a new session id. Must be called at
	// most once per visit record.
	OpenSession(ctx context.Context, token string) (string, error)

	// SubmitTranscript sends the full accumulated transcript for a session.
	// Side effect is purely remote; the caller decides whether to retry.
	SubmitTranscript(ctx context.Context, token, sessionID, text string) error

	// PollSummary checks whether processing has completed. Not ready is a
	// success with Ready=false, never an error.
	PollSummary(ctx context.Context, token, sessionID string) (*types.SummaryPoll, error)

	// EndSession releases the remote session. Best-effort from the caller's
	// perspective once local state is terminal.
	EndSession(ctx context.Context, token, sessionID string) error

	// SubmitPrescriptionText converts raw prescription text into structured
	// explanations and reminder candidates.
	SubmitPrescriptionText(ctx context.Context, token, text, patientContext string) (*types.PrescriptionExtraction, error)
}

// SessionController drives the per-visit session lifecycle
type SessionController interface {
	StartSession(ctx context.Context, visitID string) (*types.SessionContext, error)
	FinishSession(ctx context.Context, visitID, transcript string) error
	Poll(ctx context.Context, visitID string) (*types.VisitRecord, error)
	Cancel(ctx context.Context, visitID string) error
	State(visitID string) types.SessionState
}

// CredentialStore persists the explicit credentials value across launches
type CredentialStore interface {
	Load(ctx context.Context) (*types.Credentials, error)
	Save(ctx context.Context, creds *types.Credentials) error
	Clear(ctx context.Context) error
}
