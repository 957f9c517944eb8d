package interfaces

import (
	"context"

	"github.com/Diegogtz03/kofy-app/pkg/types"
)

// VisitStore defines the query/update facade over the local durable store of
// visit records
type VisitStore interface {
	Create(ctx context.Context, record *types.VisitRecord) error
	GetByID(ctx context.Context, id string) (*types.VisitRecord, error)
	List(ctx context.Context) ([]*types.VisitRecord, error)
	Delete(ctx context.Context, id string) error

	// FindBySessionID routes an asynchronous poll result back to the right
	// local record. Returns a NotFound error on miss.
	FindBySessionID(ctx context.Context, sessionID string) (*types.VisitRecord, error)

	// AttachSessionID sets the remote session id exactly once. A second call
	// for the same record is a programmer error and panics.
	AttachSessionID(ctx context.Context, record *types.VisitRecord, sessionID string) error

	// MarkProcessing flips the record into its processing state after the
	// transcript has been submitted.
	MarkProcessing(ctx context.Context, record *types.VisitRecord) error

	// MarkReady atomically clears is_processing and sets the summary lines.
	// First success wins; a late call against an already-ready record is a
	// rejected no-op.
	MarkReady(ctx context.Context, record *types.VisitRecord, lines []string) error

	// AppendPrescriptionResults appends explanations and confirmed reminders.
	// Additive only; de-duplication by drug name is the caller's concern.
	AppendPrescriptionResults(ctx context.Context, record *types.VisitRecord, explanations []types.Explanation, reminders []types.ReminderSpec) error
}
