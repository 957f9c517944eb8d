package interfaces

import (
	"context"
	"time"

	"github.com/Diegogtz03/kofy-app/pkg/types"
)

// NotificationScheduler is the external system-level scheduler boundary. It
// arms wall-clock triggers and reports the pending ones; everything else about
// delivery is outside this core.
type NotificationScheduler interface {
	Schedule(ctx context.Context, title, body string, firstFireDelay time.Duration, repeating bool) (string, error)
	Cancel(ctx context.Context, handle string) error
	ListPending(ctx context.Context) ([]types.PendingTrigger, error)
}

// ReminderScheduler validates, arms and tears down medication reminders
type ReminderScheduler interface {
	Schedule(ctx context.Context, drugName, dosage string, everyXHours int, startTime, expirationDate time.Time) (*types.ReminderSpec, error)
	Cancel(ctx context.Context, handle string) error
	PurgeExpired(ctx context.Context) ([]string, error)
	List(ctx context.Context) ([]*types.ReminderSpec, error)
}

// ReminderStore persists reminder specs alongside their scheduler handles
type ReminderStore interface {
	Create(ctx context.Context, reminder *types.ReminderSpec) error
	GetByHandle(ctx context.Context, handle string) (*types.ReminderSpec, error)
	List(ctx context.Context) ([]*types.ReminderSpec, error)
	DeleteByHandle(ctx context.Context, handle string) error
}
