package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Diegogtz03/kofy-app/pkg/interfaces"
	"github.com/Diegogtz03/kofy-app/pkg/logger"
	"github.com/Diegogtz03/kofy-app/pkg/monitoring"
	"github.com/Diegogtz03/kofy-app/pkg/types"
)

// Notification content shown when a reminder fires
const (
	notificationTitle = "Tus medicamentos"
	notificationBody  = "Es hora de tomar %s"
)

// minStartLead is how far in the future a reminder's start time must be
const minStartLead = 5 * time.Minute

// Scheduler validates, arms and tears down medication reminders against the
// external notification scheduler, persisting each reminder with its handle.
type Scheduler struct {
	notifier interfaces.NotificationScheduler
	store    interfaces.ReminderStore
	logger   *logger.Logger

	// now is replaceable in tests
	now func() time.Time
}

// NewScheduler creates a new reminder scheduler
func NewScheduler(notifier interfaces.NotificationScheduler, store interfaces.ReminderStore, log *logger.Logger) *Scheduler {
	return &Scheduler{
		notifier: notifier,
		store:    store,
		logger:   log,
		now:      time.Now,
	}
}

// ValidateSchedule checks the reminder preconditions without touching the
// external scheduler. Pure and separable: callers pass "now" explicitly.
// Violations identify the offending field.
func ValidateSchedule(everyXHours int, startTime, expirationDate, now time.Time) error {
	if everyXHours < 1 {
		return types.NewInvalidScheduleError("everyXHours",
			"reminder interval must be at least one hour")
	}

	if expirationDate.Before(now.AddDate(0, 0, 1)) {
		return types.NewInvalidScheduleError("expirationDate",
			"expiration date must be at least one day in the future")
	}

	if startTime.Before(now.Add(minStartLead)) {
		return types.NewInvalidScheduleError("startTime",
			"start time must be at least five minutes from now")
	}

	return nil
}

// FirstFireDelay computes the delay before the first notification fires:
// the reminder interval plus the whole hours and minutes until the chosen
// start time. The external trigger repeats at this same delay, so the first
// fire is offset from the chosen start time and the period differs from
// everyXHours whenever a start offset is present. This reproduces the shipped
// mobile behavior on purpose; see DESIGN.md before changing it.
func FirstFireDelay(everyXHours int, startTime, now time.Time) time.Duration {
	diff := startTime.Sub(now)
	hours := int(diff.Hours())
	minutes := int(diff.Minutes()) % 60

	seconds := everyXHours*3600 + hours*3600 + minutes*60
	return time.Duration(seconds) * time.Second
}

// Schedule validates the reminder, arms a repeating trigger with the external
// scheduler and persists the resulting spec. Validation fails fast before any
// external call.
func (s *Scheduler) Schedule(ctx context.Context, drugName, dosage string, everyXHours int, startTime, expirationDate time.Time) (*types.ReminderSpec, error) {
	now := s.now()

	if err := ValidateSchedule(everyXHours, startTime, expirationDate, now); err != nil {
		monitoring.RecordReminderScheduled("rejected")
		return nil, err
	}

	delay := FirstFireDelay(everyXHours, startTime, now)

	handle, err := s.notifier.Schedule(ctx, notificationTitle,
		fmt.Sprintf(notificationBody, drugName), delay, true)
	if err != nil {
		monitoring.RecordReminderScheduled("failed")
		return nil, err
	}

	reminder := &types.ReminderSpec{
		ID:                 uuid.New().String(),
		DrugName:           drugName,
		Dosage:             dosage,
		EveryXHours:        everyXHours,
		NotificationHandle: handle,
		StartTime:          startTime,
		ExpirationDate:     expirationDate,
		CreatedAt:          now,
	}

	if err := s.store.Create(ctx, reminder); err != nil {
		// Keep the one-live-handle invariant: a reminder we cannot persist
		// must not leave an armed trigger behind
		if cancelErr := s.notifier.Cancel(ctx, handle); cancelErr != nil {
			s.logger.WithError(cancelErr).Warn("Failed to cancel orphaned trigger")
		}
		monitoring.RecordReminderScheduled("failed")
		return nil, err
	}

	monitoring.RecordReminderScheduled("scheduled")
	s.logger.WithFields(map[string]interface{}{
		"drug":          drugName,
		"every_x_hours": everyXHours,
		"delay_seconds": int(delay.Seconds()),
		"handle":        handle,
	}).Info("Scheduled medication reminder")

	return reminder, nil
}

// Cancel tears down a reminder by its scheduler handle. Idempotent: canceling
// an already-fired or unknown handle is a no-op, never an error.
func (s *Scheduler) Cancel(ctx context.Context, handle string) error {
	if err := s.notifier.Cancel(ctx, handle); err != nil {
		return err
	}

	if err := s.store.DeleteByHandle(ctx, handle); err != nil {
		if types.IsType(err, types.ErrorTypeNotFound) {
			return nil
		}
		return err
	}

	s.logger.WithField("handle", handle).Info("Cancelled medication reminder")
	return nil
}

// List returns all persisted reminders
func (s *Scheduler) List(ctx context.Context) ([]*types.ReminderSpec, error) {
	return s.store.List(ctx)
}

// PurgeExpired asks the external scheduler for its pending triggers and
// removes the ones whose next fire time is already past, along with their
// persisted rows. Advisory cleanup: a missed sweep only delays garbage
// collection, so failures are reported but never corrupt state.
func (s *Scheduler) PurgeExpired(ctx context.Context) ([]string, error) {
	pending, err := s.notifier.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().Unix()
	var purged []string

	for _, trigger := range pending {
		if trigger.NextFireTime >= now {
			continue
		}

		if err := s.notifier.Cancel(ctx, trigger.Handle); err != nil {
			s.logger.WithField("handle", trigger.Handle).WithError(err).
				Warn("Failed to cancel expired trigger")
			continue
		}

		if err := s.store.DeleteByHandle(ctx, trigger.Handle); err != nil && !types.IsType(err, types.ErrorTypeNotFound) {
			s.logger.WithField("handle", trigger.Handle).WithError(err).
				Warn("Failed to delete expired reminder")
			continue
		}

		purged = append(purged, trigger.Handle)
	}

	if len(purged) > 0 {
		monitoring.RecordRemindersPurged(len(purged))
		s.logger.WithField("purged", len(purged)).Info("Purged expired reminders")
	}

	return purged, nil
}
