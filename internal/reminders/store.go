package reminders

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Diegogtz03/kofy-app/pkg/database"
	"github.com/Diegogtz03/kofy-app/pkg/interfaces"
	"github.com/Diegogtz03/kofy-app/pkg/logger"
	"github.com/Diegogtz03/kofy-app/pkg/types"
)

// Store implements the ReminderStore interface over Postgres
type Store struct {
	db     *database.DB
	logger *logger.Logger
}

// NewStore creates a new reminder store
func NewStore(db *database.DB, log *logger.Logger) interfaces.ReminderStore {
	return &Store{
		db:     db,
		logger: log,
	}
}

// Create persists a reminder spec with its scheduler handle
func (s *Store) Create(ctx context.Context, reminder *types.ReminderSpec) error {
	query := `
		INSERT INTO reminders (
			id, drug_name, dosage, every_x_hours, notification_handle,
			start_time, expiration_date, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		reminder.ID,
		reminder.DrugName,
		reminder.Dosage,
		reminder.EveryXHours,
		reminder.NotificationHandle,
		reminder.StartTime,
		reminder.ExpirationDate,
		reminder.CreatedAt,
	)

	if err != nil {
		s.logger.WithError(err).Error("Failed to create reminder")
		return fmt.Errorf("failed to create reminder: %w", err)
	}

	return nil
}

// GetByHandle retrieves a reminder by its scheduler handle
func (s *Store) GetByHandle(ctx context.Context, handle string) (*types.ReminderSpec, error) {
	query := `
		SELECT id, drug_name, dosage, every_x_hours, notification_handle,
			   start_time, expiration_date, created_at
		FROM reminders
		WHERE notification_handle = $1`

	reminder := &types.ReminderSpec{}
	err := s.db.QueryRowContext(ctx, query, handle).Scan(
		&reminder.ID,
		&reminder.DrugName,
		&reminder.Dosage,
		&reminder.EveryXHours,
		&reminder.NotificationHandle,
		&reminder.StartTime,
		&reminder.ExpirationDate,
		&reminder.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "reminder not found")
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}

	return reminder, nil
}

// List retrieves all persisted reminders, oldest first
func (s *Store) List(ctx context.Context) ([]*types.ReminderSpec, error) {
	query := `
		SELECT id, drug_name, dosage, every_x_hours, notification_handle,
			   start_time, expiration_date, created_at
		FROM reminders
		ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*types.ReminderSpec
	for rows.Next() {
		reminder := &types.ReminderSpec{}
		err := rows.Scan(
			&reminder.ID,
			&reminder.DrugName,
			&reminder.Dosage,
			&reminder.EveryXHours,
			&reminder.NotificationHandle,
			&reminder.StartTime,
			&reminder.ExpirationDate,
			&reminder.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, reminder)
	}

	return reminders, rows.Err()
}

// DeleteByHandle removes a reminder by its scheduler handle
func (s *Store) DeleteByHandle(ctx context.Context, handle string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE notification_handle = $1`, handle)
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "reminder not found")
	}

	return nil
}
