package visits

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Diegogtz03/kofy-app/pkg/database"
	"github.com/Diegogtz03/kofy-app/pkg/interfaces"
	"github.com/Diegogtz03/kofy-app/pkg/logger"
	"github.com/Diegogtz03/kofy-app/pkg/types"
)

const visitColumns = `id, session_id, name, description, visit_date, doctor,
	color_index, is_processing, summary_lines, explanations, reminders,
	created_at, updated_at`

// Store implements the VisitStore interface over Postgres
type Store struct {
	db     *database.DB
	logger *logger.Logger
}

// NewStore creates a new visit record store
func NewStore(db *database.DB, log *logger.Logger) interfaces.VisitStore {
	return &Store{
		db:     db,
		logger: log,
	}
}

// Create inserts a new visit record. The local id is generated here and never
// changes; the session id stays empty until the session is opened.
func (s *Store) Create(ctx context.Context, record *types.VisitRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt

	query := `
		INSERT INTO visits (
			id, session_id, name, description, visit_date, doctor,
			color_index, is_processing, summary_lines, explanations, reminders,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.SessionID,
		record.Name,
		record.Description,
		record.Date,
		record.Doctor,
		record.ColorIndex,
		record.IsProcessing,
		mustJSON(record.SummaryLines),
		mustJSON(record.Prescription.Explanations),
		mustJSON(record.Prescription.Reminders),
		record.CreatedAt,
		record.UpdatedAt,
	)

	if err != nil {
		s.logger.WithError(err).Error("Failed to create visit record")
		return fmt.Errorf("failed to create visit record: %w", err)
	}

	s.logger.WithVisitID(record.ID).Info("Created visit record")
	return nil
}

// GetByID retrieves a visit record by its local id
func (s *Store) GetByID(ctx context.Context, id string) (*types.VisitRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM visits WHERE id = $1`, visitColumns)
	return s.scanVisit(s.db.QueryRowContext(ctx, query, id))
}

// FindBySessionID routes an asynchronous poll result back to the right local
// record
func (s *Store) FindBySessionID(ctx context.Context, sessionID string) (*types.VisitRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM visits WHERE session_id = $1`, visitColumns)
	return s.scanVisit(s.db.QueryRowContext(ctx, query, sessionID))
}

// List retrieves all visit records, newest first
func (s *Store) List(ctx context.Context) ([]*types.VisitRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM visits ORDER BY created_at DESC`, visitColumns)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list visit records: %w", err)
	}
	defer rows.Close()

	var records []*types.VisitRecord
	for rows.Next() {
		record, err := s.scanVisit(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// Delete removes a visit record. Deletion is a user action, never triggered
// by the lifecycle itself.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM visits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete visit record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "visit record not found")
	}

	s.logger.WithVisitID(id).Info("Deleted visit record")
	return nil
}

// AttachSessionID sets the remote session id exactly once. Calling it a
// second time for the same record is a logic bug that would silently orphan
// the first remote session, so it fails fast instead of being ignored.
func (s *Store) AttachSessionID(ctx context.Context, record *types.VisitRecord, sessionID string) error {
	if record.SessionID != "" {
		panic(fmt.Sprintf("visits: session id already attached to record %s", record.ID))
	}

	query := `UPDATE visits SET session_id = $1, updated_at = $2 WHERE id = $3 AND session_id = ''`

	result, err := s.db.ExecContext(ctx, query, sessionID, time.Now(), record.ID)
	if err != nil {
		s.logger.WithVisitID(record.ID).WithError(err).Error("Failed to attach session id")
		return fmt.Errorf("failed to attach session id: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// The persisted row already carries a session id the in-memory copy
		// does not know about; that is the same logic bug, not a race
		panic(fmt.Sprintf("visits: session id already attached to record %s", record.ID))
	}

	record.SessionID = sessionID
	s.logger.WithVisitID(record.ID).WithField("session_id", sessionID).Info("Attached session id")
	return nil
}

// MarkProcessing flips the record into its processing state. The guard on
// empty summary lines keeps the ready transition one-directional.
func (s *Store) MarkProcessing(ctx context.Context, record *types.VisitRecord) error {
	query := `
		UPDATE visits SET is_processing = TRUE, updated_at = $1
		WHERE id = $2 AND jsonb_array_length(summary_lines) = 0`

	result, err := s.db.ExecContext(ctx, query, time.Now(), record.ID)
	if err != nil {
		return fmt.Errorf("failed to mark visit processing: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return types.NewConflictError(types.ErrCodeConflict,
			"visit already has a summary and cannot re-enter processing")
	}

	record.IsProcessing = true
	return nil
}

// MarkReady atomically clears is_processing and sets the summary lines. The
// is_processing guard makes the transition first-success-wins: a late
// duplicate poll result is rejected, never applied last-write-wins.
func (s *Store) MarkReady(ctx context.Context, record *types.VisitRecord, lines []string) error {
	query := `
		UPDATE visits SET is_processing = FALSE, summary_lines = $1, updated_at = $2
		WHERE id = $3 AND is_processing = TRUE`

	result, err := s.db.ExecContext(ctx, query, mustJSON(lines), time.Now(), record.ID)
	if err != nil {
		return fmt.Errorf("failed to mark visit ready: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return types.NewConflictError(types.ErrCodeConflict,
			"visit is not processing, summary already applied")
	}

	record.IsProcessing = false
	record.SummaryLines = lines
	s.logger.WithVisitID(record.ID).Info("Visit summary ready")
	return nil
}

// AppendPrescriptionResults appends explanations and confirmed reminders to
// the record. Appends are additive only; nothing existing is overwritten and
// de-duplication by drug name is left to the caller.
func (s *Store) AppendPrescriptionResults(ctx context.Context, record *types.VisitRecord, explanations []types.Explanation, reminders []types.ReminderSpec) error {
	if len(explanations) == 0 && len(reminders) == 0 {
		return nil
	}

	query := `
		UPDATE visits
		SET explanations = explanations || $1::jsonb,
		    reminders = reminders || $2::jsonb,
		    updated_at = $3
		WHERE id = $4`

	result, err := s.db.ExecContext(ctx, query,
		mustJSON(explanations), mustJSON(reminders), time.Now(), record.ID)
	if err != nil {
		return fmt.Errorf("failed to append prescription results: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "visit record not found")
	}

	record.Prescription.Explanations = append(record.Prescription.Explanations, explanations...)
	record.Prescription.Reminders = append(record.Prescription.Reminders, reminders...)

	s.logger.WithVisitID(record.ID).WithFields(map[string]interface{}{
		"explanations": len(explanations),
		"reminders":    len(reminders),
	}).Info("Appended prescription results")
	return nil
}

// scanner covers *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanVisit reads one visit row, decoding the JSONB columns
func (s *Store) scanVisit(row scanner) (*types.VisitRecord, error) {
	record := &types.VisitRecord{}
	var summaryRaw, explanationsRaw, remindersRaw []byte

	err := row.Scan(
		&record.ID,
		&record.SessionID,
		&record.Name,
		&record.Description,
		&record.Date,
		&record.Doctor,
		&record.ColorIndex,
		&record.IsProcessing,
		&summaryRaw,
		&explanationsRaw,
		&remindersRaw,
		&record.CreatedAt,
		&record.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "visit record not found")
		}
		s.logger.WithError(err).Error("Failed to scan visit record")
		return nil, fmt.Errorf("failed to read visit record: %w", err)
	}

	if err := json.Unmarshal(summaryRaw, &record.SummaryLines); err != nil {
		return nil, fmt.Errorf("failed to decode summary lines: %w", err)
	}
	if err := json.Unmarshal(explanationsRaw, &record.Prescription.Explanations); err != nil {
		return nil, fmt.Errorf("failed to decode explanations: %w", err)
	}
	if err := json.Unmarshal(remindersRaw, &record.Prescription.Reminders); err != nil {
		return nil, fmt.Errorf("failed to decode reminders: %w", err)
	}

	return record, nil
}

// mustJSON encodes a value that cannot fail to marshal. Nil slices encode as
// empty arrays so JSONB concatenation behaves.
func mustJSON(v interface{}) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("visits: failed to marshal %T: %v", v, err))
	}
	if string(raw) == "null" {
		return []byte("[]")
	}
	return raw
}
