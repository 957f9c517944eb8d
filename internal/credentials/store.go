package credentials

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Diegogtz03/kofy-app/pkg/database"
	"github.com/Diegogtz03/kofy-app/pkg/interfaces"
	"github.com/Diegogtz03/kofy-app/pkg/logger"
	"github.com/Diegogtz03/kofy-app/pkg/types"
)

// Store persists the single credentials value across launches. One row,
// replaced on every save; no ambient process-wide session state anywhere
// else.
type Store struct {
	db     *database.DB
	logger *logger.Logger
}

// NewStore creates a new credential store
func NewStore(db *database.DB, log *logger.Logger) interfaces.CredentialStore {
	return &Store{
		db:     db,
		logger: log,
	}
}

// Load retrieves the stored credentials. A missing row is a NotFound error,
// meaning the user has to sign in.
func (s *Store) Load(ctx context.Context) (*types.Credentials, error) {
	creds := &types.Credentials{}
	err := s.db.QueryRowContext(ctx,
		`SELECT token, user_id FROM credentials WHERE singleton`).
		Scan(&creds.Token, &creds.UserID)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "no stored credentials")
		}
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	return creds, nil
}

// Save stores the credentials, replacing any previous value
func (s *Store) Save(ctx context.Context, creds *types.Credentials) error {
	query := `
		INSERT INTO credentials (singleton, token, user_id, updated_at)
		VALUES (TRUE, $1, $2, $3)
		ON CONFLICT (singleton) DO UPDATE
		SET token = EXCLUDED.token, user_id = EXCLUDED.user_id, updated_at = EXCLUDED.updated_at`

	if _, err := s.db.ExecContext(ctx, query, creds.Token, creds.UserID, time.Now()); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	s.logger.WithField("user_id", creds.UserID).Info("Saved credentials")
	return nil
}

// Clear removes the stored credentials. Clearing an empty store is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE singleton`); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}

	s.logger.Info("Cleared credentials")
	return nil
}
