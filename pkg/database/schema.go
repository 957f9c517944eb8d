package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the database schema for visit records, reminders and
// stored credentials
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.Info("Creating database schema...")

	if err := db.createExtensions(ctx); err != nil {
		return fmt.Errorf("failed to create extensions: %w", err)
	}

	tables := []string{
		createVisitsTable,
		createRemindersTable,
		createCredentialsTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		createVisitsIndexes,
		createRemindersIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	db.logger.Info("Database schema created successfully")
	return nil
}

// createExtensions creates required PostgreSQL extensions
func (db *DB) createExtensions(ctx context.Context) error {
	extensions := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}

	for _, ext := range extensions {
		if _, err := db.ExecContext(ctx, ext); err != nil {
			return fmt.Errorf("failed to create extension: %w", err)
		}
	}

	return nil
}

// SQL DDL statements for table creation
const (
	createVisitsTable = `
		CREATE TABLE IF NOT EXISTS visits (
			id UUID PRIMARY KEY,
			session_id VARCHAR(100) NOT NULL DEFAULT '',
			name VARCHAR(200) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			visit_date VARCHAR(50) NOT NULL DEFAULT '',
			doctor VARCHAR(200) NOT NULL DEFAULT '',
			color_index INTEGER NOT NULL DEFAULT 0,
			is_processing BOOLEAN NOT NULL DEFAULT FALSE,
			summary_lines JSONB NOT NULL DEFAULT '[]',
			explanations JSONB NOT NULL DEFAULT '[]',
			reminders JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	createRemindersTable = `
		CREATE TABLE IF NOT EXISTS reminders (
			id UUID PRIMARY KEY,
			drug_name VARCHAR(200) NOT NULL,
			dosage VARCHAR(200) NOT NULL,
			every_x_hours INTEGER NOT NULL CHECK (every_x_hours >= 1),
			notification_handle VARCHAR(100) NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			expiration_date TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	createCredentialsTable = `
		CREATE TABLE IF NOT EXISTS credentials (
			singleton BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
			token TEXT NOT NULL,
			user_id VARCHAR(100) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	// A non-empty session id must be unique among visits; empty means the
	// session has not been opened yet
	createVisitsIndexes = `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_visits_session_id
			ON visits (session_id) WHERE session_id <> '';
		CREATE INDEX IF NOT EXISTS idx_visits_processing
			ON visits (is_processing) WHERE is_processing;`

	createRemindersIndexes = `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_reminders_handle
			ON reminders (notification_handle);
		CREATE INDEX IF NOT EXISTS idx_reminders_expiration
			ON reminders (expiration_date);`
)
