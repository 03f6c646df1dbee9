package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"taskboard/internal/docstore"
	"taskboard/pkg/logger"
)

// CreateTableIfNotExists prepares the single JSONB table behind
// docstore.PostgresStore.
func CreateTableIfNotExists(db *sql.DB) error {
	query := `
CREATE TABLE IF NOT EXISTS documents (
    collection VARCHAR(64) NOT NULL,
    id VARCHAR(255) NOT NULL,
    version BIGINT NOT NULL DEFAULT 1,
    data JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS documents_data_idx ON documents USING GIN (data jsonb_path_ops);
CREATE INDEX IF NOT EXISTS documents_created_idx ON documents (collection, created_at, id);
`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("error creating table: %w", err)
	}
	logger.SystemLogger.Info("Table 'documents' is ready")
	return nil
}

// CreateAdminUser stores an admin account with the given password unless an
// account with that username already exists.
func CreateAdminUser(ctx context.Context, store docstore.Store, username, password string) error {
	existing, err := store.Query(ctx, docstore.Accounts, docstore.Where("username", username))
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.SystemLogger.Info("Admin user already exists", zap.String("username", username))
		return nil
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	_, err = store.Create(ctx, docstore.Accounts, "", map[string]any{
		"username": username,
		"email":    username + "@mail.com",
		"password": string(hashedPassword),
		"role":     "admin",
	})
	if err != nil && !errors.Is(err, docstore.ErrAlreadyExists) {
		return fmt.Errorf("error inserting admin user: %w", err)
	}
	logger.SystemLogger.Info("Admin user is created", zap.String("username", username))
	return nil
}

func DeleteAllTable(db *sql.DB) error {
	if _, err := db.Exec(`DROP TABLE IF EXISTS documents;`); err != nil {
		return fmt.Errorf("error deleting table: %w", err)
	}
	logger.SystemLogger.Info("Table 'documents' is deleted")
	return nil
}
