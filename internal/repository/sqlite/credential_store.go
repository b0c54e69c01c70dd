package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"ems-desk/internal/domain"
	"ems-desk/internal/repository"
)

const createCredentialsTable = `
CREATE TABLE IF NOT EXISTS credentials (
	position INTEGER PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL
);
`

// CredentialStore keeps the credential set in a sqlite table. Save swaps the
// whole table inside one transaction.
type CredentialStore struct {
	db *sql.DB
}

func NewCredentialStore(db *sql.DB) repository.CredentialStore {
	return &CredentialStore{db: db}
}

func (s *CredentialStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createCredentialsTable); err != nil {
		return fmt.Errorf("create credentials table: %w", err)
	}
	return nil
}

func (s *CredentialStore) Load(ctx context.Context) (*domain.CredentialStore, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT username, password
FROM credentials
ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer rows.Close()

	store := &domain.CredentialStore{}
	for rows.Next() {
		var rec domain.Credential
		if err := rows.Scan(&rec.Username, &rec.Password); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		store.Records = append(store.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return store, nil
}

func (s *CredentialStore) Save(ctx context.Context, store *domain.CredentialStore) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}

	for i, rec := range store.Records {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO credentials (position, username, password)
VALUES (?, ?, ?)`,
			i,
			rec.Username,
			rec.Password,
		); err != nil {
			return fmt.Errorf("insert credential: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
