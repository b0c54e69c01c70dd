package repository

import (
	"context"

	"ems-desk/internal/domain"
)

// CredentialStore persists the whole credential set. Load on a store that was
// never saved returns an empty set; Save replaces everything previously saved.
type CredentialStore interface {
	Init(ctx context.Context) error
	Load(ctx context.Context) (*domain.CredentialStore, error)
	Save(ctx context.Context, store *domain.CredentialStore) error
}
