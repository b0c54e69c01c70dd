package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ems-desk/internal/domain"
)

func TestCredentialStore_RoundTrip(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "ems.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewCredentialStore(db)
	ctx := context.Background()
	require.NoError(t, store.Init(ctx))

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Records)

	want := []domain.Credential{{Username: "bob", Password: "h1"}, {Username: "amy", Password: "h2"}}
	require.NoError(t, store.Save(ctx, &domain.CredentialStore{Records: want}))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got.Records)

	require.NoError(t, store.Save(ctx, &domain.CredentialStore{Records: want[1:]}))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want[1:], got.Records)
}

func TestCredentialStore_Memory(t *testing.T) {
	db, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewCredentialStore(db)
	require.NoError(t, store.Init(context.Background()))
	require.NoError(t, store.Save(context.Background(), &domain.CredentialStore{Records: []domain.Credential{{Username: "x", Password: "y"}}}))

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, got.Records, 1)
}

func newMock(t *testing.T) (*CredentialStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &CredentialStore{db: db}, mock
}

func TestCredentialStore_LoadQueryError(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery("SELECT username, password FROM credentials").WillReturnError(errors.New("locked"))

	_, err := store.Load(context.Background())
	require.ErrorContains(t, err, "query credentials")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialStore_SaveRollsBackOnInsertError(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM credentials").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO credentials").
		WithArgs(0, "bob", "h").
		WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	err := store.Save(context.Background(), &domain.CredentialStore{Records: []domain.Credential{{Username: "bob", Password: "h"}}})
	require.ErrorContains(t, err, "insert credential")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialStore_SaveCommits(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM credentials").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO credentials").WithArgs(0, "bob", "h").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := store.Save(context.Background(), &domain.CredentialStore{Records: []domain.Credential{{Username: "bob", Password: "h"}}})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
