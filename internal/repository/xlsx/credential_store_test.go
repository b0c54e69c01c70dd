package xlsx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ems-desk/internal/domain"
)

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	store := NewCredentialStore(filepath.Join(t.TempDir(), "user_data.xlsx"))

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.Records)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "user_data.xlsx")
	store := NewCredentialStore(path)
	ctx := context.Background()
	require.NoError(t, store.Init(ctx))

	want := &domain.CredentialStore{Records: []domain.Credential{
		{Username: "bob", Password: "$2a$04$abcdefghijklmnopqrstuv"},
		{Username: "amy", Password: "12345"},
	}}
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Records, got.Records)

	// a second save replaces the first
	require.NoError(t, store.Save(ctx, &domain.CredentialStore{Records: want.Records[:1]}))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Records[:1], got.Records)
}

func TestLoad_ReadsForeignWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Password", "Username"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"pw1", "alice"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"pw2", ""}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]any{"pw3", "carol"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	got, err := NewCredentialStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Credential{
		{Username: "alice", Password: "pw1"},
		{Username: "carol", Password: "pw3"},
	}, got.Records)
}

func TestLoad_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCredentialStore(filepath.Join(t.TempDir(), "x.xlsx")).Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
