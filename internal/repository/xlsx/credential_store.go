// Package xlsx keeps the credential set in a two-column spreadsheet with a
// Username/Password header row on its first sheet.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"ems-desk/internal/domain"
	"ems-desk/internal/repository"
)

const (
	sheetName      = "Sheet1"
	usernameHeader = "Username"
	passwordHeader = "Password"
)

// CredentialStore reads the whole workbook on Load and rewrites it on Save.
// Saves go through a temporary file in the same directory and a rename, so
// a reader never sees a half-written workbook.
type CredentialStore struct {
	path string
}

func NewCredentialStore(path string) repository.CredentialStore {
	return &CredentialStore{path: path}
}

func (s *CredentialStore) Init(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	return ctx.Err()
}

func (s *CredentialStore) Load(ctx context.Context) (*domain.CredentialStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &domain.CredentialStore{}, nil
		}
		return nil, fmt.Errorf("stat credential file: %w", err)
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open credential file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read credential rows: %w", err)
	}

	store := &domain.CredentialStore{}
	if len(rows) == 0 {
		return store, nil
	}

	userCol, passCol := 0, 1
	for i, h := range rows[0] {
		switch strings.TrimSpace(h) {
		case usernameHeader:
			userCol = i
		case passwordHeader:
			passCol = i
		}
	}

	for _, row := range rows[1:] {
		username := cell(row, userCol)
		if username == "" {
			continue
		}
		store.Records = append(store.Records, domain.Credential{
			Username: username,
			Password: cell(row, passCol),
		})
	}
	return store, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func (s *CredentialStore) Save(ctx context.Context, store *domain.CredentialStore) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow(sheetName, "A1", &[]any{usernameHeader, passwordHeader}); err != nil {
		return fmt.Errorf("write credential header: %w", err)
	}
	for i, rec := range store.Records {
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("credential cell name: %w", err)
		}
		if err := f.SetSheetRow(sheetName, addr, &[]any{rec.Username, rec.Password}); err != nil {
			return fmt.Errorf("write credential %d: %w", i, err)
		}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp credential file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credential file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}
