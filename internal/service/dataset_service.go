package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ems-desk/internal/domain"
	"ems-desk/internal/storage"
	"ems-desk/internal/table"
)

var (
	// ErrDatasetNotFound is returned for unknown dataset IDs.
	ErrDatasetNotFound = errors.New("dataset not found")
	// ErrInvalidDataset is returned when an upload is not a readable CSV file.
	ErrInvalidDataset = errors.New("invalid dataset")
)

const (
	dataSuffix = ".csv"
	metaSuffix = ".json"
)

// DatasetService keeps uploaded CSV files so later requests can run table
// operations on them by ID.
type DatasetService interface {
	Upload(ctx context.Context, owner, name string, body io.Reader) (*domain.Dataset, *table.Table, error)
	Get(ctx context.Context, id string) (*domain.Dataset, error)
	Load(ctx context.Context, id string) (*table.Table, error)
	List(ctx context.Context) ([]domain.Dataset, error)
	Replace(ctx context.Context, id string, t *table.Table) (*domain.Dataset, error)
	Delete(ctx context.Context, id string) error
}

type datasetService struct {
	storage  storage.Service
	prefix   string
	maxBytes int64
	logger   *logrus.Logger
}

func NewDatasetService(store storage.Service, keyPrefix string, maxBytes int64, logger *logrus.Logger) DatasetService {
	return &datasetService{
		storage:  store,
		prefix:   strings.Trim(keyPrefix, "/"),
		maxBytes: maxBytes,
		logger:   logger,
	}
}

func (s *datasetService) key(id, suffix string) string {
	return path.Join(s.prefix, id+suffix)
}

func (s *datasetService) Upload(ctx context.Context, owner, name string, body io.Reader) (*domain.Dataset, *table.Table, error) {
	reader := body
	if s.maxBytes > 0 {
		reader = io.LimitReader(body, s.maxBytes+1)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("read upload: %w", err)
	}
	if s.maxBytes > 0 && int64(len(raw)) > s.maxBytes {
		return nil, nil, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidDataset, s.maxBytes)
	}

	t, err := table.ReadCSV(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}

	now := time.Now().UTC()
	ds := &domain.Dataset{
		ID:        uuid.NewString(),
		Name:      name,
		Owner:     owner,
		Size:      int64(len(raw)),
		Rows:      t.Len(),
		Columns:   len(t.Columns),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.storage.Put(ctx, s.key(ds.ID, dataSuffix), bytes.NewReader(raw), "text/csv"); err != nil {
		return nil, nil, fmt.Errorf("store dataset: %w", err)
	}
	if err := s.putMeta(ctx, ds); err != nil {
		return nil, nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"dataset": ds.ID,
		"owner":   owner,
		"rows":    ds.Rows,
	}).Info("dataset uploaded")
	return ds, t, nil
}

func (s *datasetService) putMeta(ctx context.Context, ds *domain.Dataset) error {
	meta, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("encode dataset metadata: %w", err)
	}
	if err := s.storage.Put(ctx, s.key(ds.ID, metaSuffix), bytes.NewReader(meta), "application/json"); err != nil {
		return fmt.Errorf("store dataset metadata: %w", err)
	}
	return nil
}

func (s *datasetService) Get(ctx context.Context, id string) (*domain.Dataset, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrDatasetNotFound
	}
	body, err := s.storage.Get(ctx, s.key(id, metaSuffix))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrDatasetNotFound
		}
		return nil, err
	}
	defer body.Close()

	var ds domain.Dataset
	if err := json.NewDecoder(body).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode dataset metadata: %w", err)
	}
	return &ds, nil
}

func (s *datasetService) Load(ctx context.Context, id string) (*table.Table, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	body, err := s.storage.Get(ctx, s.key(id, dataSuffix))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrDatasetNotFound
		}
		return nil, err
	}
	defer body.Close()

	t, err := table.ReadCSV(body)
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", id, err)
	}
	return t, nil
}

func (s *datasetService) List(ctx context.Context) ([]domain.Dataset, error) {
	prefix := s.prefix
	if prefix != "" {
		prefix += "/"
	}
	objects, err := s.storage.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	datasets := make([]domain.Dataset, 0, len(objects)/2)
	for _, obj := range objects {
		if !strings.HasSuffix(obj.Key, metaSuffix) {
			continue
		}
		id := strings.TrimSuffix(path.Base(obj.Key), metaSuffix)
		ds, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrDatasetNotFound) {
				continue
			}
			return nil, err
		}
		datasets = append(datasets, *ds)
	}
	return datasets, nil
}

func (s *datasetService) Replace(ctx context.Context, id string, t *table.Table) (*domain.Dataset, error) {
	ds, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := table.WriteCSV(&buf, t); err != nil {
		return nil, fmt.Errorf("encode dataset: %w", err)
	}
	ds.Size = int64(buf.Len())
	ds.Rows = t.Len()
	ds.Columns = len(t.Columns)
	ds.UpdatedAt = time.Now().UTC()

	if err := s.storage.Put(ctx, s.key(id, dataSuffix), &buf, "text/csv"); err != nil {
		return nil, fmt.Errorf("store dataset: %w", err)
	}
	if err := s.putMeta(ctx, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func (s *datasetService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, s.key(id, dataSuffix)); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, s.key(id, metaSuffix)); err != nil {
		return err
	}
	s.logger.WithField("dataset", id).Info("dataset deleted")
	return nil
}
