// Package file stores seasons and payloads as JSON files below a data directory.
//
// Layout:
//
//	<root>/seasons/<season>/drivers.json
//	<root>/uploads/<stored filename>
//	<root>/ingestions.json
package file

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mpapenbr/iracelog-league-stats/log"
	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/repository/api"
)

const (
	seasonsDir    = "seasons"
	uploadsDir    = "uploads"
	driversFile   = "drivers.json"
	ingestionFile = "ingestions.json"
)

type Option func(*Store)

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// WithRetry configures the retry policy for file operations.
func WithRetry(maxRetries uint64, initial time.Duration) Option {
	return func(s *Store) {
		s.maxRetries = maxRetries
		s.initialInterval = initial
	}
}

type Store struct {
	root            string
	mu              sync.Mutex // serializes index updates and commits
	log             *log.Logger
	maxRetries      uint64
	initialInterval time.Duration
}

var _ api.Repositories = (*Store)(nil)

func New(root string, opts ...Option) (*Store, error) {
	ret := &Store{
		root:            root,
		log:             log.Default().Named("file"),
		maxRetries:      3,
		initialInterval: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(ret)
	}
	for _, dir := range []string{ret.seasonsPath(), ret.uploadsPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, model.NewStorageError("init", err)
		}
	}
	return ret, nil
}

func (s *Store) Season() api.SeasonRepository {
	return &seasonRepo{store: s}
}

func (s *Store) Payload() api.PayloadRepository {
	return &payloadRepo{store: s}
}

func (s *Store) Close() {}

func (s *Store) seasonsPath() string {
	return filepath.Join(s.root, seasonsDir)
}

func (s *Store) seasonPath(name string) string {
	return filepath.Join(s.root, seasonsDir, name)
}

func (s *Store) driversPath(name string) string {
	return filepath.Join(s.root, seasonsDir, name, driversFile)
}

func (s *Store) uploadsPath() string {
	return filepath.Join(s.root, uploadsDir)
}

func (s *Store) uploadPath(filename string) string {
	return filepath.Join(s.root, uploadsDir, filename)
}

func (s *Store) indexPath() string {
	return filepath.Join(s.root, ingestionFile)
}

// retry runs op with exponential backoff. Errors about missing or existing
// files are not retried.
func (s *Store) retry(op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.initialInterval
	b.MaxElapsedTime = 5 * time.Second
	return backoff.RetryNotify(
		func() error {
			err := op()
			if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrExist) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithMaxRetries(b, s.maxRetries),
		func(err error, d time.Duration) {
			s.log.Warn("file operation failed, retrying",
				log.ErrorField(err), log.Duration("backoff", d))
		})
}

func (s *Store) readFile(path string) ([]byte, error) {
	var data []byte
	err := s.retry(func() error {
		var err error
		data, err = os.ReadFile(path)
		return err
	})
	return data, err
}

func (s *Store) loadIndex() ([]*model.IngestionRecord, error) {
	data, err := s.readFile(s.indexPath())
	if errors.Is(err, os.ErrNotExist) {
		return []*model.IngestionRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	ret := []*model.IngestionRecord{}
	if err := json.Unmarshal(data, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func encodeIndex(recs []*model.IngestionRecord) ([]byte, error) {
	return json.MarshalIndent(recs, "", "  ")
}

func encodeDrivers(drivers model.Drivers) ([]byte, error) {
	if drivers == nil {
		drivers = model.Drivers{}
	}
	return json.MarshalIndent(drivers, "", "  ")
}

func (s *Store) stageSeasons(tx *fileTx, seasons []*model.Season) error {
	for _, season := range seasons {
		data, err := encodeDrivers(season.Drivers)
		if err != nil {
			return err
		}
		if err := tx.write(s.driversPath(season.Name), data); err != nil {
			return err
		}
	}
	return nil
}

//nolint:whitespace // can't make both editor and linter happy
func (s *Store) CommitIngestion(
	ctx context.Context,
	rec *model.IngestionRecord,
	content []byte,
	seasons []*model.Season,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.uploadPath(rec.Filename)); err == nil {
		return model.NewStorageError("ingest",
			&os.PathError{Op: "create", Path: rec.Filename, Err: os.ErrExist})
	}
	recs, err := s.loadIndex()
	if err != nil {
		return model.NewStorageError("ingest", err)
	}
	recs = append(recs, rec)
	index, err := encodeIndex(recs)
	if err != nil {
		return model.NewStorageError("ingest", err)
	}

	tx := s.begin()
	err = func() error {
		if err := tx.write(s.uploadPath(rec.Filename), content); err != nil {
			return err
		}
		if err := tx.write(s.indexPath(), index); err != nil {
			return err
		}
		return s.stageSeasons(tx, seasons)
	}()
	if err != nil {
		tx.abort()
		return model.NewStorageError("ingest", err)
	}
	if err := tx.commit(); err != nil {
		return model.NewStorageError("ingest", err)
	}
	return nil
}

//nolint:whitespace // can't make both editor and linter happy
func (s *Store) CommitReversal(
	ctx context.Context,
	rec *model.IngestionRecord,
	seasons []*model.Season,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.begin()
	err := func() error {
		if err := s.stageSeasons(tx, seasons); err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
		recs, err := s.loadIndex()
		if err != nil {
			return err
		}
		kept := make([]*model.IngestionRecord, 0, len(recs))
		for _, r := range recs {
			if r.Filename != rec.Filename {
				kept = append(kept, r)
			}
		}
		index, err := encodeIndex(kept)
		if err != nil {
			return err
		}
		if err := tx.write(s.indexPath(), index); err != nil {
			return err
		}
		tx.remove(s.uploadPath(rec.Filename))
		return nil
	}()
	if err != nil {
		tx.abort()
		return model.NewStorageError("reverse", err)
	}
	if err := tx.commit(); err != nil {
		return model.NewStorageError("reverse", err)
	}
	return nil
}

// updateIndex rewrites the index with the result of f.
func (s *Store) updateIndex(f func(recs []*model.IngestionRecord) []*model.IngestionRecord) error {
	recs, err := s.loadIndex()
	if err != nil {
		return err
	}
	data, err := encodeIndex(f(recs))
	if err != nil {
		return err
	}
	tx := s.begin()
	if err := tx.write(s.indexPath(), data); err != nil {
		tx.abort()
		return err
	}
	return tx.commit()
}
