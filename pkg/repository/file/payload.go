package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mpapenbr/iracelog-league-stats/log"
	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/utils"
)

type payloadRepo struct {
	store *Store
}

// LoadAll returns the indexed records plus records for upload files which
// are not part of the index (files from earlier releases).
func (r *payloadRepo) LoadAll(ctx context.Context) ([]*model.IngestionRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.loadAll()
}

func (r *payloadRepo) loadAll() ([]*model.IngestionRecord, error) {
	recs, err := r.store.loadIndex()
	if err != nil {
		return nil, model.NewStorageError("load payloads", err)
	}
	known := make(map[string]bool, len(recs))
	for _, rec := range recs {
		known[rec.Filename] = true
	}
	entries, err := os.ReadDir(r.store.uploadsPath())
	if err != nil {
		return nil, model.NewStorageError("load payloads", err)
	}
	for _, e := range entries {
		if e.IsDir() || known[e.Name()] || !isPayloadFile(e.Name()) {
			continue
		}
		rec, err := r.orphanRecord(e)
		if err != nil {
			r.store.log.Warn("skipping unreadable upload",
				log.String("filename", e.Name()), log.ErrorField(err))
			continue
		}
		recs = append(recs, rec)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].Filename > recs[j].Filename
		}
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	return recs, nil
}

func (r *payloadRepo) orphanRecord(e os.DirEntry) (*model.IngestionRecord, error) {
	info, err := e.Info()
	if err != nil {
		return nil, err
	}
	data, err := r.store.readFile(r.store.uploadPath(e.Name()))
	if err != nil {
		return nil, err
	}
	rec := model.NewIngestionRecord(utils.HashContent(data), e.Name(), e.Name(), len(data))
	rec.CreatedAt = info.ModTime().UTC().Truncate(time.Second)
	return rec, nil
}

// FindByDigest rehashes every stored file, the index digest is not trusted.
//
//nolint:whitespace // can't make both editor and linter happy
func (r *payloadRepo) FindByDigest(
	ctx context.Context,
	digest string,
) (*model.IngestionRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	recs, err := r.loadAll()
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := r.store.readFile(r.store.uploadPath(rec.Filename))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, model.NewStorageError("find payload", err)
		}
		if utils.HashContent(data) == digest {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", model.ErrPayloadNotFound, model.ShortDigest(digest))
}

//nolint:whitespace // can't make both editor and linter happy
func (r *payloadRepo) LoadByFilename(
	ctx context.Context,
	filename string,
) (*model.IngestionRecord, error) {
	if !validFilename(filename) {
		return nil, fmt.Errorf("%w: %s", model.ErrPayloadNotFound, filename)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	recs, err := r.loadAll()
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if rec.Filename == filename {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", model.ErrPayloadNotFound, filename)
}

func (r *payloadRepo) Content(ctx context.Context, filename string) ([]byte, error) {
	if !validFilename(filename) {
		return nil, fmt.Errorf("%w: %s", model.ErrPayloadNotFound, filename)
	}
	data, err := r.store.readFile(r.store.uploadPath(filename))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", model.ErrPayloadNotFound, filename)
	}
	if err != nil {
		return nil, model.NewStorageError("read payload", err)
	}
	return data, nil
}

func isPayloadFile(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".json") && !strings.HasPrefix(name, ".")
}

// validFilename rejects anything that would leave the uploads directory
func validFilename(name string) bool {
	return name != "" && filepath.Base(name) == name && isPayloadFile(name)
}
