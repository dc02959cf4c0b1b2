package api

import (
	"context"

	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
)

// Repositories bundles the storage of seasons and stored payloads.
// Implementations persist CommitIngestion and CommitReversal as one unit:
// either all changes become visible or none.
type Repositories interface {
	Season() SeasonRepository
	Payload() PayloadRepository
	// CommitIngestion stores the payload with its record and replaces the
	// given seasons.
	CommitIngestion(
		ctx context.Context,
		rec *model.IngestionRecord,
		content []byte,
		seasons []*model.Season,
	) error
	// CommitReversal replaces the given seasons and removes the stored
	// payload of rec. rec may be nil if the payload was never stored.
	CommitReversal(
		ctx context.Context,
		rec *model.IngestionRecord,
		seasons []*model.Season,
	) error
	Close()
}

type SeasonRepository interface {
	List(ctx context.Context) ([]string, error)
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, name string) error
	// Load returns model.ErrSeasonNotFound for unknown seasons
	Load(ctx context.Context, name string) (*model.Season, error)
	// Save replaces the season as a whole, the season is created if missing
	Save(ctx context.Context, season *model.Season) error
	Delete(ctx context.Context, name string) error
	Rename(ctx context.Context, from, to string) error
}

type PayloadRepository interface {
	// LoadAll returns all ingestion records, newest first
	LoadAll(ctx context.Context) ([]*model.IngestionRecord, error)
	// FindByDigest returns model.ErrPayloadNotFound if no stored payload has
	// the given content digest
	FindByDigest(ctx context.Context, digest string) (*model.IngestionRecord, error)
	LoadByFilename(ctx context.Context, filename string) (*model.IngestionRecord, error)
	Content(ctx context.Context, filename string) ([]byte, error)
}
