package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

const shortDigestLen = 16

// IngestionRecord links a stored payload to the seasons it was applied to.
type IngestionRecord struct {
	ID           uuid.UUID `json:"id"`
	Digest       string    `json:"digest"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Seasons      []string  `json:"seasons"`
	Size         int       `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
}

func NewIngestionRecord(digest, filename, originalName string, size int) *IngestionRecord {
	return &IngestionRecord{
		ID:           uuid.Must(uuid.NewV4()),
		Digest:       digest,
		Filename:     filename,
		OriginalName: originalName,
		Size:         size,
		CreatedAt:    time.Now().UTC(),
		Seasons:      []string{},
	}
}

func (r *IngestionRecord) ShortDigest() string {
	return ShortDigest(r.Digest)
}

// ShortDigest returns the display form of a content digest.
func ShortDigest(digest string) string {
	if len(digest) <= shortDigestLen {
		return digest
	}
	return digest[:shortDigestLen]
}

// StoredPayload is a stored raw payload together with its ingestion record.
type StoredPayload struct {
	Record  *IngestionRecord
	Content []byte
}
