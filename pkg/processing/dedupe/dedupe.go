// Package dedupe detects payloads whose content was already stored.
package dedupe

import (
	"context"
	"errors"
	"sort"

	"github.com/mpapenbr/iracelog-league-stats/log"
	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/repository/api"
	"github.com/mpapenbr/iracelog-league-stats/pkg/utils"
)

type Option func(*Detector)

func WithLogger(l *log.Logger) Option {
	return func(d *Detector) {
		d.log = l
	}
}

type Detector struct {
	repo api.PayloadRepository
	log  *log.Logger
}

// Group is a set of stored payloads sharing one content digest.
type Group struct {
	Digest    string   `json:"digest"`
	Filenames []string `json:"filenames"`
}

func New(repo api.PayloadRepository, opts ...Option) *Detector {
	ret := &Detector{repo: repo, log: log.Default().Named("dedupe")}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Check returns the digest of raw. If a payload with the same digest is
// already stored a *model.DuplicateError is returned.
func (d *Detector) Check(ctx context.Context, raw []byte) (string, error) {
	digest := utils.HashContent(raw)
	rec, err := d.repo.FindByDigest(ctx, digest)
	switch {
	case errors.Is(err, model.ErrPayloadNotFound):
		return digest, nil
	case err != nil:
		return digest, err
	}
	d.log.Info("duplicate payload rejected",
		log.String("digest", model.ShortDigest(digest)),
		log.String("existing", rec.Filename))
	return digest, &model.DuplicateError{Existing: rec.Filename, Digest: digest}
}

// Scan rehashes the content of every stored payload and reports groups with
// more than one member.
func (d *Detector) Scan(ctx context.Context) ([]Group, error) {
	recs, err := d.repo.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	byDigest := map[string][]string{}
	for _, rec := range recs {
		content, err := d.repo.Content(ctx, rec.Filename)
		if err != nil {
			d.log.Warn("could not read stored payload",
				log.String("filename", rec.Filename), log.ErrorField(err))
			continue
		}
		digest := utils.HashContent(content)
		byDigest[digest] = append(byDigest[digest], rec.Filename)
	}
	ret := []Group{}
	for digest, files := range byDigest {
		if len(files) < 2 {
			continue
		}
		sort.Strings(files)
		ret = append(ret, Group{Digest: digest, Filenames: files})
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Filenames[0] < ret[j].Filenames[0]
	})
	return ret, nil
}
