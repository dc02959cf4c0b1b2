package stats

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/mpapenbr/iracelog-league-stats/log"
	"github.com/mpapenbr/iracelog-league-stats/pkg/metrics"
	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/notify"
	"github.com/mpapenbr/iracelog-league-stats/pkg/processing/dedupe"
	"github.com/mpapenbr/iracelog-league-stats/pkg/processing/payload"
	"github.com/mpapenbr/iracelog-league-stats/pkg/processing/reversal"
	"github.com/mpapenbr/iracelog-league-stats/pkg/processing/season"
	"github.com/mpapenbr/iracelog-league-stats/pkg/utils"
)

type IngestResult struct {
	Season         string                    `json:"season"`
	Digest         string                    `json:"digest"`
	Filename       string                    `json:"filename"` // stored filename
	RowsProcessed  int                       `json:"rowsProcessed"`
	DriversUpdated int                       `json:"driversUpdated"`
	Warnings       []model.ValidationWarning `json:"warnings"`
}

// Ingest applies the race session of raw to a season and stores raw.
// An empty seasonName selects the current season.
//
// Returns model.ErrMalformedPayload for unusable documents and a
// *model.DuplicateError if the same content was already ingested.
//
//nolint:funlen,whitespace // by design
func (s *Service) Ingest(
	ctx context.Context,
	seasonName, filename string,
	raw []byte,
) (ret *IngestResult, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "stats.Ingest")
	defer span.End()
	defer func() {
		s.metrics.RecordIngestion(ingestOutcome(err), rowsOf(ret), time.Since(start))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if seasonName == "" {
		seasonName = s.CurrentSeason()
	}
	if seasonName == "" {
		return nil, fmt.Errorf("%w: no season given and no current season set",
			model.ErrSeasonNotFound)
	}
	if !model.ValidSeasonName(seasonName) {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidSeasonName, seasonName)
	}
	span.SetAttributes(attribute.String("season", seasonName))

	p, err := payload.Parse(raw)
	if err != nil {
		return nil, err
	}
	l := s.log.With(
		log.String("season", seasonName),
		log.String("digest", model.ShortDigest(p.Digest)))

	unlock := s.locks.LockAll(payloadKey(p.Digest), seasonKey(seasonName))
	defer unlock()

	if _, err = s.detector.Check(ctx, raw); err != nil {
		return nil, err
	}

	current, err := s.repos.Season().Load(ctx, seasonName)
	switch {
	case errors.Is(err, model.ErrSeasonNotFound):
		l.Info("creating season on first reference")
		current = &model.Season{Name: seasonName, Drivers: model.Drivers{}}
	case err != nil:
		return nil, err
	}

	drivers := current.Drivers.Clone()
	res := season.Apply(seasonName, drivers, p)
	for _, w := range res.Warnings {
		l.Warn("validation warning", log.String("warning", w.String()))
		s.metrics.RecordWarning(string(w.Kind))
	}

	unlockFile := s.locks.Lock(fileKey(utils.SanitizeFilename(filename)))
	defer unlockFile()
	stored, err := s.storedFilename(ctx, filename)
	if err != nil {
		return nil, err
	}
	originalName := ""
	if filename != "" {
		originalName = filepath.Base(filename)
	}
	rec := model.NewIngestionRecord(p.Digest, stored, originalName, len(raw))
	rec.Seasons = []string{seasonName}
	if err = s.repos.CommitIngestion(ctx, rec, raw,
		[]*model.Season{{Name: seasonName, Drivers: drivers}}); err != nil {
		l.Error("could not store ingestion", log.ErrorField(err))
		return nil, err
	}
	l.Info("payload ingested",
		log.String("filename", stored),
		log.Int("rows", res.RowsProcessed),
		log.Int("drivers", res.DriversUpdated))
	s.notify(notify.SeasonUpdated, []string{seasonName}, stored, "")

	return &IngestResult{
		Season:         seasonName,
		Digest:         p.Digest,
		Filename:       stored,
		RowsProcessed:  res.RowsProcessed,
		DriversUpdated: res.DriversUpdated,
		Warnings:       res.Warnings,
	}, nil
}

// storedFilename picks an unused stored filename for name.
func (s *Service) storedFilename(ctx context.Context, name string) (string, error) {
	base := utils.StoredFilename(s.now(), name)
	candidate := base
	for i := 1; ; i++ {
		_, err := s.repos.Payload().LoadByFilename(ctx, candidate)
		if errors.Is(err, model.ErrPayloadNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s_%d.json", strings.TrimSuffix(base, ".json"), i)
	}
}

func ingestOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, model.ErrDuplicatePayload):
		return metrics.OutcomeDuplicate
	case errors.Is(err, model.ErrMalformedPayload):
		return metrics.OutcomeMalformed
	default:
		return metrics.OutcomeError
	}
}

func rowsOf(r *IngestResult) int {
	if r == nil {
		return 0
	}
	return r.RowsProcessed
}

type ReverseResult struct {
	Digest          string   `json:"digest"`
	Filename        string   `json:"filename,omitempty"` // removed stored payload
	AffectedSeasons []string `json:"affectedSeasons"`
	DriversRemoved  []string `json:"driversRemoved"`
	// drivers reverted without ledger data
	Approximated []string `json:"approximated"`
}

// Reverse removes the contribution of raw from every season it was applied
// to and deletes the stored payload with the same content.
func (s *Service) Reverse(ctx context.Context, raw []byte) (*ReverseResult, error) {
	ctx, span := s.tracer.Start(ctx, "stats.Reverse")
	defer span.End()
	p, err := payload.Parse(raw)
	if err != nil {
		s.metrics.RecordReversal(metrics.OutcomeMalformed)
		return nil, err
	}
	unlock := s.locks.Lock(payloadKey(p.Digest))
	defer unlock()

	rec, err := s.repos.Payload().FindByDigest(ctx, p.Digest)
	if err != nil && !errors.Is(err, model.ErrPayloadNotFound) {
		s.metrics.RecordReversal(metrics.OutcomeError)
		return nil, err
	}
	ret, err := s.revert(ctx, p, rec)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.metrics.RecordReversal(metrics.OutcomeError)
		return nil, err
	}
	s.metrics.RecordReversal(metrics.OutcomeOK)
	return ret, nil
}

// DeletePayload deletes a stored payload and reverses its contribution.
// A stored payload which cannot be parsed is deleted without reversal.
func (s *Service) DeletePayload(ctx context.Context, filename string) (*ReverseResult, error) {
	ctx, span := s.tracer.Start(ctx, "stats.DeletePayload")
	defer span.End()
	rec, err := s.repos.Payload().LoadByFilename(ctx, filename)
	if err != nil {
		return nil, err
	}
	raw, err := s.repos.Payload().Content(ctx, filename)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(payloadKey(rec.Digest))
	defer unlock()

	p, err := payload.Parse(raw)
	if errors.Is(err, model.ErrMalformedPayload) {
		s.log.Warn("deleting unparsable payload without reversal",
			log.String("filename", filename), log.ErrorField(err))
		if err := s.repos.CommitReversal(ctx, rec, nil); err != nil {
			return nil, err
		}
		return &ReverseResult{
			Digest:          rec.Digest,
			Filename:        rec.Filename,
			AffectedSeasons: []string{},
			DriversRemoved:  []string{},
			Approximated:    []string{},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	ret, err := s.revert(ctx, p, rec)
	if err != nil {
		s.metrics.RecordReversal(metrics.OutcomeError)
		return nil, err
	}
	s.metrics.RecordReversal(metrics.OutcomeOK)
	return ret, nil
}

// revert must be called with the payload lock held. rec may be nil.
//
//nolint:funlen,cyclop,whitespace // by design
func (s *Service) revert(
	ctx context.Context,
	p *model.RacePayload,
	rec *model.IngestionRecord,
) (*ReverseResult, error) {
	l := s.log.With(log.String("digest", model.ShortDigest(p.Digest)))
	candidates, err := s.reversalCandidates(ctx, p, rec)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.LockAll(seasonKeys(candidates)...)
	defer unlock()

	ret := &ReverseResult{
		Digest:          p.Digest,
		AffectedSeasons: []string{},
		DriversRemoved:  []string{},
		Approximated:    []string{},
	}
	changed := []*model.Season{}
	for _, name := range candidates {
		current, err := s.repos.Season().Load(ctx, name)
		if errors.Is(err, model.ErrSeasonNotFound) {
			l.Warn("season of payload no longer exists", log.String("season", name))
			continue
		}
		if err != nil {
			return nil, err
		}
		drivers := current.Drivers.Clone()
		res := reversal.Revert(drivers, p)
		if !res.Changed {
			continue
		}
		for _, d := range res.Approximated {
			l.Warn("driver reverted without ledger data",
				log.String("season", name), log.String("driver", d))
		}
		ret.AffectedSeasons = append(ret.AffectedSeasons, name)
		ret.DriversRemoved = append(ret.DriversRemoved, res.DriversRemoved...)
		ret.Approximated = append(ret.Approximated, res.Approximated...)
		changed = append(changed, &model.Season{Name: name, Drivers: drivers})
	}
	if rec == nil && len(changed) == 0 {
		l.Warn("payload was not applied to any season")
		return ret, nil
	}
	if err := s.repos.CommitReversal(ctx, rec, changed); err != nil {
		l.Error("could not store reversal", log.ErrorField(err))
		return nil, err
	}
	if rec != nil {
		ret.Filename = rec.Filename
	}
	l.Info("payload reversed",
		log.Strings("seasons", ret.AffectedSeasons),
		log.String("filename", ret.Filename))
	if len(ret.AffectedSeasons) > 0 {
		s.notify(notify.SeasonReverted, ret.AffectedSeasons, ret.Filename, "")
	}
	return ret, nil
}

// reversalCandidates returns the seasons the payload was applied to.
// Without associated seasons every season referencing the digest is used.
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Service) reversalCandidates(
	ctx context.Context,
	p *model.RacePayload,
	rec *model.IngestionRecord,
) ([]string, error) {
	if rec != nil && len(rec.Seasons) > 0 {
		return append([]string{}, rec.Seasons...), nil
	}
	all, err := s.repos.Season().List(ctx)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.RLockAll(seasonKeys(all)...)
	defer unlock()
	ret := []string{}
	for _, name := range all {
		current, err := s.repos.Season().Load(ctx, name)
		if errors.Is(err, model.ErrSeasonNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if reversal.References(current.Drivers, p.Digest) {
			ret = append(ret, name)
		}
	}
	return ret, nil
}

func (s *Service) ListPayloads(ctx context.Context) ([]*model.IngestionRecord, error) {
	return s.repos.Payload().LoadAll(ctx)
}

// ScanDuplicates reports stored payloads sharing the same content.
func (s *Service) ScanDuplicates(ctx context.Context) ([]dedupe.Group, error) {
	ctx, span := s.tracer.Start(ctx, "stats.ScanDuplicates")
	defer span.End()
	return s.detector.Scan(ctx)
}
