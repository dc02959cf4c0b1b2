// Package inbox ingests result files dropped into a directory.
//
// Files are moved to the processed subdirectory after ingestion (duplicates
// included) and to the failed subdirectory if they cannot be used. Files
// that hit a storage failure stay in place and are retried on the next event.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mpapenbr/iracelog-league-stats/log"
	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/service/stats"
)

const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

type Ingester interface {
	Ingest(ctx context.Context, season, filename string, raw []byte) (*stats.IngestResult, error)
}

type IngesterFunc func(ctx context.Context, season, filename string, raw []byte) (
	*stats.IngestResult, error)

func (f IngesterFunc) Ingest(ctx context.Context, season, filename string, raw []byte) (
	*stats.IngestResult, error,
) {
	return f(ctx, season, filename, raw)
}

type (
	Watcher struct {
		dir      string
		ingester Ingester
		season   string
		settle   time.Duration
		log      *log.Logger
	}
	Option func(*Watcher)
)

func WithLogger(l *log.Logger) Option {
	return func(w *Watcher) {
		w.log = l
	}
}

// WithSeason sets the target season, default is the current season
func WithSeason(season string) Option {
	return func(w *Watcher) {
		w.season = season
	}
}

// WithSettleTime sets how long a file must be unchanged before it is
// ingested.
func WithSettleTime(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

func New(dir string, ingester Ingester, opts ...Option) (*Watcher, error) {
	ret := &Watcher{
		dir:      dir,
		ingester: ingester,
		settle:   time.Second,
		log:      log.Default().Named("inbox"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	for _, sub := range []string{ProcessedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func isCandidate(name string) bool {
	base := filepath.Base(name)
	return strings.EqualFold(filepath.Ext(base), ".json") && !strings.HasPrefix(base, ".")
}

// ProcessPending ingests all files currently in the inbox, oldest name first.
func (w *Watcher) ProcessPending(ctx context.Context) error {
	_, err := w.processPending(ctx)
	return err
}

// processPending returns the files kept in the inbox for another attempt.
func (w *Watcher) processPending(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, e := range entries {
		if e.Type().IsRegular() && isCandidate(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	retry := []string{}
	for _, n := range names {
		p := filepath.Join(w.dir, n)
		if w.ProcessFile(ctx, p) {
			retry = append(retry, p)
		}
	}
	return retry, nil
}

// ProcessFile ingests one file and moves it according to the outcome.
// It reports true if the file stays in the inbox and should be tried again.
func (w *Watcher) ProcessFile(ctx context.Context, path string) bool {
	l := w.log.With(log.String("file", filepath.Base(path)))
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false
		}
		l.Warn("could not read file", log.ErrorField(err))
		return true
	}
	res, err := w.ingester.Ingest(ctx, w.season, filepath.Base(path), raw)
	switch {
	case err == nil:
		l.Info("ingested",
			log.String("season", res.Season),
			log.String("stored", res.Filename),
			log.Int("rows", res.RowsProcessed))
		w.move(l, path, ProcessedDir)
	case errors.Is(err, model.ErrDuplicatePayload):
		l.Info("already ingested", log.ErrorField(err))
		w.move(l, path, ProcessedDir)
	case errors.Is(err, model.ErrMalformedPayload),
		errors.Is(err, model.ErrInvalidSeasonName):
		l.Warn("rejected", log.ErrorField(err))
		w.move(l, path, FailedDir)
	default:
		l.Error("could not ingest, keeping file", log.ErrorField(err))
		return true
	}
	return false
}

func (w *Watcher) move(l *log.Logger, path, sub string) {
	target := uniquePath(filepath.Join(w.dir, sub, filepath.Base(path)))
	if err := os.Rename(path, target); err != nil {
		l.Error("could not move file", log.String("target", target), log.ErrorField(err))
	}
}

func uniquePath(path string) string {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
	}
}

// Run processes pending files and then watches the inbox until ctx is done.
//
//nolint:funlen,cyclop // by design
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(w.dir); err != nil {
		return err
	}
	retry, err := w.processPending(ctx)
	if err != nil {
		return err
	}
	w.log.Info("watching inbox", log.String("dir", w.dir))

	// path -> time of last change or failed attempt
	pending := map[string]time.Time{}
	for _, p := range retry {
		pending[p] = time.Now()
	}
	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("context done, stopping inbox watcher")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.log.Debug("change detected",
				log.String("file", event.Name), log.Any("event", event))
			if !isCandidate(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				pending[event.Name] = time.Now()
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				delete(pending, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher error", log.ErrorField(err))
		case now := <-ticker.C:
			ready := []string{}
			for p, changed := range pending {
				if now.Sub(changed) >= w.settle {
					ready = append(ready, p)
				}
			}
			sort.Strings(ready)
			for _, p := range ready {
				delete(pending, p)
				if w.ProcessFile(ctx, p) {
					pending[p] = time.Now()
				}
			}
		}
	}
}
