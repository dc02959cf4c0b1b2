// Package stats is the entry point for ingesting race results and querying
// season and career statistics.
package stats

import (
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/iracelog-league-stats/log"
	"github.com/mpapenbr/iracelog-league-stats/pkg/metrics"
	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/notify"
	"github.com/mpapenbr/iracelog-league-stats/pkg/processing/dedupe"
	"github.com/mpapenbr/iracelog-league-stats/pkg/repository/api"
	"github.com/mpapenbr/iracelog-league-stats/pkg/utils/cache"
	"github.com/mpapenbr/iracelog-league-stats/pkg/utils/cache/loadercache"
	"github.com/mpapenbr/iracelog-league-stats/pkg/utils/keylock"
)

// Config holds the settings the service needs at runtime.
type Config struct {
	// CurrentSeason receives payloads ingested without explicit season.
	// It cannot be deleted.
	CurrentSeason string
}

type Option func(*Service)

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithDispatcher sets the dispatcher used for season change notifications.
func WithDispatcher(d *notify.Dispatcher) Option {
	return func(s *Service) {
		s.dispatcher = d
	}
}

// WithCareerCacheTTL caches the career view for at most ttl. Changes made
// through this service invalidate it at once, changes of other processes
// sharing the storage are not seen until the TTL expires. Only use it when
// this service is the single writer. A ttl <= 0 rebuilds the view on every
// query, which is the default.
func WithCareerCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.careerTTL = ttl
	}
}

// WithClock replaces the time source used for stored filenames.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

type Service struct {
	repos      api.Repositories
	detector   *dedupe.Detector
	locks      *keylock.KeyLock
	log        *log.Logger
	tracer     trace.Tracer
	metrics    *metrics.Manager
	dispatcher *notify.Dispatcher
	now        func() time.Time
	career     cache.Cache[string, model.Drivers] // nil unless enabled
	careerTTL  time.Duration

	mu            sync.RWMutex
	currentSeason string
}

func New(repos api.Repositories, cfg Config, opts ...Option) *Service {
	ret := &Service{
		repos:         repos,
		locks:         keylock.New(),
		log:           log.Default().Named("stats"),
		now:           time.Now,
		currentSeason: cfg.CurrentSeason,
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.tracer == nil {
		ret.tracer = otel.Tracer("ils")
	}
	if ret.careerTTL > 0 {
		ret.career = loadercache.New(
			loadercache.WithLoader[string, model.Drivers](ret.loadCareer),
			loadercache.WithExpiration[string, model.Drivers](ret.careerTTL),
			loadercache.WithLogger[string, model.Drivers](ret.log.Named("cache")))
	}
	ret.detector = dedupe.New(repos.Payload(), dedupe.WithLogger(ret.log.Named("dedupe")))
	return ret
}

// CurrentSeason returns the season used when no season is given.
func (s *Service) CurrentSeason() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSeason
}

func (s *Service) setCurrent(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentSeason = name
}

// notify must be called after every committed season change.
func (s *Service) notify(kind notify.EventKind, seasons []string, payload, previous string) {
	if s.career != nil {
		s.career.InvalidateAll()
	}
	s.dispatcher.Dispatch(notify.Event{
		Kind:     kind,
		Seasons:  seasons,
		Payload:  payload,
		Previous: previous,
	})
}

const careerKey = "career"

func seasonKey(name string) string {
	return "season:" + name
}

func payloadKey(digest string) string {
	return "payload:" + digest
}

func fileKey(name string) string {
	return "file:" + name
}

func seasonKeys(names []string) []string {
	ret := make([]string, len(names))
	for i, n := range names {
		ret[i] = seasonKey(n)
	}
	return ret
}
