// Package util holds the setup shared by the ils commands.
package util

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/pgx-contrib/pgxtrace"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mpapenbr/iracelog-league-stats/log"
	"github.com/mpapenbr/iracelog-league-stats/pkg/config"
	"github.com/mpapenbr/iracelog-league-stats/pkg/db/postgres"
	"github.com/mpapenbr/iracelog-league-stats/pkg/metrics"
	"github.com/mpapenbr/iracelog-league-stats/pkg/notify"
	"github.com/mpapenbr/iracelog-league-stats/pkg/notify/nats"
	"github.com/mpapenbr/iracelog-league-stats/pkg/repository/api"
	"github.com/mpapenbr/iracelog-league-stats/pkg/repository/file"
	pgstore "github.com/mpapenbr/iracelog-league-stats/pkg/repository/postgres"
	"github.com/mpapenbr/iracelog-league-stats/pkg/service/stats"
	"github.com/mpapenbr/iracelog-league-stats/pkg/utils"
)

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

func newLogger(level string, defaultVal log.Level) *log.Logger {
	switch config.LogFormat {
	case "json":
		return log.New(
			os.Stderr,
			parseLogLevel(level, defaultVal),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		return log.DevLogger(
			os.Stderr,
			parseLogLevel(level, defaultVal),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
}

// SetupLogger creates the process logger from the config values and
// installs it as default.
func SetupLogger() *log.Logger {
	logger := newLogger(config.LogLevel, log.InfoLevel)
	if filtered, err := logger.WithFilter(config.LogFilter); err == nil {
		logger = filtered
	} else {
		logger.Warn("invalid log filter, ignored",
			log.String("filter", config.LogFilter),
			log.ErrorField(err))
	}
	log.ResetDefault(logger)
	return logger
}

// WaitForRequiredServices blocks until the configured database and nats
// server accept connections. Exits the process if they don't.
func WaitForRequiredServices(ctx context.Context) {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}

	wg := sync.WaitGroup{}
	checkTCP := func(addr string) {
		defer wg.Done()
		if err := utils.WaitForTCP(ctx, addr, timeout); err != nil {
			log.Fatal("required services not ready", log.ErrorField(err))
		}
	}
	if config.Storage == config.StoragePostgres {
		if postgresAddr := utils.ExtractFromDBURL(config.DB); postgresAddr != "" {
			wg.Add(1)
			go checkTCP(postgresAddr)
		}
	}
	if natsAddr := utils.ExtractFromNatsURL(config.NatsURL); natsAddr != "" {
		wg.Add(1)
		go checkTCP(natsAddr)
	}
	log.Debug("Waiting for connection checks to return")
	wg.Wait()
	log.Debug("Required services are available")
}

// Runtime bundles the components a command works with.
type Runtime struct {
	Service    *stats.Service
	Repos      api.Repositories
	Metrics    *metrics.Manager
	Registry   *prometheus.Registry
	Dispatcher *notify.Dispatcher
	closers    []func()
}

type runtimeOptions struct {
	withOtlp  bool
	notify    bool
	careerTTL time.Duration
}

type RuntimeOption func(*runtimeOptions)

// WithOtlpTracing adds the otel query tracer to the postgres pool
func WithOtlpTracing(enabled bool) RuntimeOption {
	return func(o *runtimeOptions) {
		o.withOtlp = enabled
	}
}

// WithNotifications enables season change notifications
func WithNotifications() RuntimeOption {
	return func(o *runtimeOptions) {
		o.notify = true
	}
}

// WithCareerCache caches the career view for ttl. Only safe when this
// process is the single writer of the storage.
func WithCareerCache(ttl time.Duration) RuntimeOption {
	return func(o *runtimeOptions) {
		o.careerTTL = ttl
	}
}

// NewRuntime opens the configured storage backend and creates the service.
//
//nolint:funlen // by design
func NewRuntime(ctx context.Context, opts ...RuntimeOption) (*Runtime, error) {
	o := &runtimeOptions{}
	for _, opt := range opts {
		opt(o)
	}
	ret := &Runtime{Registry: prometheus.NewRegistry()}
	ret.Metrics = metrics.NewManager(metrics.WithRegistry(ret.Registry))

	repos, err := openRepositories(ctx, o.withOtlp)
	if err != nil {
		return nil, err
	}
	ret.Repos = repos
	ret.closers = append(ret.closers, repos.Close)

	svcOpts := []stats.Option{
		stats.WithLogger(log.Default().Named("stats")),
		stats.WithMetrics(ret.Metrics),
		stats.WithCareerCacheTTL(o.careerTTL),
	}
	if o.notify {
		target, closer, err := notifyTarget()
		if err != nil {
			ret.Close()
			return nil, err
		}
		if closer != nil {
			ret.closers = append(ret.closers, closer)
		}
		notifyTimeout, err := time.ParseDuration(config.NotifyTimeout)
		if err != nil {
			notifyTimeout = 5 * time.Second
		}
		ret.Dispatcher = notify.NewDispatcher(target,
			notify.WithTimeout(notifyTimeout),
			notify.WithLogger(log.Default().Named("notify")),
			notify.WithFailureHandler(func(error) { ret.Metrics.RecordNotifyFailure() }))
		svcOpts = append(svcOpts, stats.WithDispatcher(ret.Dispatcher))
	}
	ret.Service = stats.New(repos,
		stats.Config{CurrentSeason: config.CurrentSeason},
		svcOpts...)
	return ret, nil
}

// Close waits for pending notifications and releases the storage.
func (r *Runtime) Close() {
	r.Dispatcher.Wait()
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func openRepositories(ctx context.Context, withOtlp bool) (api.Repositories, error) {
	switch config.Storage {
	case config.StoragePostgres:
		sqlLogger := newLogger(config.SQLLogLevel, log.InfoLevel).Named("sql")
		pgTracer := pgxtrace.CompositeQueryTracer{
			postgres.NewLogTracer(sqlLogger, log.DebugLevel),
		}
		if withOtlp {
			pgTracer = append(pgTracer, postgres.NewOtlpTracer())
		}
		pool, err := postgres.InitWithURL(ctx, config.DB, postgres.WithTracer(pgTracer))
		if err != nil {
			return nil, err
		}
		return pgstore.New(pool), nil
	case config.StorageFile, "":
		return file.New(config.DataDir,
			file.WithLogger(log.Default().Named("file")))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", config.Storage)
	}
}

func notifyTarget() (target notify.Notifier, closer func(), err error) {
	logNotifier := notify.NewLogNotifier(log.Default().Named("notify"))
	if config.NatsURL == "" {
		return logNotifier, nil, nil
	}
	l := log.Default().Named("nats")
	var conn *natsgo.Conn
	if conn, err = nats.Connect(config.NatsURL, l); err != nil {
		return nil, nil, err
	}
	publisher := nats.NewPublisher(conn,
		nats.WithLogger(l),
		nats.WithSubject(config.NatsSubject))
	return notify.Multi(logNotifier, publisher), publisher.Close, nil
}

// RunWithRuntime creates the runtime, calls f and releases the runtime
// afterwards.
//
//nolint:whitespace // can't make both editor and linter happy
func RunWithRuntime(
	ctx context.Context,
	f func(rt *Runtime) error,
	opts ...RuntimeOption,
) error {
	WaitForRequiredServices(ctx)
	rt, err := NewRuntime(ctx, opts...)
	if err != nil {
		return err
	}
	defer rt.Close()
	return f(rt)
}
