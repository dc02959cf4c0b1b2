package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // by design
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mpapenbr/iracelog-league-stats/log"
	"github.com/mpapenbr/iracelog-league-stats/pkg/cmd/util"
	"github.com/mpapenbr/iracelog-league-stats/pkg/config"
	"github.com/mpapenbr/iracelog-league-stats/pkg/endpoints/api"
)

var profilingPort int

func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "starts the http server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&config.Addr,
		"addr",
		"a",
		"localhost:8080",
		"http server listen address")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data (use 'stdout' for local debugging)")
	cmd.Flags().DurationVar(&config.CareerCacheTTL,
		"career-cache-ttl",
		0,
		"cache the career view for this duration (0 disables, only safe as single writer)")
	cmd.Flags().IntVar(&profilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	return cmd
}

//nolint:funlen // by design
func startServer(ctx context.Context) error {
	if profilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", profilingPort))
		go func() {
			//nolint:gosec // by design
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", profilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	util.WaitForRequiredServices(ctx)

	var telemetry *config.Telemetry
	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		var err error
		if telemetry, err = config.SetupTelemetry(ctx); err != nil {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	rt, err := util.NewRuntime(ctx,
		util.WithOtlpTracing(telemetry != nil),
		util.WithNotifications(),
		util.WithCareerCache(config.CareerCacheTTL))
	if err != nil {
		log.Error("server could not be started", log.ErrorField(err))
		return err
	}
	defer rt.Close()
	rt.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mux := http.NewServeMux()
	mux.Handle("/api/", api.NewHandler(rt.Service,
		api.WithLogger(log.Default().Named("http")),
		api.WithMetrics(rt.Metrics)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(rt.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:              config.Addr,
		Handler:           h2c.NewHandler(newCORS().Handler(mux), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting http server",
			log.String("addr", config.Addr),
			log.String("storage", config.Storage),
			log.String("currentSeason", config.CurrentSeason))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case v := <-sigChan:
		log.Debug("Got signal ", log.Any("signal", v))
	case err := <-errChan:
		log.Error("server could not be started", log.ErrorField(err))
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown", log.ErrorField(err))
	}
	if telemetry != nil {
		telemetry.Shutdown()
	}
	log.Info("Server terminated")
	return nil
}

func newCORS() *cors.Cors {
	// browser based league pages query the stats directly
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{
			"Accept",
			"Accept-Encoding",
			"Content-Encoding",
		},
		// FF caps this value at 24h, Chrome at 2h
		MaxAge: int(2 * time.Hour / time.Second),
	})
}
