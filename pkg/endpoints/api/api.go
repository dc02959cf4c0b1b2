// Package api exposes the stats service via HTTP/JSON.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mpapenbr/iracelog-league-stats/log"
	"github.com/mpapenbr/iracelog-league-stats/pkg/metrics"
	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
	"github.com/mpapenbr/iracelog-league-stats/pkg/processing/ranking"
	"github.com/mpapenbr/iracelog-league-stats/pkg/service/stats"
	"github.com/mpapenbr/iracelog-league-stats/version"
)

const maxPayloadSize = 16 << 20

type (
	Handler struct {
		svc     *stats.Service
		log     *log.Logger
		metrics *metrics.Manager
		mux     *http.ServeMux
	}
	Option func(*Handler)
)

func WithLogger(l *log.Logger) Option {
	return func(h *Handler) {
		h.log = l
	}
}

func WithMetrics(m *metrics.Manager) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

func NewHandler(svc *stats.Service, opts ...Option) *Handler {
	ret := &Handler{
		svc: svc,
		log: log.Default().Named("http"),
		mux: http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.routes()
	return ret
}

func (h *Handler) routes() {
	h.mux.HandleFunc("GET /api/v1/version", h.getVersion)
	h.mux.HandleFunc("GET /api/v1/metrics", h.listMetrics)

	h.mux.HandleFunc("GET /api/v1/seasons", h.listSeasons)
	h.mux.HandleFunc("POST /api/v1/seasons", h.createSeason)
	h.mux.HandleFunc("DELETE /api/v1/seasons/{season}", h.deleteSeason)
	h.mux.HandleFunc("POST /api/v1/seasons/{season}/rename", h.renameSeason)
	h.mux.HandleFunc("GET /api/v1/current-season", h.getCurrentSeason)
	h.mux.HandleFunc("PUT /api/v1/current-season", h.setCurrentSeason)

	h.mux.HandleFunc("GET /api/v1/seasons/{season}/drivers", h.dataset)
	h.mux.HandleFunc("GET /api/v1/seasons/{season}/drivers/{name}", h.getDriver)
	h.mux.HandleFunc("GET /api/v1/seasons/{season}/search", h.findDrivers)
	h.mux.HandleFunc("GET /api/v1/seasons/{season}/ranking/{metric}", h.rank)
	h.mux.HandleFunc("GET /api/v1/career/drivers", h.dataset)
	h.mux.HandleFunc("GET /api/v1/career/drivers/{name}", h.getDriver)
	h.mux.HandleFunc("GET /api/v1/career/search", h.findDrivers)
	h.mux.HandleFunc("GET /api/v1/career/ranking/{metric}", h.rank)
	h.mux.HandleFunc("DELETE /api/v1/drivers/{name}", h.wipeDriver)

	h.mux.HandleFunc("POST /api/v1/payloads", h.ingest)
	h.mux.HandleFunc("POST /api/v1/seasons/{season}/payloads", h.ingest)
	h.mux.HandleFunc("GET /api/v1/payloads", h.listPayloads)
	h.mux.HandleFunc("DELETE /api/v1/payloads/{filename}", h.deletePayload)
	h.mux.HandleFunc("POST /api/v1/reverse", h.reverse)
	h.mux.HandleFunc("GET /api/v1/duplicates", h.scanDuplicates)
	h.mux.HandleFunc("GET /api/v1/validate", h.validate)
}

const requestIDHeader = "X-Request-ID"

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := r.Header.Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, requestID)
	r = r.WithContext(log.AddToContext(r.Context(),
		h.log.With(log.String("requestId", requestID))))

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.mux.ServeHTTP(rec, r)
	route := r.Pattern
	if route == "" {
		route = "unmatched"
	}
	h.metrics.RecordHTTPRequest(route, r.Method, strconv.Itoa(rec.status), time.Since(start))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

type errorResponse struct {
	Error    string `json:"error"`
	Existing string `json:"existing,omitempty"`
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrMalformedPayload),
		errors.Is(err, model.ErrInvalidSeasonName),
		errors.Is(err, model.ErrUnknownMetric):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrDuplicatePayload),
		errors.Is(err, model.ErrSeasonExists),
		errors.Is(err, model.ErrCurrentSeason):
		return http.StatusConflict
	case errors.Is(err, model.ErrSeasonNotFound),
		errors.Is(err, model.ErrDriverNotFound),
		errors.Is(err, model.ErrPayloadNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	resp := errorResponse{Error: err.Error()}
	var dup *model.DuplicateError
	if errors.As(err, &dup) {
		resp.Existing = dup.Existing
	}
	if status == http.StatusInternalServerError {
		log.GetFromContext(r.Context()).Error("request failed",
			log.String("method", r.Method),
			log.String("path", r.URL.Path),
			log.ErrorField(err))
		resp.Error = "internal error"
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errchkjson // nothing left to do on failure
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil {
		return model.MalformedPayload("invalid request body: %v", err)
	}
	return nil
}

func selector(r *http.Request) model.Selector {
	if season := r.PathValue("season"); season != "" {
		return model.SeasonSelector(season)
	}
	return model.CareerSelector()
}

func (h *Handler) getVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version":   version.Version,
		"buildTime": version.BuildDate,
		"gitCommit": version.GitCommit,
	})
}

type metricInfo struct {
	Name          ranking.Metric `json:"name"`
	Label         string         `json:"label"`
	LowerIsBetter bool           `json:"lowerIsBetter"`
	Percentage    bool           `json:"percentage"`
}

func (h *Handler) listMetrics(w http.ResponseWriter, r *http.Request) {
	ret := []metricInfo{}
	for _, m := range ranking.Metrics() {
		ret = append(ret, metricInfo{
			Name:          m,
			Label:         m.Label(),
			LowerIsBetter: m.LowerIsBetter(),
			Percentage:    m.Percentage(),
		})
	}
	writeJSON(w, http.StatusOK, ret)
}
