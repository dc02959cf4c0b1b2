package api

import (
	"net/http"
	"strconv"

	"github.com/mpapenbr/iracelog-league-stats/pkg/processing/ranking"
)

func intParam(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}

func (h *Handler) dataset(w http.ResponseWriter, r *http.Request) {
	ret, err := h.svc.Dataset(r.Context(), selector(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (h *Handler) getDriver(w http.ResponseWriter, r *http.Request) {
	ret, err := h.svc.GetDriver(r.Context(), selector(r), r.PathValue("name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (h *Handler) findDrivers(w http.ResponseWriter, r *http.Request) {
	ret, err := h.svc.FindDrivers(r.Context(), selector(r), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

// rank supports the query parameters size, offset and center
func (h *Handler) rank(w http.ResponseWriter, r *http.Request) {
	metric, err := ranking.ParseMetric(r.PathValue("metric"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req := ranking.Request{
		PageSize: intParam(r, "size"),
		Offset:   intParam(r, "offset"),
		Center:   r.URL.Query().Get("center"),
	}
	ret, err := h.svc.Rank(r.Context(), selector(r), metric, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (h *Handler) wipeDriver(w http.ResponseWriter, r *http.Request) {
	ret, err := h.svc.WipeDriver(r.Context(), r.PathValue("name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"seasons": ret})
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	ret, err := h.svc.Validate(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}
