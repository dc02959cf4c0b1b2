package api

import (
	"net/http"
)

type seasonRequest struct {
	Name string `json:"name"`
}

func (h *Handler) listSeasons(w http.ResponseWriter, r *http.Request) {
	ret, err := h.svc.ListSeasons(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (h *Handler) createSeason(w http.ResponseWriter, r *http.Request) {
	var req seasonRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.CreateSeason(r.Context(), req.Name); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *Handler) deleteSeason(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSeason(r.Context(), r.PathValue("season")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) renameSeason(w http.ResponseWriter, r *http.Request) {
	var req seasonRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.RenameSeason(r.Context(), r.PathValue("season"), req.Name); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) getCurrentSeason(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, seasonRequest{Name: h.svc.CurrentSeason()})
}

func (h *Handler) setCurrentSeason(w http.ResponseWriter, r *http.Request) {
	var req seasonRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.SetCurrentSeason(r.Context(), req.Name); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
