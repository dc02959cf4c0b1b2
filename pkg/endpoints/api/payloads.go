package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/mpapenbr/iracelog-league-stats/pkg/model"
)

func readPayload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadSize))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return nil, model.MalformedPayload("payload exceeds %d bytes", tooLarge.Limit)
	}
	return raw, err
}

// ingest reads the raw document from the body, the original filename is
// taken from the query parameter filename.
func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	raw, err := readPayload(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ret, err := h.svc.Ingest(r.Context(), r.PathValue("season"), r.URL.Query().Get("filename"), raw)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ret)
}

func (h *Handler) listPayloads(w http.ResponseWriter, r *http.Request) {
	ret, err := h.svc.ListPayloads(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (h *Handler) deletePayload(w http.ResponseWriter, r *http.Request) {
	ret, err := h.svc.DeletePayload(r.Context(), r.PathValue("filename"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (h *Handler) reverse(w http.ResponseWriter, r *http.Request) {
	raw, err := readPayload(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ret, err := h.svc.Reverse(r.Context(), raw)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (h *Handler) scanDuplicates(w http.ResponseWriter, r *http.Request) {
	ret, err := h.svc.ScanDuplicates(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}
