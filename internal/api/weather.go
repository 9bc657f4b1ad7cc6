package api

import (
	"net/http"
)

// Weather Handlers

type weatherRequest struct {
	City string `json:"city"`
}

func (h *Handler) getWeather(w http.ResponseWriter, r *http.Request) {
	var req weatherRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	identity, _ := identityFrom(r.Context())

	record, err := h.weather.Lookup(r.Context(), identity.UserID, req.City)
	if err != nil {
		h.fail(w, r, err, "failed to fetch weather data")
		return
	}
	respondJSON(w, http.StatusOK, record)
}

func (h *Handler) myQueries(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	rows, err := h.weather.ListForUser(r.Context(), identity.UserID)
	if err != nil {
		h.fail(w, r, err, "failed to fetch weather queries")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) allQueries(w http.ResponseWriter, r *http.Request) {
	rows, err := h.weather.ListAll(r.Context())
	if err != nil {
		h.fail(w, r, err, "failed to fetch weather queries")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}
