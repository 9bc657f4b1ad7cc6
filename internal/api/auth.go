package api

import (
	"net/http"

	"weatherapi/m/internal/users"
)

// Auth Handlers

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.logger.Info(r.Context(), "registering user", "email", req.Email)

	if _, err := h.users.Register(r.Context(), users.Credentials{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	}); err != nil {
		h.fail(w, r, err, "unable to register user")
		return
	}
	respondJSON(w, http.StatusCreated, messageResponse{Message: "User registered successfully"})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.logger.Info(r.Context(), "logging in user", "email", req.Email)

	token, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err, "unable to log in")
		return
	}
	respondJSON(w, http.StatusOK, loginResponse{Token: token})
}
