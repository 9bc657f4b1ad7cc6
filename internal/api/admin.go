package api

import (
	"net/http"

	"weatherapi/m/domain"
	"weatherapi/m/internal/users"
)

// Admin Handlers

type updateRoleRequest struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type deleteUserRequest struct {
	ID int64 `json:"id"`
}

type userResponse struct {
	Message string             `json:"message"`
	User    domain.UserSummary `json:"user"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.ListUsers(r.Context())
	if err != nil {
		h.fail(w, r, err, "failed to fetch users")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *Handler) updateUserRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}

	user, err := h.users.UpdateRole(r.Context(), req.ID, req.Role)
	if err != nil {
		h.fail(w, r, err, "failed to update role")
		return
	}
	respondJSON(w, http.StatusOK, userResponse{Message: "Role updated", User: *user})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}

	user, err := h.users.CreateUser(r.Context(), users.Credentials{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.fail(w, r, err, "failed to create user")
		return
	}
	respondJSON(w, http.StatusCreated, userResponse{Message: "User created", User: user.Summary()})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	var req deleteUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err, "")
		return
	}

	if err := h.users.DeleteUser(r.Context(), req.ID); err != nil {
		h.fail(w, r, err, "failed to delete user")
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "User deleted successfully"})
}
