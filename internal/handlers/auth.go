package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yummy-rest/apiserver/internal/services"
	"github.com/yummy-rest/apiserver/internal/store"
	"github.com/yummy-rest/apiserver/types"
)

// AuthHandler provides registration, login and token revocation endpoints.
type AuthHandler struct {
	userService *services.UserService
	logger      *slog.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{userService: userService, logger: logger}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, guard *Guard, logger *slog.Logger) {
	handler := NewAuthHandler(userService, logger)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/reset-password", handler.ResetPassword)
	r.With(guard.Authenticate).Post("/logout", handler.Logout)
	r.With(guard.Authenticate, guard.RequirePrincipal).Get("/me", handler.Me)
}

// Register creates a new user account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadPayload)
		return
	}

	_, err := h.userService.Register(r.Context(), services.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	switch {
	case err == nil:
		writeMessage(w, http.StatusCreated, "Registered successfully!")
	case writeValidation(w, err):
	case errors.Is(err, services.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, "User already exists. Please Log in instead.")
	case errors.Is(err, services.ErrUsernameTaken):
		writeError(w, http.StatusBadRequest, "Username already taken, please choose another.")
	default:
		internalError(w, r, h.logger, "register user", err)
	}
}

// Login verifies credentials and returns an access token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadPayload)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, msgBadPayload)
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, LoginResponse{
			Message:     "Logged in successfully.",
			AccessToken: result.Token,
			Username:    result.User.Username,
		})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "User does not exist!")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Incorrect credentials.")
	default:
		internalError(w, r, h.logger, "login", err)
	}
}

// Logout blacklists the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	result := authResultFromContext(r.Context())
	if errors.Is(result.Err, services.ErrMissingToken) {
		writeJSON(w, http.StatusForbidden, StatusResponse{Status: "fail", Message: "Provide a valid auth token."})
		return
	}
	if result.Err != nil {
		message, ok := tokenErrorMessage(result.Err)
		if !ok {
			internalError(w, r, h.logger, "authenticate logout", result.Err)
			return
		}
		writeJSON(w, http.StatusUnauthorized, StatusResponse{Status: "fail", Message: message})
		return
	}

	if err := h.userService.Logout(r.Context(), result.Principal); err != nil {
		internalError(w, r, h.logger, "logout", err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "success", Message: "Logged out successfully."})
}

// ResetPassword swaps the password after checking the current one.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadPayload)
		return
	}

	err := h.userService.ResetPassword(r.Context(), services.ResetPasswordInput{
		PublicID:        req.PublicID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, StatusResponse{Status: "success", Message: "Password reset successfully!"})
	case writeValidation(w, err):
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusForbidden, StatusResponse{Status: "fail", Message: "User doesn't exist, check the Public ID provided!"})
	case errors.Is(err, services.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, StatusResponse{Status: "fail", Message: "Wrong current password. Try again."})
	default:
		internalError(w, r, h.logger, "reset password", err)
	}
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	user, err := h.userService.GetByID(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Invalid token. Please log in again.")
			return
		}
		internalError(w, r, h.logger, "load user", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResetPasswordRequest struct {
	PublicID        string `json:"public_id"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type LoginResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// UserResponse wraps a single user.
type UserResponse struct {
	Message string     `json:"message,omitempty"`
	User    types.User `json:"user"`
}
