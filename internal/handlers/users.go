package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yummy-rest/apiserver/internal/services"
	"github.com/yummy-rest/apiserver/internal/store"
)

// UserHandler serves administrative user endpoints.
type UserHandler struct {
	userService *services.UserService
	logger      *slog.Logger
}

// NewUserHandler constructs a UserHandler with the provided dependencies.
func NewUserHandler(userService *services.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{userService: userService, logger: logger}
}

// UserRouter registers admin-only user routes.
func UserRouter(r chi.Router, userService *services.UserService, guard *Guard, logger *slog.Logger) {
	handler := NewUserHandler(userService, logger)

	r.Use(guard.Authenticate, guard.RequirePrincipal, guard.RequireAdmin)
	r.Delete("/{publicID}", handler.Delete)
}

// Delete removes a user together with their categories and recipes.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())
	publicID := strings.TrimSpace(chi.URLParam(r, "publicID"))

	user, err := h.userService.Delete(r.Context(), principal, publicID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, UserResponse{
			Message: fmt.Sprintf("User '%s' was deleted successfully.", user.Username),
			User:    user,
		})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "User does not exist!")
	default:
		internalError(w, r, h.logger, "delete user", err)
	}
}
