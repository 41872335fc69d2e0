package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yummy-rest/apiserver/internal/services"
	"github.com/yummy-rest/apiserver/internal/store"
	"github.com/yummy-rest/apiserver/types"
)

const msgCategoryNotFound = "Sorry, category does not exist!"

// CategoryHandler serves the principal's recipe categories.
type CategoryHandler struct {
	categoryService *services.CategoryService
	exportService   *services.ExportService
	logger          *slog.Logger
}

// NewCategoryHandler constructs a CategoryHandler with the provided dependencies.
func NewCategoryHandler(categoryService *services.CategoryService, exportService *services.ExportService, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		exportService:   exportService,
		logger:          logger,
	}
}

// CategoryRouter registers category and nested recipe routes. Every route
// requires a principal.
func CategoryRouter(r chi.Router, categoryService *services.CategoryService, recipeService *services.RecipeService, exportService *services.ExportService, guard *Guard, logger *slog.Logger) {
	handler := NewCategoryHandler(categoryService, exportService, logger)
	recipes := NewRecipeHandler(recipeService, logger)

	r.Use(guard.Authenticate, guard.RequirePrincipal)
	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Route("/{categoryID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Put("/", handler.Update)
		r.Delete("/", handler.Delete)
		r.Post("/export", handler.Export)
		r.Route("/recipes", func(r chi.Router) {
			RecipeRouter(r, recipes)
		})
	})
}

type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CategoryListResponse struct {
	Categories  []types.Category `json:"categories"`
	PageDetails PageDetails      `json:"page_details"`
}

type CategoryResponse struct {
	Message    string         `json:"message,omitempty"`
	Categories types.Category `json:"categories"`
}

type CategoriesResponse struct {
	Categories []types.Category `json:"categories"`
}

type ExportResponse struct {
	Message string `json:"message"`
	Bucket  string `json:"bucket"`
	Key     string `json:"key"`
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	var req CategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadPayload)
		return
	}

	category, err := h.categoryService.Create(r.Context(), principal, services.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, CategoryResponse{Categories: category})
	case writeValidation(w, err):
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusBadRequest, "The category already exists!")
	default:
		internalError(w, r, h.logger, "create category", err)
	}
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	req, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.categoryService.List(r.Context(), principal, req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, CategoryListResponse{
			Categories:  page.Items,
			PageDetails: pageDetails(r, page, req),
		})
	case errors.Is(err, services.ErrNoResources):
		writeMessage(w, http.StatusOK, "No categories exist. Please create some.")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Category does not exist.")
	default:
		internalError(w, r, h.logger, "list categories", err)
	}
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())
	id, ok := pathID(r, "categoryID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	category, err := h.categoryService.Get(r.Context(), principal, id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, CategoriesResponse{Categories: []types.Category{category}})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, msgCategoryNotFound)
	default:
		internalError(w, r, h.logger, "get category", err)
	}
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())
	id, ok := pathID(r, "categoryID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	var req CategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadPayload)
		return
	}

	result, err := h.categoryService.Update(r.Context(), principal, id, services.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	switch {
	case err == nil:
		message := fmt.Sprintf("Category '%s' was successfully updated.", result.Category.Name)
		if result.Renamed {
			message = fmt.Sprintf("Category '%s' was successfully updated to '%s'.", result.OldName, result.Category.Name)
		}
		writeJSON(w, http.StatusOK, CategoryResponse{Message: message, Categories: result.Category})
	case writeValidation(w, err):
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusBadRequest, "Category already exists, please use a different name.")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, msgCategoryNotFound)
	default:
		internalError(w, r, h.logger, "update category", err)
	}
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())
	id, ok := pathID(r, "categoryID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	category, err := h.categoryService.Delete(r.Context(), principal, id)
	switch {
	case err == nil:
		writeMessage(w, http.StatusOK, fmt.Sprintf("Category '%s' was deleted successfully.", category.Name))
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, msgCategoryNotFound)
	default:
		internalError(w, r, h.logger, "delete category", err)
	}
}

// Export writes a snapshot of the category and its recipes to object storage.
func (h *CategoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())
	id, ok := pathID(r, "categoryID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	result, err := h.exportService.Export(r.Context(), principal, id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, ExportResponse{
			Message: "Category exported successfully.",
			Bucket:  result.Bucket,
			Key:     result.Key,
		})
	case errors.Is(err, services.ErrExportsDisabled):
		writeError(w, http.StatusServiceUnavailable, "Exports are not enabled.")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, msgCategoryNotFound)
	default:
		internalError(w, r, h.logger, "export category", err)
	}
}
