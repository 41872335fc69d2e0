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

// RecipeHandler serves recipes nested under a category.
type RecipeHandler struct {
	recipeService *services.RecipeService
	logger        *slog.Logger
}

// NewRecipeHandler constructs a RecipeHandler with the provided dependencies.
func NewRecipeHandler(recipeService *services.RecipeService, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{recipeService: recipeService, logger: logger}
}

// RecipeRouter registers recipe routes. It expects a {categoryID} parameter
// and an authenticated principal from the parent router.
func RecipeRouter(r chi.Router, handler *RecipeHandler) {
	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Get("/{recipeID}", handler.Get)
	r.Put("/{recipeID}", handler.Update)
	r.Delete("/{recipeID}", handler.Delete)
}

type RecipeRequest struct {
	Name        string `json:"name"`
	Ingredients string `json:"ingredients"`
	Description string `json:"description"`
}

type RecipeListResponse struct {
	Recipes     []types.Recipe `json:"recipes"`
	PageDetails PageDetails    `json:"page_details"`
}

type RecipeResponse struct {
	Message string       `json:"message,omitempty"`
	Recipes types.Recipe `json:"recipes"`
}

type RecipesResponse struct {
	Recipes []types.Recipe `json:"recipes"`
}

// recipeIDs reads the category and recipe ids. It writes a 400 and returns
// false when either is invalid.
func recipeIDs(w http.ResponseWriter, r *http.Request, withRecipe bool) (int, int, bool) {
	categoryID, ok := pathID(r, "categoryID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return 0, 0, false
	}
	if !withRecipe {
		return categoryID, 0, true
	}
	recipeID, ok := pathID(r, "recipeID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid recipe id")
		return 0, 0, false
	}
	return categoryID, recipeID, true
}

// writeLookupError handles the not-found cases shared by get, update and
// delete. The category case must be checked first.
func writeLookupError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, services.ErrCategoryNotFound):
		writeError(w, http.StatusNotFound, "Category does not exist!")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Recipe does not exist!")
	default:
		return false
	}
	return true
}

func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())
	categoryID, _, ok := recipeIDs(w, r, false)
	if !ok {
		return
	}

	var req RecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadPayload)
		return
	}

	recipe, err := h.recipeService.Create(r.Context(), principal, categoryID, services.RecipeInput{
		Name:        req.Name,
		Ingredients: req.Ingredients,
		Description: req.Description,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, RecipeResponse{Recipes: recipe})
	case errors.Is(err, services.ErrInvalidScope):
		writeError(w, http.StatusBadRequest, "Invalid category!")
	case writeValidation(w, err):
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusBadRequest, "Recipe already exists!")
	default:
		internalError(w, r, h.logger, "create recipe", err)
	}
}

func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())
	categoryID, _, ok := recipeIDs(w, r, false)
	if !ok {
		return
	}

	req, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.recipeService.List(r.Context(), principal, categoryID, req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, RecipeListResponse{
			Recipes:     page.Items,
			PageDetails: pageDetails(r, page, req),
		})
	case errors.Is(err, services.ErrInvalidScope):
		writeError(w, http.StatusBadRequest, "Invalid category!")
	case errors.Is(err, services.ErrNoResources):
		writeError(w, http.StatusNotFound, "No recipes added to this category yet!")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Recipe does not exist.")
	default:
		internalError(w, r, h.logger, "list recipes", err)
	}
}

func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())
	categoryID, recipeID, ok := recipeIDs(w, r, true)
	if !ok {
		return
	}

	recipe, err := h.recipeService.Get(r.Context(), principal, categoryID, recipeID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, RecipesResponse{Recipes: []types.Recipe{recipe}})
	case writeLookupError(w, err):
	default:
		internalError(w, r, h.logger, "get recipe", err)
	}
}

func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())
	categoryID, recipeID, ok := recipeIDs(w, r, true)
	if !ok {
		return
	}

	var req RecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadPayload)
		return
	}

	result, err := h.recipeService.Update(r.Context(), principal, categoryID, recipeID, services.RecipeInput{
		Name:        req.Name,
		Ingredients: req.Ingredients,
		Description: req.Description,
	})
	switch {
	case err == nil:
		message := fmt.Sprintf("Recipe '%s' was successfully updated.", result.Recipe.Name)
		if result.Renamed {
			message = fmt.Sprintf("Recipe '%s' was successfully updated to '%s'.", result.OldName, result.Recipe.Name)
		}
		writeJSON(w, http.StatusOK, RecipeResponse{Message: message, Recipes: result.Recipe})
	case writeValidation(w, err):
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusBadRequest, "Recipe already exists, please use a different name.")
	case writeLookupError(w, err):
	default:
		internalError(w, r, h.logger, "update recipe", err)
	}
}

func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())
	categoryID, recipeID, ok := recipeIDs(w, r, true)
	if !ok {
		return
	}

	recipe, err := h.recipeService.Delete(r.Context(), principal, categoryID, recipeID)
	switch {
	case err == nil:
		writeMessage(w, http.StatusOK, fmt.Sprintf("Recipe '%s' was deleted successfully!", recipe.Name))
	case writeLookupError(w, err):
	default:
		internalError(w, r, h.logger, "delete recipe", err)
	}
}
