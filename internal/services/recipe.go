package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yummy-rest/apiserver/internal/events"
	"github.com/yummy-rest/apiserver/internal/store"
	"github.com/yummy-rest/apiserver/types"
)

// RecipeRepository defines persistence operations for recipes.
type RecipeRepository interface {
	Get(ctx context.Context, categoryID, id int) (types.Recipe, error)
	GetByName(ctx context.Context, categoryID int, name string) (types.Recipe, error)
	Count(ctx context.Context, categoryID int) (int, error)
	List(ctx context.Context, categoryID int, req types.PageRequest) (types.Page[types.Recipe], error)
	ListAll(ctx context.Context, categoryID int) ([]types.Recipe, error)
	Create(ctx context.Context, recipe types.Recipe) (types.Recipe, error)
	Update(ctx context.Context, recipe types.Recipe) (types.Recipe, error)
	Delete(ctx context.Context, categoryID, id int) error
}

// RecipeService encapsulates recipe use-cases. Recipes are reached through a
// category the principal owns.
type RecipeService struct {
	categories CategoryRepository
	repo       RecipeRepository
	events     events.Publisher
}

// NewRecipeService constructs a RecipeService scoped through categories.
func NewRecipeService(categories CategoryRepository, repo RecipeRepository, publisher events.Publisher) *RecipeService {
	return &RecipeService{categories: categories, repo: repo, events: publisher}
}

type RecipeInput struct {
	Name        string
	Ingredients string
	Description string
}

// RecipeUpdate describes the outcome of an update.
type RecipeUpdate struct {
	Recipe  types.Recipe
	OldName string
	Renamed bool
}

func validateRecipe(in RecipeInput) error {
	var v validator
	v.check("name", validateName(in.Name))
	v.check("ingredients", validateText("Ingredients", in.Ingredients, maxIngredientsLength))
	v.check("description", validateText("Description", in.Description, maxRecipeDescLen))
	return v.err()
}

// scope returns the category when the principal owns it. A missing category
// is reported as missing.
func (s *RecipeService) scope(ctx context.Context, p Principal, categoryID int, missing error) (types.Category, error) {
	category, err := s.categories.Get(ctx, p.UserID, categoryID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Category{}, missing
		}
		return types.Category{}, fmt.Errorf("load category: %w", err)
	}
	return category, nil
}

// Create adds a recipe to one of the principal's categories. The category is
// checked before the input is validated.
func (s *RecipeService) Create(ctx context.Context, p Principal, categoryID int, in RecipeInput) (types.Recipe, error) {
	category, err := s.scope(ctx, p, categoryID, ErrInvalidScope)
	if err != nil {
		return types.Recipe{}, err
	}

	in.Name = normalizeRecipeName(in.Name)
	if err := validateRecipe(in); err != nil {
		return types.Recipe{}, err
	}

	if _, err := s.repo.GetByName(ctx, category.ID, in.Name); err == nil {
		return types.Recipe{}, &store.ConflictError{Constraint: store.ConstraintRecipeName}
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.Recipe{}, fmt.Errorf("check recipe name: %w", err)
	}

	recipe, err := s.repo.Create(ctx, types.Recipe{
		UserID:      p.UserID,
		CategoryID:  category.ID,
		Name:        in.Name,
		Ingredients: in.Ingredients,
		Description: in.Description,
	})
	if err != nil {
		return types.Recipe{}, err
	}

	s.events.Publish(ctx, events.Event{Type: events.RecipeCreated, Actor: p.PublicID, ResourceID: recipe.ID, Name: recipe.Name})
	return recipe, nil
}

// List returns one page of recipes in the category. It returns
// ErrNoResources when the category is empty and store.ErrNotFound when the
// page is.
func (s *RecipeService) List(ctx context.Context, p Principal, categoryID int, req types.PageRequest) (types.Page[types.Recipe], error) {
	category, err := s.scope(ctx, p, categoryID, ErrInvalidScope)
	if err != nil {
		return types.Page[types.Recipe]{}, err
	}
	req = NormalizePage(req)

	total, err := s.repo.Count(ctx, category.ID)
	if err != nil {
		return types.Page[types.Recipe]{}, fmt.Errorf("count recipes: %w", err)
	}
	if total == 0 {
		return types.Page[types.Recipe]{}, ErrNoResources
	}

	page, err := s.repo.List(ctx, category.ID, req)
	if err != nil {
		return types.Page[types.Recipe]{}, fmt.Errorf("list recipes: %w", err)
	}
	if len(page.Items) == 0 {
		return page, store.ErrNotFound
	}
	return page, nil
}

// Get returns ErrCategoryNotFound for a foreign category and
// store.ErrNotFound for a missing recipe.
func (s *RecipeService) Get(ctx context.Context, p Principal, categoryID, id int) (types.Recipe, error) {
	if _, err := s.scope(ctx, p, categoryID, ErrCategoryNotFound); err != nil {
		return types.Recipe{}, err
	}
	return s.repo.Get(ctx, categoryID, id)
}

func (s *RecipeService) Update(ctx context.Context, p Principal, categoryID, id int, in RecipeInput) (RecipeUpdate, error) {
	current, err := s.Get(ctx, p, categoryID, id)
	if err != nil {
		return RecipeUpdate{}, err
	}

	in.Name = normalizeRecipeName(in.Name)
	if err := validateRecipe(in); err != nil {
		return RecipeUpdate{}, err
	}

	if other, err := s.repo.GetByName(ctx, categoryID, in.Name); err == nil && other.ID != id {
		return RecipeUpdate{}, &store.ConflictError{Constraint: store.ConstraintRecipeName}
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		return RecipeUpdate{}, fmt.Errorf("check recipe name: %w", err)
	}

	updated := current
	updated.Name = in.Name
	updated.Ingredients = in.Ingredients
	updated.Description = in.Description
	updated, err = s.repo.Update(ctx, updated)
	if err != nil {
		return RecipeUpdate{}, err
	}

	s.events.Publish(ctx, events.Event{Type: events.RecipeUpdated, Actor: p.PublicID, ResourceID: id, Name: updated.Name})
	return RecipeUpdate{
		Recipe:  updated,
		OldName: current.Name,
		Renamed: current.Name != updated.Name,
	}, nil
}

func (s *RecipeService) Delete(ctx context.Context, p Principal, categoryID, id int) (types.Recipe, error) {
	recipe, err := s.Get(ctx, p, categoryID, id)
	if err != nil {
		return types.Recipe{}, err
	}
	if err := s.repo.Delete(ctx, categoryID, id); err != nil {
		return types.Recipe{}, err
	}

	s.events.Publish(ctx, events.Event{Type: events.RecipeDeleted, Actor: p.PublicID, ResourceID: id, Name: recipe.Name})
	return recipe, nil
}
