package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yummy-rest/apiserver/internal/events"
	"github.com/yummy-rest/apiserver/internal/store"
	"github.com/yummy-rest/apiserver/types"
)

const (
	DefaultPerPage = 5
	MaxPerPage     = 100
)

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	Get(ctx context.Context, ownerID, id int) (types.Category, error)
	GetByName(ctx context.Context, ownerID int, name string) (types.Category, error)
	Count(ctx context.Context, ownerID int) (int, error)
	List(ctx context.Context, ownerID int, req types.PageRequest) (types.Page[types.Category], error)
	Create(ctx context.Context, category types.Category) (types.Category, error)
	Update(ctx context.Context, category types.Category) (types.Category, error)
	Delete(ctx context.Context, ownerID, id int) error
}

// CategoryService encapsulates category use-cases. Every operation is
// scoped to the calling principal.
type CategoryService struct {
	repo   CategoryRepository
	events events.Publisher
}

// NewCategoryService constructs a CategoryService backed by repo.
func NewCategoryService(repo CategoryRepository, publisher events.Publisher) *CategoryService {
	return &CategoryService{repo: repo, events: publisher}
}

type CategoryInput struct {
	Name        string
	Description string
}

// CategoryUpdate describes the outcome of an update.
type CategoryUpdate struct {
	Category types.Category
	OldName  string
	Renamed  bool
}

func validateCategory(in CategoryInput) error {
	var v validator
	v.check("name", validateName(in.Name))
	v.check("description", validateText("Description", in.Description, maxCategoryDescLen))
	return v.err()
}

func (s *CategoryService) Create(ctx context.Context, p Principal, in CategoryInput) (types.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateCategory(in); err != nil {
		return types.Category{}, err
	}

	if _, err := s.repo.GetByName(ctx, p.UserID, in.Name); err == nil {
		return types.Category{}, &store.ConflictError{Constraint: store.ConstraintCategoryName}
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.Category{}, fmt.Errorf("check category name: %w", err)
	}

	category, err := s.repo.Create(ctx, types.Category{
		UserID:      p.UserID,
		Name:        in.Name,
		Description: in.Description,
	})
	if err != nil {
		return types.Category{}, err
	}

	s.events.Publish(ctx, events.Event{Type: events.CategoryCreated, Actor: p.PublicID, ResourceID: category.ID, Name: category.Name})
	return category, nil
}

// List returns one page of the principal's categories. It returns
// ErrNoResources when the principal owns none and store.ErrNotFound when the
// page is empty.
func (s *CategoryService) List(ctx context.Context, p Principal, req types.PageRequest) (types.Page[types.Category], error) {
	req = NormalizePage(req)

	total, err := s.repo.Count(ctx, p.UserID)
	if err != nil {
		return types.Page[types.Category]{}, fmt.Errorf("count categories: %w", err)
	}
	if total == 0 {
		return types.Page[types.Category]{}, ErrNoResources
	}

	page, err := s.repo.List(ctx, p.UserID, req)
	if err != nil {
		return types.Page[types.Category]{}, fmt.Errorf("list categories: %w", err)
	}
	if len(page.Items) == 0 {
		return page, store.ErrNotFound
	}
	return page, nil
}

func (s *CategoryService) Get(ctx context.Context, p Principal, id int) (types.Category, error) {
	return s.repo.Get(ctx, p.UserID, id)
}

func (s *CategoryService) Update(ctx context.Context, p Principal, id int, in CategoryInput) (CategoryUpdate, error) {
	current, err := s.repo.Get(ctx, p.UserID, id)
	if err != nil {
		return CategoryUpdate{}, err
	}

	in.Name = strings.TrimSpace(in.Name)
	if err := validateCategory(in); err != nil {
		return CategoryUpdate{}, err
	}

	if other, err := s.repo.GetByName(ctx, p.UserID, in.Name); err == nil && other.ID != id {
		return CategoryUpdate{}, &store.ConflictError{Constraint: store.ConstraintCategoryName}
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		return CategoryUpdate{}, fmt.Errorf("check category name: %w", err)
	}

	updated := current
	updated.Name = in.Name
	updated.Description = in.Description
	updated, err = s.repo.Update(ctx, updated)
	if err != nil {
		return CategoryUpdate{}, err
	}

	s.events.Publish(ctx, events.Event{Type: events.CategoryUpdated, Actor: p.PublicID, ResourceID: id, Name: updated.Name})
	return CategoryUpdate{
		Category: updated,
		OldName:  current.Name,
		Renamed:  current.Name != updated.Name,
	}, nil
}

// Delete removes the category and its recipes.
func (s *CategoryService) Delete(ctx context.Context, p Principal, id int) (types.Category, error) {
	category, err := s.repo.Get(ctx, p.UserID, id)
	if err != nil {
		return types.Category{}, err
	}
	if err := s.repo.Delete(ctx, p.UserID, id); err != nil {
		return types.Category{}, err
	}

	s.events.Publish(ctx, events.Event{Type: events.CategoryDeleted, Actor: p.PublicID, ResourceID: id, Name: category.Name})
	return category, nil
}

// NormalizePage fills in page defaults and caps per_page.
func NormalizePage(req types.PageRequest) types.PageRequest {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 {
		req.PerPage = DefaultPerPage
	}
	if req.PerPage > MaxPerPage {
		req.PerPage = MaxPerPage
	}
	req.Query = strings.TrimSpace(req.Query)
	return req
}
