package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/yummy-rest/apiserver/internal/events"
	"github.com/yummy-rest/apiserver/types"
)

// ObjectStore is where category snapshots are written.
type ObjectStore interface {
	PutJSON(ctx context.Context, key string, data []byte, metadata map[string]string) error
	Bucket() string
}

// ExportService writes JSON snapshots of a category and its recipes.
type ExportService struct {
	categories CategoryRepository
	recipes    RecipeRepository
	objects    ObjectStore
	events     events.Publisher
	now        func() time.Time
}

// NewExportService returns a service that reports ErrExportsDisabled when
// objects is nil.
func NewExportService(categories CategoryRepository, recipes RecipeRepository, objects ObjectStore, publisher events.Publisher) *ExportService {
	return &ExportService{
		categories: categories,
		recipes:    recipes,
		objects:    objects,
		events:     publisher,
		now:        time.Now,
	}
}

type CategorySnapshot struct {
	Category   types.Category `json:"category"`
	Recipes    []types.Recipe `json:"recipes"`
	ExportedAt time.Time      `json:"exported_at"`
}

type ExportResult struct {
	Bucket string
	Key    string
}

func (s *ExportService) Export(ctx context.Context, p Principal, categoryID int) (ExportResult, error) {
	if s.objects == nil {
		return ExportResult{}, ErrExportsDisabled
	}

	category, err := s.categories.Get(ctx, p.UserID, categoryID)
	if err != nil {
		return ExportResult{}, err
	}
	recipes, err := s.recipes.ListAll(ctx, category.ID)
	if err != nil {
		return ExportResult{}, fmt.Errorf("list recipes: %w", err)
	}
	if recipes == nil {
		recipes = []types.Recipe{}
	}

	now := s.now().UTC()
	data, err := json.Marshal(CategorySnapshot{Category: category, Recipes: recipes, ExportedAt: now})
	if err != nil {
		return ExportResult{}, fmt.Errorf("encode snapshot: %w", err)
	}

	key := fmt.Sprintf("exports/%s/category-%d-%d.json", p.PublicID, category.ID, now.Unix())
	metadata := map[string]string{
		"owner":       p.PublicID,
		"category-id": strconv.Itoa(category.ID),
		"recipes":     strconv.Itoa(len(recipes)),
	}
	if err := s.objects.PutJSON(ctx, key, data, metadata); err != nil {
		return ExportResult{}, fmt.Errorf("upload snapshot: %w", err)
	}

	s.events.Publish(ctx, events.Event{Type: events.CategoryExport, Actor: p.PublicID, ResourceID: category.ID, Name: key})
	return ExportResult{Bucket: s.objects.Bucket(), Key: key}, nil
}
