package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yummy-rest/apiserver/internal/store"
)

type fakeObjects struct {
	objects  map[string][]byte
	metadata map[string]map[string]string
}

func (f *fakeObjects) PutJSON(_ context.Context, key string, data []byte, metadata map[string]string) error {
	if f.objects == nil {
		f.objects = map[string][]byte{}
		f.metadata = map[string]map[string]string{}
	}
	f.objects[key] = data
	f.metadata[key] = metadata
	return nil
}

func (f *fakeObjects) Bucket() string { return "yummy-exports" }

func TestExportDisabled(t *testing.T) {
	f := newFixture(t)
	p := f.principal(t, "ann")
	exports := NewExportService(f.mem.Categories(), f.mem.Recipes(), nil, f.events)

	_, err := exports.Export(context.Background(), p, 1)
	assert.ErrorIs(t, err, ErrExportsDisabled)
}

func TestExportWritesSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.principal(t, "ann")
	cat := f.category(t, p, "Cookies")
	_, err := f.recipes.Create(ctx, p, cat.ID, RecipeInput{Name: "scones", Ingredients: "x", Description: "y"})
	require.NoError(t, err)

	objects := &fakeObjects{}
	exports := NewExportService(f.mem.Categories(), f.mem.Recipes(), objects, f.events)
	exports.now = f.clock.Now

	result, err := exports.Export(ctx, p, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "yummy-exports", result.Bucket)
	assert.Equal(t, fmt.Sprintf("exports/%s/category-%d-1700000000.json", p.PublicID, cat.ID), result.Key)

	var snapshot CategorySnapshot
	require.NoError(t, json.Unmarshal(objects.objects[result.Key], &snapshot))
	assert.Equal(t, "Cookies", snapshot.Category.Name)
	require.Len(t, snapshot.Recipes, 1)
	assert.Equal(t, "scones", snapshot.Recipes[0].Name)
	assert.Equal(t, map[string]string{
		"owner":       p.PublicID,
		"category-id": strconv.Itoa(cat.ID),
		"recipes":     "1",
	}, objects.metadata[result.Key])
}

func TestExportForeignCategory(t *testing.T) {
	f := newFixture(t)
	ann := f.principal(t, "ann")
	bob := f.principal(t, "bob")
	cat := f.category(t, ann, "Cookies")
	exports := NewExportService(f.mem.Categories(), f.mem.Recipes(), &fakeObjects{}, f.events)

	_, err := exports.Export(context.Background(), bob, cat.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
