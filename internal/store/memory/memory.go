// Package memory keeps every repository in process. It mirrors the unique
// constraints and cascades of the postgres schema so the service layer
// behaves the same on either backend.
package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yummy-rest/apiserver/internal/store"
	"github.com/yummy-rest/apiserver/types"
)

// Manager owns the shared state behind the in-memory repositories.
type Manager struct {
	mu sync.RWMutex

	nextUserID     int
	nextCategoryID int
	nextRecipeID   int
	nextBlacklist  int

	users      map[int]types.User
	categories map[int]types.Category
	recipes    map[int]types.Recipe
	blacklist  map[string]types.BlacklistToken
}

func NewManager() *Manager {
	return &Manager{
		users:      make(map[int]types.User),
		categories: make(map[int]types.Category),
		recipes:    make(map[int]types.Recipe),
		blacklist:  make(map[string]types.BlacklistToken),
	}
}

func (m *Manager) Users() *UserRepository {
	return &UserRepository{m: m}
}

func (m *Manager) Categories() *CategoryRepository {
	return &CategoryRepository{m: m}
}

func (m *Manager) Recipes() *RecipeRepository {
	return &RecipeRepository{m: m}
}

func (m *Manager) Blacklist() *BlacklistRepository {
	return &BlacklistRepository{m: m}
}

// deleteCategoryLocked removes a category and its recipes. m.mu must be held.
func (m *Manager) deleteCategoryLocked(id int) {
	delete(m.categories, id)
	for rid, recipe := range m.recipes {
		if recipe.CategoryID == id {
			delete(m.recipes, rid)
		}
	}
}

func conflict(constraint string) error {
	return &store.ConflictError{Constraint: constraint}
}

func matches(name, query string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(query))
}

// paginate sorts by id and cuts out the requested page.
func paginate[T any](items []T, id func(T) int, req types.PageRequest) types.Page[T] {
	sort.Slice(items, func(i, j int) bool { return id(items[i]) < id(items[j]) })
	page := types.Page[T]{Total: len(items), Page: req.Page, PerPage: req.PerPage}
	start := max(0, min(req.Offset(), len(items)))
	end := min(start+req.PerPage, len(items))
	page.Items = append(make([]T, 0, end-start), items[start:end]...)
	return page
}

// UserRepository stores users in a Manager.
type UserRepository struct {
	m *Manager
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	user, ok := r.m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) GetByPublicID(ctx context.Context, publicID string) (types.User, error) {
	return r.find(func(u types.User) bool { return u.PublicID == publicID })
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return r.find(func(u types.User) bool { return u.Email == email })
}

func (r *UserRepository) find(pred func(types.User) bool) (types.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, user := range r.m.users {
		if pred(user) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.users {
		switch {
		case existing.PublicID == user.PublicID:
			return types.User{}, conflict(store.ConstraintUserPublicID)
		case existing.Email == user.Email:
			return types.User{}, conflict(store.ConstraintUserEmail)
		case existing.Username == user.Username:
			return types.User{}, conflict(store.ConstraintUserUsername)
		}
	}
	r.m.nextUserID++
	now := time.Now()
	user.ID = r.m.nextUserID
	user.CreatedAt = now
	user.UpdatedAt = now
	r.m.users[user.ID] = user
	return user, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	return r.update(id, func(u *types.User) { u.PasswordHash = passwordHash })
}

func (r *UserRepository) UpdateRole(ctx context.Context, id int, role string) error {
	return r.update(id, func(u *types.User) { u.Role = role })
}

func (r *UserRepository) update(id int, apply func(*types.User)) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	user, ok := r.m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	apply(&user)
	user.UpdatedAt = time.Now()
	r.m.users[id] = user
	return nil
}

// Delete removes the user with its categories and recipes.
func (r *UserRepository) Delete(ctx context.Context, id int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.m.users, id)
	for cid, category := range r.m.categories {
		if category.UserID == id {
			r.m.deleteCategoryLocked(cid)
		}
	}
	return nil
}

// CategoryRepository stores categories in a Manager.
type CategoryRepository struct {
	m *Manager
}

func (r *CategoryRepository) Get(ctx context.Context, ownerID, id int) (types.Category, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	category, ok := r.m.categories[id]
	if !ok || category.UserID != ownerID {
		return types.Category{}, store.ErrNotFound
	}
	return category, nil
}

func (r *CategoryRepository) GetByName(ctx context.Context, ownerID int, name string) (types.Category, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, category := range r.m.categories {
		if category.UserID == ownerID && category.Name == name {
			return category, nil
		}
	}
	return types.Category{}, store.ErrNotFound
}

func (r *CategoryRepository) Count(ctx context.Context, ownerID int) (int, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	total := 0
	for _, category := range r.m.categories {
		if category.UserID == ownerID {
			total++
		}
	}
	return total, nil
}

func (r *CategoryRepository) List(ctx context.Context, ownerID int, req types.PageRequest) (types.Page[types.Category], error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var items []types.Category
	for _, category := range r.m.categories {
		if category.UserID == ownerID && matches(category.Name, req.Query) {
			items = append(items, category)
		}
	}
	return paginate(items, func(c types.Category) int { return c.ID }, req), nil
}

func (r *CategoryRepository) Create(ctx context.Context, category types.Category) (types.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.nameTakenLocked(category) {
		return types.Category{}, conflict(store.ConstraintCategoryName)
	}
	r.m.nextCategoryID++
	now := time.Now()
	category.ID = r.m.nextCategoryID
	category.CreatedAt = now
	category.UpdatedAt = now
	r.m.categories[category.ID] = category
	return category, nil
}

func (r *CategoryRepository) Update(ctx context.Context, category types.Category) (types.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	existing, ok := r.m.categories[category.ID]
	if !ok || existing.UserID != category.UserID {
		return types.Category{}, store.ErrNotFound
	}
	if r.nameTakenLocked(category) {
		return types.Category{}, conflict(store.ConstraintCategoryName)
	}
	category.CreatedAt = existing.CreatedAt
	category.UpdatedAt = time.Now()
	r.m.categories[category.ID] = category
	return category, nil
}

func (r *CategoryRepository) nameTakenLocked(category types.Category) bool {
	for id, other := range r.m.categories {
		if id != category.ID && other.UserID == category.UserID && other.Name == category.Name {
			return true
		}
	}
	return false
}

func (r *CategoryRepository) Delete(ctx context.Context, ownerID, id int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	category, ok := r.m.categories[id]
	if !ok || category.UserID != ownerID {
		return store.ErrNotFound
	}
	r.m.deleteCategoryLocked(id)
	return nil
}

// RecipeRepository stores recipes in a Manager.
type RecipeRepository struct {
	m *Manager
}

func (r *RecipeRepository) Get(ctx context.Context, categoryID, id int) (types.Recipe, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	recipe, ok := r.m.recipes[id]
	if !ok || recipe.CategoryID != categoryID {
		return types.Recipe{}, store.ErrNotFound
	}
	return recipe, nil
}

func (r *RecipeRepository) GetByName(ctx context.Context, categoryID int, name string) (types.Recipe, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, recipe := range r.m.recipes {
		if recipe.CategoryID == categoryID && recipe.Name == name {
			return recipe, nil
		}
	}
	return types.Recipe{}, store.ErrNotFound
}

func (r *RecipeRepository) Count(ctx context.Context, categoryID int) (int, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	total := 0
	for _, recipe := range r.m.recipes {
		if recipe.CategoryID == categoryID {
			total++
		}
	}
	return total, nil
}

func (r *RecipeRepository) List(ctx context.Context, categoryID int, req types.PageRequest) (types.Page[types.Recipe], error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var items []types.Recipe
	for _, recipe := range r.m.recipes {
		if recipe.CategoryID == categoryID && matches(recipe.Name, req.Query) {
			items = append(items, recipe)
		}
	}
	return paginate(items, func(r types.Recipe) int { return r.ID }, req), nil
}

func (r *RecipeRepository) ListAll(ctx context.Context, categoryID int) ([]types.Recipe, error) {
	page, err := r.List(ctx, categoryID, types.PageRequest{Page: 1, PerPage: math.MaxInt})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (r *RecipeRepository) Create(ctx context.Context, recipe types.Recipe) (types.Recipe, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.categories[recipe.CategoryID]; !ok {
		return types.Recipe{}, store.ErrNotFound
	}
	if r.nameTakenLocked(recipe) {
		return types.Recipe{}, conflict(store.ConstraintRecipeName)
	}
	r.m.nextRecipeID++
	now := time.Now()
	recipe.ID = r.m.nextRecipeID
	recipe.CreatedAt = now
	recipe.UpdatedAt = now
	r.m.recipes[recipe.ID] = recipe
	return recipe, nil
}

func (r *RecipeRepository) Update(ctx context.Context, recipe types.Recipe) (types.Recipe, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	existing, ok := r.m.recipes[recipe.ID]
	if !ok || existing.CategoryID != recipe.CategoryID {
		return types.Recipe{}, store.ErrNotFound
	}
	if r.nameTakenLocked(recipe) {
		return types.Recipe{}, conflict(store.ConstraintRecipeName)
	}
	recipe.UserID = existing.UserID
	recipe.CreatedAt = existing.CreatedAt
	recipe.UpdatedAt = time.Now()
	r.m.recipes[recipe.ID] = recipe
	return recipe, nil
}

func (r *RecipeRepository) nameTakenLocked(recipe types.Recipe) bool {
	for id, other := range r.m.recipes {
		if id != recipe.ID && other.CategoryID == recipe.CategoryID && other.Name == recipe.Name {
			return true
		}
	}
	return false
}

func (r *RecipeRepository) Delete(ctx context.Context, categoryID, id int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	recipe, ok := r.m.recipes[id]
	if !ok || recipe.CategoryID != categoryID {
		return store.ErrNotFound
	}
	delete(r.m.recipes, id)
	return nil
}

// BlacklistRepository stores revoked tokens in a Manager.
type BlacklistRepository struct {
	m *Manager
}

func (r *BlacklistRepository) Add(ctx context.Context, token string, expiresAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.blacklist[token]; ok {
		return nil
	}
	r.m.nextBlacklist++
	r.m.blacklist[token] = types.BlacklistToken{
		ID:            r.m.nextBlacklist,
		Token:         token,
		BlacklistedOn: time.Now().UTC(),
		ExpiresAt:     expiresAt.UTC(),
	}
	return nil
}

func (r *BlacklistRepository) Contains(ctx context.Context, token string) (bool, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	_, ok := r.m.blacklist[token]
	return ok, nil
}

func (r *BlacklistRepository) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var removed int64
	for token, entry := range r.m.blacklist {
		if entry.ExpiresAt.Before(now) {
			delete(r.m.blacklist, token)
			removed++
		}
	}
	return removed, nil
}
