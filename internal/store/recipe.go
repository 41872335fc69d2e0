package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/yummy-rest/apiserver/types"
)

const recipeColumns = `id, user_id, category_id, name, ingredients, description, created_at, updated_at`

// RecipeRepository handles persistence for recipes. Lookups are scoped to a
// category; callers check the category belongs to the owner first.
type RecipeRepository struct {
	db *sql.DB
}

func NewRecipeRepository(db *sql.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

func (r *RecipeRepository) Get(ctx context.Context, categoryID, id int) (types.Recipe, error) {
	const query = `SELECT ` + recipeColumns + ` FROM recipes WHERE id = $1 AND category_id = $2`
	return scanRecipe(r.db.QueryRowContext(ctx, query, id, categoryID))
}

func (r *RecipeRepository) GetByName(ctx context.Context, categoryID int, name string) (types.Recipe, error) {
	const query = `SELECT ` + recipeColumns + ` FROM recipes WHERE category_id = $1 AND name = $2`
	return scanRecipe(r.db.QueryRowContext(ctx, query, categoryID, name))
}

func (r *RecipeRepository) Count(ctx context.Context, categoryID int) (int, error) {
	const query = `SELECT COUNT(1) FROM recipes WHERE category_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, query, categoryID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *RecipeRepository) List(ctx context.Context, categoryID int, req types.PageRequest) (types.Page[types.Recipe], error) {
	page := types.Page[types.Recipe]{Page: req.Page, PerPage: req.PerPage}
	pattern := likePattern(req.Query)

	const countQuery = `SELECT COUNT(1) FROM recipes WHERE category_id = $1 AND name ILIKE $2 ESCAPE '\'`
	if err := r.db.QueryRowContext(ctx, countQuery, categoryID, pattern).Scan(&page.Total); err != nil {
		return page, err
	}

	const listQuery = `
		SELECT ` + recipeColumns + `
		FROM recipes
		WHERE category_id = $1 AND name ILIKE $2 ESCAPE '\'
		ORDER BY id
		OFFSET $3 LIMIT $4`
	rows, err := r.db.QueryContext(ctx, listQuery, categoryID, pattern, req.Offset(), req.PerPage)
	if err != nil {
		return page, err
	}
	defer rows.Close()

	page.Items = make([]types.Recipe, 0, req.PerPage)
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, recipe)
	}
	if err := rows.Err(); err != nil {
		return page, err
	}
	return page, nil
}

// ListAll returns every recipe in the category, oldest first.
func (r *RecipeRepository) ListAll(ctx context.Context, categoryID int) ([]types.Recipe, error) {
	const query = `SELECT ` + recipeColumns + ` FROM recipes WHERE category_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipes []types.Recipe
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, recipe)
	}
	return recipes, rows.Err()
}

func (r *RecipeRepository) Create(ctx context.Context, recipe types.Recipe) (types.Recipe, error) {
	now := time.Now()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now

	const query = `
		INSERT INTO recipes (user_id, category_id, name, ingredients, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		recipe.UserID,
		recipe.CategoryID,
		recipe.Name,
		recipe.Ingredients,
		recipe.Description,
		recipe.CreatedAt,
		recipe.UpdatedAt,
	).Scan(&recipe.ID); err != nil {
		return types.Recipe{}, translate(err)
	}
	return recipe, nil
}

func (r *RecipeRepository) Update(ctx context.Context, recipe types.Recipe) (types.Recipe, error) {
	recipe.UpdatedAt = time.Now()

	const query = `
		UPDATE recipes
		SET name = $1,
			ingredients = $2,
			description = $3,
			updated_at = $4
		WHERE id = $5 AND category_id = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		recipe.Name,
		recipe.Ingredients,
		recipe.Description,
		recipe.UpdatedAt,
		recipe.ID,
		recipe.CategoryID,
	)
	if err != nil {
		return types.Recipe{}, translate(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Recipe{}, err
	}
	if affected == 0 {
		return types.Recipe{}, ErrNotFound
	}
	return recipe, nil
}

func (r *RecipeRepository) Delete(ctx context.Context, categoryID, id int) error {
	const query = `DELETE FROM recipes WHERE id = $1 AND category_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, categoryID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRecipe(row rowScanner) (types.Recipe, error) {
	var recipe types.Recipe
	err := row.Scan(
		&recipe.ID,
		&recipe.UserID,
		&recipe.CategoryID,
		&recipe.Name,
		&recipe.Ingredients,
		&recipe.Description,
		&recipe.CreatedAt,
		&recipe.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Recipe{}, ErrNotFound
		}
		return types.Recipe{}, err
	}
	return recipe, nil
}
