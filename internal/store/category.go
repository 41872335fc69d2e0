package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/yummy-rest/apiserver/types"
)

const categoryColumns = `id, user_id, name, description, created_at, updated_at`

// CategoryRepository handles persistence for categories. Every lookup is
// scoped to the owning user.
type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Get(ctx context.Context, ownerID, id int) (types.Category, error) {
	const query = `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1 AND user_id = $2`
	return scanCategory(r.db.QueryRowContext(ctx, query, id, ownerID))
}

func (r *CategoryRepository) GetByName(ctx context.Context, ownerID int, name string) (types.Category, error) {
	const query = `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = $1 AND name = $2`
	return scanCategory(r.db.QueryRowContext(ctx, query, ownerID, name))
}

func (r *CategoryRepository) Count(ctx context.Context, ownerID int) (int, error) {
	const query = `SELECT COUNT(1) FROM categories WHERE user_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *CategoryRepository) List(ctx context.Context, ownerID int, req types.PageRequest) (types.Page[types.Category], error) {
	page := types.Page[types.Category]{Page: req.Page, PerPage: req.PerPage}
	pattern := likePattern(req.Query)

	const countQuery = `SELECT COUNT(1) FROM categories WHERE user_id = $1 AND name ILIKE $2 ESCAPE '\'`
	if err := r.db.QueryRowContext(ctx, countQuery, ownerID, pattern).Scan(&page.Total); err != nil {
		return page, err
	}

	const listQuery = `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE user_id = $1 AND name ILIKE $2 ESCAPE '\'
		ORDER BY id
		OFFSET $3 LIMIT $4`
	rows, err := r.db.QueryContext(ctx, listQuery, ownerID, pattern, req.Offset(), req.PerPage)
	if err != nil {
		return page, err
	}
	defer rows.Close()

	page.Items = make([]types.Category, 0, req.PerPage)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, category)
	}
	if err := rows.Err(); err != nil {
		return page, err
	}
	return page, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category types.Category) (types.Category, error) {
	now := time.Now()
	category.CreatedAt = now
	category.UpdatedAt = now

	const query = `
		INSERT INTO categories (user_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		category.UserID,
		category.Name,
		category.Description,
		category.CreatedAt,
		category.UpdatedAt,
	).Scan(&category.ID); err != nil {
		return types.Category{}, translate(err)
	}
	return category, nil
}

func (r *CategoryRepository) Update(ctx context.Context, category types.Category) (types.Category, error) {
	category.UpdatedAt = time.Now()

	const query = `
		UPDATE categories
		SET name = $1,
			description = $2,
			updated_at = $3
		WHERE id = $4 AND user_id = $5`
	result, err := r.db.ExecContext(
		ctx,
		query,
		category.Name,
		category.Description,
		category.UpdatedAt,
		category.ID,
		category.UserID,
	)
	if err != nil {
		return types.Category{}, translate(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Category{}, err
	}
	if affected == 0 {
		return types.Category{}, ErrNotFound
	}
	return category, nil
}

// Delete removes the category and, by cascade, its recipes.
func (r *CategoryRepository) Delete(ctx context.Context, ownerID, id int) error {
	const query = `DELETE FROM categories WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, ownerID)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (types.Category, error) {
	var category types.Category
	err := row.Scan(
		&category.ID,
		&category.UserID,
		&category.Name,
		&category.Description,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Category{}, ErrNotFound
		}
		return types.Category{}, err
	}
	return category, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns a substring filter into an ILIKE pattern. An empty
// filter matches everything.
func likePattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}
