package types

import "time"

// Recipe belongs to one category. UserID duplicates the category's owner
// so ownership checks need no join.
type Recipe struct {
	ID          int       `json:"id" db:"id"`
	UserID      int       `json:"-" db:"user_id"`
	CategoryID  int       `json:"category_id" db:"category_id"`
	Name        string    `json:"name" db:"name"`
	Ingredients string    `json:"ingredients" db:"ingredients"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"date_created" db:"created_at"`
	UpdatedAt   time.Time `json:"date_updated" db:"updated_at"`
}
