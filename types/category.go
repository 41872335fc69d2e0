package types

import "time"

// Category is a named grouping of recipes owned by a single user.
// Names are unique among one owner's categories only.
type Category struct {
	ID          int       `json:"id" db:"id"`
	UserID      int       `json:"-" db:"user_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"date_created" db:"created_at"`
	UpdatedAt   time.Time `json:"date_updated" db:"updated_at"`
}
