package types

import "time"

// BlacklistToken records an access token revoked before its natural expiry.
type BlacklistToken struct {
	ID            int       `json:"id" db:"id"`
	Token         string    `json:"token" db:"token"`
	BlacklistedOn time.Time `json:"blacklisted_on" db:"blacklisted_on"`

	// ExpiresAt mirrors the token's exp claim. Rows past it can be pruned.
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}
