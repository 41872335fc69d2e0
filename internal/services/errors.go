package services

import (
	"errors"
	"fmt"

	"github.com/yummy-rest/apiserver/internal/store"
)

var (
	// Token failures, in the order Validate checks for them.
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")

	// ErrInvalidScope is returned when recipes are created or listed under a
	// category the caller does not own.
	ErrInvalidScope = errors.New("invalid category scope")

	// ErrCategoryNotFound is returned by recipe lookups whose category is
	// missing or owned by someone else. It matches store.ErrNotFound.
	ErrCategoryNotFound = fmt.Errorf("category %w", store.ErrNotFound)

	// ErrNoResources distinguishes "nothing created yet" from an empty page.
	ErrNoResources = errors.New("no resources")

	ErrExportsDisabled = errors.New("exports are not enabled")
)
