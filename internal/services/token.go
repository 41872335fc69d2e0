package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/yummy-rest/apiserver/internal/store"
	"github.com/yummy-rest/apiserver/types"
)

// DefaultTokenTTL is how long an issued access token stays valid.
const DefaultTokenTTL = 30 * time.Minute

// BlacklistRepository defines persistence operations for revoked tokens.
type BlacklistRepository interface {
	Add(ctx context.Context, token string, expiresAt time.Time) error
	Contains(ctx context.Context, token string) (bool, error)
	PruneExpired(ctx context.Context, now time.Time) (int64, error)
}

// SubjectResolver maps the public id carried in a token to a user.
type SubjectResolver interface {
	GetByPublicID(ctx context.Context, publicID string) (types.User, error)
}

// Principal is the authenticated user behind a valid access token.
type Principal struct {
	UserID    int
	PublicID  string
	Username  string
	Role      string
	Token     string
	ExpiresAt time.Time
}

// TokenService issues, validates and revokes access tokens.
type TokenService struct {
	secret    []byte
	ttl       time.Duration
	users     SubjectResolver
	blacklist BlacklistRepository
	now       func() time.Time
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces time.Now, which tests use to move past expiry.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService constructs a TokenService signing HS256 tokens with secret.
func NewTokenService(secret string, ttl time.Duration, users SubjectResolver, blacklist BlacklistRepository, opts ...TokenOption) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &TokenService{
		secret:    []byte(secret),
		ttl:       ttl,
		users:     users,
		blacklist: blacklist,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue signs a token for user that expires after the configured TTL.
func (s *TokenService) Issue(user types.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   user.PublicID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Validate checks signature and expiry first, then the blacklist, then
// resolves the subject. An expired token reports ErrTokenExpired even when it
// has also been revoked.
func (s *TokenService) Validate(ctx context.Context, tokenString string) (Principal, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return Principal{}, ErrMissingToken
	}

	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrTokenExpired
		}
		return Principal{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Principal{}, ErrInvalidToken
	}

	revoked, err := s.blacklist.Contains(ctx, tokenString)
	if err != nil {
		return Principal{}, fmt.Errorf("check blacklist: %w", err)
	}
	if revoked {
		return Principal{}, ErrTokenRevoked
	}

	user, err := s.users.GetByPublicID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, fmt.Errorf("resolve subject: %w", err)
	}

	return Principal{
		UserID:    user.ID,
		PublicID:  user.PublicID,
		Username:  user.Username,
		Role:      user.Role,
		Token:     tokenString,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke blacklists token. Revoking the same token again succeeds.
func (s *TokenService) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if err := s.blacklist.Add(ctx, token, expiresAt); err != nil && !errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

// PruneBlacklist drops revoked tokens that have expired anyway.
func (s *TokenService) PruneBlacklist(ctx context.Context) (int64, error) {
	return s.blacklist.PruneExpired(ctx, s.now())
}
