package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yummy-rest/apiserver/internal/events"
	"github.com/yummy-rest/apiserver/internal/store"
	"github.com/yummy-rest/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByPublicID(ctx context.Context, publicID string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	UpdateRole(ctx context.Context, id int, role string) error
	Delete(ctx context.Context, id int) error
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo       UserRepository
	tokens     *TokenService
	events     events.Publisher
	bcryptCost int
}

// UserOption customises a UserService.
type UserOption func(*UserService)

// WithBcryptCost overrides bcrypt.DefaultCost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) UserOption {
	return func(s *UserService) {
		s.bcryptCost = cost
	}
}

// NewUserService constructs a UserService with the provided dependencies.
func NewUserService(repo UserRepository, tokens *TokenService, publisher events.Publisher, opts ...UserOption) *UserService {
	s := &UserService{
		repo:       repo,
		tokens:     tokens,
		events:     publisher,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// LoginResult carries a freshly issued access token.
type LoginResult struct {
	User      types.User
	Token     string
	ExpiresAt time.Time
}

// Register validates input and creates a user with the default role.
// Email clashes are reported before username clashes.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)

	var v validator
	v.check("email", validateEmail(in.Email))
	v.check("username", validateUsername(in.Username))
	v.check("password", validatePassword(in.Password))
	if err := v.err(); err != nil {
		return types.User{}, err
	}

	if _, err := s.repo.GetByEmail(ctx, in.Email); err == nil {
		return types.User{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("check email: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		PublicID:     uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		Role:         types.RoleUser,
		PasswordHash: string(hashed),
	})
	if err != nil {
		return types.User{}, userConflict(err)
	}

	s.events.Publish(ctx, events.Event{Type: events.UserRegistered, Actor: user.PublicID, ResourceID: user.ID, Name: user.Username})
	return user, nil
}

func userConflict(err error) error {
	var conflict *store.ConflictError
	if !errors.As(err, &conflict) {
		return fmt.Errorf("create user: %w", err)
	}
	switch conflict.Constraint {
	case store.ConstraintUserEmail:
		return ErrEmailTaken
	case store.ConstraintUserUsername:
		return ErrUsernameTaken
	default:
		return fmt.Errorf("create user: %w", err)
	}
}

// Login checks credentials and issues an access token. An unknown email
// returns store.ErrNotFound.
func (s *UserService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return LoginResult{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	return LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Logout revokes the principal's token.
func (s *UserService) Logout(ctx context.Context, p Principal) error {
	if err := s.tokens.Revoke(ctx, p.Token, p.ExpiresAt); err != nil {
		return err
	}
	s.events.Publish(ctx, events.Event{Type: events.LoggedOut, Actor: p.PublicID})
	return nil
}

type ResetPasswordInput struct {
	PublicID        string
	CurrentPassword string
	NewPassword     string
}

// ResetPassword replaces the password of the user named by PublicID after
// checking the current one. An unknown user returns store.ErrNotFound.
func (s *UserService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	var v validator
	v.check("new_password", validatePassword(in.NewPassword))
	if err := v.err(); err != nil {
		return err
	}

	user, err := s.repo.GetByPublicID(ctx, strings.TrimSpace(in.PublicID))
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hashed)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.events.Publish(ctx, events.Event{Type: events.PasswordReset, Actor: user.PublicID, ResourceID: user.ID})
	return nil
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByPublicID(ctx context.Context, publicID string) (types.User, error) {
	return s.repo.GetByPublicID(ctx, publicID)
}

// Delete removes the user named by publicID along with everything they own.
func (s *UserService) Delete(ctx context.Context, actor Principal, publicID string) (types.User, error) {
	user, err := s.repo.GetByPublicID(ctx, publicID)
	if err != nil {
		return types.User{}, err
	}
	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return types.User{}, err
	}
	s.events.Publish(ctx, events.Event{Type: events.UserDeleted, Actor: actor.PublicID, ResourceID: user.ID, Name: user.Username})
	return user, nil
}

// Promote grants the admin role to the user with the given email.
func (s *UserService) Promote(ctx context.Context, email string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return types.User{}, err
	}
	if err := s.repo.UpdateRole(ctx, user.ID, types.RoleAdmin); err != nil {
		return types.User{}, err
	}
	user.Role = types.RoleAdmin
	return user, nil
}
