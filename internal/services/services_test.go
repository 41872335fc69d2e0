package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yummy-rest/apiserver/internal/events"
	"github.com/yummy-rest/apiserver/internal/store/memory"
	"github.com/yummy-rest/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Unix(1_700_000_000, 0)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	mem        *memory.Manager
	clock      *clock
	events     *recorder
	tokens     *TokenService
	users      *UserService
	categories *CategoryService
	recipes    *RecipeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memory.NewManager()
	clk := newClock()
	rec := &recorder{}
	tokens := NewTokenService(testSecret, DefaultTokenTTL, mem.Users(), mem.Blacklist(), WithClock(clk.Now))
	return &fixture{
		mem:        mem,
		clock:      clk,
		events:     rec,
		tokens:     tokens,
		users:      NewUserService(mem.Users(), tokens, rec, WithBcryptCost(bcrypt.MinCost)),
		categories: NewCategoryService(mem.Categories(), rec),
		recipes:    NewRecipeService(mem.Categories(), mem.Recipes(), rec),
	}
}

// principal registers a user and returns the principal behind a fresh login.
func (f *fixture) principal(t *testing.T, username string) Principal {
	t.Helper()
	ctx := context.Background()
	_, err := f.users.Register(ctx, RegisterInput{
		Email:    username + "@example.com",
		Username: username,
		Password: "password123",
	})
	require.NoError(t, err)
	login, err := f.users.Login(ctx, username+"@example.com", "password123")
	require.NoError(t, err)
	p, err := f.tokens.Validate(ctx, login.Token)
	require.NoError(t, err)
	return p
}

func (f *fixture) category(t *testing.T, p Principal, name string) types.Category {
	t.Helper()
	category, err := f.categories.Create(context.Background(), p, CategoryInput{Name: name, Description: "Tasty things"})
	require.NoError(t, err)
	return category
}
