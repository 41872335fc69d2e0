package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yummy-rest/apiserver/internal/events"
	"github.com/yummy-rest/apiserver/internal/logging"
	"github.com/yummy-rest/apiserver/internal/services"
	"github.com/yummy-rest/apiserver/internal/store/memory"
	"github.com/yummy-rest/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

type fakeObjects struct {
	keys []string
}

func (f *fakeObjects) PutJSON(_ context.Context, key string, _ []byte, _ map[string]string) error {
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeObjects) Bucket() string { return "exports" }

type testAPI struct {
	t      *testing.T
	mem    *memory.Manager
	users  *services.UserService
	router http.Handler
}

func newTestAPI(t *testing.T, objects services.ObjectStore) *testAPI {
	t.Helper()
	mem := memory.NewManager()
	logger := logging.Discard()
	publisher := events.Nop{}

	tokens := services.NewTokenService("handler-secret", services.DefaultTokenTTL, mem.Users(), mem.Blacklist())
	users := services.NewUserService(mem.Users(), tokens, publisher, services.WithBcryptCost(bcrypt.MinCost))
	categories := services.NewCategoryService(mem.Categories(), publisher)
	recipes := services.NewRecipeService(mem.Categories(), mem.Recipes(), publisher)
	exports := services.NewExportService(mem.Categories(), mem.Recipes(), objects, publisher)
	guard := NewGuard(tokens, logger)

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) { AuthRouter(r, users, guard, logger) })
	router.Route("/users", func(r chi.Router) { UserRouter(r, users, guard, logger) })
	router.Route("/category", func(r chi.Router) {
		CategoryRouter(r, categories, recipes, exports, guard, logger)
	})

	return &testAPI{t: t, mem: mem, users: users, router: router}
}

func (a *testAPI) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	}
	return rec, decoded
}

// login registers username and returns a valid access token.
func (a *testAPI) login(username string) string {
	a.t.Helper()
	email := username + "@example.com"
	rec, _ := a.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": email, "username": username, "password": "password123",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code)

	rec, body := a.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": email, "password": "password123",
	})
	require.Equal(a.t, http.StatusOK, rec.Code)
	return body["access_token"].(string)
}

func (a *testAPI) createCategory(token, name string) int {
	a.t.Helper()
	rec, body := a.do(http.MethodPost, "/category", token, map[string]string{
		"name": name, "description": "Things to eat",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return int(body["categories"].(map[string]any)["id"].(float64))
}

func TestRegisterAndLogin(t *testing.T) {
	api := newTestAPI(t, nil)

	rec, body := api.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "alice@example.com", "username": "alice", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Registered successfully!", body["message"])

	rec, body = api.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "alice@example.com", "username": "alice2", "password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists. Please Log in instead.", body["message"])

	rec, body = api.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged in successfully.", body["message"])
	assert.Equal(t, "alice", body["username"])
	assert.NotEmpty(t, body["access_token"])

	rec, body = api.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Incorrect credentials.", body["message"])

	rec, body = api.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User does not exist!", body["message"])
}

func TestRegisterValidation(t *testing.T) {
	api := newTestAPI(t, nil)

	rec, body := api.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "not-an-email", "username": "al", "password": "short",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, msgInvalidInput, body["message"])

	fields := body["errors"].(map[string]any)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "password")
}

func TestLoginMissingFields(t *testing.T) {
	api := newTestAPI(t, nil)

	rec, body := api.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "a@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgBadPayload, body["message"])
}

func TestGuardMessages(t *testing.T) {
	api := newTestAPI(t, nil)

	rec, body := api.do(http.MethodGet, "/category", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Please provide an access token!", body["message"])

	rec, body = api.do(http.MethodGet, "/category", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token. Please log in again.", body["message"])
}

func TestLogoutBlacklistsToken(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.login("alice")

	rec, body := api.do(http.MethodPost, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, "Provide a valid auth token.", body["message"])

	rec, body = api.do(http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Logged out successfully.", body["message"])

	rec, body = api.do(http.MethodGet, "/category", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token blacklisted. Please log in again.", body["message"])

	rec, body = api.do(http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, "Token blacklisted. Please log in again.", body["message"])
}

func TestResetPassword(t *testing.T) {
	api := newTestAPI(t, nil)
	api.login("alice")
	user, err := api.mem.Users().GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)

	rec, body := api.do(http.MethodPost, "/auth/reset-password", "", map[string]string{
		"public_id": "missing", "current_password": "password123", "new_password": "newpassword1",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "User doesn't exist, check the Public ID provided!", body["message"])

	rec, body = api.do(http.MethodPost, "/auth/reset-password", "", map[string]string{
		"public_id": user.PublicID, "current_password": "nope", "new_password": "newpassword1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Wrong current password. Try again.", body["message"])

	rec, _ = api.do(http.MethodPost, "/auth/reset-password", "", map[string]string{
		"public_id": user.PublicID, "current_password": "password123", "new_password": "short",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, body = api.do(http.MethodPost, "/auth/reset-password", "", map[string]string{
		"public_id": user.PublicID, "current_password": "password123", "new_password": "newpassword1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Password reset successfully!", body["message"])

	rec, _ = api.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "newpassword1",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMe(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.login("alice")

	rec, body := api.do(http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", body["username"])
	assert.NotContains(t, body, "password_hash")
}

func TestCategoryLifecycle(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.login("alice")

	rec, body := api.do(http.MethodGet, "/category", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "No categories exist. Please create some.", body["message"])

	id := api.createCategory(token, "Breakfast")

	rec, body = api.do(http.MethodPost, "/category", token, map[string]string{
		"name": "Breakfast", "description": "Again",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "The category already exists!", body["message"])

	path := fmt.Sprintf("/category/%d", id)
	rec, body = api.do(http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := body["categories"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "Breakfast", list[0].(map[string]any)["name"])

	rec, body = api.do(http.MethodPut, path, token, map[string]string{
		"name": "Brunch", "description": "Late breakfast",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Category 'Breakfast' was successfully updated to 'Brunch'.", body["message"])

	rec, body = api.do(http.MethodDelete, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Category 'Brunch' was deleted successfully.", body["message"])

	rec, body = api.do(http.MethodGet, path, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Sorry, category does not exist!", body["message"])
}

func TestCategoryUpdateConflict(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.login("alice")
	api.createCategory(token, "Breakfast")
	id := api.createCategory(token, "Dinner")

	rec, body := api.do(http.MethodPut, fmt.Sprintf("/category/%d", id), token, map[string]string{
		"name": "Breakfast", "description": "Clash",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Category already exists, please use a different name.", body["message"])
}

func TestCategoryOwnership(t *testing.T) {
	api := newTestAPI(t, nil)
	alice := api.login("alice")
	bob := api.login("bob")
	id := api.createCategory(alice, "Breakfast")

	rec, _ := api.do(http.MethodGet, fmt.Sprintf("/category/%d", id), bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = api.do(http.MethodDelete, fmt.Sprintf("/category/%d", id), bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCategoryBadID(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.login("alice")

	rec, body := api.do(http.MethodGet, "/category/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid category id", body["message"])
}

func TestCategoryPagination(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.login("alice")
	for _, name := range []string{"Breakfast", "Brunch", "Dinner"} {
		api.createCategory(token, name)
	}

	rec, body := api.do(http.MethodGet, "/category?page=1&per_page=2", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["categories"], 2)
	details := body["page_details"].(map[string]any)
	assert.Equal(t, float64(2), details["pages"])
	assert.Equal(t, float64(2), details["item_count"])
	assert.Nil(t, details["previous_page"])
	assert.Equal(t, "http://example.com/category?page=2&per_page=2", details["next_page"])

	rec, body = api.do(http.MethodGet, "/category?q=br", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["categories"], 2)

	rec, body = api.do(http.MethodGet, "/category?q=zzz", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Category does not exist.", body["message"])

	rec, _ = api.do(http.MethodGet, "/category?page=0", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategoryPageBeyondOffsetRange(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.login("ann")
	api.createCategory(token, "Cookies")

	for _, page := range []string{"2305843009213693953", "9223372036854775807"} {
		rec, body := api.do(http.MethodGet, "/category?page="+page, token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, page)
		assert.Equal(t, "Category does not exist.", body["message"])
	}
}

func TestPageLinksIgnoreUnknownForwardedProto(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.login("alice")
	for _, name := range []string{"Breakfast", "Brunch"} {
		api.createCategory(token, name)
	}

	for proto, want := range map[string]string{
		"https":      "https://example.com/category?page=2&per_page=1",
		"javascript": "http://example.com/category?page=2&per_page=1",
	} {
		req := httptest.NewRequest(http.MethodGet, "/category?per_page=1", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-Forwarded-Proto", proto)
		rec := httptest.NewRecorder()
		api.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			PageDetails PageDetails `json:"page_details"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.NotNil(t, body.PageDetails.NextPage, proto)
		assert.Equal(t, want, *body.PageDetails.NextPage, proto)
	}
}

func TestRecipeLifecycle(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.login("alice")
	categoryID := api.createCategory(token, "Dinner")
	base := fmt.Sprintf("/category/%d/recipes", categoryID)

	rec, body := api.do(http.MethodGet, base, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No recipes added to this category yet!", body["message"])

	input := map[string]string{
		"name": "Jollof Rice", "ingredients": "rice, tomatoes", "description": "Cook it slowly",
	}
	rec, body = api.do(http.MethodPost, base, token, input)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := body["recipes"].(map[string]any)
	assert.Equal(t, "jollof_rice", created["name"])
	recipePath := fmt.Sprintf("%s/%d", base, int(created["id"].(float64)))

	rec, body = api.do(http.MethodPost, base, token, input)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Recipe already exists!", body["message"])

	rec, body = api.do(http.MethodGet, recipePath, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["recipes"], 1)

	rec, body = api.do(http.MethodPut, recipePath, token, map[string]string{
		"name": "fried rice", "ingredients": "rice, eggs", "description": "Fry it",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Recipe 'jollof_rice' was successfully updated to 'fried_rice'.", body["message"])

	rec, body = api.do(http.MethodDelete, recipePath, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Recipe 'fried_rice' was deleted successfully!", body["message"])

	rec, body = api.do(http.MethodGet, recipePath, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Recipe does not exist!", body["message"])
}

func TestRecipeScope(t *testing.T) {
	api := newTestAPI(t, nil)
	alice := api.login("alice")
	bob := api.login("bob")
	categoryID := api.createCategory(alice, "Dinner")
	base := fmt.Sprintf("/category/%d/recipes", categoryID)

	rec, body := api.do(http.MethodPost, base, bob, map[string]string{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid category!", body["message"])

	rec, body = api.do(http.MethodGet, base, bob, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid category!", body["message"])

	rec, body = api.do(http.MethodGet, base+"/1", bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Category does not exist!", body["message"])

	rec, body = api.do(http.MethodGet, base+"/abc", alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid recipe id", body["message"])
}

func TestRecipeValidation(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.login("alice")
	categoryID := api.createCategory(token, "Dinner")

	rec, body := api.do(http.MethodPost, fmt.Sprintf("/category/%d/recipes", categoryID), token, map[string]string{
		"name": "ok", "ingredients": "   ", "description": "",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	fields := body["errors"].(map[string]any)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "ingredients")
	assert.Contains(t, fields, "description")
}

func TestExport(t *testing.T) {
	objects := &fakeObjects{}
	api := newTestAPI(t, objects)
	token := api.login("alice")
	categoryID := api.createCategory(token, "Dinner")

	rec, body := api.do(http.MethodPost, fmt.Sprintf("/category/%d/export", categoryID), token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "exports", body["bucket"])
	require.Len(t, objects.keys, 1)
	assert.Equal(t, objects.keys[0], body["key"])

	rec, _ = api.do(http.MethodPost, "/category/999/export", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportDisabled(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.login("alice")
	categoryID := api.createCategory(token, "Dinner")

	rec, body := api.do(http.MethodPost, fmt.Sprintf("/category/%d/export", categoryID), token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Exports are not enabled.", body["message"])
}

func TestDeleteUserRequiresAdmin(t *testing.T) {
	api := newTestAPI(t, nil)
	api.login("admin")
	bob := api.login("bob")

	target, err := api.mem.Users().GetByEmail(context.Background(), "bob@example.com")
	require.NoError(t, err)

	rec, body := api.do(http.MethodDelete, "/users/"+target.PublicID, bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "admin access required", body["message"])

	_, err = api.users.Promote(context.Background(), "admin@example.com")
	require.NoError(t, err)
	rec, body = api.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "admin@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	admin := body["access_token"].(string)

	rec, body = api.do(http.MethodDelete, "/users/"+target.PublicID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User 'bob' was deleted successfully.", body["message"])
	assert.Equal(t, types.RoleUser, body["user"].(map[string]any)["role"])

	rec, body = api.do(http.MethodDelete, "/users/"+target.PublicID, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User does not exist!", body["message"])
}
