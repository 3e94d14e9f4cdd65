package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devsnap/internal/apperror"
	"github.com/sakif/devsnap/internal/auth"
	"github.com/sakif/devsnap/internal/handler"
	"github.com/sakif/devsnap/internal/model"
	sqliteRepo "github.com/sakif/devsnap/internal/repository/sqlite"
	"github.com/sakif/devsnap/internal/service"
)

const testFrontend = "http://localhost:3000"

// fakeProvider stands in for GitHub. Any code other than "bad" is accepted.
type fakeProvider struct {
	configured bool
	profile    model.ExternalProfile
}

func (p *fakeProvider) Configured() bool { return p.configured }

func (p *fakeProvider) AuthURL(state string) string {
	return "https://github.example/authorize?state=" + state
}

func (p *fakeProvider) ExchangeCode(_ context.Context, code string) (string, error) {
	if code == "bad" {
		return "", apperror.Upstream("Failed to get access token from GitHub", true)
	}
	return "gh-token", nil
}

func (p *fakeProvider) FetchProfile(context.Context, string) (*model.ExternalProfile, error) {
	profile := p.profile
	return &profile, nil
}

// testEnv is a router wired like the real server, on an in-memory database.
type testEnv struct {
	router   http.Handler
	db       *sqliteRepo.DB
	tokens   *auth.TokenService
	provider *fakeProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", "HS256", time.Hour)
	require.NoError(t, err)

	provider := &fakeProvider{
		configured: true,
		profile: model.ExternalProfile{
			ExternalID: "4242",
			Login:      "octocat",
			Name:       model.StringPtr("The Octocat"),
			Email:      model.StringPtr("octocat@example.com"),
		},
	}

	authSvc := service.NewAuthService(db, db, provider, auth.NewMemoryStateStore(), tokens, testFrontend, 10*time.Minute, logger)
	authHandler := handler.NewAuthHandler(authSvc, 10*time.Minute, logger)
	projects := handler.NewProjectHandler(service.NewProjectService(db, logger), logger)
	blogs := handler.NewBlogHandler(service.NewBlogService(db, logger), logger)
	users := handler.NewUserHandler(service.NewUserService(db, logger), logger)
	ai := handler.NewAIHandler(service.NewAIService(nil, logger), logger)
	home := handler.NewHomeHandler(db, logger)
	requireAuth := auth.RequireAuth(tokens, logger)

	r := chi.NewRouter()
	r.Get("/", home.HandleRoot)
	r.Get("/health", home.HandleHealth)
	r.Route("/auth", func(r chi.Router) {
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
		r.With(requireAuth).Get("/me", authHandler.HandleMe)
		r.Post("/logout", authHandler.HandleLogout)
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/projects", projects.HandleList)
		r.Get("/projects/{id}", projects.HandleGetByID)
		r.With(requireAuth).Post("/projects", projects.HandleCreate)
		r.With(requireAuth).Put("/projects/{id}", projects.HandleUpdate)
		r.With(requireAuth).Delete("/projects/{id}", projects.HandleDelete)

		r.Get("/blogs", blogs.HandleList)
		r.Get("/blogs/{id}", blogs.HandleGetByID)
		r.With(requireAuth).Post("/blogs", blogs.HandleCreate)
		r.With(requireAuth).Delete("/blogs/{id}", blogs.HandleDelete)

		r.Get("/users", users.HandleList)
		r.Post("/users", users.HandleCreate)
		r.With(requireAuth).Put("/users/{id}", users.HandleUpdate)
		r.With(requireAuth).Delete("/users/{id}", users.HandleDelete)

		r.Post("/ai/generate-bio", ai.HandleGenerateBio)
		r.Post("/ai/generate-project-summary", ai.HandleGenerateProjectSummary)
	})

	return &testEnv{router: r, db: db, tokens: tokens, provider: provider}
}

// do sends a request; token may be empty.
func (e *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// user creates a user directly in the database and returns its ID and a
// session token for it.
func (e *testEnv) user(t *testing.T, name string) (string, string) {
	t.Helper()
	u := &model.User{Name: name, Email: model.StringPtr(name + "@example.com"), ThemePreference: model.DefaultTheme}
	require.NoError(t, e.db.CreateUser(context.Background(), u))

	token, err := e.tokens.Issue(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: u.ID}}, 0)
	require.NoError(t, err)
	return u.ID, token
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}

func TestHome(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "running", decode[map[string]string](t, rr)["status"])

	rr = env.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]string{"status": "healthy", "message": "API is running!"}, decode[map[string]string](t, rr))
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("disk gone") }

func TestHealth_DatabaseDown(t *testing.T) {
	h := handler.NewHomeHandler(failingPinger{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rr := httptest.NewRecorder()
	h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "unhealthy", decode[map[string]string](t, rr)["status"])
}

func TestProjectHandler(t *testing.T) {
	env := newTestEnv(t)
	ownerID, ownerToken := env.user(t, "owner")
	_, otherToken := env.user(t, "other")

	t.Run("create requires a token", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/projects", `{"title":"x"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
	})

	t.Run("invalid JSON", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/projects", `{"title":`, ownerToken)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "validation_error", decode[handler.ErrorResponse](t, rr).Error)
	})

	t.Run("missing title", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/projects", `{"description":"d"}`, ownerToken)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	var created model.Project
	t.Run("create", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/projects",
			`{"title":"devsnap","tech_stack":["Go","SQLite"],"user_id":"spoofed"}`, ownerToken)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		created = decode[model.Project](t, rr)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, ownerID, created.UserID, "owner comes from the token")
		assert.Equal(t, []string{"Go", "SQLite"}, created.TechStack)
	})

	t.Run("get and list are public", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/projects/"+created.ID, "", "")
		assert.Equal(t, http.StatusOK, rr.Code)

		rr = env.do(t, http.MethodGet, "/api/projects?user_id="+ownerID, "", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, decode[[]model.Project](t, rr), 1)
	})

	t.Run("bad pagination", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/projects?limit=ten", "", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/projects/nope", "", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "not_found", decode[handler.ErrorResponse](t, rr).Error)
	})

	t.Run("other user cannot modify", func(t *testing.T) {
		rr := env.do(t, http.MethodPut, "/api/projects/"+created.ID, `{"title":"mine now"}`, otherToken)
		assert.Equal(t, http.StatusForbidden, rr.Code)

		rr = env.do(t, http.MethodDelete, "/api/projects/"+created.ID, "", otherToken)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("owner updates", func(t *testing.T) {
		rr := env.do(t, http.MethodPut, "/api/projects/"+created.ID, `{"summary":"short"}`, ownerToken)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		updated := decode[model.Project](t, rr)
		assert.Equal(t, "devsnap", updated.Title)
		require.NotNil(t, updated.Summary)
		assert.Equal(t, "short", *updated.Summary)
	})

	t.Run("owner deletes", func(t *testing.T) {
		rr := env.do(t, http.MethodDelete, "/api/projects/"+created.ID, "", ownerToken)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Project deleted successfully", decode[handler.MessageResponse](t, rr).Message)

		rr = env.do(t, http.MethodGet, "/api/projects/"+created.ID, "", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestBlogHandler(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.user(t, "writer")

	rr := env.do(t, http.MethodPost, "/api/blogs", `{"title":"Hello"}`, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "content is required")

	rr = env.do(t, http.MethodPost, "/api/blogs", `{"title":"Hello","content":"  body  "}`, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	blog := decode[model.Blog](t, rr)

	rr = env.do(t, http.MethodDelete, "/api/blogs/"+blog.ID, "", token)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Blog deleted successfully", decode[handler.MessageResponse](t, rr).Message)
}

func TestUserHandler(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/users", `{"name":"Ada","email":"ada@example.com"}`, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	ada := decode[model.User](t, rr)
	assert.Equal(t, model.DefaultTheme, ada.ThemePreference)

	rr = env.do(t, http.MethodPost, "/api/users", `{"name":"Ada again","email":"ada@example.com"}`, "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	_, token := env.user(t, "mallory")
	rr = env.do(t, http.MethodPut, "/api/users/"+ada.ID, `{"bio":"pwned"}`, token)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/users", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.User](t, rr), 2)
}

func TestUserHandler_DeleteSelf(t *testing.T) {
	env := newTestEnv(t)
	id, token := env.user(t, "leaver")

	rr := env.do(t, http.MethodDelete, "/api/users/"+id, "", token)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "User deleted successfully", decode[handler.MessageResponse](t, rr).Message)

	// The token outlives the user, but /auth/me no longer resolves it.
	rr = env.do(t, http.MethodGet, "/auth/me", "", token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAIHandler_NotConfigured(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/ai/generate-bio", `{"name":"Ada","skills":["Go"]}`, "")
	require.Equal(t, http.StatusOK, rr.Code)

	res := decode[service.AIResponse](t, rr)
	assert.True(t, res.Success)
	assert.Equal(t, service.NotConfiguredMessage, res.Content)

	rr = env.do(t, http.MethodPost, "/api/ai/generate-project-summary", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code, "title is required")
}
