package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/sakif/devsnap/internal/apperror"
	"github.com/sakif/devsnap/internal/model"
	"github.com/sakif/devsnap/internal/repository"
)

// =========================================================================
// MOCK STORE
// =========================================================================
//
// mockStore implements every repository interface in memory. It enforces
// the same uniqueness rules as the SQLite schema (email, github_id) so the
// services see the same Conflict errors they would in production.
//
// Hooks let a test inject failures or simulate a concurrent writer.

type mockStore struct {
	mu       sync.Mutex
	users    map[string]*model.User
	projects map[string]*model.Project
	blogs    map[string]*model.Blog
	nextID   int
	seq      int // insertion order, stands in for created_at

	order map[string]int

	// beforeCreateUser runs inside CreateUser before the uniqueness check.
	beforeCreateUser func(m *mockStore, u *model.User)
	// failWith, when set, is returned by every write.
	failWith error

	writes int
}

func newMockStore() *mockStore {
	return &mockStore{
		users:    make(map[string]*model.User),
		projects: make(map[string]*model.Project),
		blogs:    make(map[string]*model.Blog),
		order:    make(map[string]int),
	}
}

func (m *mockStore) id(prefix string) string {
	m.nextID++
	m.seq++
	id := fmt.Sprintf("%s-%d", prefix, m.nextID)
	m.order[id] = m.seq
	return id
}

// --- users ---

func (m *mockStore) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.failWith != nil {
		return m.failWith
	}
	if hook := m.beforeCreateUser; hook != nil {
		m.beforeCreateUser = nil
		hook(m, u)
	}
	if err := m.checkUnique(u); err != nil {
		return err
	}
	u.ID = m.id("user")
	stored := *u
	m.users[u.ID] = &stored
	return nil
}

// insertUserLocked stores u directly, as another request would.
func (m *mockStore) insertUserLocked(u model.User) {
	u.ID = m.id("user")
	m.users[u.ID] = &u
}

func (m *mockStore) checkUnique(u *model.User) error {
	for _, other := range m.users {
		if other.ID == u.ID {
			continue
		}
		if u.GitHubID != nil && other.GitHubID != nil && *u.GitHubID == *other.GitHubID {
			return apperror.Conflict("user", "github_id")
		}
		if u.Email != nil && other.Email != nil && *u.Email == *other.Email {
			return apperror.Conflict("user", "email")
		}
	}
	return nil
}

func (m *mockStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (m *mockStore) GetUserByGitHubID(_ context.Context, githubID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.GitHubID != nil && *u.GitHubID == githubID {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", githubID)
}

func (m *mockStore) ListUsers(_ context.Context, opts repository.ListOptions) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] < m.order[out[j].ID] })
	return page(out, opts), nil
}

func (m *mockStore) UpdateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.users[u.ID]; !ok {
		return apperror.NotFound("user", u.ID)
	}
	if err := m.checkUnique(u); err != nil {
		return err
	}
	stored := *u
	m.users[u.ID] = &stored
	return nil
}

func (m *mockStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if _, ok := m.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(m.users, id)
	for pid, p := range m.projects {
		if p.UserID == id {
			delete(m.projects, pid)
		}
	}
	for bid, b := range m.blogs {
		if b.UserID == id {
			delete(m.blogs, bid)
		}
	}
	return nil
}

// --- projects ---

func (m *mockStore) CreateProject(_ context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.users[p.UserID]; !ok {
		return apperror.ValidationFailed("user_id", "owner does not exist")
	}
	p.ID = m.id("project")
	stored := *p
	m.projects[p.ID] = &stored
	return nil
}

func (m *mockStore) GetProjectByID(_ context.Context, id string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, apperror.NotFound("project", id)
	}
	result := *p
	return &result, nil
}

func (m *mockStore) ListProjects(_ context.Context, opts repository.ListOptions) ([]model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return page(m.projectsOf(opts.UserID), opts), nil
}

func (m *mockStore) projectsOf(userID string) []model.Project {
	out := make([]model.Project, 0)
	for _, p := range m.projects {
		if userID == "" || p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] < m.order[out[j].ID] })
	return out
}

func (m *mockStore) UpdateProject(_ context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if _, ok := m.projects[p.ID]; !ok {
		return apperror.NotFound("project", p.ID)
	}
	stored := *p
	m.projects[p.ID] = &stored
	return nil
}

func (m *mockStore) DeleteProject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if _, ok := m.projects[id]; !ok {
		return apperror.NotFound("project", id)
	}
	delete(m.projects, id)
	return nil
}

// --- blogs ---

func (m *mockStore) CreateBlog(_ context.Context, b *model.Blog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.users[b.UserID]; !ok {
		return apperror.ValidationFailed("user_id", "owner does not exist")
	}
	b.ID = m.id("blog")
	stored := *b
	m.blogs[b.ID] = &stored
	return nil
}

func (m *mockStore) GetBlogByID(_ context.Context, id string) (*model.Blog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blogs[id]
	if !ok {
		return nil, apperror.NotFound("blog", id)
	}
	result := *b
	return &result, nil
}

func (m *mockStore) ListBlogs(_ context.Context, opts repository.ListOptions) ([]model.Blog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return page(m.blogsOf(opts.UserID), opts), nil
}

func (m *mockStore) blogsOf(userID string) []model.Blog {
	out := make([]model.Blog, 0)
	for _, b := range m.blogs {
		if userID == "" || b.UserID == userID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] < m.order[out[j].ID] })
	return out
}

func (m *mockStore) UpdateBlog(_ context.Context, b *model.Blog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if _, ok := m.blogs[b.ID]; !ok {
		return apperror.NotFound("blog", b.ID)
	}
	stored := *b
	m.blogs[b.ID] = &stored
	return nil
}

func (m *mockStore) DeleteBlog(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if _, ok := m.blogs[id]; !ok {
		return apperror.NotFound("blog", id)
	}
	delete(m.blogs, id)
	return nil
}

// --- profile ---

func (m *mockStore) LoadProfile(_ context.Context, userID string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, apperror.NotFound("user", userID)
	}
	return &model.Profile{
		User:     *u,
		Projects: m.projectsOf(userID),
		Blogs:    m.blogsOf(userID),
	}, nil
}

func (m *mockStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func page[T any](items []T, opts repository.ListOptions) []T {
	if opts.Offset >= len(items) {
		return []T{}
	}
	items = items[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}

var (
	_ repository.UserRepository    = (*mockStore)(nil)
	_ repository.ProjectRepository = (*mockStore)(nil)
	_ repository.BlogRepository    = (*mockStore)(nil)
	_ repository.ProfileRepository = (*mockStore)(nil)
)

// =========================================================================
// TEST HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// seedUser inserts a user straight into the store and returns its ID.
func seedUser(t *testing.T, store *mockStore, name string) string {
	t.Helper()
	u := &model.User{Name: name, ThemePreference: model.DefaultTheme}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return u.ID
}
