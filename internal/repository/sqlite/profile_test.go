package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/devsnap/internal/apperror"
)

func TestLoadProfile_WithRelations(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "1", "octo")
	other := createTestUser(t, db, "2", "other")

	createTestProject(t, db, user.ID, "first", "Go")
	createTestProject(t, db, user.ID, "second")
	createTestProject(t, db, other.ID, "not mine")
	createTestBlog(t, db, user.ID, "post")

	profile, err := db.LoadProfile(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}

	if profile.ID != user.ID || profile.Name != "octo" {
		t.Errorf("profile user = %+v", profile.User)
	}
	if len(profile.Projects) != 2 {
		t.Fatalf("len(Projects) = %d, want 2", len(profile.Projects))
	}
	if profile.Projects[0].Title != "first" || profile.Projects[1].Title != "second" {
		t.Errorf("projects out of creation order: %q, %q", profile.Projects[0].Title, profile.Projects[1].Title)
	}
	if len(profile.Blogs) != 1 || profile.Blogs[0].Title != "post" {
		t.Errorf("Blogs = %+v", profile.Blogs)
	}
}

func TestLoadProfile_EmptyCollections(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "1", "new")

	profile, err := db.LoadProfile(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}

	// Empty, not absent: the JSON must say [] rather than null.
	if profile.Projects == nil || len(profile.Projects) != 0 {
		t.Errorf("Projects = %#v, want empty non-nil slice", profile.Projects)
	}
	if profile.Blogs == nil || len(profile.Blogs) != 0 {
		t.Errorf("Blogs = %#v, want empty non-nil slice", profile.Blogs)
	}
}

func TestLoadProfile_UnknownUser(t *testing.T) {
	db := newTestDB(t)

	_, err := db.LoadProfile(context.Background(), "ghost")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("LoadProfile() error = %v, want ErrNotFound", err)
	}
}
