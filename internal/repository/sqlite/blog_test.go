package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/devsnap/internal/apperror"
	"github.com/sakif/devsnap/internal/model"
	"github.com/sakif/devsnap/internal/repository"
)

func TestBlogCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "1", "writer")

	b := &model.Blog{UserID: owner.ID, Title: "Hello", Content: "First post"}
	if err := db.CreateBlog(ctx, b); err != nil {
		t.Fatalf("CreateBlog() error = %v", err)
	}
	if b.ID == "" {
		t.Fatal("CreateBlog() did not set ID")
	}

	got, err := db.GetBlogByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBlogByID() error = %v", err)
	}
	if got.Content != "First post" || got.Summary != nil {
		t.Errorf("got %+v", got)
	}

	got.Title = "Hello again"
	got.Summary = model.StringPtr("tl;dr")
	if err := db.UpdateBlog(ctx, got); err != nil {
		t.Fatalf("UpdateBlog() error = %v", err)
	}
	again, _ := db.GetBlogByID(ctx, b.ID)
	if again.Title != "Hello again" || again.Summary == nil || *again.Summary != "tl;dr" {
		t.Errorf("after update got %+v", again)
	}

	if err := db.DeleteBlog(ctx, b.ID); err != nil {
		t.Fatalf("DeleteBlog() error = %v", err)
	}
	if _, err := db.GetBlogByID(ctx, b.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetBlogByID() after delete error = %v, want ErrNotFound", err)
	}
}

func TestBlogNotFoundPaths(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.UpdateBlog(ctx, &model.Blog{ID: "ghost", Title: "t", Content: "c"}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateBlog() error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteBlog(ctx, "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DeleteBlog() error = %v, want ErrNotFound", err)
	}
	if err := db.CreateBlog(ctx, &model.Blog{UserID: "ghost", Title: "t", Content: "c"}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("CreateBlog(unknown owner) error = %v, want ErrValidation", err)
	}
}

func TestListBlogs_FilterByUser(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "1", "alice")
	bob := createTestUser(t, db, "2", "bob")
	createTestBlog(t, db, alice.ID, "a")
	createTestBlog(t, db, bob.ID, "b")

	blogs, err := db.ListBlogs(context.Background(), repository.ListOptions{UserID: bob.ID})
	if err != nil {
		t.Fatalf("ListBlogs() error = %v", err)
	}
	if len(blogs) != 1 || blogs[0].Title != "b" {
		t.Errorf("ListBlogs(bob) = %+v", blogs)
	}
}
