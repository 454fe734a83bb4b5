package store

import (
	"context"
	"testing"

	"github.com/rcliao/agent-memory-core/internal/model"
)

func TestSearchScoresTitleAboveBody(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Create(ctx, CreateLTMParams{Slug: "a", Title: "widget guide", Body: "unrelated content", CreatedBy: model.ActorMain})
	s.Create(ctx, CreateLTMParams{Slug: "b", Title: "unrelated", Body: "mentions widget once", CreatedBy: model.ActorMain})

	results, err := s.Search(ctx, SearchParams{Query: "widget"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Entry.Slug != "a" {
		t.Errorf("expected title match ranked first, got %+v", results)
	}
}

func TestSearchExcludesArchived(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Create(ctx, CreateLTMParams{Slug: "gone", Title: "gone widget", Body: "x", CreatedBy: model.ActorMain})
	s.Archive(ctx, "gone", 1)

	results, err := s.Search(ctx, SearchParams{Query: "widget"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected archived entry excluded, got %+v", results)
	}
}

func TestSearchPathPrefix(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Create(ctx, CreateLTMParams{Slug: "projects", Title: "Projects", Body: "root", CreatedBy: model.ActorMain})
	s.Create(ctx, CreateLTMParams{Slug: "widget", Parent: "projects", Title: "Widget", Body: "widget details", CreatedBy: model.ActorMain})
	s.Create(ctx, CreateLTMParams{Slug: "other", Title: "widget mention", Body: "x", CreatedBy: model.ActorMain})

	results, err := s.Search(ctx, SearchParams{Query: "widget", PathPrefix: "/projects"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, r := range results {
		if r.Entry.Slug == "other" {
			t.Errorf("expected path prefix to exclude 'other', got %+v", results)
		}
	}
}
