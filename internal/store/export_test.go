package store

import (
	"context"
	"testing"

	"github.com/rcliao/agent-memory-core/internal/model"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	dst := newTestStore(t)

	src.Create(ctx, CreateLTMParams{Slug: "identity", Title: "Identity", Body: "I am an agent.", CreatedBy: model.ActorMain})
	src.Create(ctx, CreateLTMParams{Slug: "projects", Title: "Projects", Body: "root", CreatedBy: model.ActorMain})

	exported, err := src.ExportLTM(ctx, "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(exported) != 2 {
		t.Fatalf("expected 2 exported entries, got %d", len(exported))
	}

	n, err := dst.ImportLTM(ctx, exported)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 imported, got %d", n)
	}

	got, err := dst.Read(ctx, "identity")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got == nil || got.Version != 1 {
		t.Fatalf("expected imported entry to start at version 1, got %+v", got)
	}
}

func TestImportSkipsExistingSlugs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Create(ctx, CreateLTMParams{Slug: "identity", Title: "Identity", Body: "original", CreatedBy: model.ActorMain})

	n, err := s.ImportLTM(ctx, []model.LTMEntry{{Slug: "identity", Title: "Identity", Body: "clobbered", CreatedBy: model.ActorMain}})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 imported (slug exists), got %d", n)
	}

	got, _ := s.Read(ctx, "identity")
	if got.Body != "original" {
		t.Errorf("expected original body preserved, got %q", got.Body)
	}
}
