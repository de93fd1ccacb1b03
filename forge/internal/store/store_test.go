package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/locforge/dbopen"
	"github.com/hazyhaar/locforge/locator"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return &Store{DB: dbopen.OpenMemory(t, dbopen.WithSchema(Schema))}
}

func sampleProject(id, name string) *Project {
	return &Project{
		ID:     id,
		Name:   name,
		Config: Config{BaseURL: "https://app.example.com", Language: "go", Framework: "playwright"},
		Pages: []locator.PageDefinition{{
			Name: "LoginPage",
			Elements: []locator.ElementDefinition{
				{Name: "username_input", LocatorKind: locator.KindID, LocatorValue: "username", Description: "Input: username", Score: 100},
			},
		}},
		Tests: []locator.TestCase{{
			ID: "tc_1", Name: "login", Page: "LoginPage",
			Steps: []locator.TestStep{{Action: locator.ActionFill, Target: "username_input", Value: "x"}},
		}},
	}
}

func TestProjectCRUD(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// Insert.
	p := sampleProject("fw-1", "Shop")
	if err := s.Insert(ctx, p); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if p.Version != 1 || p.CreatedAt == 0 || p.UpdatedAt != p.CreatedAt {
		t.Errorf("insert metadata: version %d created %d updated %d", p.Version, p.CreatedAt, p.UpdatedAt)
	}

	// Get.
	got, err := s.Get(ctx, "fw-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("get: got nil")
	}
	if got.Name != "Shop" {
		t.Errorf("Name: got %q, want %q", got.Name, "Shop")
	}
	if got.Config.BaseURL != "https://app.example.com" {
		t.Errorf("Config.BaseURL: got %q", got.Config.BaseURL)
	}
	if len(got.Pages) != 1 || len(got.Pages[0].Elements) != 1 {
		t.Fatalf("Pages: got %+v", got.Pages)
	}
	if el := got.Pages[0].Elements[0]; el.LocatorKind != locator.KindID || el.Score != 100 {
		t.Errorf("element: got %+v", el)
	}
	if len(got.Tests) != 1 || got.Tests[0].Steps[0].Target != "username_input" {
		t.Errorf("Tests: got %+v", got.Tests)
	}

	// GetByName.
	byName, err := s.GetByName(ctx, "Shop")
	if err != nil || byName == nil || byName.ID != "fw-1" {
		t.Errorf("get by name: %+v, %v", byName, err)
	}

	// List.
	if err := s.Insert(ctx, sampleProject("fw-2", "Blog")); err != nil {
		t.Fatalf("insert second: %v", err)
	}
	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("list: got %d projects, want 2", len(all))
	}

	// Update.
	got.Name = "Shop v2"
	if err := s.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Version != 2 {
		t.Errorf("Version after update: got %d, want 2", got.Version)
	}
	got2, _ := s.Get(ctx, "fw-1")
	if got2.Name != "Shop v2" || got2.Version != 2 {
		t.Errorf("after update: got %q v%d", got2.Name, got2.Version)
	}

	// Delete.
	deleted, err := s.Delete(ctx, "fw-1")
	if err != nil || !deleted {
		t.Fatalf("delete: %v, %v", deleted, err)
	}
	if gone, _ := s.Get(ctx, "fw-1"); gone != nil {
		t.Error("project still present after delete")
	}
	if deleted, _ := s.Delete(ctx, "fw-1"); deleted {
		t.Error("second delete should report false")
	}
}

func TestGet_Missing(t *testing.T) {
	s := testStore(t)
	p, err := s.Get(context.Background(), "nope")
	if err != nil || p != nil {
		t.Fatalf("got %+v, %v; want nil, nil", p, err)
	}
}

func TestUpdate_VersionConflict(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := sampleProject("fw-1", "Shop")
	if err := s.Insert(ctx, p); err != nil {
		t.Fatal(err)
	}

	stale := *p
	if err := s.Update(ctx, p); err != nil {
		t.Fatalf("first update: %v", err)
	}
	err := s.Update(ctx, &stale)
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale update: got %v, want ErrVersionConflict", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	s := testStore(t)
	err := s.Update(context.Background(), sampleProject("ghost", "Ghost"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestInsert_DuplicateName(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.Insert(ctx, sampleProject("fw-1", "Shop")); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(ctx, sampleProject("fw-2", "Shop")); err == nil {
		t.Fatal("expected unique constraint error")
	}
}

func TestInsert_NilSlicesStoredEmpty(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.Insert(ctx, &Project{ID: "fw-1", Name: "Empty"}); err != nil {
		t.Fatal(err)
	}
	var pages string
	if err := s.DB.QueryRow(`SELECT pages FROM frameworks WHERE id = 'fw-1'`).Scan(&pages); err != nil {
		t.Fatal(err)
	}
	if pages != "[]" {
		t.Errorf("pages column: got %q, want []", pages)
	}
}

func TestOpen_File(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "data", "locforge.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if err := s.Insert(context.Background(), sampleProject("fw-1", "Shop")); err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestNew_AppliesSchema(t *testing.T) {
	s, err := New(dbopen.OpenMemory(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := s.Insert(ctx, sampleProject("fw_n", "fresh")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := s.GetByName(ctx, "fresh")
	if err != nil || got == nil {
		t.Fatalf("GetByName: got %v, %v", got, err)
	}
}
