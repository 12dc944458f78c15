package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/eslsoft/vidya/internal/entity"
)

func writeFile(t *testing.T, name, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(name, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirListAndFetch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "gita", "uk", "bg2.txt"), "Глава друга")
	writeFile(t, filepath.Join(root, "gita", "uk", "bg1.txt"), "Глава перша")
	writeFile(t, filepath.Join(root, "gita", "uk", "notes.md"), "skip")
	if err := os.MkdirAll(filepath.Join(root, "gita", "uk", "nested.txt"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	src := NewDir(root)
	col := entity.Collection{Repo: "gita", Path: "uk"}
	ctx := context.Background()

	items, err := src.List(ctx, col)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"uk/bg1.txt", "uk/bg2.txt"}, items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}

	body, err := src.Fetch(ctx, col, items[0])
	if err != nil || body != "Глава перша" {
		t.Fatalf("Fetch = %q, %v", body, err)
	}
	if _, err := src.Fetch(ctx, col, "uk/bg3.txt"); !errors.Is(err, entity.ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
	// paths cannot escape the repo directory
	if _, err := src.Fetch(ctx, col, "../../etc/passwd"); !errors.Is(err, entity.ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound for escaping path, got %v", err)
	}

	if _, err := src.List(ctx, entity.Collection{Repo: "missing"}); !errors.Is(err, entity.ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound for missing dir, got %v", err)
	}
}
