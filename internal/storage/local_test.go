package storage

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, "docs/2026/01/report.txt", strings.NewReader("hello")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !store.Exists(ctx, "docs/2026/01/report.txt") {
		t.Fatal("Exists = false after Save")
	}

	r, err := store.Open(ctx, "docs/2026/01/report.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	body, _ := io.ReadAll(r)
	if string(body) != "hello" {
		t.Errorf("content = %q, want %q", body, "hello")
	}

	if err := store.Delete(ctx, "docs/2026/01/report.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.Exists(ctx, "docs/2026/01/report.txt") {
		t.Error("Exists = true after Delete")
	}
	// Deleting a missing blob is not an error.
	if err := store.Delete(ctx, "docs/2026/01/report.txt"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	if err := store.Save(context.Background(), "../escape.txt", strings.NewReader("x")); err == nil {
		t.Error("expected error for path traversal")
	}
}
