package export

import (
	"strings"
	"testing"
	"time"
)

func TestCSVRenderer(t *testing.T) {
	r := NewCSVRenderer()

	out, err := r.Render("Users", []string{"ID", "Name"}, [][]string{
		{"1", "Ada"},
		{"2", "Bob, Jr."},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if lines[0] != "ID,Name" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[2] != `2,"Bob, Jr."` {
		t.Errorf("quoted row = %q", lines[2])
	}
}

func TestFilename(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 3, 1, 0, time.UTC)
	got := Filename("audit_logs", "csv", now)
	want := "audit_logs_2026-09-01_120301.csv"
	if got != want {
		t.Errorf("Filename = %q, want %q", got, want)
	}
}
