package middleware

import (
	"testing"

	"github.com/training-platform/backend/internal/models"
)

func TestResolverAction(t *testing.T) {
	tests := []struct {
		method   string
		expected string
	}{
		{"GET", "view"},
		{"POST", "create"},
		{"PUT", "update"},
		{"PATCH", "update"},
		{"DELETE", "delete"},
		{"get", "view"},
		{"OPTIONS", "unknown"},
		{"HEAD", "unknown"},
		{"", "unknown"},
	}

	r := NewRouteResolver()
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			if got := r.Action(tt.method); got != tt.expected {
				t.Errorf("Action(%q) = %q, want %q", tt.method, got, tt.expected)
			}
		})
	}
}

func TestResolverEntityType(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/api/v1/users/3", models.EntityUser},
		{"/api/v1/users", models.EntityUser},
		{"/api/v1/course-categories/7", models.EntityCourseCategory},
		{"/api/v1/courses/1", models.EntityCourse},
		{"/api/v1/files/9/download", models.EntityFile},
		{"api/users/3", models.EntityUser},
		{"/api/v1/exports/users/excel", ""},
		{"/api/v1/audit-logs", ""},
		{"/health", ""},
		{"", ""},
	}

	r := NewRouteResolver()
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := r.EntityType(tt.path); got != tt.expected {
				t.Errorf("EntityType(%q) = %q, want %q", tt.path, got, tt.expected)
			}
		})
	}
}

func TestResolverEntityID(t *testing.T) {
	tests := []struct {
		name     string
		params   map[string]string
		expected *int64
	}{
		{"id param", map[string]string{"id": "42"}, int64Ptr(42)},
		{"priority order", map[string]string{"category": "7", "id": "3"}, int64Ptr(3)},
		{"fallback param", map[string]string{"fileId": "12"}, int64Ptr(12)},
		{"non-numeric skipped", map[string]string{"id": "abc", "course": "5"}, int64Ptr(5)},
		{"no match", map[string]string{"slug": "intro"}, nil},
		{"empty", map[string]string{}, nil},
	}

	r := NewRouteResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.EntityID(tt.params)
			switch {
			case got == nil && tt.expected != nil:
				t.Errorf("EntityID = nil, want %d", *tt.expected)
			case got != nil && tt.expected == nil:
				t.Errorf("EntityID = %d, want nil", *got)
			case got != nil && tt.expected != nil && *got != *tt.expected:
				t.Errorf("EntityID = %d, want %d", *got, *tt.expected)
			}
		})
	}
}

func int64Ptr(v int64) *int64 {
	return &v
}
