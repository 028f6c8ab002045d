package middleware

import (
	"testing"

	"github.com/training-platform/backend/internal/models"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role     string
		perm     string
		expected bool
	}{
		{models.RoleAdmin, "users.delete", true},
		{models.RoleAdmin, "anything.at.all", true},
		{models.RoleManager, "users.view", true},
		{models.RoleManager, "users.delete", false},
		{models.RoleManager, "reports.export", true},
		{models.RoleUser, "audit-logs.view", false},
		{models.RoleUser, "audit-logs.view-own", true},
		{models.RoleUser, "files.upload", true},
		{models.RoleUser, "files.delete", false},
		{"", "users.view", false},
	}

	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.perm, func(t *testing.T) {
			if got := hasPermission(tt.role, tt.perm); got != tt.expected {
				t.Errorf("hasPermission(%q, %q) = %v, want %v", tt.role, tt.perm, got, tt.expected)
			}
		})
	}
}
