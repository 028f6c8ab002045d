package models

import (
	"testing"
	"time"
)

func TestFileIsExpired(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{"no expiry", nil, false},
		{"future expiry", &future, false},
		{"past expiry", &past, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := File{ExpiresAt: tt.expiresAt}
			if got := f.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFileCanAccess(t *testing.T) {
	owner := int64(7)
	other := int64(8)

	tests := []struct {
		name   string
		file   File
		userID *int64
		want   bool
	}{
		{"public file, anonymous", File{IsPublic: true}, nil, true},
		{"public file, any user", File{IsPublic: true, UserID: &owner}, &other, true},
		{"private file, anonymous", File{UserID: &owner}, nil, false},
		{"private file, owner", File{UserID: &owner}, &owner, true},
		{"private file, other user", File{UserID: &owner}, &other, false},
		{"private file, no owner", File{}, &other, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.file.CanAccess(tt.userID); got != tt.want {
				t.Errorf("CanAccess() = %v, want %v", got, tt.want)
			}
		})
	}
}
