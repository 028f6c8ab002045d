package models

import (
	"encoding/json"
	"time"
)

type File struct {
	ID               int64           `json:"id"`
	Filename         string          `json:"filename"`
	OriginalFilename string          `json:"original_filename"`
	MimeType         string          `json:"mime_type"`
	Size             int64           `json:"size"`
	Path             string          `json:"path"`
	Hash             string          `json:"hash"`
	UserID           *int64          `json:"user_id,omitempty"`
	Category         *string         `json:"category,omitempty"`
	Description      *string         `json:"description,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	IsPublic         bool            `json:"is_public"`
	DownloadCount    int             `json:"download_count"`
	ExpiresAt        *time.Time      `json:"expires_at,omitempty"`
	DeletedAt        *time.Time      `json:"-"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (f *File) IsExpired() bool {
	return f.ExpiresAt != nil && f.ExpiresAt.Before(time.Now())
}

// CanAccess reports whether the given user may read the file. Public
// files are readable by anyone; private files only by their owner.
func (f *File) CanAccess(userID *int64) bool {
	if f.IsPublic {
		return true
	}
	if userID == nil || f.UserID == nil {
		return false
	}
	return *f.UserID == *userID
}
