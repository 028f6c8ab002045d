package dto

import (
	"encoding/json"
	"time"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *string `json:"role,omitempty"`
}

type CategoryRequest struct {
	Name        string  `json:"name"`
	Code        string  `json:"code"`
	Description *string `json:"description,omitempty"`
}

type CourseRequest struct {
	CategoryID      *int64     `json:"category_id,omitempty"`
	Title           string     `json:"title"`
	Code            string     `json:"code"`
	Description     *string    `json:"description,omitempty"`
	StartsAt        *time.Time `json:"starts_at,omitempty"`
	EndsAt          *time.Time `json:"ends_at,omitempty"`
	MaxParticipants int        `json:"max_participants,omitempty"`
}

type UpdateFileRequest struct {
	Category    *string         `json:"category,omitempty"`
	Description *string         `json:"description,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	IsPublic    *bool           `json:"is_public,omitempty"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
}

type KeycloakCallbackRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

type KeycloakRefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}
