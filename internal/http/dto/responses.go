package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type AuthResponse struct {
	Token string `json:"token"`
	Type  string `json:"type"`
	User  any    `json:"user"`
}

// PagedResponse is the envelope for paginated list endpoints.
type PagedResponse struct {
	Data    any   `json:"data"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
}

// DuplicateFileResponse points an upload at the already-stored file
// with the same content hash.
type DuplicateFileResponse struct {
	Duplicate bool `json:"duplicate"`
	File      any  `json:"file"`
}

type UserTrailResponse struct {
	UserID int64 `json:"user_id"`
	Total  int   `json:"total"`
	Logs   any   `json:"logs"`
}

type EntityHistoryResponse struct {
	ModelType    string `json:"model_type"`
	ModelID      int64  `json:"model_id"`
	TotalChanges int    `json:"total_changes"`
	History      any    `json:"history"`
}

type KeycloakLoginResponse struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

type KeycloakTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	LocalToken   string `json:"local_token,omitempty"`
	User         any    `json:"user,omitempty"`
}
