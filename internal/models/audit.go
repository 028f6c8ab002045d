package models

import (
	"encoding/json"
	"time"
)

// MethodInternal is the sentinel recorded for changes made through
// service code rather than a specific HTTP verb.
const MethodInternal = "API"

// AuditLog is a single immutable audit trail entry. User fields are
// denormalized snapshots taken at write time; they are never re-resolved
// against the users table, so a row stays meaningful after the actor is
// deleted or renamed. AuditableType/AuditableID form a polymorphic
// reference: both set, or both nil for events not tied to an entity
// (e.g. login).
type AuditLog struct {
	ID            int64           `json:"id"`
	UserID        *int64          `json:"user_id,omitempty"`
	UserEmail     *string         `json:"user_email,omitempty"`
	Username      *string         `json:"username,omitempty"`
	Method        *string         `json:"method,omitempty"`
	Endpoint      *string         `json:"endpoint,omitempty"`
	Action        string          `json:"action"`
	Description   *string         `json:"description,omitempty"`
	AuditableType *string         `json:"auditable_type,omitempty"`
	AuditableID   *int64          `json:"auditable_id,omitempty"`
	OldValues     json.RawMessage `json:"old_values,omitempty"`
	NewValues     json.RawMessage `json:"new_values,omitempty"`
	IPAddress     *string         `json:"ip_address,omitempty"`
	UserAgent     *string         `json:"user_agent,omitempty"`
	StatusCode    *int            `json:"status_code,omitempty"`
	Response      json.RawMessage `json:"response,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// AuditSummary aggregates the trail over a date window.
type AuditSummary struct {
	Period       AuditPeriod      `json:"period"`
	TotalEvents  int64            `json:"total_events"`
	ByAction     map[string]int64 `json:"by_action"`
	ByMethod     map[string]int64 `json:"by_method"`
	UniqueUsers  int64            `json:"unique_users"`
	FailedEvents int64            `json:"failed_events"`
}

type AuditPeriod struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}
