package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/training-platform/backend/internal/models"
	"github.com/training-platform/backend/internal/repositories"
	"go.uber.org/zap"
)

// Actor is the authenticated user on whose behalf an event is recorded.
// It is always passed in explicitly; the service never consults ambient
// session state.
type Actor struct {
	ID    int64
	Email string
	Name  string
}

// RequestInfo carries the request-scoped details captured on every
// record.
type RequestInfo struct {
	IP        string
	UserAgent string
}

// ActionEntry is the input to RecordAction. Action, Endpoint and Method
// are required; everything else is optional. OldValues/NewValues/
// Response are serialized as given; callers must strip secrets before
// recording.
type ActionEntry struct {
	Action        string
	Endpoint      string
	Method        string
	Description   string
	OldValues     any
	NewValues     any
	AuditableType string
	AuditableID   *int64
	StatusCode    *int
	Response      any
	Actor         *Actor
	Request       *RequestInfo
}

type auditStore interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, f repositories.AuditFilter) ([]models.AuditLog, int64, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.AuditLog, error)
	ListByEntity(ctx context.Context, entityType string, entityID int64) ([]models.AuditLog, error)
	ListAuth(ctx context.Context, f repositories.AuthTrailFilter, limit, offset int) ([]models.AuditLog, int64, error)
	ListFailedSince(ctx context.Context, since time.Time, limit, offset int) ([]models.AuditLog, int64, error)
	Summarize(ctx context.Context, from, to time.Time) (*models.AuditSummary, error)
}

// AuditService is both sides of the audit trail: the write path
// (RecordAction / RecordAuthAction / RecordModelChange, each producing
// exactly one row) and the read views over it. Write errors propagate
// to the caller; only the HTTP middleware decides to swallow them.
type AuditService struct {
	store auditStore
	log   *zap.Logger
}

func NewAuditService(store auditStore, log *zap.Logger) *AuditService {
	return &AuditService{store: store, log: log}
}

// RecordAction writes a generic audit record for an API action.
func (s *AuditService) RecordAction(ctx context.Context, e ActionEntry) (*models.AuditLog, error) {
	if e.Action == "" || e.Endpoint == "" || e.Method == "" {
		return nil, fmt.Errorf("audit: action, endpoint and method are required")
	}

	oldVals, err := marshalValues(e.OldValues)
	if err != nil {
		return nil, fmt.Errorf("audit: marshal old values: %w", err)
	}
	newVals, err := marshalValues(e.NewValues)
	if err != nil {
		return nil, fmt.Errorf("audit: marshal new values: %w", err)
	}
	response, err := marshalValues(e.Response)
	if err != nil {
		return nil, fmt.Errorf("audit: marshal response: %w", err)
	}

	entry := &models.AuditLog{
		Method:      strPtr(e.Method),
		Endpoint:    strPtr(e.Endpoint),
		Action:      e.Action,
		Description: optStrPtr(e.Description),
		OldValues:   oldVals,
		NewValues:   newVals,
		StatusCode:  e.StatusCode,
		Response:    response,
	}
	if e.AuditableType != "" {
		entry.AuditableType = strPtr(e.AuditableType)
		entry.AuditableID = e.AuditableID
	}
	applyActor(entry, e.Actor)
	applyRequest(entry, e.Request)

	if err := s.store.Insert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// RecordAuthAction writes an authentication event (login/logout/
// register). The actor may not be authenticated yet, so the attempted
// email/username are recorded literally instead of resolving a session.
func (s *AuditService) RecordAuthAction(ctx context.Context, action, email string, username string, success bool, reason string, req *RequestInfo) (*models.AuditLog, error) {
	status := 401
	description := fmt.Sprintf("User %s failed: %s", action, reason)
	if success {
		status = 200
		description = fmt.Sprintf("User %s successful", action)
	}

	entry := &models.AuditLog{
		UserEmail:   strPtr(email),
		Username:    optStrPtr(username),
		Method:      strPtr("POST"),
		Endpoint:    strPtr("auth/" + action),
		Action:      action,
		Description: strPtr(description),
		StatusCode:  &status,
	}
	applyRequest(entry, req)

	if err := s.store.Insert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// RecordModelChange writes a before/after record for an entity change
// made by an authenticated handler. The method is the "API" sentinel:
// the change does not map 1:1 to the triggering HTTP verb.
func (s *AuditService) RecordModelChange(ctx context.Context, action, entityType string, entityID int64, oldValues, newValues any, description string, actor *Actor, req *RequestInfo) (*models.AuditLog, error) {
	oldVals, err := marshalValues(oldValues)
	if err != nil {
		return nil, fmt.Errorf("audit: marshal old values: %w", err)
	}
	newVals, err := marshalValues(newValues)
	if err != nil {
		return nil, fmt.Errorf("audit: marshal new values: %w", err)
	}

	if description == "" {
		description = fmt.Sprintf("%s on %s", action, baseName(entityType))
	}

	method := models.MethodInternal
	entry := &models.AuditLog{
		Method:        &method,
		Action:        action,
		Description:   &description,
		AuditableType: strPtr(entityType),
		AuditableID:   &entityID,
		OldValues:     oldVals,
		NewValues:     newVals,
	}
	applyActor(entry, actor)
	applyRequest(entry, req)

	if err := s.store.Insert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *AuditService) List(ctx context.Context, f repositories.AuditFilter) ([]models.AuditLog, int64, error) {
	return s.store.List(ctx, f)
}

func (s *AuditService) UserTrail(ctx context.Context, userID int64, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListByUser(ctx, userID, limit)
}

func (s *AuditService) EntityHistory(ctx context.Context, entityType string, entityID int64) ([]models.AuditLog, error) {
	return s.store.ListByEntity(ctx, entityType, entityID)
}

func (s *AuditService) AuthTrail(ctx context.Context, f repositories.AuthTrailFilter, page, perPage int) ([]models.AuditLog, int64, error) {
	limit, offset := pageBounds(page, perPage)
	return s.store.ListAuth(ctx, f, limit, offset)
}

// SuspiciousActivity returns failed events (status >= 400) inside a
// rolling trailing window computed at call time.
func (s *AuditService) SuspiciousActivity(ctx context.Context, hoursAgo, page, perPage int) ([]models.AuditLog, int64, error) {
	if hoursAgo <= 0 {
		hoursAgo = 24
	}
	since := time.Now().Add(-time.Duration(hoursAgo) * time.Hour)
	limit, offset := pageBounds(page, perPage)
	return s.store.ListFailedSince(ctx, since, limit, offset)
}

// Summary aggregates the trail over [from, to], defaulting to the
// trailing 30 days. A reversed range is not rejected; it yields an
// empty-period result.
func (s *AuditService) Summary(ctx context.Context, from, to time.Time) (*models.AuditSummary, error) {
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	return s.store.Summarize(ctx, from, to)
}

func pageBounds(page, perPage int) (limit, offset int) {
	if perPage <= 0 {
		perPage = 50
	}
	if page < 1 {
		page = 1
	}
	return perPage, (page - 1) * perPage
}

func marshalValues(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(v)
}

func applyActor(entry *models.AuditLog, actor *Actor) {
	if actor == nil {
		return
	}
	id := actor.ID
	entry.UserID = &id
	entry.UserEmail = strPtr(actor.Email)
	entry.Username = strPtr(actor.Name)
}

func applyRequest(entry *models.AuditLog, req *RequestInfo) {
	if req == nil {
		return
	}
	entry.IPAddress = optStrPtr(req.IP)
	entry.UserAgent = optStrPtr(req.UserAgent)
}

// baseName mirrors the short display name of a possibly qualified
// entity type ("models.User" -> "User").
func baseName(entityType string) string {
	if i := strings.LastIndexAny(entityType, "./"); i >= 0 {
		return entityType[i+1:]
	}
	return entityType
}

func strPtr(s string) *string {
	return &s
}

func optStrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
