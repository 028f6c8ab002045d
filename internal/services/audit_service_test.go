package services

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/training-platform/backend/internal/models"
	"github.com/training-platform/backend/internal/repositories"
	"go.uber.org/zap"
)

// fakeAuditStore keeps rows in memory with the same query semantics as
// the Postgres repo, so the service contract can be exercised without a
// database.
type fakeAuditStore struct {
	rows      []models.AuditLog
	nextID    int64
	insertErr error
}

func (f *fakeAuditStore) Insert(_ context.Context, entry *models.AuditLog) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.nextID++
	entry.ID = f.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.UpdatedAt = entry.CreatedAt
	f.rows = append(f.rows, *entry)
	return nil
}

// seed appends a backdated row directly, bypassing the write path.
func (f *fakeAuditStore) seed(entry models.AuditLog) {
	f.nextID++
	entry.ID = f.nextID
	f.rows = append(f.rows, entry)
}

func (f *fakeAuditStore) List(_ context.Context, flt repositories.AuditFilter) ([]models.AuditLog, int64, error) {
	var out []models.AuditLog
	for _, r := range f.rows {
		if flt.UserID != nil && (r.UserID == nil || *r.UserID != *flt.UserID) {
			continue
		}
		if flt.Action != nil && r.Action != *flt.Action {
			continue
		}
		if flt.Endpoint != nil && (r.Endpoint == nil || !strings.Contains(*r.Endpoint, *flt.Endpoint)) {
			continue
		}
		out = append(out, r)
	}
	total := int64(len(out))
	sortNewestFirst(out)
	limit := flt.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (f *fakeAuditStore) ListByUser(_ context.Context, userID int64, limit int) ([]models.AuditLog, error) {
	var out []models.AuditLog
	for _, r := range f.rows {
		if r.UserID != nil && *r.UserID == userID {
			out = append(out, r)
		}
	}
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAuditStore) ListByEntity(_ context.Context, entityType string, entityID int64) ([]models.AuditLog, error) {
	var out []models.AuditLog
	for _, r := range f.rows {
		if r.AuditableType != nil && *r.AuditableType == entityType &&
			r.AuditableID != nil && *r.AuditableID == entityID {
			out = append(out, r)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (f *fakeAuditStore) ListAuth(_ context.Context, flt repositories.AuthTrailFilter, limit, offset int) ([]models.AuditLog, int64, error) {
	var out []models.AuditLog
	for _, r := range f.rows {
		if r.Action != "login" && r.Action != "logout" && r.Action != "register" {
			continue
		}
		if flt.EmailContains != nil && (r.UserEmail == nil || !strings.Contains(*r.UserEmail, *flt.EmailContains)) {
			continue
		}
		if flt.Success != nil {
			if r.StatusCode == nil {
				continue
			}
			ok := *r.StatusCode == 200 || *r.StatusCode == 201
			if ok != *flt.Success {
				continue
			}
		}
		out = append(out, r)
	}
	sortNewestFirst(out)
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (f *fakeAuditStore) ListFailedSince(_ context.Context, since time.Time, limit, offset int) ([]models.AuditLog, int64, error) {
	var out []models.AuditLog
	for _, r := range f.rows {
		if r.StatusCode != nil && *r.StatusCode >= 400 && !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	sortNewestFirst(out)
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (f *fakeAuditStore) Summarize(_ context.Context, from, to time.Time) (*models.AuditSummary, error) {
	s := &models.AuditSummary{
		Period:   models.AuditPeriod{From: from, To: to},
		ByAction: map[string]int64{},
		ByMethod: map[string]int64{},
	}
	users := map[int64]struct{}{}
	for _, r := range f.rows {
		if r.CreatedAt.Before(from) || r.CreatedAt.After(to) {
			continue
		}
		s.TotalEvents++
		s.ByAction[r.Action]++
		if r.Method != nil {
			s.ByMethod[*r.Method]++
		}
		if r.UserID != nil {
			users[*r.UserID] = struct{}{}
		}
		if r.StatusCode != nil && *r.StatusCode >= 400 {
			s.FailedEvents++
		}
	}
	s.UniqueUsers = int64(len(users))
	return s, nil
}

func sortNewestFirst(rows []models.AuditLog) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
}

func newTestService() (*AuditService, *fakeAuditStore) {
	store := &fakeAuditStore{}
	return NewAuditService(store, zap.NewNop()), store
}

func TestRecordActionRequiresCoreFields(t *testing.T) {
	svc, store := newTestService()

	_, err := svc.RecordAction(context.Background(), ActionEntry{Action: "view"})
	require.Error(t, err)
	assert.Empty(t, store.rows)
}

func TestRecordActionAppendOnly(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.RecordAction(ctx, ActionEntry{
			Action:   "view",
			Endpoint: "api/users",
			Method:   "GET",
		})
		require.NoError(t, err)
	}

	require.Len(t, store.rows, 5)
	first := store.rows[0]

	_, err := svc.RecordAction(ctx, ActionEntry{Action: "view", Endpoint: "api/users", Method: "GET"})
	require.NoError(t, err)
	require.Len(t, store.rows, 6)
	assert.Equal(t, first, store.rows[0], "existing rows must not change")
}

func TestRecordActionCapturesActorAndRequest(t *testing.T) {
	svc, store := newTestService()

	rec, err := svc.RecordAction(context.Background(), ActionEntry{
		Action:   "export",
		Endpoint: "exports/users/excel",
		Method:   "GET",
		Actor:    &Actor{ID: 7, Email: "admin@example.com", Name: "Admin"},
		Request:  &RequestInfo{IP: "10.0.0.1", UserAgent: "curl/8.0"},
	})
	require.NoError(t, err)

	require.NotNil(t, rec.UserID)
	assert.Equal(t, int64(7), *rec.UserID)
	assert.Equal(t, "admin@example.com", *rec.UserEmail)
	assert.Equal(t, "10.0.0.1", *rec.IPAddress)
	assert.Equal(t, "curl/8.0", *rec.UserAgent)
	assert.Len(t, store.rows, 1)
}

func TestRecordActionStoresPayloadsVerbatim(t *testing.T) {
	svc, _ := newTestService()

	rec, err := svc.RecordAction(context.Background(), ActionEntry{
		Action:    "update",
		Endpoint:  "api/users/3",
		Method:    "PUT",
		OldValues: map[string]any{"name": "Before"},
		NewValues: map[string]any{"name": "After"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Before"}`, string(rec.OldValues))
	assert.JSONEq(t, `{"name":"After"}`, string(rec.NewValues))

	rec, err = svc.RecordAction(context.Background(), ActionEntry{
		Action:   "view",
		Endpoint: "api/users",
		Method:   "GET",
	})
	require.NoError(t, err)
	assert.Nil(t, rec.OldValues)
	assert.Nil(t, rec.NewValues)
	assert.Nil(t, rec.Response)
}

func TestRecordAuthActionStatusMapping(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	ok, err := svc.RecordAuthAction(ctx, "login", "ada@example.com", "Ada", true, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 200, *ok.StatusCode)
	assert.Equal(t, "User login successful", *ok.Description)
	assert.Equal(t, "auth/login", *ok.Endpoint)
	assert.Equal(t, "POST", *ok.Method)

	failed, err := svc.RecordAuthAction(ctx, "login", "ada@example.com", "", false, "Invalid credentials", nil)
	require.NoError(t, err)
	assert.Equal(t, 401, *failed.StatusCode)
	assert.Equal(t, "User login failed: Invalid credentials", *failed.Description)
	// No session is resolved on this path.
	assert.Nil(t, failed.UserID)
	assert.Equal(t, "ada@example.com", *failed.UserEmail)
}

func TestRecordModelChangeDefaults(t *testing.T) {
	svc, _ := newTestService()

	rec, err := svc.RecordModelChange(context.Background(), "update", "models.User", 12,
		map[string]any{"role": "user"}, map[string]any{"role": "admin"}, "",
		&Actor{ID: 1, Email: "root@example.com", Name: "Root"}, nil)
	require.NoError(t, err)

	assert.Equal(t, models.MethodInternal, *rec.Method)
	assert.Equal(t, "update on User", *rec.Description)
	assert.Equal(t, "models.User", *rec.AuditableType)
	assert.Equal(t, int64(12), *rec.AuditableID)
}

func TestInsertFailurePropagates(t *testing.T) {
	svc, store := newTestService()
	store.insertErr = assert.AnError

	_, err := svc.RecordAction(context.Background(), ActionEntry{Action: "view", Endpoint: "api/users", Method: "GET"})
	assert.Error(t, err)

	_, err = svc.RecordAuthAction(context.Background(), "login", "a@b.c", "", true, "", nil)
	assert.Error(t, err)

	_, err = svc.RecordModelChange(context.Background(), "create", "models.User", 1, nil, nil, "", nil, nil)
	assert.Error(t, err)
}

func TestListReturnsTotalAcrossPages(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.RecordAction(ctx, ActionEntry{Action: "view", Endpoint: "api/users", Method: "GET"})
		require.NoError(t, err)
	}

	logs, total, err := svc.List(ctx, repositories.AuditFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, logs, 2)
	assert.Equal(t, int64(5), total, "total counts all matching rows, not the page")
}

func TestUserTrailKeepsActorSnapshot(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	actor := &Actor{ID: 9, Email: "old@example.com", Name: "Old Name"}
	_, err := svc.RecordAction(ctx, ActionEntry{
		Action: "view", Endpoint: "api/courses", Method: "GET", Actor: actor,
	})
	require.NoError(t, err)

	// The user is renamed (or deleted) afterwards; the trail must keep
	// the values captured at write time.
	actor.Email = "new@example.com"
	actor.Name = "New Name"

	trail, err := svc.UserTrail(ctx, 9, 0)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "old@example.com", *trail[0].UserEmail)
	assert.Equal(t, "Old Name", *trail[0].Username)
}

func TestEntityHistoryCompleteness(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	actor := &Actor{ID: 1, Email: "a@b.c", Name: "A"}

	for _, action := range []string{"create", "update", "delete"} {
		_, err := svc.RecordModelChange(ctx, action, models.EntityCourse, 100, nil, nil, "", actor, nil)
		require.NoError(t, err)
	}
	_, err := svc.RecordModelChange(ctx, "create", models.EntityCourse, 101, nil, nil, "", actor, nil)
	require.NoError(t, err)

	history, err := svc.EntityHistory(ctx, models.EntityCourse, 100)
	require.NoError(t, err)
	require.Len(t, history, 3)
	// Newest first.
	assert.Equal(t, "delete", history[0].Action)
	assert.Equal(t, "update", history[1].Action)
	assert.Equal(t, "create", history[2].Action)
}

func TestSuspiciousActivityWindow(t *testing.T) {
	svc, store := newTestService()
	status := 500

	store.seed(models.AuditLog{Action: "view", StatusCode: &status, CreatedAt: time.Now().Add(-25 * time.Hour)})
	store.seed(models.AuditLog{Action: "view", StatusCode: &status, CreatedAt: time.Now().Add(-1 * time.Hour)})

	logs, total, err := svc.SuspiciousActivity(context.Background(), 24, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, logs, 1)
	assert.WithinDuration(t, time.Now().Add(-1*time.Hour), logs[0].CreatedAt, time.Minute)
}

func TestAuthTrailFilters(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.RecordAuthAction(ctx, "login", "ada@example.com", "Ada", true, "", nil)
	require.NoError(t, err)
	_, err = svc.RecordAuthAction(ctx, "login", "bob@example.com", "", false, "Invalid credentials", nil)
	require.NoError(t, err)
	_, err = svc.RecordAction(ctx, ActionEntry{Action: "view", Endpoint: "api/users", Method: "GET"})
	require.NoError(t, err)

	all, total, err := svc.AuthTrail(ctx, repositories.AuthTrailFilter{}, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	success := true
	okOnly, total, err := svc.AuthTrail(ctx, repositories.AuthTrailFilter{Success: &success}, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, okOnly, 1)
	assert.Equal(t, "ada@example.com", *okOnly[0].UserEmail)

	email := "bob"
	bobOnly, _, err := svc.AuthTrail(ctx, repositories.AuthTrailFilter{EmailContains: &email}, 1, 50)
	require.NoError(t, err)
	require.Len(t, bobOnly, 1)
	assert.Equal(t, 401, *bobOnly[0].StatusCode)
}

func TestSummaryAggregation(t *testing.T) {
	svc, store := newTestService()

	from := time.Now().Add(-48 * time.Hour)
	to := time.Now()
	method := "POST"
	uid1, uid2 := int64(1), int64(2)
	failStatus := 401

	inside := from.Add(time.Hour)
	for i := 0; i < 3; i++ {
		store.seed(models.AuditLog{Action: "login", Method: &method, UserID: &uid1, CreatedAt: inside})
	}
	store.seed(models.AuditLog{Action: "view", UserID: &uid2, CreatedAt: inside})
	store.seed(models.AuditLog{Action: "view", StatusCode: &failStatus, CreatedAt: inside})
	// Outside the window.
	store.seed(models.AuditLog{Action: "login", CreatedAt: from.Add(-time.Hour)})

	s, err := svc.Summary(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(5), s.TotalEvents)
	assert.Equal(t, int64(3), s.ByAction["login"])
	assert.Equal(t, int64(2), s.ByAction["view"])
	assert.Equal(t, int64(3), s.ByMethod["POST"])
	assert.Equal(t, int64(2), s.UniqueUsers)
	assert.Equal(t, int64(1), s.FailedEvents)
}

func TestSummaryDefaultsToTrailing30Days(t *testing.T) {
	svc, _ := newTestService()

	s, err := svc.Summary(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), s.Period.To, time.Minute)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -30), s.Period.From, time.Minute)
}

func TestSummaryReversedRangeIsEmpty(t *testing.T) {
	svc, store := newTestService()
	store.seed(models.AuditLog{Action: "view", CreatedAt: time.Now()})

	s, err := svc.Summary(context.Background(), time.Now(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.TotalEvents)
}

func TestMarshalValuesPassesRawJSONThrough(t *testing.T) {
	raw := json.RawMessage(`{"already":"encoded"}`)
	got, err := marshalValues(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}
