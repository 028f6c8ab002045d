package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/training-platform/backend/internal/models"
)

const auditColumns = `id, user_id, user_email, username, method, endpoint, action,
	       description, auditable_type, auditable_id, old_values, new_values,
	       ip_address, user_agent, status_code, response, created_at, updated_at`

// Actions that belong to the authentication trail.
var authActions = []string{"login", "logout", "register"}

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Insert appends one audit row. There is deliberately no Update or
// Delete on this repo: the trail is append-only.
func (r *AuditRepo) Insert(ctx context.Context, entry *models.AuditLog) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO audit_logs (user_id, user_email, username, method, endpoint, action,
		        description, auditable_type, auditable_id, old_values, new_values,
		        ip_address, user_agent, status_code, response)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`, entry.UserID, entry.UserEmail, entry.Username, entry.Method, entry.Endpoint,
		entry.Action, entry.Description, entry.AuditableType, entry.AuditableID,
		entry.OldValues, entry.NewValues, entry.IPAddress, entry.UserAgent,
		entry.StatusCode, entry.Response,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
}

type AuditFilter struct {
	UserID   *int64
	Action   *string
	Endpoint *string // substring match
	Method   *string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// List returns filtered audit rows newest first, with the total row
// count for pagination.
func (r *AuditRepo) List(ctx context.Context, f AuditFilter) ([]models.AuditLog, int64, error) {
	args := []any{}
	argIdx := 1
	where := []string{"TRUE"}

	if f.UserID != nil {
		where = append(where, fmt.Sprintf("user_id = $%d", argIdx))
		args = append(args, *f.UserID)
		argIdx++
	}
	if f.Action != nil {
		where = append(where, fmt.Sprintf("action = $%d", argIdx))
		args = append(args, *f.Action)
		argIdx++
	}
	if f.Endpoint != nil {
		where = append(where, fmt.Sprintf("endpoint LIKE $%d", argIdx))
		args = append(args, "%"+*f.Endpoint+"%")
		argIdx++
	}
	if f.Method != nil {
		where = append(where, fmt.Sprintf("method = $%d", argIdx))
		args = append(args, *f.Method)
		argIdx++
	}
	if f.From != nil {
		where = append(where, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *f.From)
		argIdx++
	}
	if f.To != nil {
		where = append(where, fmt.Sprintf("created_at <= $%d", argIdx))
		args = append(args, *f.To)
		argIdx++
	}

	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM audit_logs WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE ` + cond +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	logs, err := r.queryLogs(ctx, query, args...)
	return logs, total, err
}

func (r *AuditRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.queryLogs(ctx, `
		SELECT `+auditColumns+`
		FROM audit_logs WHERE user_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2
	`, userID, limit)
}

func (r *AuditRepo) ListByEntity(ctx context.Context, entityType string, entityID int64) ([]models.AuditLog, error) {
	return r.queryLogs(ctx, `
		SELECT `+auditColumns+`
		FROM audit_logs WHERE auditable_type = $1 AND auditable_id = $2
		ORDER BY created_at DESC, id DESC
	`, entityType, entityID)
}

type AuthTrailFilter struct {
	EmailContains *string
	Success       *bool
}

// ListAuth returns the authentication trail (login/logout/register)
// newest first, with the total row count for pagination. Success maps to
// status 200/201, failure to 401/422.
func (r *AuditRepo) ListAuth(ctx context.Context, f AuthTrailFilter, limit, offset int) ([]models.AuditLog, int64, error) {
	where := []string{"action = ANY($1)"}
	args := []any{authActions}
	argIdx := 2

	if f.EmailContains != nil {
		where = append(where, fmt.Sprintf("user_email LIKE $%d", argIdx))
		args = append(args, "%"+*f.EmailContains+"%")
		argIdx++
	}
	if f.Success != nil {
		codes := []int{401, 422}
		if *f.Success {
			codes = []int{200, 201}
		}
		where = append(where, fmt.Sprintf("status_code = ANY($%d)", argIdx))
		args = append(args, codes)
		argIdx++
	}

	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM audit_logs WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE ` + cond +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, offset)

	logs, err := r.queryLogs(ctx, query, args...)
	return logs, total, err
}

// ListFailedSince returns rows with status_code >= 400 created at or
// after the given instant, newest first, with the total count.
func (r *AuditRepo) ListFailedSince(ctx context.Context, since time.Time, limit, offset int) ([]models.AuditLog, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM audit_logs WHERE status_code >= 400 AND created_at >= $1
	`, since).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	logs, err := r.queryLogs(ctx, `
		SELECT `+auditColumns+`
		FROM audit_logs WHERE status_code >= 400 AND created_at >= $1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3
	`, since, limit, offset)
	return logs, total, err
}

// Summarize aggregates the trail over [from, to] inclusive. A reversed
// range simply matches nothing and yields zero counts.
func (r *AuditRepo) Summarize(ctx context.Context, from, to time.Time) (*models.AuditSummary, error) {
	s := &models.AuditSummary{
		Period:   models.AuditPeriod{From: from, To: to},
		ByAction: map[string]int64{},
		ByMethod: map[string]int64{},
	}

	err := r.pool.QueryRow(ctx, `
		SELECT count(*),
		       count(DISTINCT user_id),
		       count(*) FILTER (WHERE status_code >= 400)
		FROM audit_logs WHERE created_at BETWEEN $1 AND $2
	`, from, to).Scan(&s.TotalEvents, &s.UniqueUsers, &s.FailedEvents)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT action, count(*) FROM audit_logs
		WHERE created_at BETWEEN $1 AND $2 GROUP BY action
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var action string
		var count int64
		if err := rows.Scan(&action, &count); err != nil {
			return nil, err
		}
		s.ByAction[action] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT method, count(*) FROM audit_logs
		WHERE created_at BETWEEN $1 AND $2 AND method IS NOT NULL GROUP BY method
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var method string
		var count int64
		if err := rows.Scan(&method, &count); err != nil {
			return nil, err
		}
		s.ByMethod[method] = count
	}
	return s, rows.Err()
}

func (r *AuditRepo) queryLogs(ctx context.Context, query string, args ...any) ([]models.AuditLog, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.UserEmail, &l.Username, &l.Method,
			&l.Endpoint, &l.Action, &l.Description, &l.AuditableType, &l.AuditableID,
			&l.OldValues, &l.NewValues, &l.IPAddress, &l.UserAgent, &l.StatusCode,
			&l.Response, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
