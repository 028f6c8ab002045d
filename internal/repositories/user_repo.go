package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/training-platform/backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, role, keycloak_subject)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, u.Name, u.Email, u.PasswordHash, u.Role, u.KeycloakSubject,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, role, keycloak_subject, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.KeycloakSubject, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, role, keycloak_subject, created_at, updated_at
		FROM users WHERE email = $1
	`, email).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.KeycloakSubject, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertByKeycloakSubject links an OIDC identity to a local user row,
// creating it on first login.
func (r *UserRepo) UpsertByKeycloakSubject(ctx context.Context, subject, email, name string) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, role, keycloak_subject)
		VALUES ($1, $2, 'user', $3)
		ON CONFLICT (email) DO UPDATE SET
			keycloak_subject = EXCLUDED.keycloak_subject,
			name = EXCLUDED.name,
			updated_at = now()
		RETURNING id, name, email, password_hash, role, keycloak_subject, created_at, updated_at
	`, name, email, subject).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.KeycloakSubject, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

type UserFilter struct {
	Search    *string // matched against name and email
	Sort      string  // name, email or created_at
	Direction string  // asc or desc
	Limit     int
	Offset    int
}

func (r *UserRepo) List(ctx context.Context, f UserFilter) ([]models.User, int64, error) {
	cond := "TRUE"
	args := []any{}
	argIdx := 1

	if f.Search != nil {
		cond = fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+*f.Search+"%")
		argIdx++
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sort := "name"
	switch f.Sort {
	case "name", "email", "created_at":
		sort = f.Sort
	}
	dir := "ASC"
	if f.Direction == "desc" {
		dir = "DESC"
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 15
	}
	query := fmt.Sprintf(`
		SELECT id, name, email, password_hash, role, keycloak_subject, created_at, updated_at
		FROM users WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d
	`, cond, sort, dir, argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
			&u.KeycloakSubject, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *UserRepo) Update(ctx context.Context, u *models.User) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET name = $1, email = $2, password_hash = $3, role = $4, updated_at = now()
		WHERE id = $5
	`, u.Name, u.Email, u.PasswordHash, u.Role, u.ID)
	return err
}

func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

func (r *UserRepo) ListAll(ctx context.Context) ([]models.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, password_hash, role, keycloak_subject, created_at, updated_at
		FROM users ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
			&u.KeycloakSubject, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
