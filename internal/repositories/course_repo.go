package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/training-platform/backend/internal/models"
)

type CourseRepo struct {
	pool *pgxpool.Pool
}

func NewCourseRepo(pool *pgxpool.Pool) *CourseRepo {
	return &CourseRepo{pool: pool}
}

func (r *CourseRepo) Create(ctx context.Context, c *models.Course) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO courses (category_id, title, code, description, starts_at, ends_at, max_participants)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, c.CategoryID, c.Title, c.Code, c.Description, c.StartsAt, c.EndsAt, c.MaxParticipants,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CourseRepo) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	var c models.Course
	err := r.pool.QueryRow(ctx, `
		SELECT id, category_id, title, code, description, starts_at, ends_at, max_participants, created_at, updated_at
		FROM courses WHERE id = $1
	`, id).Scan(&c.ID, &c.CategoryID, &c.Title, &c.Code, &c.Description,
		&c.StartsAt, &c.EndsAt, &c.MaxParticipants, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CourseRepo) ListByCategory(ctx context.Context, categoryID int64) ([]models.Course, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, category_id, title, code, description, starts_at, ends_at, max_participants, created_at, updated_at
		FROM courses WHERE category_id = $1 ORDER BY title
	`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []models.Course
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.CategoryID, &c.Title, &c.Code, &c.Description,
			&c.StartsAt, &c.EndsAt, &c.MaxParticipants, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (r *CourseRepo) Update(ctx context.Context, c *models.Course) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE courses SET category_id = $1, title = $2, code = $3, description = $4,
		       starts_at = $5, ends_at = $6, max_participants = $7, updated_at = now()
		WHERE id = $8
	`, c.CategoryID, c.Title, c.Code, c.Description, c.StartsAt, c.EndsAt, c.MaxParticipants, c.ID)
	return err
}

func (r *CourseRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	return err
}
