package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/training-platform/backend/internal/models"
)

type CategoryRepo struct {
	pool *pgxpool.Pool
}

func NewCategoryRepo(pool *pgxpool.Pool) *CategoryRepo {
	return &CategoryRepo{pool: pool}
}

func (r *CategoryRepo) Create(ctx context.Context, c *models.CourseCategory) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO course_categories (name, code, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, c.Name, c.Code, c.Description).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CategoryRepo) GetByID(ctx context.Context, id int64) (*models.CourseCategory, error) {
	var c models.CourseCategory
	err := r.pool.QueryRow(ctx, `
		SELECT cc.id, cc.name, cc.code, cc.description,
		       (SELECT count(*) FROM courses WHERE category_id = cc.id),
		       cc.created_at, cc.updated_at
		FROM course_categories cc WHERE cc.id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Code, &c.Description, &c.CourseCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

type CategoryFilter struct {
	Search *string // matched against name and code
	Sort   string  // name, code or created_at
	Limit  int
	Offset int
}

func (r *CategoryRepo) List(ctx context.Context, f CategoryFilter) ([]models.CourseCategory, int64, error) {
	cond := "TRUE"
	args := []any{}
	argIdx := 1

	if f.Search != nil {
		cond = fmt.Sprintf("(name ILIKE $%d OR code ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+*f.Search+"%")
		argIdx++
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM course_categories WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sort := "name"
	switch f.Sort {
	case "name", "code", "created_at":
		sort = f.Sort
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 15
	}
	query := fmt.Sprintf(`
		SELECT cc.id, cc.name, cc.code, cc.description,
		       (SELECT count(*) FROM courses WHERE category_id = cc.id),
		       cc.created_at, cc.updated_at
		FROM course_categories cc WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d
	`, cond, sort, argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var categories []models.CourseCategory
	for rows.Next() {
		var c models.CourseCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.Description, &c.CourseCount,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		categories = append(categories, c)
	}
	return categories, total, rows.Err()
}

func (r *CategoryRepo) Update(ctx context.Context, c *models.CourseCategory) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE course_categories SET name = $1, code = $2, description = $3, updated_at = now()
		WHERE id = $4
	`, c.Name, c.Code, c.Description, c.ID)
	return err
}

func (r *CategoryRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM course_categories WHERE id = $1`, id)
	return err
}

func (r *CategoryRepo) CourseCount(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM courses WHERE category_id = $1`, id).Scan(&count)
	return count, err
}
