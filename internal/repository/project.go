package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minisentry/minisentry/internal/model"
)

// ProjectRepository persists and reads project rows.
type ProjectRepository struct {
	pool *pgxpool.Pool
}

// NewProjectRepository returns a ProjectRepository using the given pool.
func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

// UpsertID inserts a nameless project row for id if none exists. It reports
// whether the insert actually created a row, so callers can refresh the
// directory only when the project set changed.
func (r *ProjectRepository) UpsertID(ctx context.Context, id int64) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		INSERT INTO projects (id, name)
		VALUES ($1, NULL)
		ON CONFLICT (id) DO NOTHING`, id)
	if err != nil {
		return false, fmt.Errorf("upsert project %d: %w", id, err)
	}
	return ct.RowsAffected() != 0, nil
}

// Upsert inserts a project with its name, ignoring the write if the id is
// already taken. Used for seeding at startup.
func (r *ProjectRepository) Upsert(ctx context.Context, p model.Project) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO projects (id, name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`, p.ID, p.Name)
	if err != nil {
		return fmt.Errorf("upsert project %d: %w", p.ID, err)
	}
	return nil
}

// ListProjects returns all projects ordered by id. Implements cache.Loader.
func (r *ProjectRepository) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM projects ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Rename sets a project's name. Returns ErrNotFound for an unknown id.
func (r *ProjectRepository) Rename(ctx context.Context, id int64, name string) error {
	ct, err := r.pool.Exec(ctx, `UPDATE projects SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return fmt.Errorf("rename project %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
