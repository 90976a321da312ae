package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minisentry/minisentry/internal/model"
)

const recordColumns = `id, project_id, "timestamp", message, level, environment,
	event_id, platform, server_name, sdk, "user", tags, contexts, extra,
	breadcrumbs, exception, unknown`

// RecordRepository persists and reads canonical log records.
type RecordRepository struct {
	pool *pgxpool.Pool
}

// NewRecordRepository returns a RecordRepository using the given pool.
func NewRecordRepository(pool *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{pool: pool}
}

// Insert stores a record and fills in its storage-assigned id.
func (r *RecordRepository) Insert(ctx context.Context, rec *model.Record) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO records (project_id, "timestamp", message, level, environment,
			event_id, platform, server_name, sdk, "user", tags, contexts, extra,
			breadcrumbs, exception, unknown)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		rec.ProjectID,
		rec.Timestamp,
		rec.Message,
		rec.Level,
		rec.Environment,
		rec.EventID,
		rec.Platform,
		rec.ServerName,
		rec.SDK,
		rec.User,
		rec.Tags,
		rec.Contexts,
		rec.Extra,
		rec.Breadcrumbs,
		rec.Exception,
		rec.Unknown,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// List returns up to limit records with id below cursor, newest first,
// optionally restricted to one project. The caller pages by passing the id of
// the last record returned as the next cursor.
func (r *RecordRepository) List(ctx context.Context, cursor int64, limit int, projectID *int64) ([]model.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE id < $1`
	args := []any{cursor}
	if projectID != nil {
		query += ` AND project_id = $2`
		args = append(args, *projectID)
	}
	query += fmt.Sprintf(` ORDER BY id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var list []model.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

// Get returns one record by id, or ErrNotFound.
func (r *RecordRepository) Get(ctx context.Context, id int64) (*model.Record, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get record %d: %w", id, err)
	}
	return &rec, nil
}

func scanRecord(row pgx.Row) (model.Record, error) {
	var rec model.Record
	err := row.Scan(
		&rec.ID,
		&rec.ProjectID,
		&rec.Timestamp,
		&rec.Message,
		&rec.Level,
		&rec.Environment,
		&rec.EventID,
		&rec.Platform,
		&rec.ServerName,
		&rec.SDK,
		&rec.User,
		&rec.Tags,
		&rec.Contexts,
		&rec.Extra,
		&rec.Breadcrumbs,
		&rec.Exception,
		&rec.Unknown,
	)
	return rec, err
}
