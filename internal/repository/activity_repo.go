package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"projector-tracker/internal/domain"
)

// ActivityRepository es de solo inserción: no hay Update ni Delete.
type ActivityRepository interface {
	Create(ctx context.Context, a domain.Activity) error
	ListRecent(ctx context.Context, limit int) ([]domain.Activity, error)
	ListByEquipment(ctx context.Context, equipmentID string) ([]domain.Activity, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Activity, error)
	Count(ctx context.Context) (int64, error)
	CountByAction(ctx context.Context) ([]domain.ActionCount, error)
	CountByDay(ctx context.Context, since time.Time) ([]domain.DayCount, error)
}

type PgActivityRepository struct {
	pool *pgxpool.Pool
}

func NewPgActivityRepository(pool *pgxpool.Pool) *PgActivityRepository {
	return &PgActivityRepository{pool: pool}
}

const activityColumns = `id, user_id, equipment_id, action, notes, created_at`

func (r *PgActivityRepository) Create(ctx context.Context, a domain.Activity) error {
	const query = `
		INSERT INTO activities (` + activityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		a.ID,
		a.UserID,
		a.EquipmentID,
		string(a.Action),
		a.Notes,
		a.CreatedAt,
	)
	return err
}

func (r *PgActivityRepository) ListRecent(ctx context.Context, limit int) ([]domain.Activity, error) {
	const query = `SELECT ` + activityColumns + ` FROM activities ORDER BY created_at DESC LIMIT $1`
	return r.query(ctx, query, limit)
}

func (r *PgActivityRepository) ListByEquipment(ctx context.Context, equipmentID string) ([]domain.Activity, error) {
	const query = `SELECT ` + activityColumns + ` FROM activities WHERE equipment_id = $1 ORDER BY created_at DESC`
	return r.query(ctx, query, equipmentID)
}

func (r *PgActivityRepository) ListByUser(ctx context.Context, userID string) ([]domain.Activity, error) {
	const query = `SELECT ` + activityColumns + ` FROM activities WHERE user_id = $1 ORDER BY created_at DESC`
	return r.query(ctx, query, userID)
}

func (r *PgActivityRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM activities`).Scan(&total)
	return total, err
}

func (r *PgActivityRepository) CountByAction(ctx context.Context) ([]domain.ActionCount, error) {
	const query = `
		SELECT action, count(*)
		FROM activities
		GROUP BY action
		ORDER BY count(*) DESC, action ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make([]domain.ActionCount, 0)
	for rows.Next() {
		var (
			action string
			c      domain.ActionCount
		)
		if err := rows.Scan(&action, &c.Count); err != nil {
			return nil, err
		}
		c.Action = domain.ActivityAction(action)
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (r *PgActivityRepository) CountByDay(ctx context.Context, since time.Time) ([]domain.DayCount, error) {
	const query = `
		SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, count(*)
		FROM activities
		WHERE created_at >= $1
		GROUP BY day
		ORDER BY day ASC
	`
	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := make([]domain.DayCount, 0)
	for rows.Next() {
		var d domain.DayCount
		if err := rows.Scan(&d.Day, &d.Count); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

func (r *PgActivityRepository) query(ctx context.Context, query string, args ...any) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func scanActivity(row pgx.Row) (domain.Activity, error) {
	var (
		a      domain.Activity
		action string
	)
	err := row.Scan(&a.ID, &a.UserID, &a.EquipmentID, &action, &a.Notes, &a.CreatedAt)
	a.Action = domain.ActivityAction(action)
	return a, err
}
