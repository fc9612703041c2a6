package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"projector-tracker/internal/domain"
)

type BookingRepository interface {
	Create(ctx context.Context, b domain.Booking) error
	GetByID(ctx context.Context, id string) (domain.Booking, error)
	List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error)
	// ListBlocking devuelve las reservas pending/active del equipo que se cruzan con window.
	ListBlocking(ctx context.Context, equipmentID string, window domain.Interval) ([]domain.Booking, error)
	// UpdateStatus cambia el estado solo si el actual es from.
	UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus, now time.Time) error
}

type PgBookingRepository struct {
	pool *pgxpool.Pool
}

func NewPgBookingRepository(pool *pgxpool.Pool) *PgBookingRepository {
	return &PgBookingRepository{pool: pool}
}

const bookingColumns = `
	id, equipment_id, user_id, start_time, end_time, purpose, status, notes, created_at, updated_at
`

func (r *PgBookingRepository) Create(ctx context.Context, b domain.Booking) error {
	const query = `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		b.ID,
		b.EquipmentID,
		b.UserID,
		b.StartTime,
		b.EndTime,
		b.Purpose,
		string(b.Status),
		b.Notes,
		b.CreatedAt,
		b.UpdatedAt,
	)
	return mapWriteError(err)
}

func (r *PgBookingRepository) GetByID(ctx context.Context, id string) (domain.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return scanBooking(r.pool.QueryRow(ctx, query, id))
}

func (r *PgBookingRepository) List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.EquipmentID != "" {
		args = append(args, filter.EquipmentID)
		conds = append(conds, fmt.Sprintf("equipment_id = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY start_time DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *PgBookingRepository) ListBlocking(ctx context.Context, equipmentID string, window domain.Interval) ([]domain.Booking, error) {
	const query = `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE equipment_id = $1
		  AND status = ANY($2)
		  AND start_time < $4
		  AND end_time > $3
		ORDER BY start_time ASC
	`
	statuses := make([]string, 0, len(domain.BlockingBookingStatuses))
	for _, s := range domain.BlockingBookingStatuses {
		statuses = append(statuses, string(s))
	}
	rows, err := r.pool.Query(ctx, query, equipmentID, statuses, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *PgBookingRepository) UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus, now time.Time) error {
	const query = `
		UPDATE bookings
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`
	tag, err := r.pool.Exec(ctx, query, id, string(from), string(to), now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleState
	}
	return nil
}

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var (
		b      domain.Booking
		status string
	)
	err := row.Scan(
		&b.ID,
		&b.EquipmentID,
		&b.UserID,
		&b.StartTime,
		&b.EndTime,
		&b.Purpose,
		&status,
		&b.Notes,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Booking{}, err
	}
	b.Status = domain.BookingStatus(status)
	return b, err
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
