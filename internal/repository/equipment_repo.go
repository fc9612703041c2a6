package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"projector-tracker/internal/domain"
)

// EquipmentRepository persiste el inventario de proyectores.
type EquipmentRepository interface {
	Create(ctx context.Context, e domain.Equipment) error
	GetByID(ctx context.Context, id string) (domain.Equipment, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Equipment, error)
	ListActive(ctx context.Context) ([]domain.Equipment, error)
	// Update escribe el equipo solo si su estado almacenado sigue siendo expected.
	// Devuelve ErrStaleState si otro escritor lo cambió antes.
	Update(ctx context.Context, e domain.Equipment, expected domain.EquipmentStatus) error
}

type PgEquipmentRepository struct {
	pool *pgxpool.Pool
}

func NewPgEquipmentRepository(pool *pgxpool.Pool) *PgEquipmentRepository {
	return &PgEquipmentRepository{pool: pool}
}

const equipmentColumns = `
	id, name, brand, model, serial_number, status, current_user_id, last_used_by_id,
	last_used_at, checked_out_at, location, specifications, is_active, created_at, updated_at
`

func (r *PgEquipmentRepository) Create(ctx context.Context, e domain.Equipment) error {
	const query = `
		INSERT INTO equipment (` + equipmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.pool.Exec(ctx, query,
		e.ID,
		e.Name,
		e.Brand,
		e.Model,
		nullIfEmpty(e.SerialNumber),
		string(e.Status),
		e.CurrentUserID,
		e.LastUsedByID,
		e.LastUsedAt,
		e.CheckedOutAt,
		e.Location,
		e.Specifications,
		e.IsActive,
		e.CreatedAt,
		e.UpdatedAt,
	)
	return mapWriteError(err)
}

func (r *PgEquipmentRepository) GetByID(ctx context.Context, id string) (domain.Equipment, error) {
	const query = `SELECT ` + equipmentColumns + ` FROM equipment WHERE id = $1`
	return scanEquipment(r.pool.QueryRow(ctx, query, id))
}

func (r *PgEquipmentRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Equipment, error) {
	if len(ids) == 0 {
		return []domain.Equipment{}, nil
	}
	const query = `SELECT ` + equipmentColumns + ` FROM equipment WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEquipment(rows)
}

func (r *PgEquipmentRepository) ListActive(ctx context.Context) ([]domain.Equipment, error) {
	const query = `SELECT ` + equipmentColumns + ` FROM equipment WHERE is_active ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEquipment(rows)
}

func (r *PgEquipmentRepository) Update(ctx context.Context, e domain.Equipment, expected domain.EquipmentStatus) error {
	const query = `
		UPDATE equipment
		SET name = $3,
		    brand = $4,
		    model = $5,
		    serial_number = $6,
		    status = $7,
		    current_user_id = $8,
		    last_used_by_id = $9,
		    last_used_at = $10,
		    checked_out_at = $11,
		    location = $12,
		    specifications = $13,
		    is_active = $14,
		    updated_at = $15
		WHERE id = $1 AND status = $2
	`
	tag, err := r.pool.Exec(ctx, query,
		e.ID,
		string(expected),
		e.Name,
		e.Brand,
		e.Model,
		nullIfEmpty(e.SerialNumber),
		string(e.Status),
		e.CurrentUserID,
		e.LastUsedByID,
		e.LastUsedAt,
		e.CheckedOutAt,
		e.Location,
		e.Specifications,
		e.IsActive,
		e.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleState
	}
	return nil
}

func scanEquipment(row pgx.Row) (domain.Equipment, error) {
	var (
		e      domain.Equipment
		serial *string
		status string
	)
	err := row.Scan(
		&e.ID,
		&e.Name,
		&e.Brand,
		&e.Model,
		&serial,
		&status,
		&e.CurrentUserID,
		&e.LastUsedByID,
		&e.LastUsedAt,
		&e.CheckedOutAt,
		&e.Location,
		&e.Specifications,
		&e.IsActive,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Equipment{}, err
	}
	e.SerialNumber = derefString(serial)
	e.Status = domain.EquipmentStatus(status)
	return e, err
}

func collectEquipment(rows pgx.Rows) ([]domain.Equipment, error) {
	items := make([]domain.Equipment, 0)
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
