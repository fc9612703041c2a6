package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"projector-tracker/internal/domain"
)

// OTPRepository guarda un único código pendiente por (email, purpose).
type OTPRepository interface {
	// Upsert reemplaza cualquier código previo del mismo par y reinicia intentos.
	Upsert(ctx context.Context, rec domain.OtpRecord) error
	Get(ctx context.Context, email string, purpose domain.OTPPurpose) (domain.OtpRecord, error)
	IncrementAttempts(ctx context.Context, email string, purpose domain.OTPPurpose) (int, error)
	Delete(ctx context.Context, email string, purpose domain.OTPPurpose) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type PgOTPRepository struct {
	pool *pgxpool.Pool
}

func NewPgOTPRepository(pool *pgxpool.Pool) *PgOTPRepository {
	return &PgOTPRepository{pool: pool}
}

func (r *PgOTPRepository) Upsert(ctx context.Context, rec domain.OtpRecord) error {
	const query = `
		INSERT INTO otp_records (email, purpose, code_hash, expires_at, attempts, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, FALSE, $5, $5)
		ON CONFLICT (email, purpose) DO UPDATE
		SET code_hash = EXCLUDED.code_hash,
		    expires_at = EXCLUDED.expires_at,
		    attempts = 0,
		    verified = FALSE,
		    updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query,
		rec.Email,
		string(rec.Purpose),
		rec.CodeHash,
		rec.ExpiresAt,
		rec.UpdatedAt,
	)
	return err
}

func (r *PgOTPRepository) Get(ctx context.Context, email string, purpose domain.OTPPurpose) (domain.OtpRecord, error) {
	const query = `
		SELECT email, purpose, code_hash, expires_at, attempts, verified, created_at, updated_at
		FROM otp_records
		WHERE email = $1 AND purpose = $2
	`
	var (
		rec domain.OtpRecord
		p   string
	)
	err := r.pool.QueryRow(ctx, query, email, string(purpose)).Scan(
		&rec.Email,
		&p,
		&rec.CodeHash,
		&rec.ExpiresAt,
		&rec.Attempts,
		&rec.Verified,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OtpRecord{}, err
	}
	rec.Purpose = domain.OTPPurpose(p)
	return rec, err
}

func (r *PgOTPRepository) IncrementAttempts(ctx context.Context, email string, purpose domain.OTPPurpose) (int, error) {
	const query = `
		UPDATE otp_records
		SET attempts = attempts + 1, updated_at = now()
		WHERE email = $1 AND purpose = $2
		RETURNING attempts
	`
	var attempts int
	err := r.pool.QueryRow(ctx, query, email, string(purpose)).Scan(&attempts)
	return attempts, err
}

func (r *PgOTPRepository) Delete(ctx context.Context, email string, purpose domain.OTPPurpose) error {
	const query = `DELETE FROM otp_records WHERE email = $1 AND purpose = $2`
	_, err := r.pool.Exec(ctx, query, email, string(purpose))
	return err
}

func (r *PgOTPRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM otp_records WHERE expires_at <= $1`
	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
