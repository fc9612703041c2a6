package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicate indica una violación de unicidad (email, username, número de serie).
	ErrDuplicate = errors.New("duplicate record")
	// ErrStaleState indica que el registro cambió de estado antes de escribirlo.
	ErrStaleState = errors.New("record state changed concurrently")
)

const uniqueViolationCode = "23505"

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return ErrDuplicate
	}
	return err
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
