package gorm

import (
	"errors"
	"strings"

	"github.com/alchemorsel/planner/internal/ports/outbound"
	"github.com/jackc/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// translateError maps driver errors onto the outbound sentinels. Context
// errors pass through untouched so callers can tell a timeout apart.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return outbound.ErrNotFound
	case isUniqueViolation(err):
		return errors.Join(outbound.ErrUniqueViolation, err)
	default:
		return err
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key")
}
