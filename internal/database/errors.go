package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the API reacts to.
const (
	PgErrNotNullViolation    = "23502"
	PgErrForeignKeyViolation = "23503"
	PgErrUniqueViolation     = "23505"
	PgErrCheckViolation      = "23514"
)

type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindNotFound
	KindConflict   // unique or foreign key
	KindValidation // not null or check
)

// Classify maps a store error to the part of the error taxonomy it belongs to.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindOther
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return KindNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return KindConflict
	}
	if errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return KindValidation
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case PgErrUniqueViolation, PgErrForeignKeyViolation:
			return KindConflict
		case PgErrNotNullViolation, PgErrCheckViolation:
			return KindValidation
		}
	}
	return KindOther
}

func IsNotFound(err error) bool { return Classify(err) == KindNotFound }
