package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a check constraint rejects a write.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a referenced record is missing.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
	// ErrConflict is returned when a booking write would overlap a CONFIRMED
	// booking on the same room. The overlap check and the write execute in
	// one transaction, so this is the authoritative double-booking rejection.
	ErrConflict = errors.New("persistence: conflicting booking")
	// ErrSchemaMissing is returned when the store schema has not been provisioned.
	ErrSchemaMissing = errors.New("persistence: schema missing")
)
