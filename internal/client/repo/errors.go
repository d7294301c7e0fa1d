package repo

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when an update or delete matches no row.
	ErrNotFound = errors.New("record not found")

	// Constraint violations, translated from raw engine errors so the UI
	// layer can show something readable.
	ErrUniqueViolation     = errors.New("a record with the same key already exists")
	ErrNotNullViolation    = errors.New("a required field is missing")
	ErrForeignKeyViolation = errors.New("referenced record does not exist")
	ErrCheckViolation      = errors.New("field value is not allowed")
)

// SQLite extended result codes for constraint violations.
const (
	codeConstraint        = 19
	codeConstraintCheck   = 275
	codeConstraintFK      = 787
	codeConstraintNotNull = 1299
	codeConstraintPK      = 1555
	codeConstraintUnique  = 2067
)

// translateConstraint maps engine constraint errors onto the sentinel set.
// Structured result codes are preferred; message substrings are the fallback
// for wrapped errors that lost their type. Unrecognized errors pass through
// unchanged.
func translateConstraint(err error) error {
	if err == nil {
		return nil
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case codeConstraintUnique, codeConstraintPK:
			return fmt.Errorf("%w: %v", ErrUniqueViolation, err)
		case codeConstraintNotNull:
			return fmt.Errorf("%w: %v", ErrNotNullViolation, err)
		case codeConstraintFK:
			return fmt.Errorf("%w: %v", ErrForeignKeyViolation, err)
		case codeConstraintCheck:
			return fmt.Errorf("%w: %v", ErrCheckViolation, err)
		case codeConstraint:
			// generic constraint code, fall through to message matching
		default:
			return err
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", ErrUniqueViolation, err)
	case strings.Contains(msg, "NOT NULL constraint failed"):
		return fmt.Errorf("%w: %v", ErrNotNullViolation, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", ErrForeignKeyViolation, err)
	case strings.Contains(msg, "CHECK constraint failed"):
		return fmt.Errorf("%w: %v", ErrCheckViolation, err)
	}
	return err
}
