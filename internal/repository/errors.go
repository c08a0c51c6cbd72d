package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicate signals a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")
	// ErrOverlap signals that an accepted booking would overlap another.
	ErrOverlap = errors.New("overlapping booking")
)

const (
	pqUniqueViolation    = "23505"
	pqExclusionViolation = "23P01"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
