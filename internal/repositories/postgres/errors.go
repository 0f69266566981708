package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"

	"github.com/AmolSonawane1026/order-service/internal/repositories"
)

type errorKind int

const (
	kindUnknown errorKind = iota
	kindNotFound
	kindConflict
	kindUnavailable
)

// Error implements repositories.RepositoryError for SQL failures.
type Error struct {
	op   string
	err  error
	kind errorKind
}

var _ repositories.RepositoryError = (*Error)(nil)

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.op, e.err) }
func (e *Error) Unwrap() error { return e.err }

func (e *Error) IsNotFound() bool    { return e.kind == kindNotFound }
func (e *Error) IsConflict() bool    { return e.kind == kindConflict }
func (e *Error) IsUnavailable() bool { return e.kind == kindUnavailable }

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{op: op, err: err, kind: classify(err)}
}

func notFound(op, id string) error {
	return &Error{op: op, err: fmt.Errorf("%s: %w", id, sql.ErrNoRows), kind: kindNotFound}
}

func classify(err error) errorKind {
	if errors.Is(err, sql.ErrNoRows) {
		return kindNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "23505":
			return kindConflict
		case pqErr.Code.Class() == "08", pqErr.Code.Class() == "57":
			return kindUnavailable
		}
		return kindUnknown
	}
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return kindUnavailable
	}
	return kindUnknown
}
