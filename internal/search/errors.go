package search

import (
	"errors"
	"fmt"

	"github.com/ca-srg/mailscope/internal/opensearch"
)

var (
	// ErrSearchFailed marks any upstream query failure
	ErrSearchFailed = errors.New("search failed")
	// ErrNotFound marks a requested document that does not exist
	ErrNotFound = errors.New("not found")
)

// QueryError is an upstream failure with an optional diagnostic detail.
// errors.Is(err, ErrSearchFailed) holds for every QueryError.
type QueryError struct {
	Op     string
	Detail string
	Err    error
}

func (e *QueryError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s failed: %s", e.Op, e.Detail)
	}
	return fmt.Sprintf("%s failed", e.Op)
}

func (e *QueryError) Unwrap() error { return e.Err }

func (e *QueryError) Is(target error) bool { return target == ErrSearchFailed }

func newQueryError(op string, err error) *QueryError {
	qe := &QueryError{Op: op, Err: err}
	var searchErr *opensearch.SearchError
	if errors.As(err, &searchErr) {
		qe.Detail = searchErr.Detail()
	} else if err != nil {
		qe.Detail = err.Error()
	}
	return qe
}

// DetailOf returns the diagnostic detail carried by err, if any
func DetailOf(err error) string {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Detail
	}
	return ""
}
