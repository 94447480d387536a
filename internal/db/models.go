package db

import "errors"

var (
	ErrRowNotFound  = errors.New("row not found")
	ErrDuplicateRow = errors.New("row already exists")
	ErrConstraint   = errors.New("constraint violation")
)

// Row maps column names to values. Driver []byte values are converted to
// strings before a Row leaves this package.
type Row map[string]any

type RowQuery struct {
	// Filters are column = value equality conditions, joined with AND.
	Filters map[string]any
	// Limit of zero means no limit.
	Limit   int
	Offset  int
	OrderBy string
	Desc    bool
}
