//go:generate mockery --name=Repository --output=./mocks
package db

import (
	"context"

	"github.com/fivemdb/fivemdb/internal/logger"
)

type Repository interface {
	Ping(ctx context.Context) error
	CloseConnection()
	SelectRows(ctx context.Context, table *Table, query RowQuery) ([]Row, error)
	CountRows(ctx context.Context, table *Table, filters map[string]any) (int64, error)
	SelectRow(ctx context.Context, table *Table, keyColumn string, key any) (Row, error)
	InsertRow(ctx context.Context, table *Table, row Row) (Row, error)
	UpdateRow(ctx context.Context, table *Table, keyColumn string, key any, changes Row) (Row, error)
	DeleteRow(ctx context.Context, table *Table, keyColumn string, key any) error
}

// SetupDB connects to databaseURL and reflects its tables.
func SetupDB(ctx context.Context, databaseURL string) (*SqlStore, error) {
	store := &SqlStore{
		Logger: logger.New("database"),
	}
	err := store.SetupConnection(ctx, databaseURL)
	return store, err
}
