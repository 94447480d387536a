package db

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-set/v3"
	"github.com/jmoiron/sqlx"
)

// Table is the reflected shape of one database table. PrimaryKey is empty
// when the table has no key or a composite one.
type Table struct {
	Name       string
	Columns    []string
	PrimaryKey string
	columnSet  *set.Set[string]
}

func NewTable(name string, columns []string, primaryKey string) *Table {
	return &Table{
		Name:       name,
		Columns:    columns,
		PrimaryKey: primaryKey,
		columnSet:  set.From(columns),
	}
}

func (t *Table) HasColumn(name string) bool {
	return t.columnSet.Contains(name)
}

type MetaData struct {
	tables map[string]*Table
}

func NewMetaData(tables ...*Table) *MetaData {
	m := &MetaData{tables: make(map[string]*Table, len(tables))}
	for _, table := range tables {
		m.tables[table.Name] = table
	}
	return m
}

func (m *MetaData) Table(name string) (*Table, bool) {
	table, exists := m.tables[name]
	return table, exists
}

// Tables returns every reflected table ordered by name.
func (m *MetaData) Tables() []*Table {
	tables := make([]*Table, 0, len(m.tables))
	for _, table := range m.tables {
		tables = append(tables, table)
	}
	slices.SortFunc(tables, func(a, b *Table) int { return strings.Compare(a.Name, b.Name) })
	return tables
}

// Restrict keeps only the named tables. Naming a table that was not
// reflected is an error, an empty list keeps everything.
func (m *MetaData) Restrict(names []string) (*MetaData, error) {
	if len(names) == 0 {
		return m, nil
	}
	kept := make([]*Table, 0, len(names))
	for _, name := range names {
		table, exists := m.tables[name]
		if !exists {
			return nil, fmt.Errorf("table %s does not exist in the database", name)
		}
		kept = append(kept, table)
	}
	return NewMetaData(kept...), nil
}

// reflectMetaData loads every base table of the connected database.
func reflectMetaData(ctx context.Context, conn sqlx.QueryerContext, d dialect) (*MetaData, error) {
	names, err := d.listTables(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	tables := make([]*Table, 0, len(names))
	for _, name := range names {
		columns, err := reflectColumns(ctx, conn, name)
		if err != nil {
			return nil, fmt.Errorf("failed to reflect columns of %s: %w", name, err)
		}
		keys, err := d.primaryKeys(ctx, conn, name)
		if err != nil {
			return nil, fmt.Errorf("failed to reflect primary key of %s: %w", name, err)
		}
		primaryKey := ""
		if len(keys) == 1 {
			primaryKey = keys[0]
		}
		tables = append(tables, NewTable(name, columns, primaryKey))
	}
	return NewMetaData(tables...), nil
}

func reflectColumns(ctx context.Context, conn sqlx.QueryerContext, table string) ([]string, error) {
	rows, err := conn.QueryxContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rows.Columns()
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

type dialect interface {
	listTables(ctx context.Context, conn sqlx.QueryerContext) ([]string, error)
	primaryKeys(ctx context.Context, conn sqlx.QueryerContext, table string) ([]string, error)
	// unboundedLimit is used when an offset is requested without a limit.
	unboundedLimit() string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverMySQL:
		return mysqlDialect{}, nil
	case DriverSQLite:
		return sqliteDialect{}, nil
	}
	return nil, fmt.Errorf("no dialect for driver %s", driver)
}

type mysqlDialect struct{}

func (mysqlDialect) listTables(ctx context.Context, conn sqlx.QueryerContext) ([]string, error) {
	names := []string{}
	sql := `SELECT table_name AS name FROM information_schema.tables
WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' ORDER BY table_name;`
	err := sqlx.SelectContext(ctx, conn, &names, sql)
	return names, err
}

func (mysqlDialect) primaryKeys(ctx context.Context, conn sqlx.QueryerContext, table string) ([]string, error) {
	keys := []string{}
	sql := `SELECT column_name AS name FROM information_schema.columns
WHERE table_schema = DATABASE() AND table_name = ? AND column_key = 'PRI' ORDER BY ordinal_position;`
	err := sqlx.SelectContext(ctx, conn, &keys, sql, table)
	return keys, err
}

func (mysqlDialect) unboundedLimit() string {
	return "18446744073709551615"
}

type sqliteDialect struct{}

func (sqliteDialect) listTables(ctx context.Context, conn sqlx.QueryerContext) ([]string, error) {
	names := []string{}
	sql := `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name;`
	err := sqlx.SelectContext(ctx, conn, &names, sql)
	return names, err
}

func (sqliteDialect) primaryKeys(ctx context.Context, conn sqlx.QueryerContext, table string) ([]string, error) {
	keys := []string{}
	sql := `SELECT name FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk;`
	err := sqlx.SelectContext(ctx, conn, &keys, sql, table)
	return keys, err
}

func (sqliteDialect) unboundedLimit() string {
	return "-1"
}
