package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/fivemdb/fivemdb/internal/logger"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

type SqlStore struct {
	Conn    *sqlx.DB
	Logger  logger.Logger
	Schema  *MetaData
	dialect dialect
}

func (s *SqlStore) SetupConnection(ctx context.Context, databaseURL string) error {
	driver, dsn, err := ParseDatabaseURL(databaseURL)
	if err != nil {
		s.Logger.Error("Invalid database url", err)
		return err
	}
	if s.dialect, err = dialectFor(driver); err != nil {
		return err
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		s.Logger.Error("Database setup failed", err)
		return err
	}
	s.Conn = db
	if driver == DriverSQLite && isMemoryDSN(dsn) {
		// every new connection would open its own empty database
		s.Conn.SetMaxOpenConns(1)
	}
	if s.Schema, err = reflectMetaData(ctx, s.Conn, s.dialect); err != nil {
		s.Logger.Error("Failed to reflect database tables", err)
		s.Conn.Close()
		return err
	}
	s.Logger.Info(fmt.Sprintf("Database setup complete, reflected %d tables", len(s.Schema.Tables())), "driver", driver)
	return nil
}

func (s *SqlStore) Ping(ctx context.Context) error {
	return s.Conn.PingContext(ctx)
}

func (s *SqlStore) CloseConnection() {
	s.Logger.Info("Closing database connection")
	if err := s.Conn.Close(); err != nil {
		s.Logger.Error("Failed to tear down database connection", err)
		return
	}
	s.Logger.Info("Database connection closed successfully")
}

func (s *SqlStore) SelectRows(ctx context.Context, table *Table, query RowQuery) ([]Row, error) {
	where, args := whereClause(query.Filters)
	sql := fmt.Sprintf("SELECT * FROM %s%s", quoteIdent(table.Name), where)
	orderBy := query.OrderBy
	if orderBy == "" {
		orderBy = table.PrimaryKey
	}
	if orderBy != "" {
		sql += " ORDER BY " + quoteIdent(orderBy)
		if query.Desc {
			sql += " DESC"
		}
	}
	if query.Limit > 0 {
		sql += " LIMIT " + strconv.Itoa(query.Limit)
	} else if query.Offset > 0 {
		sql += " LIMIT " + s.dialect.unboundedLimit()
	}
	if query.Offset > 0 {
		sql += " OFFSET " + strconv.Itoa(query.Offset)
	}
	s.Logger.Debug("Selecting rows", "table", table.Name, "sql", sql)
	rows, err := s.Conn.QueryxContext(ctx, sql, args...)
	if err != nil {
		s.Logger.Error(fmt.Sprintf("Failed to fetch rows of %s", table.Name), err)
		return nil, err
	}
	return scanRows(rows)
}

func (s *SqlStore) CountRows(ctx context.Context, table *Table, filters map[string]any) (int64, error) {
	where, args := whereClause(filters)
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", quoteIdent(table.Name), where)
	var count int64
	if err := s.Conn.GetContext(ctx, &count, sql, args...); err != nil {
		s.Logger.Error(fmt.Sprintf("Failed to count rows of %s", table.Name), err)
		return 0, err
	}
	return count, nil
}

func (s *SqlStore) SelectRow(ctx context.Context, table *Table, keyColumn string, key any) (Row, error) {
	s.Logger.Debug(fmt.Sprintf("Fetching %s row", table.Name), keyColumn, key)
	return selectRow(ctx, s.Conn, table, keyColumn, key)
}

func (s *SqlStore) InsertRow(ctx context.Context, table *Table, row Row) (Row, error) {
	txn, err := s.Conn.BeginTxx(ctx, nil)
	if err != nil {
		s.Logger.Error("Failed to begin InsertRow txn", err)
		return nil, err
	}
	columns := sortedColumns(row)
	quoted := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, column := range columns {
		quoted[i] = quoteIdent(column)
		args[i] = row[column]
	}
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s);",
		quoteIdent(table.Name), strings.Join(quoted, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "))
	result, err := txn.ExecContext(ctx, insertSQL, args...)
	if err != nil {
		s.Logger.Error(fmt.Sprintf("Failed to insert into %s", table.Name), err)
		return nil, s.rollback(txn, "InsertRow", translateError(err))
	}
	stored := row
	if table.PrimaryKey != "" {
		key, supplied := row[table.PrimaryKey]
		if !supplied {
			if key, err = result.LastInsertId(); err != nil {
				s.Logger.Error("Failed to read generated key", err)
				return nil, s.rollback(txn, "InsertRow", err)
			}
		}
		stored, err = selectRow(ctx, txn, table, table.PrimaryKey, key)
		if errors.Is(err, ErrRowNotFound) && !supplied {
			// the generated rowid is not the key, nothing to read back by
			stored, err = row, nil
		}
		if err != nil {
			s.Logger.Error(fmt.Sprintf("Failed to read back inserted %s row", table.Name), err)
			return nil, s.rollback(txn, "InsertRow", err)
		}
	}
	if err := txn.Commit(); err != nil {
		s.Logger.Error("Failed to Commit InsertRow txn", err)
		return nil, err
	}
	s.Logger.Info(fmt.Sprintf("Row inserted into %s successfully", table.Name))
	return stored, nil
}

func (s *SqlStore) UpdateRow(ctx context.Context, table *Table, keyColumn string, key any, changes Row) (Row, error) {
	txn, err := s.Conn.BeginTxx(ctx, nil)
	if err != nil {
		s.Logger.Error("Failed to begin UpdateRow txn", err)
		return nil, err
	}
	columns := sortedColumns(changes)
	assignments := make([]string, len(columns))
	args := make([]any, 0, len(columns)+1)
	for i, column := range columns {
		assignments[i] = quoteIdent(column) + " = ?"
		args = append(args, changes[column])
	}
	args = append(args, key)
	updateSQL := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?;",
		quoteIdent(table.Name), strings.Join(assignments, ", "), quoteIdent(keyColumn))
	result, err := txn.ExecContext(ctx, updateSQL, args...)
	if err != nil {
		s.Logger.Error(fmt.Sprintf("Failed to update %s row", table.Name), err)
		return nil, s.rollback(txn, "UpdateRow", translateError(err))
	}
	// mysql reports matched rather than changed rows because the DSN sets clientFoundRows
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, s.rollback(txn, "UpdateRow", err)
	}
	if affected == 0 {
		return nil, s.rollback(txn, "UpdateRow", ErrRowNotFound)
	}
	if newKey, changed := changes[keyColumn]; changed {
		key = newKey
	}
	updated, err := selectRow(ctx, txn, table, keyColumn, key)
	if err != nil {
		s.Logger.Error(fmt.Sprintf("Failed to read back updated %s row", table.Name), err)
		return nil, s.rollback(txn, "UpdateRow", err)
	}
	if err := txn.Commit(); err != nil {
		s.Logger.Error("Failed to Commit UpdateRow txn", err)
		return nil, err
	}
	s.Logger.Info(fmt.Sprintf("Row of %s updated successfully", table.Name))
	return updated, nil
}

func (s *SqlStore) DeleteRow(ctx context.Context, table *Table, keyColumn string, key any) error {
	deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE %s = ?;", quoteIdent(table.Name), quoteIdent(keyColumn))
	result, err := s.Conn.ExecContext(ctx, deleteSQL, key)
	if err != nil {
		s.Logger.Error(fmt.Sprintf("Failed to delete %s row", table.Name), err)
		return translateError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRowNotFound
	}
	s.Logger.Info(fmt.Sprintf("Row of %s deleted", table.Name), keyColumn, key)
	return nil
}

// rollback undoes txn and hands back cause. A failed rollback is only logged.
func (s *SqlStore) rollback(txn *sqlx.Tx, op string, cause error) error {
	if errRoll := txn.Rollback(); errRoll != nil {
		s.Logger.Error(fmt.Sprintf("Failed to rollback %s txn", op), errRoll)
	}
	return cause
}

func selectRow(ctx context.Context, q sqlx.QueryerContext, table *Table, keyColumn string, key any) (Row, error) {
	sql := fmt.Sprintf("SELECT * FROM %s WHERE %s = ? LIMIT 1;", quoteIdent(table.Name), quoteIdent(keyColumn))
	rows, err := q.QueryxContext(ctx, sql, key)
	if err != nil {
		return nil, err
	}
	found, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrRowNotFound
	}
	return found[0], nil
}

func scanRows(rows *sqlx.Rows) ([]Row, error) {
	defer rows.Close()
	result := []Row{}
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		for column, value := range row {
			if b, ok := value.([]byte); ok {
				row[column] = string(b)
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func whereClause(filters map[string]any) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	conditions := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, column := range sortedColumns(filters) {
		if filters[column] == nil {
			conditions = append(conditions, quoteIdent(column)+" IS NULL")
			continue
		}
		conditions = append(conditions, quoteIdent(column)+" = ?")
		args = append(args, filters[column])
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func sortedColumns[V any](m map[string]V) []string {
	columns := make([]string, 0, len(m))
	for column := range m {
		columns = append(columns, column)
	}
	slices.Sort(columns)
	return columns
}

func translateError(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062:
			return fmt.Errorf("%w: %w", ErrDuplicateRow, err)
		case 1048, 1364, 1451, 1452:
			return fmt.Errorf("%w: %w", ErrConstraint, err)
		}
		return err
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrConstraint {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %w", ErrDuplicateRow, err)
		}
		return fmt.Errorf("%w: %w", ErrConstraint, err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRowNotFound
	}
	return err
}
