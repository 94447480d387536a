package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/fivemdb/fivemdb/internal/db"
	"github.com/go-playground/validator/v10"
)

var ErrMalformedBody = errors.New("request body is not a JSON object")

type tableKey struct{}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// column holds when the value names a column of the table carried in ctx
	v.RegisterValidationCtx("column", func(ctx context.Context, fl validator.FieldLevel) bool {
		table, ok := ctx.Value(tableKey{}).(*db.Table)
		return ok && table != nil && table.HasColumn(fl.Field().String())
	})
	return v
}

type rowPayload struct {
	Columns []string `json:"columns" validate:"required,min=1,dive,column"`
}

type listParams struct {
	Limit   int      `json:"limit" validate:"omitempty,min=1,ltefield=MaxPage"`
	MaxPage int      `json:"-"`
	Offset  int      `json:"offset" validate:"min=0"`
	OrderBy string   `json:"order_by" validate:"omitempty,column"`
	Filters []string `json:"filters" validate:"dive,column"`
}

type keyParam struct {
	Key string `json:"key" validate:"required,max=255"`
}

// ParseRowPayload decodes a JSON object whose keys must all be columns of
// table. Numbers keep their precision, nested objects and arrays are stored
// as JSON text.
func ParseRowPayload(ctx context.Context, data []byte, table *db.Table) (db.Row, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	payload := map[string]any{}
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	if decoder.More() {
		return nil, ErrMalformedBody
	}
	columns := make([]string, 0, len(payload))
	for column := range payload {
		columns = append(columns, column)
	}
	slices.Sort(columns)
	if err := validateStruct(ctx, table, rowPayload{Columns: columns}); err != nil {
		return nil, err
	}
	row := make(db.Row, len(payload))
	for column, value := range payload {
		normalized, err := normalizeValue(value)
		if err != nil {
			return nil, err
		}
		row[column] = normalized
	}
	return row, nil
}

func normalizeValue(value any) (any, error) {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		// numbers a float64 cannot hold exactly are bound as their text
		if f, err := v.Float64(); err == nil && strconv.FormatFloat(f, 'f', -1, 64) == v.String() {
			return f, nil
		}
		return v.String(), nil
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(encoded), nil
	}
	return value, nil
}

// ParseListQuery reads limit, offset, order_by and desc. Any other
// parameter is an equality filter on the column of the same name. A zero or
// missing limit returns every matching row.
func ParseListQuery(ctx context.Context, values url.Values, table *db.Table, maxPageSize int) (db.RowQuery, error) {
	query := db.RowQuery{Filters: map[string]any{}}
	params := listParams{MaxPage: maxPageSize}
	problems := []FieldError{}
	for name := range values {
		value := values.Get(name)
		if isControlParam(name) {
			value = strings.TrimSpace(value)
		}
		var err error
		switch name {
		case "limit":
			params.Limit, err = strconv.Atoi(value)
		case "offset":
			params.Offset, err = strconv.Atoi(value)
		case "order_by":
			params.OrderBy = value
		case "desc":
			query.Desc, err = strconv.ParseBool(value)
		default:
			params.Filters = append(params.Filters, name)
			query.Filters[name] = value
		}
		if err != nil {
			problems = append(problems, FieldError{Field: name, Problem: fmt.Sprintf("invalid value %q", value)})
		}
	}
	if len(problems) > 0 {
		return query, &ValidationError{Errors: sortProblems(problems)}
	}
	slices.Sort(params.Filters)
	if err := validateStruct(ctx, table, params); err != nil {
		return query, err
	}
	query.Limit = params.Limit
	query.Offset = params.Offset
	query.OrderBy = params.OrderBy
	return query, nil
}

func isControlParam(name string) bool {
	switch name {
	case "limit", "offset", "order_by", "desc":
		return true
	}
	return false
}

// ParseKey trims a row key taken from the request path.
func ParseKey(raw string) (string, error) {
	key := strings.TrimSpace(raw)
	if err := validateStruct(context.Background(), nil, keyParam{Key: key}); err != nil {
		return "", err
	}
	return key, nil
}

func validateStruct(ctx context.Context, table *db.Table, s any) error {
	ctx = context.WithValue(ctx, tableKey{}, table)
	err := validate.StructCtx(ctx, s)
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		return newValidationError(fieldErrors)
	}
	return err
}
