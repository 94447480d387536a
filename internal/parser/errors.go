package parser

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Problem string `json:"problem"`
}

type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Problem
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(fieldErrors validator.ValidationErrors) *ValidationError {
	problems := make([]FieldError, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		problems = append(problems, FieldError{Field: fieldName(fe), Problem: describe(fe)})
	}
	return &ValidationError{Errors: sortProblems(problems)}
}

// Column problems are reported against the column itself rather than the
// position in the internal slice.
func fieldName(fe validator.FieldError) string {
	if fe.Tag() == "column" {
		return fmt.Sprint(fe.Value())
	}
	name, _, _ := strings.Cut(fe.Field(), "[")
	return name
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "column":
		return "unknown column"
	case "required":
		return "is required"
	case "min":
		if fe.Kind().String() == "slice" {
			return fmt.Sprintf("must contain at least %s entry", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "ltefield":
		return "exceeds the maximum page size"
	}
	return "failed " + fe.Tag()
}

func sortProblems(problems []FieldError) []FieldError {
	slices.SortFunc(problems, func(a, b FieldError) int { return strings.Compare(a.Field, b.Field) })
	return problems
}
