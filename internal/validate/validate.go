// Package validate holds the constraint checks used by the services. Each
// check returns nil or a *apperr.ValidationError with exactly one field
// error; Pagination is the exception and reports both of its fields.
// Nothing here logs.
package validate

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"invoicing/internal/apperr"
)

// Field error codes.
const (
	CodeRequired        = "REQUIRED"
	CodeInvalidID       = "INVALID_ID"
	CodeLength          = "LENGTH"
	CodePositive        = "POSITIVE"
	CodeRange           = "RANGE"
	CodeFutureDate      = "FUTURE_DATE"
	CodeDateTooOld      = "DATE_TOO_OLD"
	CodeInvalidEmail    = "INVALID_EMAIL"
	CodeTooShort        = "TOO_SHORT"
	CodeTooLong         = "TOO_LONG"
	CodeInvalidPage     = "INVALID_PAGE"
	CodeInvalidPageSize = "INVALID_PAGE_SIZE"
)

// Defaults for the range checks.
const (
	DefaultMinQuantity     = 1
	DefaultMaxQuantity     = 1000
	DefaultMinSearchLength = 2
	DefaultMaxSearchLength = 100
	DefaultMaxPageSize     = 100
)

func fieldError(field, message, code string, attempted any, suggestion string) error {
	return apperr.NewValidation([]apperr.FieldError{{
		Field:          field,
		Message:        message,
		Code:           code,
		AttemptedValue: attempted,
		Suggestion:     suggestion,
	}})
}

// ID fails if id is not a positive identifier.
func ID(id int64, field string) error {
	if id <= 0 {
		return fieldError(field, fmt.Sprintf("El identificador %s debe ser mayor que cero", field), CodeInvalidID, id, "")
	}
	return nil
}

// NonEmpty fails if value is empty or only whitespace.
func NonEmpty(value, field, display string) error {
	if strings.TrimSpace(value) == "" {
		return fieldError(field, fmt.Sprintf("El campo %s es obligatorio", display), CodeRequired, value, "")
	}
	return nil
}

// Length fails if the number of characters of value is outside [min, max].
func Length(value, field, display string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		msg := fmt.Sprintf("El campo %s debe tener entre %d y %d caracteres (actual: %d)", display, min, max, n)
		return fieldError(field, msg, CodeLength, value, "")
	}
	return nil
}

// PositivePrice fails if value is zero or negative.
func PositivePrice(value float64, field, display string) error {
	if value <= 0 {
		return fieldError(field, fmt.Sprintf("El campo %s debe ser mayor que cero", display), CodePositive, value, "")
	}
	return nil
}

// Quantity checks value against the default range [1, 1000].
func Quantity(value int, field, display string) error {
	return QuantityRange(value, field, display, DefaultMinQuantity, DefaultMaxQuantity)
}

// QuantityRange fails if value is outside [min, max].
func QuantityRange(value int, field, display string, min, max int) error {
	if value < min || value > max {
		msg := fmt.Sprintf("El campo %s debe estar entre %d y %d", display, min, max)
		return fieldError(field, msg, CodeRange, value, "")
	}
	return nil
}

// Email fails if value is blank or is not exactly one bare address.
// Display names ("Ana <ana@x.com>") and address lists are rejected.
func Email(value, field string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fieldError(field, "El correo electrónico es obligatorio", CodeRequired, value, "")
	}
	if !isBareAddress(trimmed) {
		return fieldError(field, "El correo electrónico no tiene un formato válido", CodeInvalidEmail, value,
			"Use el formato usuario@dominio.com")
	}
	return nil
}

func isBareAddress(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return false
	}
	return engine.Var(s, "email") == nil
}

// SearchTerm checks value against the default length range [2, 100].
func SearchTerm(value, field string) error {
	return SearchTermRange(value, field, DefaultMinSearchLength, DefaultMaxSearchLength)
}

// SearchTermRange fails if the trimmed value is empty, shorter than min or
// longer than max. Each case has its own message and code.
func SearchTermRange(value, field string, min, max int) error {
	term := strings.TrimSpace(value)
	n := utf8.RuneCountInString(term)
	switch {
	case n == 0:
		return fieldError(field, "El término de búsqueda es obligatorio", CodeRequired, value, "")
	case n < min:
		return fieldError(field, fmt.Sprintf("El término de búsqueda debe tener al menos %d caracteres", min),
			CodeTooShort, value, "")
	case n > max:
		return fieldError(field, fmt.Sprintf("El término de búsqueda no puede superar los %d caracteres", max),
			CodeTooLong, value, "Use un término más específico")
	}
	return nil
}

// Pagination checks page and pageSize with the default maximum page size.
func Pagination(page, pageSize int) error {
	return PaginationMax(page, pageSize, DefaultMaxPageSize)
}

// PaginationMax checks page >= 1 (field "Page") and pageSize in [1, max]
// (field "PageSize") independently. When both fail the error carries both
// field errors.
func PaginationMax(page, pageSize, max int) error {
	var fields []apperr.FieldError
	if page < 1 {
		fields = append(fields, apperr.FieldError{
			Field:          "Page",
			Message:        "El número de página debe ser mayor o igual a 1",
			Code:           CodeInvalidPage,
			AttemptedValue: page,
		})
	}
	if pageSize < 1 || pageSize > max {
		fields = append(fields, apperr.FieldError{
			Field:          "PageSize",
			Message:        fmt.Sprintf("El tamaño de página debe estar entre 1 y %d", max),
			Code:           CodeInvalidPageSize,
			AttemptedValue: pageSize,
		})
	}
	if len(fields) == 0 {
		return nil
	}
	return apperr.NewValidation(fields)
}

// Unique fails with a Conflict error when taken is true. The conflict type
// is DUPLICATE_<FIELD>.
func Unique(taken bool, field, display string, value any) error {
	if !taken {
		return nil
	}
	return apperr.NewConflict(
		"DUPLICATE_"+strings.ToUpper(field),
		fmt.Sprintf("%s %v already exists", field, value),
		apperr.WithUserMessage(fmt.Sprintf("Ya existe un registro con el mismo %s", display)),
		apperr.WithData(map[string]any{"field": field, "value": value}),
	)
}

// Found fails with a NotFound error when found is false.
func Found(found bool, resourceType string, id any) error {
	if found {
		return nil
	}
	return apperr.NewNotFound(resourceType, id)
}
