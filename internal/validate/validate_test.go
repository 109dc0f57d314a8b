package validate_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicing/internal/apperr"
	"invoicing/internal/validate"
)

func fieldsOf(t *testing.T, err error) []apperr.FieldError {
	t.Helper()
	require.Error(t, err)
	ve, ok := err.(*apperr.ValidationError)
	require.True(t, ok, "expected *apperr.ValidationError, got %T", err)
	assert.Equal(t, apperr.CodeValidation, ve.Code())
	return ve.Fields()
}

func singleField(t *testing.T, err error) apperr.FieldError {
	t.Helper()
	fields := fieldsOf(t, err)
	require.Len(t, fields, 1)
	return fields[0]
}

func TestID(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validate.ID(1, "ProductId"))

	for _, id := range []int64{0, -5} {
		f := singleField(t, validate.ID(id, "ProductId"))
		assert.Equal(t, "ProductId", f.Field)
		assert.Equal(t, validate.CodeInvalidID, f.Code)
		assert.Equal(t, id, f.AttemptedValue)
	}
}

func TestNonEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"text", "Teclado", false},
		{"empty", "", true},
		{"spaces", "   ", true},
		{"tabs and newlines", "\t\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.NonEmpty(tt.value, "Name", "nombre")
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			f := singleField(t, err)
			assert.Equal(t, "Name", f.Field)
			assert.Equal(t, validate.CodeRequired, f.Code)
			assert.Contains(t, f.Message, "nombre")
		})
	}
}

func TestLength(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validate.Length("abc", "Number", "número", 3, 30))
	assert.NoError(t, validate.Length("ñññ", "Number", "número", 3, 3), "counts characters, not bytes")

	f := singleField(t, validate.Length("ab", "Number", "número", 3, 30))
	assert.Equal(t, validate.CodeLength, f.Code)
	assert.Contains(t, f.Message, "3")
	assert.Contains(t, f.Message, "30")
	assert.Contains(t, f.Message, "actual: 2")

	require.Error(t, validate.Length("abcd", "Number", "número", 1, 3))
}

func TestPositivePrice(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validate.PositivePrice(0.01, "Price", "precio"))

	for _, v := range []float64{0, -1.5} {
		f := singleField(t, validate.PositivePrice(v, "Price", "precio"))
		assert.Equal(t, "Price", f.Field)
		assert.Equal(t, validate.CodePositive, f.Code)
	}
}

func TestQuantity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value   int
		wantErr bool
	}{
		{0, true},
		{1, false},
		{1000, false},
		{1001, true},
	}

	for _, tt := range tests {
		err := validate.Quantity(tt.value, "Quantity", "cantidad")
		if tt.wantErr {
			f := singleField(t, err)
			assert.Equal(t, validate.CodeRange, f.Code)
			assert.Equal(t, tt.value, f.AttemptedValue)
		} else {
			assert.NoError(t, err)
		}
	}

	assert.NoError(t, validate.QuantityRange(0, "Stock", "stock", 0, 100000))
}

func TestDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	asOf := validate.AsOf(now)

	t.Run("tomorrow is future", func(t *testing.T) {
		err := validate.Date(now.AddDate(0, 0, 1), "InvoiceDate", "fecha", asOf)
		f := singleField(t, err)
		assert.Equal(t, "InvoiceDate", f.Field)
		assert.Contains(t, f.Message, "futura")
		assert.Equal(t, validate.CodeFutureDate, f.Code)
		assert.NotEmpty(t, f.Suggestion)
	})

	t.Run("later today is not future", func(t *testing.T) {
		assert.NoError(t, validate.Date(time.Date(2024, 6, 15, 23, 59, 0, 0, time.UTC), "InvoiceDate", "fecha", asOf))
	})

	t.Run("future allowed", func(t *testing.T) {
		assert.NoError(t, validate.Date(now.AddDate(1, 0, 0), "DueDate", "fecha", asOf, validate.AllowFuture()))
	})

	t.Run("oldest accepted day", func(t *testing.T) {
		assert.NoError(t, validate.Date(time.Date(2014, 6, 15, 0, 0, 0, 0, time.UTC), "InvoiceDate", "fecha", asOf))
	})

	t.Run("too old", func(t *testing.T) {
		err := validate.Date(time.Date(2014, 6, 14, 23, 0, 0, 0, time.UTC), "InvoiceDate", "fecha", asOf)
		f := singleField(t, err)
		assert.Equal(t, validate.CodeDateTooOld, f.Code)
	})

	t.Run("custom window", func(t *testing.T) {
		err := validate.Date(now.AddDate(-2, 0, 0), "InvoiceDate", "fecha", asOf, validate.MaxYearsInPast(1))
		assert.Equal(t, validate.CodeDateTooOld, singleField(t, err).Code)
	})

	t.Run("compared in the location of today", func(t *testing.T) {
		lima := time.FixedZone("UTC-5", -5*3600)
		local := time.Date(2024, 6, 15, 21, 0, 0, 0, lima)
		// 02:00 UTC on the 16th is still the 15th in Lima.
		assert.NoError(t, validate.Date(local.UTC(), "InvoiceDate", "fecha", validate.AsOf(local)))
	})
}

func TestEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    string
		wantCode string
	}{
		{"valid", "ana@example.com", ""},
		{"empty", "", validate.CodeRequired},
		{"blank", "  ", validate.CodeRequired},
		{"no at sign", "not-an-email", validate.CodeInvalidEmail},
		{"display name", "Ana <ana@example.com>", validate.CodeInvalidEmail},
		{"list", "ana@example.com, bob@example.com", validate.CodeInvalidEmail},
		{"missing domain", "ana@", validate.CodeInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Email(tt.value, "Email")
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			f := singleField(t, err)
			assert.Equal(t, "Email", f.Field)
			assert.Equal(t, tt.wantCode, f.Code)
		})
	}
}

func TestSearchTerm(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validate.SearchTerm("te", "Term"))

	empty := singleField(t, validate.SearchTerm(" ", "Term"))
	short := singleField(t, validate.SearchTerm("t", "Term"))
	long := singleField(t, validate.SearchTerm(strings.Repeat("a", 101), "Term"))

	assert.Equal(t, validate.CodeRequired, empty.Code)
	assert.Equal(t, validate.CodeTooShort, short.Code)
	assert.Equal(t, validate.CodeTooLong, long.Code)

	assert.NotEqual(t, empty.Message, short.Message)
	assert.NotEqual(t, short.Message, long.Message)
	assert.NotEqual(t, empty.Message, long.Message)
}

func TestPagination(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validate.Pagination(1, 100))

	t.Run("page and size zero", func(t *testing.T) {
		fields := fieldsOf(t, validate.Pagination(0, 0))
		require.Len(t, fields, 2)
		assert.Equal(t, "Page", fields[0].Field)
		assert.Equal(t, validate.CodeInvalidPage, fields[0].Code)
		assert.Equal(t, "PageSize", fields[1].Field)
	})

	t.Run("size above max", func(t *testing.T) {
		fields := fieldsOf(t, validate.Pagination(1, 9999))
		require.Len(t, fields, 1)
		assert.Equal(t, "PageSize", fields[0].Field)
		assert.Equal(t, validate.CodeInvalidPageSize, fields[0].Code)
		assert.Equal(t, 9999, fields[0].AttemptedValue)
	})

	t.Run("custom max", func(t *testing.T) {
		assert.NoError(t, validate.PaginationMax(3, 500, 500))
		require.Error(t, validate.PaginationMax(3, 501, 500))
	})
}

func TestUnique(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validate.Unique(false, "Number", "número", "F-001"))

	err := validate.Unique(true, "Number", "número", "F-001")
	ce, ok := err.(*apperr.ConflictError)
	require.True(t, ok)
	assert.Equal(t, "DUPLICATE_NUMBER", ce.ConflictType())
	assert.Equal(t, "F-001", ce.AdditionalData()["value"])
	assert.Contains(t, ce.UserMessage(), "número")
}

func TestFound(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validate.Found(true, "Product", 1))

	err := validate.Found(false, "Product", 999)
	nf, ok := err.(*apperr.NotFoundError)
	require.True(t, ok)
	assert.Equal(t, "Product", nf.ResourceType())
	assert.Equal(t, 999, nf.ResourceID())
}
