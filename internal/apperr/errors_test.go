package apperr_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicing/internal/apperr"
)

func allKinds() map[apperr.Kind]apperr.Error {
	return map[apperr.Kind]apperr.Error{
		apperr.KindValidation:      apperr.NewFieldValidation("Email", "formato inválido", "INVALID_EMAIL", "x"),
		apperr.KindBusinessRule:    apperr.NewBusinessRule("INSUFFICIENT_STOCK", "stock below requested quantity"),
		apperr.KindNotFound:        apperr.NewNotFound("Product", 999),
		apperr.KindConflict:        apperr.NewConflict("DUPLICATE_NUMBER", "invoice number taken"),
		apperr.KindUnauthorized:    apperr.NewUnauthorized("token expired"),
		apperr.KindForbidden:       apperr.NewForbidden("invoices:write"),
		apperr.KindDatabase:        apperr.NewDatabase("GetProduct", "connection reset"),
		apperr.KindExternalService: apperr.NewExternalService("exchange-rates", "/rates/USD"),
		apperr.KindConfiguration:   apperr.NewConfiguration("JWT_SECRET", "missing"),
		apperr.KindFileOperation:   apperr.NewFileOperation("/tmp/x.png", "write"),
		apperr.KindImageProcessing: apperr.NewImageProcessing("image/gif", 2048),
		apperr.KindGeneric:         apperr.NewGeneric(errors.New("boom")),
	}
}

func TestStatusTable(t *testing.T) {
	want := map[apperr.Kind]struct {
		code   string
		status int
	}{
		apperr.KindValidation:      {"VALIDATION_ERROR", http.StatusBadRequest},
		apperr.KindBusinessRule:    {"BUSINESS_RULE_VIOLATION", http.StatusUnprocessableEntity},
		apperr.KindNotFound:        {"RESOURCE_NOT_FOUND", http.StatusNotFound},
		apperr.KindConflict:        {"RESOURCE_CONFLICT", http.StatusConflict},
		apperr.KindUnauthorized:    {"UNAUTHORIZED", http.StatusUnauthorized},
		apperr.KindForbidden:       {"FORBIDDEN", http.StatusForbidden},
		apperr.KindDatabase:        {"DATABASE_ERROR", http.StatusInternalServerError},
		apperr.KindExternalService: {"EXTERNAL_SERVICE_ERROR", http.StatusBadGateway},
		apperr.KindConfiguration:   {"CONFIGURATION_ERROR", http.StatusInternalServerError},
		apperr.KindFileOperation:   {"FILE_OPERATION_ERROR", http.StatusInternalServerError},
		apperr.KindImageProcessing: {"IMAGE_PROCESSING_ERROR", http.StatusBadRequest},
		apperr.KindGeneric:         {"INTERNAL_SERVER_ERROR", http.StatusInternalServerError},
	}

	errs := allKinds()
	require.Len(t, errs, len(apperr.Kinds()))

	for _, k := range apperr.Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			e, ok := errs[k]
			require.True(t, ok, "no sample for kind %s", k)
			assert.Equal(t, k, e.Kind())
			assert.Equal(t, want[k].code, e.Code())
			assert.Equal(t, want[k].status, e.HTTPStatus())
			assert.Equal(t, want[k].code, apperr.CodeOf(k))
			assert.Equal(t, want[k].status, apperr.StatusOf(k))
		})
	}
}

func TestOptionsCannotChangeCodeOrStatus(t *testing.T) {
	e := apperr.NewNotFound("Invoice", 7,
		apperr.WithUserMessage("La factura no existe"),
		apperr.WithInternalMessage("invoice 7 missing"),
		apperr.WithData(map[string]any{"tenant": "acme"}),
	)

	assert.Equal(t, apperr.CodeNotFound, e.Code())
	assert.Equal(t, http.StatusNotFound, e.HTTPStatus())
	assert.Equal(t, "La factura no existe", e.UserMessage())
	assert.Equal(t, "invoice 7 missing", e.InternalMessage())
	assert.Equal(t, "acme", e.AdditionalData()["tenant"])
}

func TestUserMessageNeverDefaultsToInternal(t *testing.T) {
	for k, e := range allKinds() {
		t.Run(k.String(), func(t *testing.T) {
			assert.NotEmpty(t, e.UserMessage())
			assert.NotContains(t, e.UserMessage(), e.InternalMessage())
			assert.Equal(t, apperr.DefaultUserMessage(k), e.UserMessage())
		})
	}
}

func TestImmutability(t *testing.T) {
	t.Run("fields are copied in", func(t *testing.T) {
		fields := []apperr.FieldError{{Field: "Name", Message: "requerido"}}
		e := apperr.NewValidation(fields)
		fields[0].Field = "Changed"
		assert.Equal(t, "Name", e.Fields()[0].Field)
	})

	t.Run("fields are copied out", func(t *testing.T) {
		e := apperr.NewValidation([]apperr.FieldError{{Field: "Name", Message: "requerido"}})
		got := e.Fields()
		got[0].Field = "Changed"
		assert.Equal(t, "Name", e.Fields()[0].Field)
	})

	t.Run("data is copied in and out", func(t *testing.T) {
		data := map[string]any{"k": "v"}
		e := apperr.NewConflict("X", "", apperr.WithData(data))
		data["k"] = "mutated"
		assert.Equal(t, "v", e.AdditionalData()["k"])

		out := e.AdditionalData()
		out["k"] = "mutated"
		assert.Equal(t, "v", e.AdditionalData()["k"])
	})

	t.Run("no data yields nil", func(t *testing.T) {
		assert.Nil(t, apperr.NewConflict("X", "").AdditionalData())
	})
}

func TestVariantFields(t *testing.T) {
	nf := apperr.NewNotFound("Product", int64(999))
	assert.Equal(t, "Product", nf.ResourceType())
	assert.Equal(t, int64(999), nf.ResourceID())
	assert.Equal(t, "Product with id 999 not found", nf.Error())

	db := apperr.NewDatabase("CreateInvoice", "")
	assert.Equal(t, "CreateInvoice", db.Operation())
	assert.Empty(t, db.NativeError())
	assert.Equal(t, "database operation CreateInvoice failed", db.Error())

	ext := apperr.NewExternalService("exchange-rates", "/rates/USD")
	assert.Equal(t, "exchange-rates", ext.ServiceName())
	assert.Equal(t, "/rates/USD", ext.Endpoint())

	img := apperr.NewImageProcessing("image/gif", 2048)
	assert.Equal(t, "image/gif", img.Format())
	assert.Equal(t, int64(2048), img.FileSizeBytes())

	fo := apperr.NewFileOperation("/tmp/a", "rename")
	assert.Equal(t, "/tmp/a", fo.Path())
	assert.Equal(t, "rename", fo.Operation())

	assert.Equal(t, "JWT_SECRET", apperr.NewConfiguration("JWT_SECRET", "").ConfigKey())
	assert.Equal(t, "invoices:write", apperr.NewForbidden("invoices:write").RequiredPermission())
	assert.Equal(t, "token expired", apperr.NewUnauthorized("token expired").Reason())
	assert.Equal(t, "DUP", apperr.NewConflict("DUP", "").ConflictType())
	assert.Equal(t, "RULE", apperr.NewBusinessRule("RULE", "").Rule())
}

func TestGenericFamily(t *testing.T) {
	tests := []struct {
		name    string
		err     *apperr.GenericError
		sub     apperr.SubKind
		code    string
		status  int
		message string
	}{
		{
			name:    "unclassified",
			err:     apperr.NewGeneric(errors.New("boom")),
			sub:     apperr.SubKindUnclassified,
			code:    apperr.CodeInternal,
			status:  http.StatusInternalServerError,
			message: apperr.DefaultUserMessage(apperr.KindGeneric),
		},
		{
			name:    "argument",
			err:     apperr.NewArgument("currency", "unsupported code"),
			sub:     apperr.SubKindArgument,
			code:    apperr.CodeArgument,
			status:  http.StatusBadRequest,
			message: "Uno de los argumentos proporcionados no es válido",
		},
		{
			name:    "invalid operation",
			err:     apperr.NewInvalidOperation("invoice already void"),
			sub:     apperr.SubKindInvalidOperation,
			code:    apperr.CodeInvalidOperation,
			status:  http.StatusBadRequest,
			message: "La operación no es válida en el estado actual",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, apperr.KindGeneric, tt.err.Kind())
			assert.Equal(t, tt.sub, tt.err.SubKind())
			assert.Equal(t, tt.code, tt.err.Code())
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
			assert.Equal(t, tt.message, tt.err.UserMessage())
		})
	}

	t.Run("explicit user message wins", func(t *testing.T) {
		e := apperr.NewInvalidOperation("void twice", apperr.WithUserMessage("Ya anulada"))
		assert.Equal(t, "Ya anulada", e.UserMessage())
	})
}

func TestNewGenericCapturesDiagnostics(t *testing.T) {
	root := errors.New("disk quota exceeded")
	wrapped := apperr.Wrap(root, "write cache")

	e := apperr.NewGeneric(wrapped)

	assert.True(t, errors.Is(e, root))
	assert.Equal(t, "write cache: disk quota exceeded", e.InternalMessage())
	assert.Equal(t, "disk quota exceeded", e.InnerError())
	assert.True(t, strings.Contains(e.StackTrace(), "goroutine"))
}

func TestFromPanic(t *testing.T) {
	t.Run("error value", func(t *testing.T) {
		var runtimeErr error
		func() {
			defer func() {
				r := recover()
				runtimeErr, _ = r.(error)
			}()
			var m map[string]int
			m["a"] = 1
		}()
		require.NotNil(t, runtimeErr)

		e := apperr.FromPanic(runtimeErr, []byte("stack"))
		assert.Equal(t, apperr.CodeInternal, e.Code())
		assert.Equal(t, "stack", e.StackTrace())
		assert.Contains(t, e.InternalMessage(), "nil map")
		assert.Empty(t, e.InnerError())
	})

	t.Run("non-error value", func(t *testing.T) {
		e := apperr.FromPanic("bad state", nil)
		assert.Equal(t, "panic: bad state", e.InternalMessage())
		assert.Empty(t, e.StackTrace())
	})
}

func TestErrorIncludesCause(t *testing.T) {
	cause := errors.New("pq: relation does not exist")
	e := apperr.NewDatabase("SearchProducts", "", apperr.WithCause(cause))

	assert.Equal(t, "database operation SearchProducts failed: pq: relation does not exist", e.Error())
	assert.True(t, errors.Is(e, cause))
}
