package apperr_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicing/internal/apperr"
)

func TestClassify(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, apperr.Classify(nil))
	})

	t.Run("taxonomy error is returned unchanged", func(t *testing.T) {
		nf := apperr.NewNotFound("Product", 1)
		assert.Same(t, nf, apperr.Classify(nf))
	})

	t.Run("wrapped taxonomy error is found", func(t *testing.T) {
		nf := apperr.NewNotFound("Product", 1)
		wrapped := fmt.Errorf("load cart: %w", apperr.Wrap(nf, "get product"))
		got := apperr.Classify(wrapped)
		assert.Same(t, nf, got)
	})

	t.Run("joined errors use the first taxonomy error", func(t *testing.T) {
		joined := errors.Join(errors.New("plain"), apperr.NewConflict("X", ""))
		assert.Equal(t, apperr.KindConflict, apperr.Classify(joined).Kind())
	})

	t.Run("plain error becomes generic", func(t *testing.T) {
		raw := errors.New("index out of range")
		got := apperr.Classify(raw)
		require.NotNil(t, got)
		assert.Equal(t, apperr.KindGeneric, got.Kind())
		assert.Equal(t, apperr.CodeInternal, got.Code())
		assert.True(t, errors.Is(got, raw))
	})

	t.Run("context cancellation becomes generic", func(t *testing.T) {
		got := apperr.Classify(context.Canceled)
		assert.Equal(t, apperr.KindGeneric, got.Kind())
		assert.True(t, errors.Is(got, context.Canceled))
	})
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"nil", nil, apperr.KindGeneric},
		{"plain", errors.New("x"), apperr.KindGeneric},
		{"validation", apperr.NewFieldValidation("Page", "m", "", 0), apperr.KindValidation},
		{"wrapped not found", apperr.Wrapf(apperr.NewNotFound("Invoice", 3), "invoice %d", 3), apperr.KindNotFound},
		{"database", apperr.NewDatabase("op", ""), apperr.KindDatabase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.KindOf(tt.err))
		})
	}
}

func TestPredicates(t *testing.T) {
	assert.True(t, apperr.IsNotFound(apperr.NewNotFound("P", 1)))
	assert.True(t, apperr.IsValidation(apperr.NewValidation(nil)))
	assert.True(t, apperr.IsConflict(apperr.NewConflict("c", "")))
	assert.True(t, apperr.IsBusinessRule(apperr.NewBusinessRule("r", "")))
	assert.True(t, apperr.IsUnauthorized(apperr.NewUnauthorized("r")))
	assert.True(t, apperr.IsForbidden(apperr.NewForbidden("p")))
	assert.True(t, apperr.IsDatabase(apperr.NewDatabase("op", "")))
	assert.True(t, apperr.IsExternalService(apperr.NewExternalService("s", "e")))

	assert.False(t, apperr.IsNotFound(nil))
	assert.False(t, apperr.HasKind(nil, apperr.KindGeneric))
	assert.False(t, apperr.IsNotFound(errors.New("not found")))
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		context  string
		expected string
		isNil    bool
	}{
		{name: "nil error", err: nil, context: "ctx", isNil: true},
		{name: "simple error", err: errors.New("original"), context: "wrapper", expected: "wrapper: original"},
		{name: "empty context", err: errors.New("original"), context: "", expected: "original"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := apperr.Wrap(tt.err, tt.context)
			if tt.isNil {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, tt.expected, result.Error())
			assert.True(t, errors.Is(result, tt.err))
		})
	}
}

func TestWrapf(t *testing.T) {
	assert.Nil(t, apperr.Wrapf(nil, "x %d", 1))

	orig := errors.New("original")
	assert.Equal(t, "user 123 operation create: original", apperr.Wrapf(orig, "user %d operation %s", 123, "create").Error())
	assert.Same(t, orig, apperr.Wrapf(orig, ""))
}

func TestCauseAndUnwrapAll(t *testing.T) {
	root := errors.New("root")
	mid := fmt.Errorf("mid: %w", root)
	top := fmt.Errorf("top: %w", mid)

	assert.Nil(t, apperr.Cause(nil))
	assert.Same(t, root, apperr.Cause(top))
	assert.Same(t, root, apperr.Cause(root))

	all := apperr.UnwrapAll(top)
	require.Len(t, all, 3)
	assert.Same(t, top, all[0])
	assert.Same(t, root, all[2])

	assert.Nil(t, apperr.UnwrapAll(nil))

	joined := errors.Join(errors.New("a"), errors.New("b"))
	assert.Len(t, apperr.UnwrapAll(joined), 3)
}
