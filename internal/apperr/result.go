package apperr

// Result is the non-exceptional alternative to returning an Error: it holds
// either a value or a failure description, never both.
type Result[T any] struct {
	value      T
	ok         bool
	message    string
	code       string
	validation []FieldError
	data       map[string]any
}

// FailureOption adds optional detail to a failed Result.
type FailureOption func(*failure)

type failure struct {
	validation []FieldError
	data       map[string]any
}

// WithValidationErrors attaches field errors to a failure.
func WithValidationErrors(fields ...FieldError) FailureOption {
	return func(f *failure) { f.validation = append(f.validation, fields...) }
}

// WithFailureData attaches structured context to a failure.
func WithFailureData(data map[string]any) FailureOption {
	return func(f *failure) {
		if f.data == nil {
			f.data = make(map[string]any, len(data))
		}
		for k, v := range data {
			f.data[k] = v
		}
	}
}

// Ok returns a successful Result.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Fail returns a failed Result.
func Fail[T any](message, code string, opts ...FailureOption) Result[T] {
	var f failure
	for _, o := range opts {
		o(&f)
	}
	return Result[T]{message: message, code: code, validation: f.validation, data: f.data}
}

// IsSuccess reports whether the Result holds a value.
func (r Result[T]) IsSuccess() bool { return r.ok }

// IsFailure reports whether the Result holds a failure.
func (r Result[T]) IsFailure() bool { return !r.ok }

// Value returns the value and true on success, the zero value and false otherwise.
func (r Result[T]) Value() (T, bool) {
	if !r.ok {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Message returns the failure message, empty on success.
func (r Result[T]) Message() string { return r.message }

// Code returns the failure code, empty on success.
func (r Result[T]) Code() string { return r.code }

// ValidationErrors returns a copy of the failure's field errors.
func (r Result[T]) ValidationErrors() []FieldError {
	if len(r.validation) == 0 {
		return nil
	}
	cp := make([]FieldError, len(r.validation))
	copy(cp, r.validation)
	return cp
}

// AdditionalData returns a copy of the failure's context.
func (r Result[T]) AdditionalData() map[string]any {
	if r.data == nil {
		return nil
	}
	out := make(map[string]any, len(r.data))
	for k, v := range r.data {
		out[k] = v
	}
	return out
}

// Err converts the Result to the propagation style. Success yields nil.
// A failure with field errors becomes a Validation error, any other failure
// a BusinessRule error whose rule is the failure code.
func (r Result[T]) Err() error {
	if r.ok {
		return nil
	}
	if len(r.validation) > 0 {
		return NewValidation(r.validation, WithData(r.data))
	}
	return NewBusinessRule(r.code, r.message, WithUserMessage(r.message), WithData(r.data))
}
