package apperr

import (
	"errors"
	"fmt"
)

// As reports whether err's chain contains a taxonomy error and returns it.
func As(err error) (Error, bool) {
	if err == nil {
		return nil, false
	}
	var e Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Classify maps any error onto the taxonomy. Errors that already carry a
// kind are returned unchanged; anything else becomes an unclassified
// Generic error wrapping the original. Classify(nil) returns nil.
//
// This is the only conversion point: callers at the edge never need a
// second fallback.
func Classify(err error) Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}
	return NewGeneric(err)
}

// KindOf returns the Kind of the given error by searching its chain for a
// taxonomy error. Returns KindGeneric for nil and unrecognized errors.
//
// Example:
//
//	switch apperr.KindOf(err) {
//	case apperr.KindNotFound:
//	    // render a 404 page
//	case apperr.KindValidation:
//	    // show the form again
//	}
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind()
	}
	return KindGeneric
}

// HasKind reports whether the given error has the specified kind.
func HasKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsNotFound reports whether the error indicates a missing resource.
func IsNotFound(err error) bool { return HasKind(err, KindNotFound) }

// IsValidation reports whether the error indicates input validation failure.
func IsValidation(err error) bool { return HasKind(err, KindValidation) }

// IsConflict reports whether the error indicates a resource conflict.
func IsConflict(err error) bool { return HasKind(err, KindConflict) }

// IsBusinessRule reports whether the error indicates a violated business rule.
func IsBusinessRule(err error) bool { return HasKind(err, KindBusinessRule) }

// IsUnauthorized reports whether the error indicates missing authentication.
func IsUnauthorized(err error) bool { return HasKind(err, KindUnauthorized) }

// IsForbidden reports whether the error indicates a missing permission.
func IsForbidden(err error) bool { return HasKind(err, KindForbidden) }

// IsDatabase reports whether the error indicates a data-access failure.
func IsDatabase(err error) bool { return HasKind(err, KindDatabase) }

// IsExternalService reports whether the error indicates a remote dependency failure.
func IsExternalService(err error) bool { return HasKind(err, KindExternalService) }

// Wrap wraps an error with additional context.
// It returns a new error that formats as "context: err".
// If err is nil, Wrap returns nil.
// If context is empty, returns the original error.
// A taxonomy error inside err stays visible to Classify and KindOf.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	if context == "" {
		return err
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Wrapf wraps an error with a formatted context message.
// If err is nil, Wrapf returns nil.
// If formatted context is empty, returns the original error.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	context := fmt.Sprintf(format, args...)
	if context == "" {
		return err
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Cause returns the underlying cause of the error by repeatedly unwrapping it.
// For errors.Join, returns the first root cause found in depth-first order.
// If the error doesn't wrap anything, it returns the error itself.
// If err is nil, Cause returns nil.
func Cause(err error) error {
	if err == nil {
		return nil
	}

	all := UnwrapAll(err)
	for i := len(all) - 1; i >= 0; i-- {
		candidate := all[i]

		hasNested := false
		if unwrapper, ok := candidate.(interface{ Unwrap() []error }); ok {
			hasNested = len(unwrapper.Unwrap()) > 0
		} else {
			hasNested = errors.Unwrap(candidate) != nil
		}

		if !hasNested {
			return candidate
		}
	}

	return err
}

// UnwrapAll returns all errors in the error chain, from outermost to innermost.
// For errors created with errors.Join, this flattens the entire error graph.
// If err is nil, returns nil slice.
func UnwrapAll(err error) []error {
	if err == nil {
		return nil
	}

	var result []error
	seen := make(map[error]bool)
	queue := []error{err}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current == nil || seen[current] {
			continue
		}
		seen[current] = true
		result = append(result, current)

		if unwrapper, ok := current.(interface{ Unwrap() []error }); ok {
			queue = append(queue, unwrapper.Unwrap()...)
		} else if nested := errors.Unwrap(current); nested != nil {
			queue = append(queue, nested)
		}
	}

	return result
}
