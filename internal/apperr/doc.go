// Package apperr contains the closed error taxonomy shared by every layer of
// the service.
//
// # Kinds
//
// Each failure category is a concrete type implementing Error:
//
//	Kind             | Code                     | Status
//	-----------------|--------------------------|-------
//	Validation       | VALIDATION_ERROR         | 400
//	BusinessRule     | BUSINESS_RULE_VIOLATION  | 422
//	NotFound         | RESOURCE_NOT_FOUND       | 404
//	Conflict         | RESOURCE_CONFLICT        | 409
//	Unauthorized     | UNAUTHORIZED             | 401
//	Forbidden        | FORBIDDEN                | 403
//	Database         | DATABASE_ERROR           | 500
//	ExternalService  | EXTERNAL_SERVICE_ERROR   | 502
//	Configuration    | CONFIGURATION_ERROR      | 500
//	FileOperation    | FILE_OPERATION_ERROR     | 500
//	ImageProcessing  | IMAGE_PROCESSING_ERROR   | 400
//	Generic          | INTERNAL_SERVER_ERROR    | 500
//
// The Generic family also carries ARGUMENT_ERROR and INVALID_OPERATION
// (both 400), raised on purpose by application code through NewArgument and
// NewInvalidOperation.
//
// Codes and statuses come from a fixed table; constructors accept only the
// classifying fields plus options for messages, data and cause. Values are
// immutable once built.
//
// # Raising
//
// Business code returns the error; it never writes a response or logs:
//
//	if product == nil {
//	    return apperr.NewNotFound("Product", id)
//	}
//
// Lower layers re-wrap driver errors into the nearest kind:
//
//	if err != nil {
//	    return apperr.NewDatabase("GetProduct", err.Error(), apperr.WithCause(err))
//	}
//
// Context can be added with Wrap/Wrapf without hiding the kind:
//
//	return apperr.Wrapf(err, "create invoice %s", number)
//
// # Classification
//
// Classify turns any error into an Error. Unknown errors become an
// unclassified Generic error, so the HTTP edge has exactly one fallback:
//
//	e := apperr.Classify(err)
//	status := e.HTTPStatus()
//
// # Results
//
// Result[T] is available where a caller prefers values over errors. Its Err
// method is the documented conversion point back to the propagation style.
//
// # Message Style Guide
//
// - Internal messages are lowercase English and composable
// - User messages are curated Spanish sentences safe for end users
// - Never copy an internal message into a user message
package apperr
