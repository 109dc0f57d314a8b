package apperr

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Error is implemented only by the concrete kinds of this package. The
// unexported marker keeps the set closed, so a type switch over the kinds
// listed in Kinds covers every value.
type Error interface {
	error
	Kind() Kind
	Code() string
	HTTPStatus() int
	UserMessage() string
	InternalMessage() string
	AdditionalData() map[string]any
	Unwrap() error

	sealed()
}

// FieldError describes one failed constraint of a Validation error.
type FieldError struct {
	Field          string
	Message        string
	Code           string
	AttemptedValue any
	Suggestion     string
}

// Option customizes the optional parts of an error at construction time.
// Options can not change the code or the HTTP status.
type Option func(*base)

// WithUserMessage sets the client-facing message.
func WithUserMessage(msg string) Option {
	return func(b *base) {
		if msg != "" {
			b.userMessage = msg
		}
	}
}

// WithInternalMessage overrides the developer-facing message.
func WithInternalMessage(msg string) Option {
	return func(b *base) {
		if msg != "" {
			b.internalMessage = msg
		}
	}
}

// WithData attaches structured context. The map is copied.
func WithData(data map[string]any) Option {
	return func(b *base) {
		if len(data) == 0 {
			return
		}
		if b.data == nil {
			b.data = make(map[string]any, len(data))
		}
		for k, v := range data {
			b.data[k] = v
		}
	}
}

// WithCause records the underlying error for errors.Is/As.
func WithCause(err error) Option {
	return func(b *base) { b.cause = err }
}

type base struct {
	kind            Kind
	code            string
	status          int
	userMessage     string
	internalMessage string
	data            map[string]any
	cause           error
}

func newBase(k Kind, internal string, opts []Option) base {
	row := kindTable[k]
	b := base{
		kind:            k,
		code:            row.code,
		status:          row.status,
		userMessage:     row.userMessage,
		internalMessage: internal,
	}
	for _, o := range opts {
		o(&b)
	}
	return b
}

func (b *base) Kind() Kind              { return b.kind }
func (b *base) Code() string            { return b.code }
func (b *base) HTTPStatus() int         { return b.status }
func (b *base) UserMessage() string     { return b.userMessage }
func (b *base) InternalMessage() string { return b.internalMessage }
func (b *base) Unwrap() error           { return b.cause }
func (b *base) sealed()                 {}

// Error returns the internal message.
func (b *base) Error() string {
	if b.cause != nil && !strings.Contains(b.internalMessage, b.cause.Error()) {
		return b.internalMessage + ": " + b.cause.Error()
	}
	return b.internalMessage
}

// AdditionalData returns a copy of the attached context, or nil.
func (b *base) AdditionalData() map[string]any {
	if b.data == nil {
		return nil
	}
	out := make(map[string]any, len(b.data))
	for k, v := range b.data {
		out[k] = v
	}
	return out
}

// ValidationError reports one or more failed input constraints.
type ValidationError struct {
	base
	fields []FieldError
}

// NewValidation creates a Validation error. The field list is copied.
func NewValidation(fields []FieldError, opts ...Option) *ValidationError {
	cp := make([]FieldError, len(fields))
	copy(cp, fields)
	parts := make([]string, 0, len(cp))
	for _, f := range cp {
		parts = append(parts, f.Field+": "+f.Message)
	}
	internal := "validation failed"
	if len(parts) > 0 {
		internal += ": " + strings.Join(parts, "; ")
	}
	return &ValidationError{base: newBase(KindValidation, internal, opts), fields: cp}
}

// NewFieldValidation is shorthand for a Validation error with a single field.
func NewFieldValidation(field, message, code string, attempted any, opts ...Option) *ValidationError {
	return NewValidation([]FieldError{{Field: field, Message: message, Code: code, AttemptedValue: attempted}}, opts...)
}

// Fields returns a copy of the field errors in input order.
func (e *ValidationError) Fields() []FieldError {
	cp := make([]FieldError, len(e.fields))
	copy(cp, e.fields)
	return cp
}

// BusinessRuleError reports a violated domain rule.
type BusinessRuleError struct {
	base
	rule string
}

// NewBusinessRule creates a BusinessRule error for the named rule.
func NewBusinessRule(rule, message string, opts ...Option) *BusinessRuleError {
	internal := fmt.Sprintf("business rule %s violated", rule)
	if message != "" {
		internal += ": " + message
	}
	return &BusinessRuleError{base: newBase(KindBusinessRule, internal, opts), rule: rule}
}

// Rule returns the violated rule identifier.
func (e *BusinessRuleError) Rule() string { return e.rule }

// NotFoundError reports a missing resource.
type NotFoundError struct {
	base
	resourceType string
	resourceID   any
}

// NewNotFound creates a NotFound error for the resource type and id.
func NewNotFound(resourceType string, resourceID any, opts ...Option) *NotFoundError {
	internal := fmt.Sprintf("%s with id %v not found", resourceType, resourceID)
	return &NotFoundError{
		base:         newBase(KindNotFound, internal, opts),
		resourceType: resourceType,
		resourceID:   resourceID,
	}
}

// ResourceType returns the kind of resource that was looked up.
func (e *NotFoundError) ResourceType() string { return e.resourceType }

// ResourceID returns the identifier that was looked up.
func (e *NotFoundError) ResourceID() any { return e.resourceID }

// ConflictError reports a clash with the current state.
type ConflictError struct {
	base
	conflictType string
}

// NewConflict creates a Conflict error.
func NewConflict(conflictType, message string, opts ...Option) *ConflictError {
	internal := "conflict " + conflictType
	if message != "" {
		internal += ": " + message
	}
	return &ConflictError{base: newBase(KindConflict, internal, opts), conflictType: conflictType}
}

// ConflictType returns the conflict category.
func (e *ConflictError) ConflictType() string { return e.conflictType }

// UnauthorizedError reports missing or invalid credentials.
type UnauthorizedError struct {
	base
	reason string
}

// NewUnauthorized creates an Unauthorized error.
func NewUnauthorized(reason string, opts ...Option) *UnauthorizedError {
	return &UnauthorizedError{base: newBase(KindUnauthorized, "unauthorized: "+reason, opts), reason: reason}
}

// Reason returns why authentication failed.
func (e *UnauthorizedError) Reason() string { return e.reason }

// ForbiddenError reports an authenticated caller without permission.
type ForbiddenError struct {
	base
	requiredPermission string
}

// NewForbidden creates a Forbidden error.
func NewForbidden(requiredPermission string, opts ...Option) *ForbiddenError {
	internal := "forbidden: missing permission " + requiredPermission
	return &ForbiddenError{base: newBase(KindForbidden, internal, opts), requiredPermission: requiredPermission}
}

// RequiredPermission returns the permission the caller lacked.
func (e *ForbiddenError) RequiredPermission() string { return e.requiredPermission }

// DatabaseError reports a failed data-access operation.
type DatabaseError struct {
	base
	operation   string
	nativeError string
}

// NewDatabase creates a Database error. nativeError is the driver message
// passed through as-is, or empty.
func NewDatabase(operation, nativeError string, opts ...Option) *DatabaseError {
	internal := "database operation " + operation + " failed"
	if nativeError != "" {
		internal += ": " + nativeError
	}
	return &DatabaseError{base: newBase(KindDatabase, internal, opts), operation: operation, nativeError: nativeError}
}

// Operation returns the failed data-access operation.
func (e *DatabaseError) Operation() string { return e.operation }

// NativeError returns the driver message, if any.
func (e *DatabaseError) NativeError() string { return e.nativeError }

// ExternalServiceError reports a failing remote dependency.
type ExternalServiceError struct {
	base
	serviceName string
	endpoint    string
}

// NewExternalService creates an ExternalService error.
func NewExternalService(serviceName, endpoint string, opts ...Option) *ExternalServiceError {
	internal := fmt.Sprintf("external service %s failed at %s", serviceName, endpoint)
	return &ExternalServiceError{
		base:        newBase(KindExternalService, internal, opts),
		serviceName: serviceName,
		endpoint:    endpoint,
	}
}

// ServiceName returns the remote service name.
func (e *ExternalServiceError) ServiceName() string { return e.serviceName }

// Endpoint returns the remote endpoint that failed.
func (e *ExternalServiceError) Endpoint() string { return e.endpoint }

// ConfigurationError reports a missing or invalid setting.
type ConfigurationError struct {
	base
	configKey string
}

// NewConfiguration creates a Configuration error for the key.
func NewConfiguration(configKey, message string, opts ...Option) *ConfigurationError {
	internal := "invalid configuration " + configKey
	if message != "" {
		internal += ": " + message
	}
	return &ConfigurationError{base: newBase(KindConfiguration, internal, opts), configKey: configKey}
}

// ConfigKey returns the offending configuration key.
func (e *ConfigurationError) ConfigKey() string { return e.configKey }

// FileOperationError reports a failed filesystem operation.
type FileOperationError struct {
	base
	path      string
	operation string
}

// NewFileOperation creates a FileOperation error.
func NewFileOperation(path, operation string, opts ...Option) *FileOperationError {
	internal := fmt.Sprintf("file operation %s failed on %s", operation, path)
	return &FileOperationError{base: newBase(KindFileOperation, internal, opts), path: path, operation: operation}
}

// Path returns the file path involved.
func (e *FileOperationError) Path() string { return e.path }

// Operation returns the filesystem operation.
func (e *FileOperationError) Operation() string { return e.operation }

// ImageProcessingError reports an image that was rejected.
type ImageProcessingError struct {
	base
	format        string
	fileSizeBytes int64
}

// NewImageProcessing creates an ImageProcessing error.
func NewImageProcessing(format string, fileSizeBytes int64, opts ...Option) *ImageProcessingError {
	internal := fmt.Sprintf("image processing failed (format %s, %d bytes)", format, fileSizeBytes)
	return &ImageProcessingError{
		base:          newBase(KindImageProcessing, internal, opts),
		format:        format,
		fileSizeBytes: fileSizeBytes,
	}
}

// Format returns the detected image format.
func (e *ImageProcessingError) Format() string { return e.format }

// FileSizeBytes returns the size of the rejected file.
func (e *ImageProcessingError) FileSizeBytes() int64 { return e.fileSizeBytes }

// GenericError is the fallback kind. Its sub-kind separates unclassified
// failures from argument and invalid-operation errors raised on purpose.
type GenericError struct {
	base
	subKind SubKind
	stack   string
	inner   string
}

// NewGeneric wraps an error no other kind describes. The call stack is
// captured for development diagnostics.
func NewGeneric(cause error, opts ...Option) *GenericError {
	internal := "unexpected error"
	if cause != nil {
		internal = cause.Error()
	}
	all := append([]Option{WithCause(cause)}, opts...)
	return &GenericError{
		base:  newBase(KindGeneric, internal, all),
		stack: string(debug.Stack()),
		inner: innerMessage(cause),
	}
}

// NewArgument reports an invalid argument (ARGUMENT_ERROR, 400).
func NewArgument(argument, message string, opts ...Option) *GenericError {
	return newSubKind(SubKindArgument, fmt.Sprintf("invalid argument %s: %s", argument, message), opts)
}

// NewInvalidOperation reports an operation not allowed in the current state
// (INVALID_OPERATION, 400).
func NewInvalidOperation(message string, opts ...Option) *GenericError {
	return newSubKind(SubKindInvalidOperation, "invalid operation: "+message, opts)
}

// FromPanic converts a recovered panic value into an unclassified error.
func FromPanic(v any, stack []byte) *GenericError {
	var cause error
	switch x := v.(type) {
	case error:
		cause = x
	default:
		cause = fmt.Errorf("panic: %v", x)
	}
	return &GenericError{
		base:  newBase(KindGeneric, cause.Error(), []Option{WithCause(cause)}),
		stack: string(stack),
		inner: innerMessage(cause),
	}
}

func newSubKind(sk SubKind, internal string, opts []Option) *GenericError {
	b := newBase(KindGeneric, internal, opts)
	row := subKindTable[sk]
	b.code = row.code
	b.status = row.status
	if b.userMessage == kindTable[KindGeneric].userMessage {
		b.userMessage = row.userMessage
	}
	return &GenericError{base: b, subKind: sk}
}

// SubKind returns the member of the Generic family.
func (e *GenericError) SubKind() SubKind { return e.subKind }

// StackTrace returns the captured stack, or empty.
func (e *GenericError) StackTrace() string { return e.stack }

// InnerError returns the message of the innermost wrapped error, or empty.
func (e *GenericError) InnerError() string { return e.inner }

func innerMessage(err error) string {
	if err == nil {
		return ""
	}
	root := Cause(err)
	if root == err {
		return ""
	}
	return root.Error()
}
