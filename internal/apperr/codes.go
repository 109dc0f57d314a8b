package apperr

import "net/http"

// Kind represents a category of error for classification and handling.
type Kind int

const (
	// KindGeneric represents an unclassified error (fallback)
	KindGeneric Kind = iota
	// KindValidation represents input validation errors
	KindValidation
	// KindBusinessRule represents business rule violations
	KindBusinessRule
	// KindNotFound represents resource not found errors
	KindNotFound
	// KindConflict represents resource conflict errors
	KindConflict
	// KindUnauthorized represents authentication errors
	KindUnauthorized
	// KindForbidden represents authorization errors
	KindForbidden
	// KindDatabase represents data-access failures
	KindDatabase
	// KindExternalService represents failures of remote dependencies
	KindExternalService
	// KindConfiguration represents missing or invalid configuration
	KindConfiguration
	// KindFileOperation represents filesystem failures
	KindFileOperation
	// KindImageProcessing represents rejected or unreadable images
	KindImageProcessing
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "Validation"
	case KindBusinessRule:
		return "BusinessRule"
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindDatabase:
		return "Database"
	case KindExternalService:
		return "ExternalService"
	case KindConfiguration:
		return "Configuration"
	case KindFileOperation:
		return "FileOperation"
	case KindImageProcessing:
		return "ImageProcessing"
	default:
		return "Generic"
	}
}

// Kinds returns every kind of the taxonomy, Generic last.
func Kinds() []Kind {
	return []Kind{
		KindValidation,
		KindBusinessRule,
		KindNotFound,
		KindConflict,
		KindUnauthorized,
		KindForbidden,
		KindDatabase,
		KindExternalService,
		KindConfiguration,
		KindFileOperation,
		KindImageProcessing,
		KindGeneric,
	}
}

// Stable machine-readable error codes.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeBusinessRule     = "BUSINESS_RULE_VIOLATION"
	CodeNotFound         = "RESOURCE_NOT_FOUND"
	CodeConflict         = "RESOURCE_CONFLICT"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeDatabase         = "DATABASE_ERROR"
	CodeExternalService  = "EXTERNAL_SERVICE_ERROR"
	CodeConfiguration    = "CONFIGURATION_ERROR"
	CodeFileOperation    = "FILE_OPERATION_ERROR"
	CodeImageProcessing  = "IMAGE_PROCESSING_ERROR"
	CodeInternal         = "INTERNAL_SERVER_ERROR"
	CodeArgument         = "ARGUMENT_ERROR"
	CodeInvalidOperation = "INVALID_OPERATION"
)

// kindRow is the fixed entry of the code/status table for one kind.
type kindRow struct {
	code        string
	status      int
	userMessage string
}

// kindTable is the single source of codes and statuses. Constructors read
// from it; nothing else assigns a code or a status.
var kindTable = map[Kind]kindRow{
	KindValidation:      {CodeValidation, http.StatusBadRequest, "Los datos proporcionados no son válidos"},
	KindBusinessRule:    {CodeBusinessRule, http.StatusUnprocessableEntity, "La operación infringe una regla de negocio"},
	KindNotFound:        {CodeNotFound, http.StatusNotFound, "El recurso solicitado no fue encontrado"},
	KindConflict:        {CodeConflict, http.StatusConflict, "La operación entra en conflicto con el estado actual del recurso"},
	KindUnauthorized:    {CodeUnauthorized, http.StatusUnauthorized, "Se requiere autenticación para acceder a este recurso"},
	KindForbidden:       {CodeForbidden, http.StatusForbidden, "No tiene permisos para realizar esta operación"},
	KindDatabase:        {CodeDatabase, http.StatusInternalServerError, "Error al acceder a los datos. Intente nuevamente más tarde"},
	KindExternalService: {CodeExternalService, http.StatusBadGateway, "Un servicio externo no está disponible en este momento"},
	KindConfiguration:   {CodeConfiguration, http.StatusInternalServerError, "El servicio no está configurado correctamente"},
	KindFileOperation:   {CodeFileOperation, http.StatusInternalServerError, "Error al procesar el archivo"},
	KindImageProcessing: {CodeImageProcessing, http.StatusBadRequest, "La imagen proporcionada no es válida"},
	KindGeneric:         {CodeInternal, http.StatusInternalServerError, "Ha ocurrido un error interno en el servidor"},
}

// SubKind distinguishes the members of the Generic family.
type SubKind int

const (
	// SubKindUnclassified is an error no other kind matched
	SubKindUnclassified SubKind = iota
	// SubKindArgument is an invalid argument passed by application code
	SubKindArgument
	// SubKindInvalidOperation is an operation not allowed in the current state
	SubKindInvalidOperation
)

// String returns the string representation of the SubKind.
func (s SubKind) String() string {
	switch s {
	case SubKindArgument:
		return "Argument"
	case SubKindInvalidOperation:
		return "InvalidOperation"
	default:
		return "Unclassified"
	}
}

var subKindTable = map[SubKind]kindRow{
	SubKindUnclassified:     kindTable[KindGeneric],
	SubKindArgument:         {CodeArgument, http.StatusBadRequest, "Uno de los argumentos proporcionados no es válido"},
	SubKindInvalidOperation: {CodeInvalidOperation, http.StatusBadRequest, "La operación no es válida en el estado actual"},
}

// StatusOf returns the HTTP status fixed for the kind.
func StatusOf(k Kind) int {
	return kindTable[k].status
}

// CodeOf returns the error code fixed for the kind.
func CodeOf(k Kind) string {
	return kindTable[k].code
}

// DefaultUserMessage returns the curated client-facing message for the kind.
func DefaultUserMessage(k Kind) string {
	return kindTable[k].userMessage
}
