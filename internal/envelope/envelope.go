// Package envelope renders taxonomy errors into the JSON document returned
// to clients.
package envelope

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"invoicing/internal/apperr"
)

// DefaultHelpBaseURL is prefixed to the lower-cased error code.
const DefaultHelpBaseURL = "https://api.facturacion.local/docs/errors/"

// Unavailable is shown for diagnostics that were not captured.
const Unavailable = "No disponible"

// Detail is one entry of the envelope details list.
type Detail struct {
	Field          string  `json:"field"`
	Message        string  `json:"message"`
	Code           *string `json:"code"`
	AttemptedValue any     `json:"attemptedValue"`
	Suggestion     *string `json:"suggestion"`
}

// Envelope is the wire shape of every error response.
type Envelope struct {
	ErrorCode string    `json:"errorCode"`
	Message   string    `json:"message"`
	Details   []Detail  `json:"details"`
	Timestamp time.Time `json:"timestamp"`
	TraceID   string    `json:"traceId"`
	HelpURL   string    `json:"helpUrl"`
}

// Builder builds envelopes. The zero value is not usable; use NewBuilder.
type Builder struct {
	HelpBaseURL string
	Now         func() time.Time
}

// NewBuilder returns a Builder using the wall clock. An empty base URL
// selects DefaultHelpBaseURL.
func NewBuilder(helpBaseURL string) *Builder {
	if helpBaseURL == "" {
		helpBaseURL = DefaultHelpBaseURL
	}
	if !strings.HasSuffix(helpBaseURL, "/") {
		helpBaseURL += "/"
	}
	return &Builder{HelpBaseURL: helpBaseURL, Now: time.Now}
}

// HelpURL returns the documentation link for an error code.
func (b *Builder) HelpURL(code string) string {
	return b.HelpBaseURL + strings.ToLower(code)
}

// Build renders err. The message is always the user message; internal
// diagnostics only appear as details of unclassified Generic errors when dev
// is true.
func (b *Builder) Build(err apperr.Error, dev bool, traceID string) Envelope {
	details := detailsFor(err)
	if g, ok := err.(*apperr.GenericError); ok && dev && g.SubKind() == apperr.SubKindUnclassified {
		details = append(details,
			Detail{Field: "StackTrace", Message: orUnavailable(g.StackTrace())},
			Detail{Field: "InnerException", Message: orUnavailable(g.InnerError())},
		)
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	return Envelope{
		ErrorCode: err.Code(),
		Message:   err.UserMessage(),
		Details:   details,
		Timestamp: now().UTC(),
		TraceID:   traceID,
		HelpURL:   b.HelpURL(err.Code()),
	}
}

// Marshal serializes the envelope.
func Marshal(env Envelope) ([]byte, error) {
	if env.Details == nil {
		env.Details = []Detail{}
	}
	return json.Marshal(env)
}

func detailsFor(err apperr.Error) []Detail {
	switch e := err.(type) {
	case *apperr.ValidationError:
		fields := e.Fields()
		out := make([]Detail, 0, len(fields))
		for _, f := range fields {
			out = append(out, Detail{
				Field:          f.Field,
				Message:        f.Message,
				Code:           optional(f.Code),
				AttemptedValue: f.AttemptedValue,
				Suggestion:     optional(f.Suggestion),
			})
		}
		return out
	case *apperr.BusinessRuleError:
		return []Detail{{Field: "BusinessRule", Message: e.Rule()}}
	case *apperr.NotFoundError:
		return []Detail{{
			Field:          e.ResourceType(),
			Message:        fmt.Sprintf("No se encontró %s con id %v", e.ResourceType(), e.ResourceID()),
			AttemptedValue: e.ResourceID(),
		}}
	case *apperr.ConflictError:
		return []Detail{{Field: "ConflictType", Message: e.ConflictType()}}
	case *apperr.UnauthorizedError:
		return []Detail{{Field: "Reason", Message: e.Reason()}}
	case *apperr.ForbiddenError:
		return []Detail{{Field: "RequiredPermission", Message: e.RequiredPermission()}}
	case *apperr.DatabaseError:
		out := []Detail{{Field: "Operation", Message: e.Operation()}}
		if e.NativeError() != "" {
			out = append(out, Detail{Field: "NativeError", Message: e.NativeError()})
		}
		return out
	case *apperr.ExternalServiceError:
		return []Detail{
			{Field: "ServiceName", Message: e.ServiceName()},
			{Field: "Endpoint", Message: e.Endpoint()},
		}
	case *apperr.ConfigurationError:
		return []Detail{{Field: "ConfigKey", Message: e.ConfigKey()}}
	case *apperr.FileOperationError:
		return []Detail{
			{Field: "Path", Message: e.Path()},
			{Field: "Operation", Message: e.Operation()},
		}
	case *apperr.ImageProcessingError:
		return []Detail{
			{Field: "Format", Message: e.Format()},
			{Field: "FileSizeBytes", Message: fmt.Sprintf("%d", e.FileSizeBytes()), AttemptedValue: e.FileSizeBytes()},
		}
	case *apperr.GenericError:
		return []Detail{}
	}
	return []Detail{}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func orUnavailable(s string) string {
	if strings.TrimSpace(s) == "" {
		return Unavailable
	}
	return s
}
