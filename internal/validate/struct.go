package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"invoicing/internal/apperr"
)

var engine = validator.New()

// Struct runs the struct tags of v and reports every failing field in
// declaration order.
func Struct(v any) error {
	if err := engine.Struct(v); err != nil {
		return FromBindError(err)
	}
	return nil
}

// FromBindError translates request binding failures. Tag violations become
// one field error each; malformed bodies become a single error on "body".
// Errors that already belong to the taxonomy pass through.
func FromBindError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}

	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		fields := make([]apperr.FieldError, 0, len(ves))
		for _, fe := range ves {
			fields = append(fields, apperr.FieldError{
				Field:          fe.StructField(),
				Message:        tagMessage(fe),
				Code:           strings.ToUpper(fe.Tag()),
				AttemptedValue: fe.Value(),
			})
		}
		return apperr.NewValidation(fields, apperr.WithCause(err))
	}

	var (
		tooLarge  *http.MaxBytesError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		numErr    *strconv.NumError
	)
	switch {
	case errors.As(err, &tooLarge):
		return bodyError(fmt.Sprintf("El cuerpo de la solicitud supera el máximo de %d bytes", tooLarge.Limit),
			"BODY_TOO_LARGE", err)
	case errors.Is(err, io.EOF):
		return bodyError("El cuerpo de la solicitud está vacío", CodeRequired, err)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return bodyError("El JSON de la solicitud está incompleto", "MALFORMED_JSON", err)
	case errors.As(err, &syntaxErr):
		return bodyError(fmt.Sprintf("JSON mal formado en la posición %d", syntaxErr.Offset), "MALFORMED_JSON", err)
	case errors.As(err, &typeErr):
		return apperr.NewValidation([]apperr.FieldError{{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("Se esperaba un valor de tipo %s", typeErr.Type),
			Code:    "TYPE_MISMATCH",
		}}, apperr.WithCause(err))
	case errors.As(err, &numErr):
		return bodyError(fmt.Sprintf("El valor %q no es un número válido", numErr.Num), "TYPE_MISMATCH", err)
	}
	return bodyError("La solicitud no pudo ser interpretada", "MALFORMED_REQUEST", err)
}

func bodyError(message, code string, cause error) error {
	return apperr.NewValidation([]apperr.FieldError{{Field: "body", Message: message, Code: code}},
		apperr.WithCause(cause))
}

func tagMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("El campo %s es obligatorio", name)
	case "email":
		return "El correo electrónico no tiene un formato válido"
	case "min":
		return fmt.Sprintf("El campo %s debe ser al menos %s", name, fe.Param())
	case "max":
		return fmt.Sprintf("El campo %s no puede superar %s", name, fe.Param())
	case "gt":
		return fmt.Sprintf("El campo %s debe ser mayor que %s", name, fe.Param())
	case "gte":
		return fmt.Sprintf("El campo %s debe ser mayor o igual a %s", name, fe.Param())
	case "lte":
		return fmt.Sprintf("El campo %s debe ser menor o igual a %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("El campo %s debe ser uno de: %s", name, fe.Param())
	case "len":
		return fmt.Sprintf("El campo %s debe tener longitud %s", name, fe.Param())
	case "dive":
		return fmt.Sprintf("El campo %s contiene elementos no válidos", name)
	}
	return fmt.Sprintf("El campo %s no es válido (%s)", name, fe.Tag())
}
