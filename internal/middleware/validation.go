package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidationError is one field failure, phrased for the operator UI.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidateRequest checks v against its validation tags.
func ValidateRequest(v interface{}) error {
	return validate.Struct(v)
}

// DecodeAndValidate decodes the JSON body into v and validates it in one
// step; handlers should never see a half-checked request.
func DecodeAndValidate(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return ValidateRequest(v)
}

// FormatValidationErrors flattens validator output into field/message
// pairs. Non-validator errors (e.g. malformed JSON) yield an empty slice
// and the generic validation-failed response.
func FormatValidationErrors(err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		out = append(out, ValidationError{Field: e.Field(), Message: fieldMessage(e)})
	}
	return out
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return "value is too short"
	case "max":
		return "value is too long"
	case "gte":
		return "value must be at least " + e.Param()
	case "lte":
		return "value must be at most " + e.Param()
	case "oneof":
		return "value must be one of: " + e.Param()
	default:
		return "invalid value"
	}
}
