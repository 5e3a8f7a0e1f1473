package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrorDetail is the body of every error response.
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// ErrorResponse wraps the detail under an "error" key so clients can
// distinguish error bodies from payloads at a glance.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// RespondWithJSON writes a JSON payload with the given status.
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// RespondWithError writes a structured error body.
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithErrorDetails(w, statusCode, message, nil)
}

// RespondWithErrorDetails writes a structured error body carrying extra
// machine-readable details.
func RespondWithErrorDetails(w http.ResponseWriter, statusCode int, message string, details map[string]interface{}) {
	RespondWithJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:      http.StatusText(statusCode),
			Message:   message,
			Details:   details,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// RespondWithValidationErrors maps field validation failures to a 400
// with per-field messages.
func RespondWithValidationErrors(w http.ResponseWriter, errors []ValidationError) {
	RespondWithErrorDetails(w, http.StatusBadRequest, "validation failed", map[string]interface{}{
		"validation_errors": errors,
	})
}

// ErrorHandlingMiddleware converts handler panics into 500 responses. A
// panicking request must not take the register process down mid-shift.
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					fields := []zap.Field{
						zap.Any("panic", rec),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
					}
					if id, ok := GetSessionID(r.Context()); ok {
						fields = append(fields, zap.String("session_id", id))
					}
					logger.Error("Recovered handler panic", fields...)

					RespondWithError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
