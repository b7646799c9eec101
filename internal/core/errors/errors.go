package errors

const (
	HttpInternalError        = "internal_error"
	HttpInvalidQueryError    = "invalid_query"
	HttpUnauthorizedError    = "unauthorized"
	HttpProductNotFoundError = "product_not_found"
)

// ErrorResponse is the error response body for read API errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
