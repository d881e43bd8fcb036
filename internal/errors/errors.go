// Package errors defines the service error taxonomy shared by the HTTP layer,
// the query engine and the stores.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind groups error codes into the classes callers branch on.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindAuth       Kind = "auth"
	KindStorage    Kind = "storage"
	KindInternal   Kind = "internal"
)

// ErrorCode identifies a specific failure.
type ErrorCode string

const (
	CodeBadRequest              ErrorCode = "BAD_REQUEST"
	CodeInvalidFilterAttribute  ErrorCode = "INVALID_FILTER_ATTRIBUTE"
	CodeInvalidNumericParameter ErrorCode = "INVALID_NUMERIC_PARAMETER"
	CodeInvalidSortAttribute    ErrorCode = "INVALID_SORT_ATTRIBUTE"
	CodeConflictingSort         ErrorCode = "CONFLICTING_SORT"
	CodeInvalidSkip             ErrorCode = "INVALID_SKIP"
	CodeInvalidLimit            ErrorCode = "INVALID_LIMIT"
	CodeSkipOutOfRange          ErrorCode = "SKIP_OUT_OF_RANGE"
	CodeFieldTypeMismatch       ErrorCode = "FIELD_TYPE_MISMATCH"
	CodeMissingCredentials      ErrorCode = "MISSING_CREDENTIALS"
	CodeUsernameTaken           ErrorCode = "USERNAME_TAKEN"

	CodeRecordNotFound   ErrorCode = "RECORD_NOT_FOUND"
	CodeRouteNotFound    ErrorCode = "NOT_FOUND"
	CodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"

	CodeMissingOrMalformedToken ErrorCode = "MISSING_OR_MALFORMED_TOKEN"
	CodeTokenExpired            ErrorCode = "TOKEN_EXPIRED"
	CodeInvalidToken            ErrorCode = "INVALID_TOKEN"
	CodeInvalidCredentials      ErrorCode = "INVALID_CREDENTIALS"

	CodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	CodeStorageWrite       ErrorCode = "STORAGE_WRITE"

	CodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodePayloadTooLarge   ErrorCode = "PAYLOAD_TOO_LARGE"
	CodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// ServiceError is an error carrying everything the HTTP layer needs to
// render it: a stable code, a human message and a status.
type ServiceError struct {
	Code       ErrorCode              `json:"code"`
	Kind       Kind                   `json:"kind"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Err        error                  `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a ServiceError with the same code, so that
// errors.Is(err, errors.TokenExpired(nil)) style checks work.
func (e *ServiceError) Is(target error) bool {
	var other *ServiceError
	if !stderrors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// WithDetails returns a copy of the error with an extra detail attached.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	clone := *e
	clone.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	clone.Details[key] = value
	return &clone
}

// New creates a service error.
func New(kind Kind, code ErrorCode, message string, status int) *ServiceError {
	return &ServiceError{Code: code, Kind: kind, Message: message, HTTPStatus: status}
}

// Wrap creates a service error around an underlying cause.
func Wrap(err error, kind Kind, code ErrorCode, message string, status int) *ServiceError {
	return &ServiceError{Code: code, Kind: kind, Message: message, HTTPStatus: status, Err: err}
}

// GetServiceError extracts a ServiceError from an error chain.
func GetServiceError(err error) *ServiceError {
	var serviceErr *ServiceError
	if stderrors.As(err, &serviceErr) {
		return serviceErr
	}
	return nil
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	serviceErr := GetServiceError(err)
	return serviceErr != nil && serviceErr.Code == code
}

// IsKind reports whether err belongs to the given class.
func IsKind(err error, kind Kind) bool {
	serviceErr := GetServiceError(err)
	return serviceErr != nil && serviceErr.Kind == kind
}

// Validation errors -----------------------------------------------------------

func validation(code ErrorCode, message string) *ServiceError {
	return New(KindValidation, code, message, http.StatusBadRequest)
}

// BadRequest reports a malformed request body or parameter.
func BadRequest(message string) *ServiceError {
	return validation(CodeBadRequest, message)
}

func InvalidFilterAttribute(key string) *ServiceError {
	return validation(CodeInvalidFilterAttribute,
		fmt.Sprintf("Invalid filter attribute: '%s' is not a valid character attribute.", key)).
		WithDetails("attribute", key)
}

func InvalidNumericParameter(key string) *ServiceError {
	return validation(CodeInvalidNumericParameter,
		fmt.Sprintf("Invalid %s parameter. Age must be an integer.", key)).
		WithDetails("parameter", key)
}

func InvalidSortAttribute(attribute string, allowed []string) *ServiceError {
	quoted := make([]string, len(allowed))
	for i, name := range allowed {
		quoted[i] = "'" + name + "'"
	}
	return validation(CodeInvalidSortAttribute,
		"To sort please select one of these attributes: "+strings.Join(quoted, " / ")).
		WithDetails("attribute", attribute)
}

func ConflictingSort() *ServiceError {
	return validation(CodeConflictingSort, "Only one of 'sort_asc' and 'sort_desc' may be supplied.")
}

func InvalidSkip(message string) *ServiceError {
	return validation(CodeInvalidSkip, message)
}

func InvalidLimit(message string) *ServiceError {
	return validation(CodeInvalidLimit, message)
}

func SkipOutOfRange(total int) *ServiceError {
	return validation(CodeSkipOutOfRange,
		fmt.Sprintf("Skip is exceeding the length of the characters database (Total characters: %d)", total)).
		WithDetails("total", total)
}

// FieldTypeMismatch reports an attribute of the wrong JSON type. Create
// messages mention null; update messages do not.
func FieldTypeMismatch(field, expected string, nullable bool) *ServiceError {
	message := fmt.Sprintf("'%s' must be of type %s.", field, expected)
	if nullable {
		message = fmt.Sprintf("'%s' must be of type %s or null.", field, expected)
	}
	return validation(CodeFieldTypeMismatch, message).
		WithDetails("field", field).
		WithDetails("expected", expected)
}

func MissingCredentials() *ServiceError {
	return validation(CodeMissingCredentials, "Username and password are required.")
}

func UsernameTaken() *ServiceError {
	return validation(CodeUsernameTaken, "Username already exists.")
}

// Not found -------------------------------------------------------------------

func RecordNotFound(id int64) *ServiceError {
	return New(KindNotFound, CodeRecordNotFound,
		fmt.Sprintf("Character with ID %d not found.", id), http.StatusNotFound).
		WithDetails("id", id)
}

func RouteNotFound() *ServiceError {
	return New(KindNotFound, CodeRouteNotFound, "The requested URL was not found on the server.", http.StatusNotFound)
}

func MethodNotAllowed(method string) *ServiceError {
	return New(KindValidation, CodeMethodNotAllowed,
		fmt.Sprintf("Method %s is not allowed for the requested URL.", method), http.StatusMethodNotAllowed)
}

// Auth ------------------------------------------------------------------------

func auth(code ErrorCode, message string, err error) *ServiceError {
	return Wrap(err, KindAuth, code, message, http.StatusUnauthorized)
}

func MissingOrMalformedToken() *ServiceError {
	return auth(CodeMissingOrMalformedToken, "Token is missing or invalid format", nil)
}

func TokenExpired(err error) *ServiceError {
	return auth(CodeTokenExpired, "Token has expired", err)
}

func InvalidToken(err error) *ServiceError {
	return auth(CodeInvalidToken, "Invalid token", err)
}

func InvalidCredentials() *ServiceError {
	return auth(CodeInvalidCredentials, "Invalid username or password", nil)
}

// Storage ---------------------------------------------------------------------

func StorageUnavailable(err error) *ServiceError {
	return Wrap(err, KindStorage, CodeStorageUnavailable, "Character storage is unavailable", http.StatusServiceUnavailable)
}

func StorageWrite(err error) *ServiceError {
	return Wrap(err, KindStorage, CodeStorageWrite, "Failed to persist changes", http.StatusInternalServerError)
}

// Other -----------------------------------------------------------------------

func RateLimitExceeded(limit int, window string) *ServiceError {
	return New(KindValidation, CodeRateLimitExceeded,
		fmt.Sprintf("Rate limit exceeded: %d requests per %s", limit, window), http.StatusTooManyRequests).
		WithDetails("limit", limit).
		WithDetails("window", window)
}

func PayloadTooLarge(limit int64) *ServiceError {
	return New(KindValidation, CodePayloadTooLarge, "Request body is too large", http.StatusRequestEntityTooLarge).
		WithDetails("limit_bytes", limit)
}

func Internal(message string, err error) *ServiceError {
	return Wrap(err, KindInternal, CodeInternal, message, http.StatusInternalServerError)
}
