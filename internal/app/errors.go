package app

import "fmt"

// Error codes returned by the command/query surface. Callers map these to
// their transport of choice.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeConflict           = "CONFLICT"
	CodeInvariantViolation = "INVARIANT_VIOLATION"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func notFound(message string) *DomainError {
	return &DomainError{Status: 404, Code: CodeNotFound, Message: message}
}

func validationFailed(message string) *DomainError {
	return &DomainError{Status: 422, Code: CodeValidationFailed, Message: message}
}

func permissionDenied(message string) *DomainError {
	return &DomainError{Status: 403, Code: CodePermissionDenied, Message: message}
}

func conflict(message string) *DomainError {
	return &DomainError{Status: 409, Code: CodeConflict, Message: message}
}

func invariantViolation(message string) *DomainError {
	return &DomainError{Status: 409, Code: CodeInvariantViolation, Message: message}
}
