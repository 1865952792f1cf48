// Package ddberrors defines the error taxonomy surfaced by the store.
//
// ConditionalCheckFailedException and ResourceNotFoundException already
// exist as modeled types in the AWS SDK and are returned as such. The
// remaining taxonomy (ValidationException and friends) is not modeled by
// the SDK, so it is defined here as smithy API errors carrying the exact
// code and message wording the DynamoDB API uses.
package ddberrors

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// APIError is a DynamoDB-style error with a machine-readable code and a
// human-readable message. The message wording is part of the contract for
// several validation failures, so callers construct these with the exact
// strings rather than wrapping.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) ErrorCode() string { return e.Code }

func (e *APIError) ErrorMessage() string { return e.Message }

func (e *APIError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

// Validation returns a ValidationException with the given message.
func Validation(format string, args ...any) *APIError {
	return &APIError{
		Code:    "ValidationException",
		Message: fmt.Sprintf(format, args...),
	}
}

// ResourceInUse signals that a table with the given name already exists.
func ResourceInUse(tableName string) *APIError {
	return &APIError{
		Code:    "ResourceInUseException",
		Message: fmt.Sprintf("Table already exists: %s", tableName),
	}
}

// CodeOf extracts the machine-readable error code, if any.
func CodeOf(err error) string {
	var api smithy.APIError
	if errors.As(err, &api) {
		return api.ErrorCode()
	}
	return ""
}

// IsValidation reports whether err carries the ValidationException code.
func IsValidation(err error) bool {
	return CodeOf(err) == "ValidationException"
}
