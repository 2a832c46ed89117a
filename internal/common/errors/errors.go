// Package errors provides standardized error handling for the credit service.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeCustomerNotFound ErrorCode = "CUSTOMER_NOT_FOUND"
	ErrCodeLoanNotFound     ErrorCode = "LOAN_NOT_FOUND"

	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodeDatabaseQueryFailed  ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeDatabaseTxFailed     ErrorCode = "DATABASE_TX_FAILED"
	ErrCodeDatabaseInsertFailed ErrorCode = "DATABASE_INSERT_FAILED"

	ErrCodeIngestionFailed ErrorCode = "INGESTION_FAILED"
)

// StandardError represents a structured application error.
// Business rejections (overutilization, EMI burden, low score) are not errors;
// they are successful evaluations with approval=false.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewCustomerNotFoundError creates a non-retryable lookup error.
func NewCustomerNotFoundError(customerID int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeCustomerNotFound,
		Message:   "Customer not found",
		Details:   fmt.Sprintf("customerId: %d", customerID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLoanNotFoundError creates a non-retryable lookup error.
func NewLoanNotFoundError(loanID int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeLoanNotFound,
		Message:   "Loan not found",
		Details:   fmt.Sprintf("loanId: %d", loanID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError creates a non-retryable request validation error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Missing required fields",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseQueryFailedError creates a retryable query error.
func NewDatabaseQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseQueryFailed,
		Message:   "Database query error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseTxFailedError creates a retryable transaction error.
func NewDatabaseTxFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseTxFailed,
		Message:   "Database transaction error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewIngestionFailedError creates a non-retryable bulk load error.
func NewIngestionFailedError(source string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeIngestionFailed,
		Message:   fmt.Sprintf("Ingestion of %s failed", source),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. HTTP Mapping
// ==========================

// HTTPStatus maps an error code to the response status served at the API boundary.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeCustomerNotFound, ErrCodeLoanNotFound:
		return http.StatusNotFound
	case ErrCodeValidationFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// AsStandard unwraps err into a *StandardError when it carries one.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is a customer or loan lookup miss.
func IsNotFound(err error) bool {
	stdErr, ok := AsStandard(err)
	if !ok {
		return false
	}
	return stdErr.Code == ErrCodeCustomerNotFound || stdErr.Code == ErrCodeLoanNotFound
}
