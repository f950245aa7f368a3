package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrWalletNotFound     = errors.New("wallet not found")
	ErrGuardianNotFound   = errors.New("guardian not found")
	ErrSettlementNotFound = errors.New("settlement not found")
	ErrSessionNotFound    = errors.New("no current academic session")
	ErrDuplicateReference = errors.New("settlement reference already recorded")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrInvalidAmount      = errors.New("invalid settlement amount")
	ErrInvariantViolation = errors.New("ledger invariant violation")
	ErrAlreadyAllocated   = errors.New("settlement already allocated")
	ErrUnresolvableWallet = errors.New("no wallet resolved for payment")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeWalletNotFound     = "WALLET_NOT_FOUND"
	ErrCodeGuardianNotFound   = "GUARDIAN_NOT_FOUND"
	ErrCodeSettlementNotFound = "SETTLEMENT_NOT_FOUND"
	ErrCodeSessionNotFound    = "SESSION_NOT_FOUND"
	ErrCodeDuplicateReference = "DUPLICATE_REFERENCE"
	ErrCodeInvalidSignature   = "INVALID_SIGNATURE"
	ErrCodeInvalidAmount      = "INVALID_AMOUNT"
	ErrCodeInvariantViolation = "INVARIANT_VIOLATION"
	ErrCodeAlreadyAllocated   = "ALREADY_ALLOCATED"
	ErrCodeUnresolvableWallet = "UNRESOLVABLE_WALLET"
	ErrCodeDatabaseError      = "DATABASE_ERROR"
	ErrCodeCacheError         = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapWalletNotFound(hint string) *BusinessError {
	return NewBusinessError(
		ErrCodeWalletNotFound,
		fmt.Sprintf("Wallet not found for %s", hint),
		ErrWalletNotFound,
	)
}

func WrapGuardianNotFound(guardianID string) *BusinessError {
	return NewBusinessError(
		ErrCodeGuardianNotFound,
		fmt.Sprintf("Guardian with ID %s not found", guardianID),
		ErrGuardianNotFound,
	)
}

func WrapSettlementNotFound(id string) *BusinessError {
	return NewBusinessError(
		ErrCodeSettlementNotFound,
		fmt.Sprintf("Settlement %s not found", id),
		ErrSettlementNotFound,
	)
}

func WrapSessionNotFound(schoolID string) *BusinessError {
	return NewBusinessError(
		ErrCodeSessionNotFound,
		fmt.Sprintf("No current academic session for school %s", schoolID),
		ErrSessionNotFound,
	)
}

func WrapInvalidAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidAmount,
		fmt.Sprintf("Invalid settlement amount: %s", amount),
		ErrInvalidAmount,
	)
}

// WrapInvariantViolation flags a ledger discrepancy. These are programming
// errors and must be raised loudly, never silently corrected.
func WrapInvariantViolation(detail string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvariantViolation,
		detail,
		ErrInvariantViolation,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}
