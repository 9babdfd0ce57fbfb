package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

// NewInvalidTransition rejects a state change not permitted from the
// entity's current state.
func NewInvalidTransition(entity string, from, to string) error {
	return NewDomainError("INVALID_TRANSITION",
		fmt.Sprintf("%s cannot move from %s to %s", entity, from, to),
		http.StatusUnprocessableEntity,
		map[string]any{"from": from, "to": to})
}

// NewConflictingState signals that a concurrent modification invalidated
// the expected precondition; callers should refresh and retry.
func NewConflictingState(entity string) error {
	return NewDomainError("CONFLICTING_STATE",
		fmt.Sprintf("%s was modified concurrently, refresh and retry", entity),
		http.StatusConflict, nil)
}

func NewDuplicateKey(field string) error {
	return NewDomainError("DUPLICATE_KEY",
		fmt.Sprintf("%s already in use", field),
		http.StatusConflict,
		map[string]any{"field": field})
}

func NewDuplicateInvoiceNumber(number string) error {
	return NewDomainError("DUPLICATE_INVOICE_NUMBER",
		fmt.Sprintf("invoice number %s already exists", number),
		http.StatusConflict,
		map[string]any{"invoice_number": number})
}

func NewAlreadyPaid(number string) error {
	return NewDomainError("ALREADY_PAID",
		fmt.Sprintf("invoice %s is already paid", number),
		http.StatusConflict,
		map[string]any{"invoice_number": number})
}

func NewLastAdmin() error {
	return NewDomainError("LAST_ADMIN",
		"cannot demote the last remaining super admin",
		http.StatusConflict, nil)
}

// NewInUse blocks deletion of an entity still referenced by others.
func NewInUse(resource, message string) error {
	return NewDomainError("IN_USE", message, http.StatusConflict,
		map[string]any{"resource": resource})
}

// NewExternalService reports a collaborator failure (email, PDF, storage).
// The triggering entity mutation, if any, stands.
func NewExternalService(collaborator string, err error) error {
	return &DomainError{
		Code:       "EXTERNAL_SERVICE",
		Message:    fmt.Sprintf("%s unavailable", collaborator),
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"collaborator": collaborator},
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
