package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline and lifecycle failures
type ErrorKind string

const (
	KindValidation              ErrorKind = "validation"
	KindCollaboratorUnavailable ErrorKind = "collaborator_unavailable"
	KindNoUsableData            ErrorKind = "no_usable_data"
	KindLeaseLost               ErrorKind = "lease_lost"
	KindAttemptsExceeded        ErrorKind = "attempts_exceeded"
	KindInternal                ErrorKind = "internal"
)

// User-facing messages written to failed jobs
const (
	MsgBusyNoData       = "Service is busy. Could not collect enough pricing data — please try again later."
	MsgBusyUnreachable  = "Service is busy. Could not reach Airbnb data — please try again later."
	MsgBusyGeneric      = "Service is busy. An error occurred during analysis — please try again later."
	MsgAttemptsExceeded = "This report failed after multiple attempts. Please create a new one."
	MsgInternal         = "We encountered an issue processing your report. Please try again."
	MsgMissingInput     = "Please provide either a listing URL or search criteria."
)

// PricingError carries a user-facing message and the underlying cause.
type PricingError struct {
	Kind        ErrorKind
	UserMessage string
	Detail      string
	Cause       error
}

func (e *PricingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Detail)
}

func (e *PricingError) Unwrap() error {
	return e.Cause
}

// NewValidationError is returned before any network activity.
func NewValidationError(detail string) *PricingError {
	return &PricingError{Kind: KindValidation, UserMessage: detail, Detail: detail}
}

func NewCollaboratorUnavailable(cause error) *PricingError {
	return &PricingError{
		Kind:        KindCollaboratorUnavailable,
		UserMessage: MsgBusyUnreachable,
		Detail:      "page renderer unavailable",
		Cause:       cause,
	}
}

func NewNoUsableData(detail string) *PricingError {
	return &PricingError{Kind: KindNoUsableData, UserMessage: MsgBusyNoData, Detail: detail}
}

// NewEmptySearch reports a run that produced no nights to price at all,
// such as a listing without a location or a search without candidates.
func NewEmptySearch(detail string) *PricingError {
	return &PricingError{Kind: KindNoUsableData, UserMessage: MsgBusyUnreachable, Detail: detail}
}

func NewLeaseLost(jobID string) *PricingError {
	return &PricingError{Kind: KindLeaseLost, UserMessage: MsgBusyGeneric, Detail: "claim lost for job " + jobID}
}

func NewAttemptsExceeded(attempts int) *PricingError {
	return &PricingError{
		Kind:        KindAttemptsExceeded,
		UserMessage: MsgAttemptsExceeded,
		Detail:      fmt.Sprintf("Exceeded max attempts (%d)", attempts),
	}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	var pe *PricingError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// UserMessageOf returns the user-facing message for err.
func UserMessageOf(err error) string {
	var pe *PricingError
	if errors.As(err, &pe) && pe.UserMessage != "" {
		return pe.UserMessage
	}
	return MsgInternal
}
