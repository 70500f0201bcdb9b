package domain

import (
	"errors"
	"fmt"
	"time"
)

// Common domain errors
var (
	ErrNotFound      = errors.New("resource not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidLevel  = errors.New("unknown level")
	ErrInvalidStatus = errors.New("unknown help status")
	ErrUserNotFound  = errors.New("user not found")
	ErrTxNotFound    = errors.New("help transaction not found")
	ErrPairDiverged  = errors.New("sender and receiver records diverged")
)

// Help flow errors. Business-case outcomes (no receiver, cooldown, duplicate
// active) get distinct sentinels so handlers can render them apart from
// faults.
var (
	ErrIneligibleSender           = errors.New("sender is not eligible to send help")
	ErrNoEligibleReceiver         = errors.New("no eligible receiver available")
	ErrDuplicateActiveTransaction = errors.New("sender already has an active help transaction")
	ErrTerminalState              = errors.New("transaction is in a terminal state")
	ErrCooldownActive             = errors.New("payment request cooldown active")
	ErrValidation                 = errors.New("validation failed")
	ErrConcurrencyConflict        = errors.New("write lost a concurrent race, retry the operation")
	ErrInvalidTransition          = errors.New("invalid status transition")
	ErrReceiverIncomeBlocked      = errors.New("receiver is income-blocked and cannot confirm")
	ErrNotIncomeBlocked           = errors.New("user is not income-blocked")
)

// CooldownError carries the remaining wait so callers can surface it
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("payment request cooldown active, retry in %s", e.Remaining.Round(time.Second))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}

// TerminalStateError carries the terminal status that rejected the mutation
type TerminalStateError struct {
	Status HelpStatus
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("transaction already %s", e.Status)
}

func (e *TerminalStateError) Is(target error) bool {
	return target == ErrTerminalState
}

// ValidationError carries the field that failed
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
