// Package executor wraps a venue client with the guardrail pipeline spec.md
// §4.F requires: circuit-breaker check, hard-limit check, daily-budget
// check, balance-reserve check, then sign/rate-limit/submit, with failure
// classification driving retry policy.
//
// Grounded on the teacher's internal/exchange/client.go dry-run dispatch
// pattern (resty client with retry conditions, dryRun short-circuit) and
// its error-wrapping style (`fmt.Errorf("...: %w", err)`), merged with an
// explicit error-kind taxonomy per spec.md §7's table (Transient,
// RateLimited, PermanentRejection, AuthFailure, GuardrailRejection,
// Fatal) that the teacher's client only distinguishes implicitly via
// retry conditions on resty responses.
package executor

import "errors"

// Kind classifies why an executor operation failed, driving the caller's
// retry policy.
type Kind string

const (
	KindTransient          Kind = "TRANSIENT"           // retry with exponential backoff up to K attempts
	KindRateLimited        Kind = "RATE_LIMITED"         // sleep until limiter permits, then retry
	KindPermanentRejection Kind = "PERMANENT_REJECTION"  // do not retry
	KindAuthFailure        Kind = "AUTH_FAILURE"          // do not retry, halt and alert
	KindGuardrailRejection Kind = "GUARDRAIL_REJECTION"  // refused locally, no network call was made
	KindFatal              Kind = "FATAL"                 // unrecoverable, propagate to caller for shutdown
)

// Error wraps an underlying venue or guardrail failure with its Kind.
// The message never includes secret material; callers may log Error()
// safely.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return e.Op + ": " + string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable reports whether the caller's retry loop should attempt
// again (Transient or RateLimited), as opposed to surfacing the failure.
func IsRetryable(err error) bool {
	var execErr *Error
	if !errors.As(err, &execErr) {
		return false
	}
	return execErr.Kind == KindTransient || execErr.Kind == KindRateLimited
}

// IsGuardrailRejection reports whether err was refused locally before any
// network call — used by tests to assert the hard-limit and circuit
// properties never dispatch a request.
func IsGuardrailRejection(err error) bool {
	var execErr *Error
	if !errors.As(err, &execErr) {
		return false
	}
	return execErr.Kind == KindGuardrailRejection
}

// ErrCircuitOpen is the sentinel guardrail error when the circuit breaker
// refuses trading.
var ErrCircuitOpen = errors.New("executor: circuit breaker open")

// ErrDailyBudgetExceeded is the sentinel guardrail error when an order
// would exceed the remaining daily notional budget.
var ErrDailyBudgetExceeded = errors.New("executor: remaining daily budget exceeded")

// ErrInsufficientBalance is the sentinel guardrail error when balance
// minus the configured reserve cannot cover the order notional.
var ErrInsufficientBalance = errors.New("executor: insufficient balance after reserve")
