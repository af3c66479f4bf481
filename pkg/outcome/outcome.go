package outcome

import (
	"errors"
	"fmt"
)

// Kind classifies a fault so callers can decide whether an operation is
// worth retrying or requires intervention.
type Kind string

const (
	// TransportFault covers network-level failures (timeout, DNS,
	// connection reset). Retryable at the scheduler level.
	TransportFault Kind = "transport"

	// APIFault covers non-2xx responses and 2xx responses with no
	// body. Retryable at the scheduler level.
	APIFault Kind = "api"

	// AuthFault means credentials are missing or expired and the user
	// must re-authenticate. Never retried automatically.
	AuthFault Kind = "auth"

	// ParseFault marks a malformed record that was discarded locally.
	ParseFault Kind = "parse"

	// StoreFault is a local persistence failure, fatal for the
	// current operation.
	StoreFault Kind = "store"
)

// Fault is the error payload of a failed Outcome.
type Fault struct {
	Kind    Kind
	Message string
	Cause   error
}

func (f *Fault) Error() string {
	if f.Message != "" {
		return fmt.Sprintf("%s fault: %s", f.Kind, f.Message)
	}
	return fmt.Sprintf("%s fault", f.Kind)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (f *Fault) Unwrap() error {
	return f.Cause
}

// NewFault builds a Fault with a formatted message.
func NewFault(kind Kind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapFault builds a Fault carrying an underlying cause.
func WrapFault(kind Kind, cause error) *Fault {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Fault{Kind: kind, Message: msg, Cause: cause}
}

type state uint8

const (
	stateLoading state = iota
	stateSuccess
	stateError
)

// Outcome is the three-state result of an asynchronous operation:
// Success carrying a value, Error carrying a Fault, or Loading carrying
// nothing. Exactly one state is active; the zero value is Loading.
// Outcomes are constructed per call attempt and never persisted.
type Outcome[T any] struct {
	st    state
	value T
	fault *Fault
}

// Success wraps a value in a successful Outcome.
func Success[T any](v T) Outcome[T] {
	return Outcome[T]{st: stateSuccess, value: v}
}

// Failure wraps a Fault in a failed Outcome. A nil fault is promoted to
// an unclassified API fault so the error state always carries a cause.
func Failure[T any](f *Fault) Outcome[T] {
	if f == nil {
		f = &Fault{Kind: APIFault, Message: "unspecified failure"}
	}
	return Outcome[T]{st: stateError, fault: f}
}

// Failuref builds a failed Outcome from a kind and formatted message.
func Failuref[T any](kind Kind, format string, args ...any) Outcome[T] {
	return Failure[T](NewFault(kind, format, args...))
}

// Loading is the in-progress Outcome.
func Loading[T any]() Outcome[T] {
	return Outcome[T]{st: stateLoading}
}

func (o Outcome[T]) IsSuccess() bool { return o.st == stateSuccess }
func (o Outcome[T]) IsError() bool   { return o.st == stateError }
func (o Outcome[T]) IsLoading() bool { return o.st == stateLoading }

// Value returns the success value and whether one is present.
func (o Outcome[T]) Value() (T, bool) {
	return o.value, o.st == stateSuccess
}

// MustValue returns the success value or panics. For tests and call
// sites that have already checked IsSuccess.
func (o Outcome[T]) MustValue() T {
	if o.st != stateSuccess {
		panic("outcome: MustValue on non-success outcome")
	}
	return o.value
}

// Fault returns the fault payload, or nil unless the Outcome is an
// error.
func (o Outcome[T]) Fault() *Fault {
	if o.st != stateError {
		return nil
	}
	return o.fault
}

// Err returns the fault as a plain error, or nil unless the Outcome is
// an error.
func (o Outcome[T]) Err() error {
	if o.st != stateError {
		return nil
	}
	return o.fault
}

// Match dispatches on the active state. Handlers may be nil to ignore a
// state.
func (o Outcome[T]) Match(onSuccess func(T), onError func(*Fault), onLoading func()) {
	switch o.st {
	case stateSuccess:
		if onSuccess != nil {
			onSuccess(o.value)
		}
	case stateError:
		if onError != nil {
			onError(o.fault)
		}
	case stateLoading:
		if onLoading != nil {
			onLoading()
		}
	}
}

// Map converts a successful Outcome's value; error and loading states
// pass through with the same payload.
func Map[T, U any](o Outcome[T], fn func(T) U) Outcome[U] {
	switch o.st {
	case stateSuccess:
		return Success(fn(o.value))
	case stateError:
		return Failure[U](o.fault)
	default:
		return Loading[U]()
	}
}

// FaultKind extracts the Kind from an error produced by this package,
// unwrapping as needed and returning ok=false for foreign errors.
func FaultKind(err error) (Kind, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}
