package shared

import (
	"errors"
	"fmt"
)

// Kind classifies domain failures surfaced to callers.
type Kind string

const (
	KindValidation Kind = "validation"
	KindState      Kind = "state"
	KindInventory  Kind = "inventory"
	KindPayment    Kind = "payment"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindForbidden  Kind = "forbidden"
)

var (
	// ErrValidation marks malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrState marks an operation invalid for the current booking state.
	ErrState = errors.New("invalid state")
	// ErrInventory marks insufficient stock.
	ErrInventory = errors.New("inventory unavailable")
	// ErrPayment marks payment sum or overpayment violations.
	ErrPayment = errors.New("payment rejected")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates transient contention that outlived its retries.
	ErrConflict = errors.New("conflict")
	// ErrForbidden indicates the caller lacks the required permission.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated indicates a missing or invalid identity.
	ErrUnauthenticated = errors.New("unauthenticated")
)

var kindSentinels = map[Kind]error{
	KindValidation: ErrValidation,
	KindState:      ErrState,
	KindInventory:  ErrInventory,
	KindPayment:    ErrPayment,
	KindNotFound:   ErrNotFound,
	KindConflict:   ErrConflict,
	KindForbidden:  ErrForbidden,
}

// Error is the typed failure returned by every core operation. It unwraps to
// both the per-kind sentinel and the module-level cause.
type Error struct {
	Kind     Kind
	Entity   string
	EntityID string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Entity == "" {
		return msg
	}
	if e.EntityID == "" {
		return fmt.Sprintf("%s: %s", e.Entity, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Entity, e.EntityID, msg)
}

// Unwrap exposes the kind sentinel and the wrapped cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel, ok := kindSentinels[e.Kind]; ok {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewError builds an Error with a formatted message.
func NewError(kind Kind, entity string, id any, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:     kind,
		Entity:   entity,
		EntityID: formatID(id),
		Message:  fmt.Sprintf(format, args...),
		Err:      cause,
	}
}

// Validation reports malformed input for the entity.
func Validation(entity string, id any, format string, args ...any) *Error {
	return NewError(KindValidation, entity, id, nil, format, args...)
}

// State reports an operation that is invalid for the entity's current state.
func State(entity string, id any, cause error, format string, args ...any) *Error {
	return NewError(KindState, entity, id, cause, format, args...)
}

// Inventory reports an allocation that would drive stock negative.
func Inventory(entity string, id any, cause error, format string, args ...any) *Error {
	return NewError(KindInventory, entity, id, cause, format, args...)
}

// Payment reports a payment that breaks the reconciliation rules.
func Payment(entity string, id any, cause error, format string, args ...any) *Error {
	return NewError(KindPayment, entity, id, cause, format, args...)
}

// NotFound reports an unknown id reference.
func NotFound(entity string, id any) *Error {
	return NewError(KindNotFound, entity, id, nil, "not found")
}

// Conflict reports contention that was not resolved by retrying.
func Conflict(entity string, id any, cause error) *Error {
	return NewError(KindConflict, entity, id, cause, "concurrent update, retry later")
}

// Forbidden reports a missing permission.
func Forbidden(perm string) *Error {
	return NewError(KindForbidden, "permission", perm, nil, "not granted")
}

// KindOf returns the kind carried by err, or "" when err is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func formatID(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Attach fills in the entity reference on a domain error that was raised
// below the layer that knows it, such as an exhausted transaction retry.
func Attach(err error, entity string, id any) error {
	var de *Error
	if !errors.As(err, &de) || de.EntityID != "" {
		return err
	}
	cp := *de
	cp.Entity = entity
	cp.EntityID = formatID(id)
	return &cp
}
