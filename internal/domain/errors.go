package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable class of a core error.
type ErrorKind string

const (
	KindUnknownEntity     ErrorKind = "unknown_entity"
	KindModelNotTrained   ErrorKind = "model_not_trained"
	KindNoFeasibleVehicle ErrorKind = "no_feasible_vehicle"
	KindStageFailure      ErrorKind = "stage_failure"
	KindInvalidArgument   ErrorKind = "invalid_argument"
	KindInternal          ErrorKind = "internal"
)

// Error is a structured error carrying a kind and a human-readable message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is checks.
var (
	ErrUnknownEntity     = &Error{Kind: KindUnknownEntity}
	ErrModelNotTrained   = &Error{Kind: KindModelNotTrained}
	ErrNoFeasibleVehicle = &Error{Kind: KindNoFeasibleVehicle}
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument}
)

// UnknownEntity reports a store or product never seen in training.
func UnknownEntity(entity, id string) *Error {
	return &Error{Kind: KindUnknownEntity, Message: fmt.Sprintf("unknown %s %q", entity, id)}
}

// ModelNotTrained reports a forecast requested before any successful training.
func ModelNotTrained() *Error {
	return &Error{Kind: KindModelNotTrained, Message: "model not trained: run training first"}
}

// NoFeasibleVehicle reports an order no vehicle of the fleet can ever carry.
func NoFeasibleVehicle(orderID, reason string) *Error {
	return &Error{Kind: KindNoFeasibleVehicle, Message: fmt.Sprintf("order %s: no feasible vehicle (%s)", orderID, reason)}
}

// InvalidArgument reports a malformed input.
func InvalidArgument(msg string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: msg}
}

// StageFailure reports that one orchestration stage could not produce usable output.
type StageFailure struct {
	Stage        string
	FallbackUsed bool
	Err          error
}

func (e *StageFailure) Error() string {
	if e.FallbackUsed {
		return fmt.Sprintf("stage %s failed (fallback used): %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageFailure) Unwrap() error { return e.Err }

// KindOf returns the kind of the first structured error in the chain.
// A StageFailure wins over the error it wraps.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var sf *StageFailure
	if errors.As(err, &sf) {
		return KindStageFailure
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
