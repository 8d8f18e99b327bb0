package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a road or a whole run failed.
type ErrorKind int

// Error kinds.
const (
	KindUnknown ErrorKind = iota
	// KindConfiguration is a bad or missing setting. Fatal before any road is touched.
	KindConfiguration
	// KindPrecondition is missing input for a road (centerline, surfaces, zone).
	KindPrecondition
	// KindInputValidation is a staged object without identifier or geometry.
	KindInputValidation
	// KindProcessing is any failed computation step, store errors included.
	KindProcessing
)

// String returns the kind name used in logs and the run journal.
func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindPrecondition:
		return "precondition"
	case KindInputValidation:
		return "input_validation"
	case KindProcessing:
		return "processing"
	default:
		return "unknown"
	}
}

// Error is a classified failure, optionally bound to a road and a phase.
type Error struct {
	Kind  ErrorKind
	Road  RoadCode // zero when the failure is not bound to a road
	Phase string
	Err   error
}

func (e *Error) Error() string {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Road != 0 && e.Phase != "":
		return fmt.Sprintf("road %d: %s: %s", e.Road, e.Phase, msg)
	case e.Road != 0:
		return fmt.Sprintf("road %d: %s", e.Road, msg)
	case e.Phase != "":
		return fmt.Sprintf("%s: %s", e.Phase, msg)
	default:
		return msg
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Configuration returns a configuration error.
func Configuration(format string, args ...any) error {
	return &Error{Kind: KindConfiguration, Phase: "configuration", Err: fmt.Errorf(format, args...)}
}

// Precondition returns a precondition failure for a road.
func Precondition(road RoadCode, phase string, err error) error {
	return &Error{Kind: KindPrecondition, Road: road, Phase: phase, Err: err}
}

// InputValidation returns an input validation failure for a road.
func InputValidation(road RoadCode, phase string, err error) error {
	return &Error{Kind: KindInputValidation, Road: road, Phase: phase, Err: err}
}

// Processing returns a processing failure for a road.
func Processing(road RoadCode, phase string, err error) error {
	return &Error{Kind: KindProcessing, Road: road, Phase: phase, Err: err}
}

// KindOf returns the kind of the outermost classified error in err's chain,
// KindProcessing for unclassified errors and KindUnknown for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindProcessing
}

// PhaseOf returns the phase of the outermost classified error, if any.
func PhaseOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Phase
	}
	return ""
}
