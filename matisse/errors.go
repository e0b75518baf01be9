package matisse

import (
	"errors"
	"fmt"
)

// ErrNotImplemented marks controller features that are declared but whose
// behavior has not been specified yet.
var ErrNotImplemented = errors.New("not implemented on this controller yet")

// RangeError is generated when a requested position or wavelength falls
// outside the configured safety bounds.  It is raised before any hardware
// command is issued.
type RangeError struct {
	What         string
	Value        float64
	Lower, Upper float64
}

func (e RangeError) Error() string {
	return fmt.Sprintf("%s %g out of range (%g, %g)", e.What, e.Value, e.Lower, e.Upper)
}

// InstrumentError is generated when the commander answers a command with
// !ERROR.  Codes holds the response to ERROR:CODE?; the error queue has
// already been cleared when this error is returned.
type InstrumentError struct {
	Command string
	Codes   string
}

func (e InstrumentError) Error() string {
	return fmt.Sprintf("error executing Matisse command %q: %s", e.Command, e.Codes)
}
