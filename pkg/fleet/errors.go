package fleet

import (
	"errors"
	"fmt"
)

// ErrTotalFailure is returned by Aggregate when no host made it into the report.
var ErrTotalFailure = errors.New("no host could be monitored")

// ProbeError means a host could not be connected to or failed its liveness check.
type ProbeError struct {
	Host string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Host, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// ScanError means introspection failed on a live connection. It is also used
// for a single column whose counter could not be correlated, in which case
// Column names it.
type ScanError struct {
	Host   string
	Column string
	Err    error
}

func (e *ScanError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("scan %s (%s): %v", e.Host, e.Column, e.Err)
	}
	return fmt.Sprintf("scan %s: %v", e.Host, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// errNoCounter is wrapped by the ScanError logged for columns without a
// matching counter row.
var errNoCounter = errors.New("no auto-increment counter correlated with column")

// errCounterUnreadable is wrapped by the ScanError logged for columns whose
// counter the monitoring role has no privilege to read.
var errCounterUnreadable = errors.New("monitoring role may not read the auto-increment counter")
