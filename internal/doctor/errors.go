package doctor

import "fmt"

// ConnectivityError means the server could not be reached. No check runs
// after it.
type ConnectivityError struct {
	Target string
	Err    error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("cannot reach server %s: %v", e.Target, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// CheckExecutionError means one check's query or interpretation failed.
// It is recorded on that check's Outcome and never aborts the run.
type CheckExecutionError struct {
	Check string
	Err   error
}

func (e *CheckExecutionError) Error() string {
	return fmt.Sprintf("check %s failed: %v", e.Check, e.Err)
}

func (e *CheckExecutionError) Unwrap() error { return e.Err }
