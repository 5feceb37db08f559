package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSession is returned by Revert when the journal has nothing to undo.
var ErrNoSession = errors.New("no applied session to revert")

// ConflictError reports destinations claimed by more than one source.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	parts := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		parts[i] = c.String()
	}
	return "conflicting target paths: " + strings.Join(parts, "; ")
}

// DestinationExistsError reports a move destination that is already occupied.
type DestinationExistsError struct {
	Path   string
	Reason string
}

func (e *DestinationExistsError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("destination already exists: %s (%s)", e.Path, e.Reason)
	}
	return "destination already exists: " + e.Path
}

// MoveFailure reports a failed relocation. RollbackErr collects reversal
// failures, which never replace Err.
type MoveFailure struct {
	Old         string
	New         string
	Err         error
	RollbackErr error
}

func (e *MoveFailure) Error() string {
	msg := fmt.Sprintf("move %s -> %s failed: %v", e.Old, e.New, e.Err)
	if e.RollbackErr != nil {
		msg += fmt.Sprintf(" (rollback incomplete: %v)", e.RollbackErr)
	}
	return msg
}

func (e *MoveFailure) Unwrap() error { return e.Err }

// ReadError reports a file that could not be read or decoded.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// EditApplyFailure reports a text rewrite that could not be written.
// Restored lists the files put back from backups.
type EditApplyFailure struct {
	Path     string
	Err      error
	Restored []string
}

func (e *EditApplyFailure) Error() string {
	return fmt.Sprintf("edit %s failed: %v (restored %d file(s); moves kept)", e.Path, e.Err, len(e.Restored))
}

func (e *EditApplyFailure) Unwrap() error { return e.Err }

// BuildVerifyFailure reports a failed verification command.
type BuildVerifyFailure struct {
	Command  string
	ExitCode int
	Err      error
}

func (e *BuildVerifyFailure) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("build command failed with exit code %d: %s", e.ExitCode, e.Command)
	}
	return fmt.Sprintf("build command failed: %s: %v", e.Command, e.Err)
}

func (e *BuildVerifyFailure) Unwrap() error { return e.Err }
