package roomsync

import (
	"errors"
	"fmt"
)

// Local authorization failures, rejected before any request is issued.
// The server performs the same checks and remains authoritative.
var (
	ErrNotHost          = errors.New("only the host may perform this action")
	ErrPasscodeRequired = errors.New("passcode required for private room")
	ErrNotAnswering     = errors.New("answering is not open")
	ErrAlreadyAnswered  = errors.New("answer already recorded for this round")
	ErrNoRoom           = errors.New("no room snapshot loaded")
)

// LoadError means no snapshot could be obtained yet; the view has nothing
// to show until a retry succeeds.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load room: %v", e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// TransientSyncError means a refresh failed while a usable snapshot
// exists. Surfaced softly; the snapshot is untouched and the next
// scheduled poll retries.
type TransientSyncError struct {
	Err error
}

func (e *TransientSyncError) Error() string { return fmt.Sprintf("sync room: %v", e.Err) }
func (e *TransientSyncError) Unwrap() error { return e.Err }

// ActionError means a user-initiated write failed. Surfaced to the
// initiator only; any optimistic local state has been reverted.
type ActionError struct {
	Op  string
	Err error
}

func (e *ActionError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *ActionError) Unwrap() error { return e.Err }

// Reporter receives sync failures the engine converts instead of
// propagating. Called from the engine loop; keep implementations fast.
type Reporter interface {
	Report(err error)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(error)

func (f ReporterFunc) Report(err error) { f(err) }
