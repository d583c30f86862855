package domain

import "fmt"

// LockedError is returned when a browser that owns one of the stores is
// running, or another migration holds the run lock.
type LockedError struct {
	Process string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s appears to be running; close it and try again", e.Process)
}

// SourceUnavailableError is returned when the source store is missing,
// unreadable, or not a recognized Safari history database.
type SourceUnavailableError struct {
	Path   string
	Reason string
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source history unavailable at %s: %s", e.Path, e.Reason)
}

// TimeRangeError is returned for a visit time that cannot be converted to
// the destination epoch. It is a per-record error: the engine skips the
// record and counts it as failed instead of aborting the run.
type TimeRangeError struct {
	VisitTime float64
	Reason    string
}

func (e *TimeRangeError) Error() string {
	return fmt.Sprintf("visit time %v is not convertible: %s", e.VisitTime, e.Reason)
}

// MigrationFailedError is a transaction-level failure. It is fatal to the
// run and obliges the engine to restore the destination from backup.
type MigrationFailedError struct {
	Stage string
	Err   error
}

func (e *MigrationFailedError) Error() string {
	return fmt.Sprintf("migration failed during %s: %v", e.Stage, e.Err)
}

func (e *MigrationFailedError) Unwrap() error {
	return e.Err
}
