package domain

// HistoryRecord is a single Safari history entry in its native
// representation: visit time in Core Data seconds (REAL seconds since
// 2001-01-01 00:00:00 UTC). URL is always non-empty; the extractors
// filter empty URLs at the query level.
type HistoryRecord struct {
	URL        string
	Title      string
	VisitTime  float64
	VisitCount int
}

// ConvertedRecord is a HistoryRecord whose visit time has been rewritten
// into Chrome's WebKit epoch (microseconds since 1601-01-01 00:00:00 UTC).
// Exactly one ConvertedRecord is produced per convertible source record.
type ConvertedRecord struct {
	HistoryRecord
	WebKitTime int64
}

// MigrationResult summarizes a single run. It is produced once, after the
// engine reaches its terminal state, and never mutated afterwards.
type MigrationResult struct {
	Imported   int
	Skipped    int
	Failed     int
	DryRun     bool
	DirectCopy bool

	// DestinationModified reports whether the destination file was left
	// changed relative to its pre-run state.
	DestinationModified bool

	// BackupPath is the retained backup copy of the destination, empty if
	// no backup survived the run (locked abort, or restore consumed it).
	BackupPath string
}
