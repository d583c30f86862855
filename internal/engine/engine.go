// Package engine orchestrates a migration run: guard, backup, extract,
// convert, deduplicate, commit, report. Execution is strictly sequential;
// the destination must be held by a single writer for the whole
// transaction, so there is nothing to parallelize.
package engine

import (
	"errors"
	"log/slog"
	"os"

	"github.com/lherron/histmig/internal/backup"
	"github.com/lherron/histmig/internal/chrome"
	"github.com/lherron/histmig/internal/dedupe"
	"github.com/lherron/histmig/internal/domain"
	"github.com/lherron/histmig/internal/epoch"
	"github.com/lherron/histmig/internal/guard"
	"github.com/lherron/histmig/internal/logging"
	"github.com/lherron/histmig/internal/safari"
)

// State tracks the engine's progress. Transitions are one-way; any
// failure after StateBackedUp goes through StateRolledBack, and every run
// ends at StateReported.
type State string

const (
	StateIdle         State = "idle"
	StateGuardChecked State = "guard_checked"
	StateBackedUp     State = "backed_up"
	StateExtracted    State = "extracted"
	StateDeduplicated State = "deduplicated"
	StateCommitted    State = "committed"
	StateRolledBack   State = "rolled_back"
	StateReported     State = "reported"
)

// Config carries everything a run needs. Paths, guard, and extractor are
// injected so the engine can be tested with fixture databases and fake
// process checkers; there is no ambient state.
type Config struct {
	SourcePath string
	DestPath   string

	// Limit caps the number of extracted records; 0 means unbounded.
	Limit int

	DryRun bool

	// DirectCopy replaces selective extraction with a wholesale copy of
	// the source file over the destination.
	DirectCopy bool

	// Guard defaults to the gopsutil-backed process checker.
	Guard guard.Checker

	// Extractor defaults to the embedded-library extractor on SourcePath.
	Extractor safari.Extractor

	// Logger defaults to a discard logger.
	Logger *slog.Logger
}

// Engine runs one migration and reports the outcome.
type Engine struct {
	cfg   Config
	log   *slog.Logger
	state State
}

// New prepares an engine in the idle state.
func New(cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Engine{cfg: cfg, log: log, state: StateIdle}
}

// State returns the engine's current state.
func (e *Engine) State() State {
	return e.state
}

// Run executes the migration. A non-nil MigrationResult is always
// returned, alongside the error that aborted the run, if any. Whenever a
// backup exists and the run aborts, the destination has been restored to
// its pre-run state before Run returns.
func (e *Engine) Run() (*domain.MigrationResult, error) {
	e.log.Info("migration started",
		"source", e.cfg.SourcePath,
		"dest", e.cfg.DestPath,
		"dry_run", e.cfg.DryRun,
		"direct_copy", e.cfg.DirectCopy,
		"limit", e.cfg.Limit)

	checker := e.cfg.Guard
	if checker == nil {
		checker = guard.NewProcessChecker()
	}
	if err := checker.CheckSafeToRun(); err != nil {
		// Abort before touching any file: no backup is even attempted.
		return e.report(&domain.MigrationResult{DryRun: e.cfg.DryRun, DirectCopy: e.cfg.DirectCopy}, err)
	}

	lock, err := guard.AcquireRunLock(e.cfg.DestPath)
	if err != nil {
		return e.report(&domain.MigrationResult{DryRun: e.cfg.DryRun, DirectCopy: e.cfg.DirectCopy}, err)
	}
	defer lock.Release()
	e.transition(StateGuardChecked)

	handle, err := backup.Create(e.cfg.DestPath)
	if err != nil {
		return e.report(&domain.MigrationResult{DryRun: e.cfg.DryRun, DirectCopy: e.cfg.DirectCopy}, err)
	}
	e.transition(StateBackedUp)
	e.log.Info("backup created", "path", handle.Path())

	if e.cfg.DirectCopy {
		return e.runDirectCopy(handle)
	}

	extractor := e.cfg.Extractor
	if extractor == nil {
		extractor = &safari.LibraryExtractor{Path: e.cfg.SourcePath}
	}

	limit := e.cfg.Limit
	if limit < 0 {
		limit = 0
	}
	records, err := extractor.Extract(limit)
	if err != nil {
		return e.rollback(handle, err)
	}
	e.transition(StateExtracted)
	e.log.Info("extracted source records", "count", len(records))

	converted, failed := e.convert(records)

	store, err := chrome.Open(e.cfg.DestPath)
	if err != nil {
		return e.rollback(handle, err)
	}
	defer store.Close()

	index, err := store.LoadIndex()
	if err != nil {
		return e.rollback(handle, err)
	}

	newRecords, skipped := dedupe.FilterNew(converted, index)
	e.transition(StateDeduplicated)
	e.log.Info("deduplicated against destination",
		"new", len(newRecords), "skipped", skipped, "failed", failed)

	if err := store.Commit(newRecords, e.cfg.DryRun); err != nil {
		return e.rollback(handle, err)
	}
	e.transition(StateCommitted)
	handle.Release()

	result := &domain.MigrationResult{
		Imported:            len(newRecords),
		Skipped:             skipped,
		Failed:              failed,
		DryRun:              e.cfg.DryRun,
		DestinationModified: !e.cfg.DryRun && len(newRecords) > 0,
		BackupPath:          handle.Path(),
	}
	return e.report(result, nil)
}

// convert rewrites visit times into the WebKit epoch. Records outside
// the convertible range are skipped and tallied as failed; they never
// abort the batch.
func (e *Engine) convert(records []domain.HistoryRecord) ([]domain.ConvertedRecord, int) {
	converted := make([]domain.ConvertedRecord, 0, len(records))
	failed := 0

	for _, r := range records {
		webkitTime, err := epoch.ToWebKit(r.VisitTime)
		if err != nil {
			failed++
			e.log.Warn("skipping unconvertible record", "url", r.URL, "error", err)
			continue
		}
		e.log.Debug("converted record",
			"url", r.URL,
			"safari_time", r.VisitTime,
			"webkit_time", webkitTime,
			"wall_clock", epoch.Time(webkitTime))
		converted = append(converted, domain.ConvertedRecord{HistoryRecord: r, WebKitTime: webkitTime})
	}

	return converted, failed
}

// runDirectCopy copies the source file wholesale over the destination,
// bypassing extraction and deduplication.
func (e *Engine) runDirectCopy(handle *backup.Handle) (*domain.MigrationResult, error) {
	if _, err := os.Stat(e.cfg.SourcePath); err != nil {
		return e.rollback(handle, &domain.SourceUnavailableError{Path: e.cfg.SourcePath, Reason: "file not found"})
	}

	if !e.cfg.DryRun {
		if err := backup.CopyFile(e.cfg.SourcePath, e.cfg.DestPath); err != nil {
			return e.rollback(handle, &domain.MigrationFailedError{Stage: "direct copy", Err: err})
		}
	}
	e.transition(StateCommitted)
	handle.Release()

	result := &domain.MigrationResult{
		DryRun:              e.cfg.DryRun,
		DirectCopy:          true,
		DestinationModified: !e.cfg.DryRun,
		BackupPath:          handle.Path(),
	}
	return e.report(result, nil)
}

// rollback restores the destination from backup and reports the cause.
// The engine is the only caller of Restore.
func (e *Engine) rollback(handle *backup.Handle, cause error) (*domain.MigrationResult, error) {
	if restoreErr := handle.Restore(); restoreErr != nil {
		e.log.Error("restore failed", "error", restoreErr)
		cause = errors.Join(cause, restoreErr)
	} else {
		e.log.Info("destination restored from backup")
	}
	e.transition(StateRolledBack)

	result := &domain.MigrationResult{
		DryRun:     e.cfg.DryRun,
		DirectCopy: e.cfg.DirectCopy,
	}
	return e.report(result, cause)
}

// report is the terminal transition: always reached, success or failure.
func (e *Engine) report(result *domain.MigrationResult, err error) (*domain.MigrationResult, error) {
	e.transition(StateReported)
	if err != nil {
		e.log.Error("migration aborted",
			"error", err,
			"destination_modified", result.DestinationModified)
	} else {
		e.log.Info("migration finished",
			"imported", result.Imported,
			"skipped", result.Skipped,
			"failed", result.Failed,
			"dry_run", result.DryRun,
			"direct_copy", result.DirectCopy,
			"destination_modified", result.DestinationModified)
	}
	return result, err
}

func (e *Engine) transition(next State) {
	e.log.Debug("state transition", "from", e.state, "to", next)
	e.state = next
}
