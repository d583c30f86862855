// Package safari extracts history records from a Safari History.db.
//
// Two interchangeable strategies are provided: LibraryExtractor queries
// through the embedded SQLite driver, ToolExtractor shells out to the
// sqlite3 command-line tool. Both work on a private working copy of the
// source file (the live database is never opened, even read-only, since
// Safari may hold a WAL on it) and both produce identical record
// sequences for the same input: most-recent-first, ties on visit_time
// broken by ascending visit rowid.
package safari

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/lherron/histmig/internal/backup"
	"github.com/lherron/histmig/internal/db"
	"github.com/lherron/histmig/internal/domain"
)

// Extractor reads Safari history entries. limit = 0 means unbounded;
// otherwise at most limit records are returned, in extraction order.
type Extractor interface {
	Extract(limit int) ([]domain.HistoryRecord, error)
}

// extractQuery is shared by both strategies so their output order is
// identical by construction.
const extractQuery = `
SELECT hi.url, COALESCE(hv.title, ''), hv.visit_time, hi.visit_count
FROM history_items hi
JOIN history_visits hv ON hi.id = hv.history_item
WHERE hi.url IS NOT NULL AND hi.url != ''
ORDER BY hv.visit_time DESC, hv.id ASC`

// LibraryExtractor queries the working copy through mattn/go-sqlite3.
type LibraryExtractor struct {
	Path string
}

func (e *LibraryExtractor) Extract(limit int) ([]domain.HistoryRecord, error) {
	work, cleanup, err := workingCopy(e.Path)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	database, err := db.OpenReadOnly(work)
	if err != nil {
		return nil, &domain.SourceUnavailableError{Path: e.Path, Reason: err.Error()}
	}
	defer database.Close()

	if err := validateSchema(database, e.Path); err != nil {
		return nil, err
	}

	query := extractQuery
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := database.Query(query)
	if err != nil {
		return nil, &domain.SourceUnavailableError{Path: e.Path, Reason: fmt.Sprintf("query failed: %v", err)}
	}
	defer rows.Close()

	var records []domain.HistoryRecord
	for rows.Next() {
		var r domain.HistoryRecord
		if err := rows.Scan(&r.URL, &r.Title, &r.VisitTime, &r.VisitCount); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}

	return records, nil
}

// ToolExtractor queries the working copy with the external sqlite3
// command-line tool in CSV mode.
type ToolExtractor struct {
	Path string

	// Binary overrides the sqlite3 executable name, for tests.
	Binary string
}

func (e *ToolExtractor) Extract(limit int) ([]domain.HistoryRecord, error) {
	work, cleanup, err := workingCopy(e.Path)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	binary := e.Binary
	if binary == "" {
		binary = "sqlite3"
	}

	if err := validateSchemaWithTool(binary, work, e.Path); err != nil {
		return nil, err
	}

	query := extractQuery
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(binary, "-csv", work, query)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("sqlite3 query failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return parseCSV(stdout.Bytes())
}

func parseCSV(data []byte) ([]domain.HistoryRecord, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = 4

	var records []domain.HistoryRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse sqlite3 csv output: %w", err)
		}

		visitTime, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse visit time %q: %w", row[2], err)
		}
		visitCount, err := strconv.Atoi(row[3])
		if err != nil {
			return nil, fmt.Errorf("failed to parse visit count %q: %w", row[3], err)
		}

		records = append(records, domain.HistoryRecord{
			URL:        row[0],
			Title:      row[1],
			VisitTime:  visitTime,
			VisitCount: visitCount,
		})
	}

	return records, nil
}

// workingCopy duplicates the source database (and any WAL/SHM sidecars)
// into a private temp directory and returns the copy's path plus a
// cleanup func.
func workingCopy(sourcePath string) (string, func(), error) {
	if _, err := os.Stat(sourcePath); err != nil {
		return "", nil, &domain.SourceUnavailableError{Path: sourcePath, Reason: "file not found"}
	}

	workDir := filepath.Join(os.TempDir(), "histmig-"+uuid.NewString())
	if err := os.MkdirAll(workDir, 0700); err != nil {
		return "", nil, fmt.Errorf("failed to create working directory: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(workDir) }

	workPath := filepath.Join(workDir, filepath.Base(sourcePath))
	if err := backup.CopyFile(sourcePath, workPath); err != nil {
		cleanup()
		return "", nil, &domain.SourceUnavailableError{Path: sourcePath, Reason: err.Error()}
	}

	// Carry sidecars along so uncheckpointed visits are visible in the copy.
	for _, suffix := range []string{"-wal", "-shm"} {
		side := sourcePath + suffix
		if _, err := os.Stat(side); err == nil {
			if err := backup.CopyFile(side, workPath+suffix); err != nil {
				cleanup()
				return "", nil, &domain.SourceUnavailableError{Path: sourcePath, Reason: err.Error()}
			}
		}
	}

	return workPath, cleanup, nil
}

func validateSchema(database *db.DB, sourcePath string) error {
	for _, table := range []string{"history_items", "history_visits"} {
		exists, err := database.TableExists(table)
		if err != nil {
			return &domain.SourceUnavailableError{Path: sourcePath, Reason: err.Error()}
		}
		if !exists {
			return &domain.SourceUnavailableError{
				Path:   sourcePath,
				Reason: fmt.Sprintf("not a Safari history database: missing %s table", table),
			}
		}
	}
	return nil
}

func validateSchemaWithTool(binary, workPath, sourcePath string) error {
	out, err := exec.Command(binary, workPath,
		"SELECT name FROM sqlite_master WHERE type='table' AND name IN ('history_items','history_visits') ORDER BY name",
	).Output()
	if err != nil {
		return &domain.SourceUnavailableError{Path: sourcePath, Reason: fmt.Sprintf("sqlite3 schema check failed: %v", err)}
	}

	found := strings.Fields(strings.TrimSpace(string(out)))
	if len(found) != 2 {
		return &domain.SourceUnavailableError{
			Path:   sourcePath,
			Reason: "not a Safari history database: missing history tables",
		}
	}
	return nil
}
