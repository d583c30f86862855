package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// Visit seeds one Safari history entry into a fixture database.
type Visit struct {
	URL        string
	Title      string
	VisitTime  float64
	VisitCount int
}

// TempSafariDB creates a Safari-shaped history database seeded with the
// given visits and returns its path.
func TempSafariDB(t *testing.T, visits ...Visit) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "History.db")
	database := openDB(t, path)
	defer database.Close()

	mustExec(t, database, `
		CREATE TABLE history_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL UNIQUE,
			domain_expansion TEXT,
			visit_count INTEGER NOT NULL DEFAULT 0
		)`)
	mustExec(t, database, `
		CREATE TABLE history_visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			history_item INTEGER NOT NULL REFERENCES history_items(id),
			visit_time REAL NOT NULL,
			title TEXT,
			load_successful BOOLEAN NOT NULL DEFAULT 1
		)`)

	for _, v := range visits {
		var itemID int64
		err := database.QueryRow("SELECT id FROM history_items WHERE url = ?", v.URL).Scan(&itemID)
		if err == sql.ErrNoRows {
			visitCount := v.VisitCount
			if visitCount == 0 {
				visitCount = 1
			}
			res, err := database.Exec(
				"INSERT INTO history_items (url, visit_count) VALUES (?, ?)", v.URL, visitCount)
			if err != nil {
				t.Fatalf("Failed to insert history item: %v", err)
			}
			itemID, err = res.LastInsertId()
			if err != nil {
				t.Fatalf("Failed to get history item id: %v", err)
			}
		} else if err != nil {
			t.Fatalf("Failed to look up history item: %v", err)
		}

		if _, err := database.Exec(
			"INSERT INTO history_visits (history_item, visit_time, title) VALUES (?, ?, ?)",
			itemID, v.VisitTime, v.Title); err != nil {
			t.Fatalf("Failed to insert history visit: %v", err)
		}
	}

	return path
}

// TempChromeDB creates an empty Chrome-shaped History database and
// returns its path.
func TempChromeDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "History")
	database := openDB(t, path)
	defer database.Close()

	mustExec(t, database, `
		CREATE TABLE urls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL,
			title TEXT,
			visit_count INTEGER NOT NULL DEFAULT 0,
			typed_count INTEGER NOT NULL DEFAULT 0,
			last_visit_time INTEGER NOT NULL DEFAULT 0,
			hidden INTEGER NOT NULL DEFAULT 0
		)`)
	mustExec(t, database, `
		CREATE TABLE visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url INTEGER NOT NULL,
			visit_time INTEGER NOT NULL,
			from_visit INTEGER DEFAULT 0,
			transition INTEGER DEFAULT 0,
			segment_id INTEGER DEFAULT 0,
			visit_duration INTEGER DEFAULT 0
		)`)

	return path
}

// SeedChromeVisit inserts a url row and matching visit row into a Chrome
// fixture database.
func SeedChromeVisit(t *testing.T, path, url, title string, webkitTime int64) {
	t.Helper()

	database := openDB(t, path)
	defer database.Close()

	res, err := database.Exec(
		"INSERT INTO urls (url, title, visit_count, last_visit_time) VALUES (?, ?, 1, ?)",
		url, title, webkitTime)
	if err != nil {
		t.Fatalf("Failed to seed url: %v", err)
	}
	urlID, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to get seeded url id: %v", err)
	}
	if _, err := database.Exec(
		"INSERT INTO visits (url, visit_time) VALUES (?, ?)", urlID, webkitTime); err != nil {
		t.Fatalf("Failed to seed visit: %v", err)
	}
}

// CountRows returns the number of rows in a table.
func CountRows(t *testing.T, path, table string) int {
	t.Helper()

	database := openDB(t, path)
	defer database.Close()

	var count int
	if err := database.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
		t.Fatalf("Failed to count rows in %s: %v", table, err)
	}
	return count
}

// FileBytes reads a file's full contents.
func FileBytes(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return data
}

// AssertNoError asserts that an error is nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

// AssertError asserts that an error is not nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
}

// AssertEqual asserts that two values are equal
func AssertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if expected != actual {
		t.Fatalf("Expected %v, got %v", expected, actual)
	}
}

func openDB(t *testing.T, path string) *sql.DB {
	t.Helper()

	database, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	return database
}

func mustExec(t *testing.T, database *sql.DB, query string) {
	t.Helper()

	if _, err := database.Exec(query); err != nil {
		t.Fatalf("Failed to execute %q: %v", query, err)
	}
}
