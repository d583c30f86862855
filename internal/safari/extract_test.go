package safari

import (
	"database/sql"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/lherron/histmig/internal/domain"
	"github.com/lherron/histmig/internal/testutil"
)

func TestLibraryExtractorOrder(t *testing.T) {
	// Most-recent-first, regardless of insertion order.
	path := testutil.TempSafariDB(t,
		testutil.Visit{URL: "https://old.example", Title: "Old", VisitTime: 100},
		testutil.Visit{URL: "https://new.example", Title: "New", VisitTime: 300},
		testutil.Visit{URL: "https://mid.example", Title: "Mid", VisitTime: 200},
	)

	records, err := (&LibraryExtractor{Path: path}).Extract(0)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	wantURLs := []string{"https://new.example", "https://mid.example", "https://old.example"}
	if len(records) != len(wantURLs) {
		t.Fatalf("got %d records, want %d", len(records), len(wantURLs))
	}
	for i, want := range wantURLs {
		if records[i].URL != want {
			t.Errorf("record[%d].URL = %s, want %s", i, records[i].URL, want)
		}
	}
}

func TestLibraryExtractorTieBreakByRowID(t *testing.T) {
	// Visits sharing a timestamp come back in visit rowid order, so the
	// sequence is deterministic for a given file.
	path := testutil.TempSafariDB(t,
		testutil.Visit{URL: "https://first.example", VisitTime: 100},
		testutil.Visit{URL: "https://second.example", VisitTime: 100},
		testutil.Visit{URL: "https://third.example", VisitTime: 100},
	)

	records, err := (&LibraryExtractor{Path: path}).Extract(0)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	wantURLs := []string{"https://first.example", "https://second.example", "https://third.example"}
	for i, want := range wantURLs {
		if records[i].URL != want {
			t.Errorf("record[%d].URL = %s, want %s", i, records[i].URL, want)
		}
	}
}

func TestLibraryExtractorLimit(t *testing.T) {
	path := testutil.TempSafariDB(t,
		testutil.Visit{URL: "https://a.example", VisitTime: 500},
		testutil.Visit{URL: "https://b.example", VisitTime: 400},
		testutil.Visit{URL: "https://c.example", VisitTime: 300},
		testutil.Visit{URL: "https://d.example", VisitTime: 200},
		testutil.Visit{URL: "https://e.example", VisitTime: 100},
	)

	records, err := (&LibraryExtractor{Path: path}).Extract(2)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].URL != "https://a.example" || records[1].URL != "https://b.example" {
		t.Errorf("limit did not keep the first records in extraction order: %v", records)
	}
}

func TestLibraryExtractorSkipsEmptyURLs(t *testing.T) {
	path := testutil.TempSafariDB(t,
		testutil.Visit{URL: "", VisitTime: 300},
		testutil.Visit{URL: "https://kept.example", VisitTime: 200},
	)

	records, err := (&LibraryExtractor{Path: path}).Extract(0)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(records) != 1 || records[0].URL != "https://kept.example" {
		t.Errorf("empty-url rows should be filtered, got %v", records)
	}
}

func TestExtractMissingSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-History.db")

	_, err := (&LibraryExtractor{Path: path}).Extract(0)
	var unavailable *domain.SourceUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Extract = %v, want SourceUnavailableError", err)
	}
}

func TestExtractUnrecognizedSchema(t *testing.T) {
	// A valid SQLite file without the Safari history tables must fail
	// loudly, not return an empty sequence.
	path := filepath.Join(t.TempDir(), "History.db")
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if _, err := database.Exec("CREATE TABLE unrelated (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	database.Close()

	_, err = (&LibraryExtractor{Path: path}).Extract(0)
	var unavailable *domain.SourceUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Extract = %v, want SourceUnavailableError", err)
	}
	if !strings.Contains(unavailable.Reason, "missing") {
		t.Errorf("Reason should mention the missing table, got %q", unavailable.Reason)
	}
}

func TestExtractorEquivalence(t *testing.T) {
	// The engine may select either strategy, so both must produce
	// observably identical record sequences for the same input file.
	if _, err := exec.LookPath("sqlite3"); err != nil {
		t.Skip("sqlite3 command-line tool not on PATH")
	}

	path := testutil.TempSafariDB(t,
		testutil.Visit{URL: "https://a.example", Title: "A", VisitTime: 500.25, VisitCount: 3},
		testutil.Visit{URL: "https://b.example", Title: "Title, with comma", VisitTime: 400},
		testutil.Visit{URL: "https://c.example", Title: `Quoted "title"`, VisitTime: 300},
		testutil.Visit{URL: "https://tie1.example", VisitTime: 200},
		testutil.Visit{URL: "https://tie2.example", VisitTime: 200},
	)

	fromLibrary, err := (&LibraryExtractor{Path: path}).Extract(0)
	if err != nil {
		t.Fatalf("LibraryExtractor failed: %v", err)
	}
	fromTool, err := (&ToolExtractor{Path: path}).Extract(0)
	if err != nil {
		t.Fatalf("ToolExtractor failed: %v", err)
	}

	a := dumpRecords(fromLibrary)
	b := dumpRecords(fromTool)
	if a != b {
		text, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(a),
			B:        difflib.SplitLines(b),
			FromFile: "library",
			ToFile:   "tool",
			Context:  3,
		})
		t.Errorf("extractors disagree:\n%s", text)
	}
}

func dumpRecords(records []domain.HistoryRecord) string {
	var sb strings.Builder
	for _, r := range records {
		fmt.Fprintf(&sb, "%s|%s|%v|%d\n", r.URL, r.Title, r.VisitTime, r.VisitCount)
	}
	return sb.String()
}
