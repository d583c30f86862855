// Package chrome writes migrated records into a Chrome profile's History
// database. All inserts for a run happen inside a single transaction:
// either every record lands or none do.
package chrome

import (
	"database/sql"
	"fmt"

	"github.com/lherron/histmig/internal/db"
	"github.com/lherron/histmig/internal/domain"
)

// Chrome's PAGE_TRANSITION_LINK with CHAIN_START|CHAIN_END qualifiers,
// the value Chrome itself records for an ordinary link navigation.
const transitionLink = 805306368

// Key identifies a visit for deduplication purposes.
type Key struct {
	URL        string
	WebKitTime int64
}

// Index is a snapshot of the (url, visit time) pairs already present in
// the destination. It is loaded once, before the insert transaction, and
// never re-queried mid-run.
type Index map[Key]struct{}

// Has reports whether the pair is already present.
func (idx Index) Has(url string, webkitTime int64) bool {
	_, ok := idx[Key{URL: url, WebKitTime: webkitTime}]
	return ok
}

// Store is an open Chrome History database.
type Store struct {
	db *db.DB
}

// Open opens the destination database and verifies it has the urls and
// visits tables Chrome's schema defines.
func Open(path string) (*Store, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}

	for _, table := range []string{"urls", "visits"} {
		exists, err := database.TableExists(table)
		if err != nil {
			database.Close()
			return nil, err
		}
		if !exists {
			database.Close()
			return nil, fmt.Errorf("not a Chrome history database: %s is missing the %s table", path, table)
		}
	}

	return &Store{db: database}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadIndex builds the deduplication snapshot from every recorded visit,
// plus each url's last_visit_time (older Chrome rows can carry a
// last_visit_time with no matching visits row).
func (s *Store) LoadIndex() (Index, error) {
	idx := make(Index)

	rows, err := s.db.Query(`
		SELECT u.url, v.visit_time
		FROM visits v
		JOIN urls u ON u.id = v.url`)
	if err != nil {
		return nil, fmt.Errorf("failed to load visit index: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.URL, &k.WebKitTime); err != nil {
			return nil, fmt.Errorf("failed to scan visit index row: %w", err)
		}
		idx[k] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating visit index: %w", err)
	}

	urlRows, err := s.db.Query("SELECT url, last_visit_time FROM urls WHERE last_visit_time > 0")
	if err != nil {
		return nil, fmt.Errorf("failed to load url index: %w", err)
	}
	defer urlRows.Close()

	for urlRows.Next() {
		var k Key
		if err := urlRows.Scan(&k.URL, &k.WebKitTime); err != nil {
			return nil, fmt.Errorf("failed to scan url index row: %w", err)
		}
		idx[k] = struct{}{}
	}
	if err := urlRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating url index: %w", err)
	}

	return idx, nil
}

// Commit inserts every record in a single transaction. Any single
// insertion failure aborts the whole batch with *domain.MigrationFailedError.
// When dryRun is set every insert is still executed and validated, but the
// transaction is always rolled back.
func (s *Store) Commit(records []domain.ConvertedRecord, dryRun bool) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &domain.MigrationFailedError{Stage: "begin", Err: err}
	}
	defer tx.Rollback()

	for _, r := range records {
		if err := insertRecord(tx, r); err != nil {
			return &domain.MigrationFailedError{Stage: "insert", Err: err}
		}
	}

	if dryRun {
		if err := tx.Rollback(); err != nil {
			return &domain.MigrationFailedError{Stage: "rollback", Err: err}
		}
		return nil
	}

	if err := tx.Commit(); err != nil {
		return &domain.MigrationFailedError{Stage: "commit", Err: err}
	}
	return nil
}

// insertRecord upserts the urls row and records the visit. A url already
// known to Chrome keeps its row: the visit count is bumped and
// last_visit_time advances if this visit is newer.
func insertRecord(tx *sql.Tx, r domain.ConvertedRecord) error {
	if r.URL == "" {
		return fmt.Errorf("refusing to insert record with empty url")
	}

	var urlID int64
	err := tx.QueryRow("SELECT id FROM urls WHERE url = ?", r.URL).Scan(&urlID)
	switch {
	case err == sql.ErrNoRows:
		visitCount := r.VisitCount
		if visitCount < 1 {
			visitCount = 1
		}
		res, err := tx.Exec(`
			INSERT INTO urls (url, title, visit_count, typed_count, last_visit_time, hidden)
			VALUES (?, ?, ?, 0, ?, 0)`,
			r.URL, r.Title, visitCount, r.WebKitTime)
		if err != nil {
			return fmt.Errorf("failed to insert url %s: %w", r.URL, err)
		}
		urlID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get url id for %s: %w", r.URL, err)
		}
	case err != nil:
		return fmt.Errorf("failed to look up url %s: %w", r.URL, err)
	default:
		_, err := tx.Exec(`
			UPDATE urls
			SET visit_count = visit_count + 1,
			    last_visit_time = MAX(last_visit_time, ?)
			WHERE id = ?`,
			r.WebKitTime, urlID)
		if err != nil {
			return fmt.Errorf("failed to update url %s: %w", r.URL, err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO visits (url, visit_time, transition, visit_duration)
		VALUES (?, ?, ?, 0)`,
		urlID, r.WebKitTime, transitionLink)
	if err != nil {
		return fmt.Errorf("failed to insert visit for %s: %w", r.URL, err)
	}

	return nil
}
