// Package dedupe filters out records already present in the destination.
package dedupe

import (
	"github.com/lherron/histmig/internal/chrome"
	"github.com/lherron/histmig/internal/domain"
)

// FilterNew returns the records absent from idx, preserving input order,
// along with the number skipped. A record is a duplicate if its
// (url, converted visit time) pair exists in the destination index or if
// an earlier record in the same batch carries the same pair (first
// occurrence wins). Pure function: no I/O.
func FilterNew(records []domain.ConvertedRecord, idx chrome.Index) ([]domain.ConvertedRecord, int) {
	seen := make(map[chrome.Key]struct{}, len(records))
	newRecords := make([]domain.ConvertedRecord, 0, len(records))
	skipped := 0

	for _, r := range records {
		key := chrome.Key{URL: r.URL, WebKitTime: r.WebKitTime}
		if _, dup := seen[key]; dup || idx.Has(r.URL, r.WebKitTime) {
			skipped++
			continue
		}
		seen[key] = struct{}{}
		newRecords = append(newRecords, r)
	}

	return newRecords, skipped
}
