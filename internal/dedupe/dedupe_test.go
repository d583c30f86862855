package dedupe

import (
	"testing"

	"github.com/lherron/histmig/internal/chrome"
	"github.com/lherron/histmig/internal/domain"
)

func record(url string, webkitTime int64) domain.ConvertedRecord {
	return domain.ConvertedRecord{
		HistoryRecord: domain.HistoryRecord{URL: url, VisitCount: 1},
		WebKitTime:    webkitTime,
	}
}

func TestFilterNew(t *testing.T) {
	tests := []struct {
		name        string
		records     []domain.ConvertedRecord
		index       chrome.Index
		wantURLs    []string
		wantSkipped int
	}{
		{
			name:        "empty input",
			records:     nil,
			index:       chrome.Index{},
			wantURLs:    nil,
			wantSkipped: 0,
		},
		{
			name: "all new",
			records: []domain.ConvertedRecord{
				record("https://a.example", 100),
				record("https://b.example", 200),
			},
			index:       chrome.Index{},
			wantURLs:    []string{"https://a.example", "https://b.example"},
			wantSkipped: 0,
		},
		{
			name: "already in destination",
			records: []domain.ConvertedRecord{
				record("https://a.example", 100),
				record("https://b.example", 200),
			},
			index: chrome.Index{
				{URL: "https://a.example", WebKitTime: 100}: {},
			},
			wantURLs:    []string{"https://b.example"},
			wantSkipped: 1,
		},
		{
			name: "same url different time is new",
			records: []domain.ConvertedRecord{
				record("https://a.example", 150),
			},
			index: chrome.Index{
				{URL: "https://a.example", WebKitTime: 100}: {},
			},
			wantURLs:    []string{"https://a.example"},
			wantSkipped: 0,
		},
		{
			name: "in-batch duplicate, first occurrence wins",
			records: []domain.ConvertedRecord{
				record("https://a.example", 100),
				record("https://b.example", 200),
				record("https://a.example", 100),
			},
			index:       chrome.Index{},
			wantURLs:    []string{"https://a.example", "https://b.example"},
			wantSkipped: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, skipped := FilterNew(tt.records, tt.index)

			if skipped != tt.wantSkipped {
				t.Errorf("skipped = %d, want %d", skipped, tt.wantSkipped)
			}
			if len(got) != len(tt.wantURLs) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.wantURLs))
			}
			for i, want := range tt.wantURLs {
				if got[i].URL != want {
					t.Errorf("record[%d].URL = %s, want %s (order must be preserved)", i, got[i].URL, want)
				}
			}
		})
	}
}
