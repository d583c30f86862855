package epoch

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/lherron/histmig/internal/domain"
)

func TestToWebKitKnownTimes(t *testing.T) {
	tests := []struct {
		name          string
		safariSeconds float64
		want          int64
	}{
		{
			name:          "safari epoch",
			safariSeconds: 0,
			want:          12622780800000000,
		},
		{
			// 2021-01-01T00:00:00Z is 631152000s after the Safari epoch.
			name:          "new year 2021",
			safariSeconds: 631152000,
			want:          (631152000 + 12622780800) * 1_000_000,
		},
		{
			name:          "sub-second precision",
			safariSeconds: 100.5,
			want:          12622780800000000 + 100500000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToWebKit(tt.safariSeconds)
			if err != nil {
				t.Fatalf("ToWebKit(%v) failed: %v", tt.safariSeconds, err)
			}
			if got != tt.want {
				t.Errorf("ToWebKit(%v) = %d, want %d", tt.safariSeconds, got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	// from_destination(to_destination(T)) == T within microsecond precision.
	values := []float64{0, 1, 100.5, 631152000, 695123456.789123, 978307199.999999}

	for _, v := range values {
		wk, err := ToWebKit(v)
		if err != nil {
			t.Fatalf("ToWebKit(%v) failed: %v", v, err)
		}
		back := FromWebKit(wk)
		if math.Abs(back-v) > 1e-6 {
			t.Errorf("round trip of %v drifted: got %v", v, back)
		}
	}
}

func TestWallClockCalendarInverse(t *testing.T) {
	// Converting a known wall-clock time through the Safari format and
	// then through ToWebKit must reproduce that wall-clock time.
	wall := time.Date(2023, 6, 15, 12, 30, 45, 0, time.UTC)
	safariSeconds := float64(wall.Unix() - 978307200)

	wk, err := ToWebKit(safariSeconds)
	if err != nil {
		t.Fatalf("ToWebKit failed: %v", err)
	}

	if got := Time(wk); !got.Equal(wall) {
		t.Errorf("Time(%d) = %v, want %v", wk, got, wall)
	}
}

func TestMonotonic(t *testing.T) {
	values := []float64{0, 0.000001, 1, 2, 1000, 631152000, 700000000}

	var prev int64 = -1
	for _, v := range values {
		wk, err := ToWebKit(v)
		if err != nil {
			t.Fatalf("ToWebKit(%v) failed: %v", v, err)
		}
		if wk <= prev {
			t.Fatalf("ordering not preserved at %v: %d <= %d", v, wk, prev)
		}
		prev = wk
	}
}

func TestOutOfRange(t *testing.T) {
	tests := []struct {
		name          string
		safariSeconds float64
	}{
		{"before safari epoch", -1},
		{"far before safari epoch", -978307200},
		{"overflows webkit range", 1e19},
		{"NaN", math.NaN()},
		{"positive infinity", math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToWebKit(tt.safariSeconds)
			var rangeErr *domain.TimeRangeError
			if !errors.As(err, &rangeErr) {
				t.Fatalf("ToWebKit(%v) = %v, want TimeRangeError", tt.safariSeconds, err)
			}
		})
	}
}
