// Package epoch converts visit timestamps between Safari's Core Data
// epoch (seconds since 2001-01-01 00:00:00 UTC, stored as REAL) and
// Chrome's WebKit epoch (microseconds since 1601-01-01 00:00:00 UTC,
// stored as INTEGER). The conversion is pure and monotonic, so the
// relative ordering of visits is preserved.
package epoch

import (
	"math"
	"time"

	"github.com/lherron/histmig/internal/domain"
)

const (
	// Unix seconds at the Safari epoch, 2001-01-01T00:00:00Z.
	safariEpochUnix = 978307200

	// Seconds between the WebKit epoch (1601-01-01) and the Unix epoch.
	webkitToUnixSeconds = 11644473600

	// Microseconds between the WebKit epoch and the Safari epoch.
	offsetMicros = (safariEpochUnix + webkitToUnixSeconds) * 1_000_000
)

// ToWebKit converts Safari seconds to WebKit microseconds. Returns
// *domain.TimeRangeError for times before the Safari epoch or beyond the
// WebKit representable range; it never clamps or wraps.
func ToWebKit(safariSeconds float64) (int64, error) {
	if math.IsNaN(safariSeconds) || math.IsInf(safariSeconds, 0) {
		return 0, &domain.TimeRangeError{VisitTime: safariSeconds, Reason: "not a finite value"}
	}
	if safariSeconds < 0 {
		return 0, &domain.TimeRangeError{VisitTime: safariSeconds, Reason: "before the Safari epoch (2001-01-01)"}
	}

	micros := math.Round(safariSeconds * 1e6)
	if micros > float64(math.MaxInt64-offsetMicros) {
		return 0, &domain.TimeRangeError{VisitTime: safariSeconds, Reason: "overflows the WebKit time range"}
	}

	return int64(micros) + offsetMicros, nil
}

// FromWebKit converts WebKit microseconds back to Safari seconds. It is
// the calendar inverse of ToWebKit within microsecond precision.
func FromWebKit(webkitMicros int64) float64 {
	return float64(webkitMicros-offsetMicros) / 1e6
}

// Time returns the wall-clock time for a WebKit timestamp. Used for
// human-readable log output only.
func Time(webkitMicros int64) time.Time {
	unixMicros := webkitMicros - webkitToUnixSeconds*1_000_000
	return time.UnixMicro(unixMicros).UTC()
}
