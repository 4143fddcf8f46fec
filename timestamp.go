package reactor

import (
	"fmt"
	"time"
)

// microSecondsPerSecond is the number of microseconds in one second.
const microSecondsPerSecond = int64(time.Second / time.Microsecond)

// Timestamp is a microsecond-resolution wall-clock value. The zero value is
// invalid (see Valid). Timestamps are totally ordered by their microsecond
// count since the Unix epoch.
type Timestamp struct {
	microSecondsSinceEpoch int64
}

// Now returns the current wall-clock time as a Timestamp.
func Now() Timestamp {
	return Timestamp{microSecondsSinceEpoch: time.Now().UnixMicro()}
}

// NewTimestamp constructs a Timestamp from a microsecond count since the
// Unix epoch.
func NewTimestamp(microSecondsSinceEpoch int64) Timestamp {
	return Timestamp{microSecondsSinceEpoch: microSecondsSinceEpoch}
}

// InvalidTimestamp returns the distinguished invalid Timestamp.
func InvalidTimestamp() Timestamp {
	return Timestamp{}
}

// Valid reports whether ts represents a real point in time. The zero value,
// and any non-positive microsecond count, is invalid.
func (ts Timestamp) Valid() bool {
	return ts.microSecondsSinceEpoch > 0
}

// MicroSecondsSinceEpoch returns the raw microsecond count since the Unix
// epoch.
func (ts Timestamp) MicroSecondsSinceEpoch() int64 {
	return ts.microSecondsSinceEpoch
}

// Time converts ts to a standard library time.Time.
func (ts Timestamp) Time() time.Time {
	return time.UnixMicro(ts.microSecondsSinceEpoch)
}

// Before reports whether ts is strictly earlier than other.
func (ts Timestamp) Before(other Timestamp) bool {
	return ts.microSecondsSinceEpoch < other.microSecondsSinceEpoch
}

// Equal reports whether ts and other represent the same instant.
func (ts Timestamp) Equal(other Timestamp) bool {
	return ts.microSecondsSinceEpoch == other.microSecondsSinceEpoch
}

// Add returns ts advanced by the given duration, expressed as a fractional
// number of seconds (mirroring the reference implementation's addTime).
func (ts Timestamp) Add(seconds float64) Timestamp {
	delta := int64(seconds * float64(microSecondsPerSecond))
	return Timestamp{microSecondsSinceEpoch: ts.microSecondsSinceEpoch + delta}
}

// AddDuration returns ts advanced by d.
func (ts Timestamp) AddDuration(d time.Duration) Timestamp {
	return Timestamp{microSecondsSinceEpoch: ts.microSecondsSinceEpoch + d.Microseconds()}
}

// Sub returns the duration between ts and other (ts - other).
func (ts Timestamp) Sub(other Timestamp) time.Duration {
	return time.Duration(ts.microSecondsSinceEpoch-other.microSecondsSinceEpoch) * time.Microsecond
}

// String formats ts as "YYYY/MM/DD HH:MM:SS", matching the reference
// implementation's toString().
func (ts Timestamp) String() string {
	return ts.Time().Local().Format("2006/01/02 15:04:05")
}

// FormattedString formats ts as "YYYY/MM/DD HH:MM:SS", optionally appending
// ".ffffff" microseconds.
func (ts Timestamp) FormattedString(showMicroseconds bool) string {
	t := ts.Time().Local()
	if !showMicroseconds {
		return t.Format("2006/01/02 15:04:05")
	}
	micros := t.UnixMicro() % microSecondsPerSecond
	if micros < 0 {
		micros += microSecondsPerSecond
	}
	return fmt.Sprintf("%s.%06d", t.Format("2006/01/02 15:04:05"), micros)
}
