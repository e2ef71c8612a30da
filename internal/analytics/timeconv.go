package analytics

import "time"

// MicrosToTime converts wire microseconds to a wall-clock time with
// millisecond resolution (us / 1000, truncated toward zero).
func MicrosToTime(us int64) time.Time {
	return time.UnixMilli(us / 1000)
}

// TimeToMicros converts a wall-clock time to wire microseconds (ms * 1000).
func TimeToMicros(t time.Time) int64 {
	return t.UnixMilli() * 1000
}
