package utils

import "time"

func Ptr[T any](v T) *T {
	return &v
}

// UnixTime converts seconds since the epoch to a time, zero stays zero.
func UnixTime(seconds int64) time.Time {
	if seconds == 0 {
		return time.Time{}
	}
	return time.Unix(seconds, 0)
}
