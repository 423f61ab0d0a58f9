package timeutil

import "time"

func NowUnix() int64 {
	return time.Now().Unix()
}

// NowMillis is used for credential expiry stamps, which keep
// millisecond precision end to end.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
