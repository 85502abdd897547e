// Package timex holds the time helpers shared by host and TinyGo builds.
package timex

import "time"

// NowMs returns Unix milliseconds.
func NowMs() int64 { return time.Now().UnixMilli() }

// Since returns the milliseconds elapsed since a NowMs stamp.
func Since(ms int64) int64 { return NowMs() - ms }
