package clock

import "time"

// StampLayout is the wall-clock layout used by log records.
const StampLayout = "15:04:05"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// Stamp returns the current wall-clock time formatted with StampLayout.
func Stamp() string { return Now().Format(StampLayout) }
