// Package tracing wraps OpenTelemetry so that the coordinator and the worker
// runtime can record one span per dispatched task without importing the
// upstream packages directly. Without Init every span is a no-op.
package tracing
