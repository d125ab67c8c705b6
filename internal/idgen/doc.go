// Package idgen wraps the UUID generator so that it can be stubbed in tests.
// Identifiers are opaque strings: session IDs, worker record IDs and result
// journal keys all come from here.
package idgen
