// Package aggregate accumulates result entries and failure accounting for a
// single coordinator run.
package aggregate
