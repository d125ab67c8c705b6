// Package policy holds the pending parameter sets and decides which one an
// idle worker receives next.
package policy
