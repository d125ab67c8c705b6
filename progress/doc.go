// Package progress keeps the live counters of a coordinator run: how many
// parameter sets are pending, running, completed or failed and how many
// workers are connected.
package progress
