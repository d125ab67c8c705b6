// Package worker implements the coordinator side record of a connected
// worker and its idle, assigned, running and done lifecycle.
package worker
