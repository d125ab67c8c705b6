// Package client implements the worker side loop: announce readiness, wait
// for a task, run it and report the outcome until the coordinator goes away.
package client
