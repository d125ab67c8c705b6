// Package model defines the data exchanged between the coordinator, its
// workers and the caller: parameter sets, result entries and the callback
// and task signatures bound at configuration time.
package model
