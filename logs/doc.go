// Package logs keeps the coordinator's in-memory log. Every entry is a Record
// with a wall-clock timestamp, a type and a message; verbose logs also render
// a coloured line to a writer.
package logs
