package result

import (
	"time"

	"github.com/viant/parally/model"
)

// Record is a journaled result entry.
type Record struct {
	ID          string             `json:"id" yaml:"id"`
	Session     string             `json:"session" yaml:"session"`
	Seq         int                `json:"seq" yaml:"seq"`
	Worker      string             `json:"worker" yaml:"worker"`
	CompletedAt time.Time          `json:"completedAt" yaml:"completedAt"`
	ElapsedMs   int64              `json:"elapsedMs,omitempty" yaml:"elapsedMs,omitempty"`
	Input       model.ParameterSet `json:"input" yaml:"input"`
	Output      interface{}        `json:"output" yaml:"output"`
}

// Entry returns the result entry the record was made from.
func (r *Record) Entry() *model.ResultEntry {
	return &model.ResultEntry{Input: r.Input, Output: r.Output}
}

// Field returns the value of a filterable field by name.
func (r *Record) Field(name string) interface{} {
	switch name {
	case "ID":
		return r.ID
	case "Session":
		return r.Session
	case "Seq":
		return r.Seq
	case "Worker":
		return r.Worker
	}
	return nil
}
