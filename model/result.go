package model

import "context"

// ResultEntry records one successfully completed parameter set.
type ResultEntry struct {
	Input  ParameterSet `json:"input" yaml:"input"`
	Output interface{}  `json:"output" yaml:"output"`
}

// Results is the completed-results sequence, in the order tasks finished.
type Results []*ResultEntry

// Outputs returns the outputs only, preserving order.
func (r Results) Outputs() []interface{} {
	ret := make([]interface{}, 0, len(r))
	for _, entry := range r {
		ret = append(ret, entry.Output)
	}
	return ret
}

// Lookup returns the entry whose input equals parameters.
func (r Results) Lookup(parameters ParameterSet) *ResultEntry {
	for _, entry := range r {
		if Equal(entry.Input, parameters) {
			return entry
		}
	}
	return nil
}

// Callback is invoked once with every result entry when all work is done.
type Callback func(results Results)

// ErrorCallback is invoked with the message of every failed task.
type ErrorCallback func(message string)

// Task is the function a worker evaluates for every parameter set it
// receives. The returned value has to be JSON serialisable.
type Task func(ctx context.Context, parameters ParameterSet) (interface{}, error)
