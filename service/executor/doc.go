// Package executor invokes the task bound to a worker for every parameter
// set it receives. It is the glue between the wire protocol and user code:
// it validates that the output can be sent back and notifies an optional
// listener of the data that flew through the task.
package executor
