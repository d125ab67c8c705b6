package executor

import "errors"

var (
	ErrTaskNotBound    = errors.New("task not bound")
	ErrNotSerializable = errors.New("task output is not JSON serializable")
)
