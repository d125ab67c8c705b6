package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/viant/parally/logs"
	"github.com/viant/parally/model"
	"github.com/viant/parally/tracing"
	"github.com/viant/structology/conv"
)

// Listener is invoked once a task completes, regardless of whether it
// returned an error.
type Listener func(parameters model.ParameterSet, output interface{}, err error)

// LogListener returns a listener recording every execution in logger.
func LogListener(logger *logs.Logs) Listener {
	return func(parameters model.ParameterSet, output interface{}, err error) {
		if err != nil {
			logger.Error("Task failed for %v: %v", parameters, err)
			return
		}
		logger.Debug("Task completed for %v", parameters)
		logger.Output(output)
	}
}

// Option is used to customise the executor instance.
type Option func(*service)

// WithListener sets the listener invoked after every executed task.
func WithListener(l Listener) Option {
	return func(s *service) {
		s.listener = l
	}
}

// Service executes the bound task.
type Service interface {
	Execute(ctx context.Context, parameters model.ParameterSet) (interface{}, error)
}

type service struct {
	task     model.Task
	listener Listener
}

// Execute runs the task. Errors returned by the task are passed through; a
// panic is not recovered.
func (s *service) Execute(ctx context.Context, parameters model.ParameterSet) (interface{}, error) {
	if s.task == nil {
		return nil, ErrTaskNotBound
	}
	if parameters == nil {
		parameters = model.ParameterSet{}
	}
	ctx, span := tracing.StartSpan(ctx, "executor.task", tracing.KindConsumer)
	output, err := s.task(ctx, parameters)
	if err == nil {
		if _, marshalErr := json.Marshal(output); marshalErr != nil {
			output = nil
			err = fmt.Errorf("%w: %v", ErrNotSerializable, marshalErr)
		}
	}
	tracing.EndSpan(span, err)
	if s.listener != nil {
		s.listener(parameters, output, err)
	}
	return output, err
}

// NewService creates an executor bound to task.
func NewService(task model.Task, opts ...Option) Service {
	s := &service{task: task}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Typed adapts a strongly typed function to a model.Task; parameter sets are
// converted to In with structology.
func Typed[In any, Out any](fn func(ctx context.Context, input In) (Out, error)) model.Task {
	options := conv.DefaultOptions()
	options.IgnoreUnmapped = true
	converter := conv.NewConverter(options)
	return func(ctx context.Context, parameters model.ParameterSet) (interface{}, error) {
		var input In
		if err := converter.Convert(map[string]interface{}(parameters), &input); err != nil {
			return nil, fmt.Errorf("invalid parameters %v: %w", parameters, err)
		}
		return fn(ctx, input)
	}
}
