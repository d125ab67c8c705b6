package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/viant/parally/internal/clock"
	"github.com/viant/parally/internal/idgen"
	"github.com/viant/parally/logs"
	"github.com/viant/parally/model"
	"github.com/viant/parally/policy"
	"github.com/viant/parally/progress"
	"github.com/viant/parally/runtime/aggregate"
	"github.com/viant/parally/runtime/worker"
	"github.com/viant/parally/service/acceptor"
	"github.com/viant/parally/service/dao"
	"github.com/viant/parally/service/dao/result"
	"github.com/viant/parally/service/messaging"
	"github.com/viant/parally/tracing"
)

// Service distributes pending parameter sets over connected workers. The
// worker table and the pending collection are touched only by the goroutine
// running Start.
type Service struct {
	config      Config
	queue       messaging.Poller[acceptor.Connection]
	pending     *policy.Pending
	group       *aggregate.Group
	onCompleted model.Callback
	onError     model.ErrorCallback
	logger      *logs.Logs
	progress    *progress.Progress
	journal     dao.Service[string, result.Record]
	session     string

	workers []*worker.Worker
	index   map[string]*worker.Worker
	spans   map[string]*tracing.Span

	done         chan struct{}
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// New creates a dispatcher
func New(options ...Option) (*Service, error) {
	s := &Service{
		config:     DefaultConfig(),
		index:      map[string]*worker.Worker{},
		spans:      map[string]*tracing.Span{},
		done:       make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	s.config.init()
	if s.queue == nil {
		return nil, fmt.Errorf("connection queue is required")
	}
	if s.pending == nil {
		return nil, fmt.Errorf("pending parameters are required")
	}
	if s.group == nil {
		return nil, fmt.Errorf("result group is required")
	}
	if s.logger == nil {
		s.logger = logs.New()
	}
	if s.session == "" {
		s.session = idgen.WithPrefix("session")
	}
	return s, nil
}

// Start runs passes until every parameter set is accounted for, the context
// is done or Shutdown is called. Worker connections are closed on return.
func (s *Service) Start(ctx context.Context) error {
	defer s.close()
	s.progress.Update(progress.Delta{Total: s.group.Expected, Pending: s.pending.Len()})
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()
	for {
		if s.pass(ctx) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.shutdownCh:
			return nil
		case <-ticker.C:
		}
	}
}

// Done is closed once Start returned.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Shutdown stops the loop after the current pass.
func (s *Service) Shutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
}

// Session returns the run identifier.
func (s *Service) Session() string {
	return s.session
}

// pass returns true once the run is finished.
func (s *Service) pass(ctx context.Context) bool {
	s.adopt()
	for _, w := range s.workers {
		if w.Closed() && w.State() == worker.StateIdle {
			continue
		}
		s.step(ctx, w)
	}
	return s.finished()
}

func (s *Service) step(ctx context.Context, w *worker.Worker) {
	if w.State() == worker.StateIdle {
		s.assign(ctx, w)
	}
	if w.State() == worker.StateAssigned {
		s.run(w)
	}
	if w.State() == worker.StateRunning {
		if _, err := w.Poll(s.config.PollTimeout); err != nil {
			s.logger.Warning("Worker %v: %v", w.Address, err)
		}
	}
	if w.State() == worker.StateDone {
		s.route(ctx, w)
	}
}

func (s *Service) adopt() {
	for {
		message, ok := s.queue.TryConsume()
		if !ok {
			return
		}
		connection := message.T()
		if _, exists := s.index[connection.Address]; exists {
			_ = connection.Conn.Close()
			_ = message.Ack()
			s.logger.Warning("Duplicate worker address %v ignored", connection.Address)
			continue
		}
		_ = message.Ack()
		w := worker.New(connection.Conn, connection.Address,
			worker.WithBufferSize(s.config.ReadBufferSize),
			worker.WithWriteTimeout(s.config.WriteTimeout))
		s.workers = append(s.workers, w)
		s.index[w.Address] = w
		s.logger.Info("Connection from %v", w.Address)
		s.progress.Update(progress.Delta{Workers: 1})
	}
}

func (s *Service) assign(ctx context.Context, w *worker.Worker) {
	assignment, ok := s.pending.Next()
	if !ok {
		return
	}
	if err := w.Assign(assignment); err != nil {
		s.logger.Error("Failed to assign %v to %v: %v", assignment.Parameters, w.Address, err)
		s.group.MarkFailed(assignment.Slot, assignment.Parameters)
		s.progress.Update(progress.Delta{Pending: -1, Failed: 1})
		return
	}
	s.logger.Info("Assigned parameters: %v to %v", assignment.Parameters, w.Address)
	s.progress.Update(progress.Delta{Pending: -1, Running: 1})
	_, span := tracing.StartSpan(ctx, "dispatcher.task", tracing.KindProducer)
	span.WithAttributes(map[string]string{
		"session":        s.session,
		"worker.address": w.Address,
		"task.slot":      strconv.Itoa(assignment.Slot),
	})
	s.spans[w.Address] = span
}

func (s *Service) run(w *worker.Worker) {
	if err := w.Run(); err != nil {
		if w.State() == worker.StateAssigned {
			s.logger.Debug("Send to %v deferred: %v", w.Address, err)
			return
		}
		s.logger.Error("Failed to send parameters to %v: %v", w.Address, err)
		return
	}
	s.logger.Debug("Sent parameters to %v", w.Address)
}

// route consumes the outcome of a done worker and returns it to idle.
func (s *Service) route(ctx context.Context, w *worker.Worker) {
	assignment := w.Assignment()
	output, err := w.Outcome()
	span := s.spans[w.Address]
	delete(s.spans, w.Address)

	switch {
	case assignment == nil:
	case err != nil:
		s.group.MarkFailed(assignment.Slot, assignment.Parameters)
		message := err.Error()
		s.logger.Error("Task failed on %v for %v: %v", w.Address, assignment.Parameters, message)
		if s.onError != nil {
			s.onError(message)
		}
		s.progress.Update(progress.Delta{Running: -1, Failed: 1})
	default:
		entry := &model.ResultEntry{Input: assignment.Parameters, Output: output}
		if s.group.MarkDone(assignment.Slot, entry) {
			s.pending.Remove(assignment.Slot)
			s.logger.Info("Completed parameters: %v from %v", assignment.Parameters, w.Address)
			s.logger.Output(entry)
			s.record(ctx, w, entry)
			s.progress.Update(progress.Delta{Running: -1, Completed: 1})
		} else {
			s.logger.Warning("Duplicate result for %v from %v ignored", assignment.Parameters, w.Address)
			s.progress.Update(progress.Delta{Running: -1})
		}
	}
	tracing.EndSpan(span, err)

	if !w.Closed() {
		if ackErr := w.Acknowledge(); ackErr != nil {
			s.logger.Debug("Failed to acknowledge %v: %v", w.Address, ackErr)
		}
	}
	w.Reset()
	if w.Closed() {
		s.logger.Warning("Worker %v disconnected", w.Address)
		s.progress.Update(progress.Delta{Workers: -1})
	}
}

func (s *Service) record(ctx context.Context, w *worker.Worker, entry *model.ResultEntry) {
	if s.journal == nil {
		return
	}
	record := &result.Record{
		ID:          idgen.New(),
		Session:     s.session,
		Seq:         s.group.Completed(),
		Worker:      w.Address,
		CompletedAt: clock.Now(),
		ElapsedMs:   w.Elapsed().Milliseconds(),
		Input:       entry.Input,
		Output:      entry.Output,
	}
	if err := s.journal.Save(ctx, record); err != nil {
		s.logger.Warning("Failed to journal result for %v: %v", entry.Input, err)
	}
}

func (s *Service) inFlight() int {
	count := 0
	for _, w := range s.workers {
		if w.State() != worker.StateIdle {
			count++
		}
	}
	return count
}

func (s *Service) finished() bool {
	if !s.group.Complete() && (s.pending.Len() > 0 || s.inFlight() > 0) {
		return false
	}
	if !s.group.Close() {
		return true
	}
	results := s.group.Results()
	s.logger.Info("All tasks completed.")
	s.logger.Output(results)
	if s.onCompleted != nil {
		s.onCompleted(results)
	} else {
		s.logger.Error("No completion callback registered, %d results dropped", len(results))
	}
	s.logger.Info("Stopping server...")
	return true
}

func (s *Service) close() {
	for address, span := range s.spans {
		tracing.EndSpan(span, errors.New("dispatcher stopped"))
		delete(s.spans, address)
	}
	for _, w := range s.workers {
		_ = w.Close()
	}
	Drain(s.queue)
	close(s.done)
}

// Drain closes every connection still waiting in queue.
func Drain(queue messaging.Poller[acceptor.Connection]) {
	for {
		message, ok := queue.TryConsume()
		if !ok {
			return
		}
		_ = message.T().Conn.Close()
		_ = message.Ack()
	}
}
