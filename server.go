package parally

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/parally/internal/idgen"
	"github.com/viant/parally/logs"
	"github.com/viant/parally/model"
	"github.com/viant/parally/policy"
	"github.com/viant/parally/progress"
	"github.com/viant/parally/runtime/aggregate"
	"github.com/viant/parally/service/acceptor"
	"github.com/viant/parally/service/dao"
	"github.com/viant/parally/service/dao/result"
	rmemory "github.com/viant/parally/service/dao/result/memory"
	"github.com/viant/parally/service/dispatcher"
	"github.com/viant/parally/service/event"
	"github.com/viant/parally/service/messaging/memory"
	"github.com/viant/parally/service/meta"
)

const (
	// DefaultHost is used when no host is given
	DefaultHost = "localhost"
	// FallbackPort replaces a port outside the allowed range
	FallbackPort = 5000
	MinPort      = 1024
	MaxPort      = 65535

	// logPublishTimeout bounds how long a log call waits for the log stream
	logPublishTimeout = 50 * time.Millisecond
)

var (
	// ErrNoParameters is returned by Start when no parameter sets are bound.
	ErrNoParameters = errors.New("no parameters bound")
	// ErrNoCallback is returned when the completion callback is missing.
	ErrNoCallback = errors.New("completion callback is required")
	// ErrNoErrorCallback is returned when a nil error callback is registered.
	ErrNoErrorCallback = errors.New("error callback is required")
	// ErrAlreadyRunning is returned by Start while a run is in progress.
	ErrAlreadyRunning = errors.New("server is already running")
	// ErrParametersBound is returned when parameters are bound a second time.
	ErrParametersBound = errors.New("parameters are already bound")
	// ErrNotList is returned when parameters are not supplied as a list.
	ErrNotList = model.ErrNotList
	// ErrNotRunning is returned by Stop when no run is in progress.
	ErrNotRunning = errors.New("server is not running")
)

func validPort(port int) bool {
	return port >= MinPort && port <= MaxPort
}

// Server coordinates workers over TCP. Parameters and callbacks are
// registered first, Start launches the accept and scheduling loops.
type Server struct {
	host             string
	port             int
	verbose          bool
	logWriter        io.Writer
	logger           *logs.Logs
	policy           policy.Config
	intn             func(n int) int
	dispatcherConfig dispatcher.Config
	acceptorConfig   acceptor.Config
	session          string
	journal          dao.Service[string, result.Record]
	events           *event.Service
	ownEvents        bool
	progressListener func(progress.Progress)
	logListener      func(logs.Record)
	metaBaseURL      string
	metaFsOptions    []storage.Option
	metaService      *meta.Service
	optionErr        error

	mu          sync.Mutex
	parameters  []model.ParameterSet
	bound       bool
	onCompleted model.Callback
	onError     model.ErrorCallback
	// inCallback is set while the dispatcher runs a user callback
	inCallback atomic.Bool
	running     bool
	listener    net.Listener
	dispatcher  *dispatcher.Service
	group       *aggregate.Group
	progress    *progress.Progress
	done        chan struct{}
	err         error
}

// NewServer creates a coordinator for host and port. An empty host means
// localhost; a port outside 1024-65535 is replaced with FallbackPort.
func NewServer(host string, port int, options ...Option) *Server {
	s := &Server{
		host:             host,
		port:             port,
		policy:           policy.Config{Mode: policy.ModeFIFO},
		dispatcherConfig: dispatcher.DefaultConfig(),
		acceptorConfig:   acceptor.DefaultConfig(),
		done:             make(chan struct{}),
	}
	close(s.done)
	for _, opt := range options {
		opt(s)
	}
	s.logger = logs.New(logs.WithVerbose(s.verbose), logs.WithWriter(s.logWriter))
	if s.session == "" {
		s.session = idgen.WithPrefix("session")
	}
	if s.logListener != nil {
		s.streamLogs()
	}
	if s.host == "" {
		s.host = DefaultHost
	}
	if !validPort(s.port) {
		s.logger.Warning("Invalid port %d, using %d", port, FallbackPort)
		s.port = FallbackPort
	}
	if s.journal == nil {
		s.journal = rmemory.New()
	}
	if s.metaService == nil {
		s.metaService = meta.New(afs.New(), s.metaBaseURL, s.metaFsOptions...)
	}
	s.progress = progress.New(s.session, s.progressListener)
	return s
}

// NewServerFromConfig creates a coordinator from the server section of config.
func NewServerFromConfig(config *ServerConfig, options ...Option) *Server {
	return NewServer(config.Host, config.Port, append(config.ServerOptions(), options...)...)
}

func (s *Server) streamLogs() {
	if s.events == nil {
		s.events = event.New()
		s.ownEvents = true
	}
	listener := s.logListener
	event.SetListenerOf[logs.Record](context.Background(), s.events, func(e *event.Event[logs.Record]) {
		listener(e.Data)
	})
	publisher := event.PublisherOf[logs.Record](s.events)
	session := s.session
	s.logger.AddListener(func(record logs.Record) {
		evt := event.NewEvent(&event.Context{Session: session, EventType: string(record.Type), Service: "server"}, record)
		ctx, cancel := context.WithTimeout(context.Background(), logPublishTimeout)
		defer cancel()
		if err := publisher.Publish(ctx, evt); err != nil {
			log.Printf("dropped log record %q: %v", record.Message, err)
		}
	})
}

// BindParameters binds the parameter sets to distribute. list has to be a
// slice of objects; parameters can be bound only once.
func (s *Server) BindParameters(list interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound {
		s.logger.Error("Parameters are already bound")
		return ErrParametersBound
	}
	parameters, err := model.NewParameterSets(list)
	if err != nil {
		s.logger.Error("Failed to bind parameters: %v", err)
		return err
	}
	s.parameters = parameters
	s.bound = true
	s.logger.Info("Bound %d parameter sets", len(parameters))
	return nil
}

// BindParametersFrom binds a JSON or YAML parameter list loaded from URL.
func (s *Server) BindParametersFrom(ctx context.Context, URL string) error {
	var list interface{}
	if err := s.metaService.Load(ctx, URL, &list); err != nil {
		s.logger.Error("Failed to load parameters: %v", err)
		return err
	}
	return s.BindParameters(list)
}

// OnCompleted registers the function receiving all results once the run
// is finished.
func (s *Server) OnCompleted(callback model.Callback) error {
	if callback == nil {
		s.logger.Error("Completion callback is nil")
		return ErrNoCallback
	}
	s.mu.Lock()
	s.onCompleted = callback
	s.mu.Unlock()
	return nil
}

// OnError registers the function receiving every task error message.
func (s *Server) OnError(callback model.ErrorCallback) error {
	if callback == nil {
		s.logger.Error("Error callback is nil")
		return ErrNoErrorCallback
	}
	s.mu.Lock()
	s.onError = callback
	s.mu.Unlock()
	return nil
}

// Start listens and launches the accept and scheduling loops; it does not
// block. Configuration problems are logged and returned without side effects.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return s.reject(ErrAlreadyRunning)
	}
	if s.optionErr != nil {
		return s.reject(s.optionErr)
	}
	if !s.bound || len(s.parameters) == 0 {
		return s.reject(ErrNoParameters)
	}
	if s.onCompleted == nil {
		return s.reject(ErrNoCallback)
	}
	if s.onError == nil {
		s.logger.Warning("No error callback registered, task errors are only logged")
	}
	pending, err := policy.NewPending(&s.policy, s.parameters, policy.WithRandom(s.intn))
	if err != nil {
		return s.reject(err)
	}
	address := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return s.reject(fmt.Errorf("failed to listen on %v: %w", address, err))
	}
	queueConfig := memory.DefaultConfig()
	queueConfig.DeadLetter = false
	queue := memory.NewQueue[acceptor.Connection](queueConfig)
	group := aggregate.New(s.session, len(s.parameters))
	tracker := progress.New(s.session, s.progressListener)
	srv, err := dispatcher.New(
		dispatcher.WithConfig(s.dispatcherConfig),
		dispatcher.WithQueue(queue),
		dispatcher.WithPending(pending),
		dispatcher.WithGroup(group),
		dispatcher.WithCallbacks(s.completedCallback(), s.errorCallback()),
		dispatcher.WithLogger(s.logger),
		dispatcher.WithProgress(tracker),
		dispatcher.WithJournal(s.journal),
		dispatcher.WithSession(s.session),
	)
	if err != nil {
		_ = listener.Close()
		return s.reject(err)
	}
	accept := acceptor.New(listener, queue, s.logger, s.acceptorConfig)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.listener = listener
	s.dispatcher = srv
	s.group = group
	s.progress = tracker
	s.done = done
	s.err = nil
	s.running = true
	s.logger.Info("Server listening on %v (%v policy)", listener.Addr(), pending.Mode())

	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		if err := accept.Start(runCtx); err != nil {
			s.logger.Error("Acceptor stopped: %v", err)
		}
	}()
	go func() {
		err := srv.Start(runCtx)
		cancel()
		_ = listener.Close()
		<-acceptDone
		dispatcher.Drain(queue)
		s.mu.Lock()
		s.running = false
		s.err = err
		s.mu.Unlock()
		close(done)
	}()
	return nil
}

func (s *Server) completedCallback() model.Callback {
	callback := s.onCompleted
	return func(results model.Results) {
		s.inCallback.Store(true)
		defer s.inCallback.Store(false)
		callback(results)
	}
}

func (s *Server) errorCallback() model.ErrorCallback {
	callback := s.onError
	if callback == nil {
		return nil
	}
	return func(message string) {
		s.inCallback.Store(true)
		defer s.inCallback.Store(false)
		callback(message)
	}
}

func (s *Server) reject(err error) error {
	s.logger.Error("Failed to start server: %v", err)
	return err
}

// Stop halts the current run after its pass and returns the results
// collected so far. Called from OnCompleted or OnError it returns without
// waiting for the run to halt; use Wait or Done from another goroutine.
func (s *Server) Stop() (model.Results, error) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Error("Server is not running")
		return nil, ErrNotRunning
	}
	srv, done := s.dispatcher, s.done
	s.mu.Unlock()
	s.logger.Info("Stopping server...")
	srv.Shutdown()
	if s.inCallback.Load() {
		return s.Results(), nil
	}
	<-done
	return s.Results(), nil
}

// Wait blocks until the current run halts or ctx is done and returns the
// scheduling loop error, if any.
func (s *Server) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	select {
	case <-done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the current run halts.
func (s *Server) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Running reports whether a run is in progress.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Results returns the result entries of the latest run in completion order.
func (s *Server) Results() model.Results {
	s.mu.Lock()
	group := s.group
	s.mu.Unlock()
	if group == nil {
		return nil
	}
	return group.Results()
}

// Stalled returns parameter sets whose task failed in the latest run.
func (s *Server) Stalled() []model.ParameterSet {
	s.mu.Lock()
	group := s.group
	s.mu.Unlock()
	if group == nil {
		return nil
	}
	return group.Stalled()
}

// Addr returns the listening address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil && s.running {
		return s.listener.Addr().String()
	}
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

func (s *Server) Session() string {
	return s.session
}

func (s *Server) Logs() []logs.Record {
	return s.logger.Records()
}

func (s *Server) ClearLogs() {
	s.logger.Clear()
}

// Progress returns a snapshot of the latest run progress.
func (s *Server) Progress() progress.Progress {
	s.mu.Lock()
	tracker := s.progress
	s.mu.Unlock()
	return tracker.Snapshot()
}

// Journal returns the result journal.
func (s *Server) Journal() dao.Service[string, result.Record] {
	return s.journal
}

// Close stops a run in progress and the log stream. Like Stop, it does not
// wait for the run to halt when called from a callback.
func (s *Server) Close() error {
	if s.Running() {
		if _, err := s.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
			return err
		}
	}
	if s.ownEvents {
		s.events.Close()
	}
	return nil
}
