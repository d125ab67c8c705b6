package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/viant/parally/logs"
	"github.com/viant/parally/protocol"
	"github.com/viant/parally/service/executor"
)

// ErrNotConnected is returned when Run is called before Connect.
var ErrNotConnected = errors.New("client: not connected")

// Config represents worker runtime configuration
type Config struct {
	DialTimeout    time.Duration `json:"dialTimeout,omitempty" yaml:"dialTimeout,omitempty"`
	ReadBufferSize int           `json:"readBufferSize,omitempty" yaml:"readBufferSize,omitempty"`
}

// DefaultConfig returns the default worker runtime configuration
func DefaultConfig() Config {
	return Config{
		DialTimeout:    5 * time.Second,
		ReadBufferSize: protocol.DefaultBufferSize,
	}
}

// Service connects to a coordinator and serves tasks with its executor.
type Service struct {
	config   Config
	address  string
	executor executor.Service
	logger   *logs.Logs
	mu       sync.Mutex
	conn     net.Conn
	closed   bool
}

// New creates a worker runtime for the coordinator at address.
func New(address string, executor executor.Service, logger *logs.Logs, config Config) *Service {
	defaults := DefaultConfig()
	if config.DialTimeout <= 0 {
		config.DialTimeout = defaults.DialTimeout
	}
	if config.ReadBufferSize <= 0 {
		config.ReadBufferSize = defaults.ReadBufferSize
	}
	if logger == nil {
		logger = logs.New()
	}
	return &Service{config: config, address: address, executor: executor, logger: logger}
}

// Connect dials the coordinator once.
func (s *Service) Connect(ctx context.Context) error {
	dialer := net.Dialer{Timeout: s.config.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to connect to %v: %w", s.address, err)
	}
	s.mu.Lock()
	s.conn = conn
	s.closed = false
	s.mu.Unlock()
	s.logger.Info("Connected to %v", s.address)
	return nil
}

// Run serves tasks until the coordinator closes the connection, a send fails
// or ctx is done; those cases return nil. A malformed coordinator frame is
// returned as an error.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	defer s.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	decoder := protocol.NewDecoder(s.config.ReadBufferSize)
	for {
		if err := protocol.Write(conn, protocol.NewReady()); err != nil {
			s.terminated(ctx, err)
			return nil
		}
		message, err := s.receive(conn, decoder)
		if err != nil {
			if protocol.IsProtocolError(err) {
				s.logger.Error("Invalid message from coordinator: %v", err)
				return err
			}
			s.terminated(ctx, err)
			return nil
		}
		switch message.Action {
		case protocol.ActionRun:
			reply := s.execute(ctx, message)
			if err = protocol.Write(conn, reply); err != nil {
				s.terminated(ctx, err)
				return nil
			}
			if reply.Action == protocol.ActionResult {
				s.logger.Info("Sent result for %v", message.Parameters)
			}
		case protocol.ActionDone:
		default:
			s.logger.Debug("Ignoring %v message", message.Action)
		}
	}
}

func (s *Service) execute(ctx context.Context, message *protocol.Message) *protocol.Message {
	s.logger.Info("Received parameters: %v", message.Parameters)
	output, err := s.executor.Execute(ctx, message.Parameters)
	if err != nil {
		s.logger.Error("Task failed: %v", err)
		return protocol.NewError(err.Error())
	}
	return protocol.NewResult(output)
}

// receive blocks until one complete message is decoded.
func (s *Service) receive(conn net.Conn, decoder *protocol.Decoder) (*protocol.Message, error) {
	for {
		message, err := decoder.Next()
		if err != nil || message != nil {
			return message, err
		}
		if _, err = decoder.ReadFrom(conn); err != nil {
			if message, nextErr := decoder.Next(); message != nil || nextErr != nil {
				return message, nextErr
			}
			return nil, err
		}
	}
}

func (s *Service) terminated(ctx context.Context, err error) {
	switch {
	case ctx.Err() != nil:
		s.logger.Info("Worker stopped")
	case isDisconnect(err):
		s.logger.Info("Coordinator closed the connection")
	default:
		s.logger.Warning("Connection lost: %v", err)
	}
}

// Close closes the connection; it is safe to call more than once.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

func isDisconnect(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}
