package acceptor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/viant/parally/internal/clock"
	"github.com/viant/parally/logs"
	"github.com/viant/parally/service/messaging"
)

// Connection is an accepted worker connection keyed by its remote address.
type Connection struct {
	Conn    net.Conn
	Address string
}

// Config represents acceptor configuration
type Config struct {
	// AcceptTimeout bounds a single accept call so that cancellation is noticed
	AcceptTimeout time.Duration `json:"acceptTimeout,omitempty" yaml:"acceptTimeout,omitempty"`
	// RetryDelay is the pause after an unexpected accept error
	RetryDelay time.Duration `json:"retryDelay,omitempty" yaml:"retryDelay,omitempty"`
}

// DefaultConfig returns the default acceptor configuration
func DefaultConfig() Config {
	return Config{
		AcceptTimeout: time.Second,
		RetryDelay:    10 * time.Millisecond,
	}
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

// Service accepts connections until its context is done or the listener closes
type Service struct {
	config   Config
	listener net.Listener
	queue    messaging.Queue[Connection]
	logger   *logs.Logs
	known    map[string]bool
}

// New creates an acceptor
func New(listener net.Listener, queue messaging.Queue[Connection], logger *logs.Logs, config Config) *Service {
	defaults := DefaultConfig()
	if config.AcceptTimeout <= 0 {
		config.AcceptTimeout = defaults.AcceptTimeout
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaults.RetryDelay
	}
	if logger == nil {
		logger = logs.New()
	}
	return &Service{
		config:   config,
		listener: listener,
		queue:    queue,
		logger:   logger,
		known:    map[string]bool{},
	}
}

// Start runs the accept loop; it returns nil on cancellation or when the
// listener is closed.
func (s *Service) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if d, ok := s.listener.(deadliner); ok {
			if err := d.SetDeadline(clock.Now().Add(s.config.AcceptTimeout)); err != nil {
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				return fmt.Errorf("failed to set accept deadline: %w", err)
			}
		}
		conn, err := s.listener.Accept()
		if err != nil {
			var netErr net.Error
			switch {
			case errors.As(err, &netErr) && netErr.Timeout():
			case errors.Is(err, net.ErrClosed):
				return nil
			case errors.Is(err, syscall.ECONNABORTED):
			default:
				s.logger.Warning("Accept failed: %v", err)
				time.Sleep(s.config.RetryDelay)
			}
			continue
		}
		if err = s.handle(ctx, conn); err != nil {
			return nil
		}
	}
}

func (s *Service) handle(ctx context.Context, conn net.Conn) error {
	address := conn.RemoteAddr().String()
	if s.known[address] {
		s.logger.Warning("Duplicate connection from %v ignored", address)
		_ = conn.Close()
		return nil
	}
	if err := s.queue.Publish(ctx, &Connection{Conn: conn, Address: address}); err != nil {
		_ = conn.Close()
		return err
	}
	s.known[address] = true
	return nil
}
