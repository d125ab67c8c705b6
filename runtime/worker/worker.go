package worker

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/viant/parally/internal/clock"
	"github.com/viant/parally/internal/idgen"
	"github.com/viant/parally/model"
	"github.com/viant/parally/protocol"
)

// State is a worker record lifecycle state.
type State string

const (
	StateIdle     State = "idle"
	StateAssigned State = "assigned"
	StateRunning  State = "running"
	StateDone     State = "done"
)

var (
	// ErrConnectionClosed is reported when the peer closed its connection.
	ErrConnectionClosed = errors.New("worker: connection closed")
	// ErrInvalidState is returned when an operation does not fit the current state.
	ErrInvalidState = errors.New("worker: invalid state")
)

// TaskError carries the error message a worker reported for its task.
type TaskError struct {
	Message string
}

func (e *TaskError) Error() string { return e.Message }

// Worker is the coordinator side record of a single worker connection. It
// is owned by one goroutine and is not safe for concurrent use.
type Worker struct {
	ID         string
	Address    string
	conn       net.Conn
	decoder    *protocol.Decoder
	state      State
	assignment *model.Assignment
	output     interface{}
	err        error
	closed     bool

	writeTimeout time.Duration
	assignedAt   time.Time
	startedAt    time.Time
}

// Option customises a worker record.
type Option func(w *Worker)

// WithBufferSize sets the per read buffer size.
func WithBufferSize(size int) Option {
	return func(w *Worker) { w.decoder = protocol.NewDecoder(size) }
}

// WithWriteTimeout bounds every send; zero disables the deadline.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(w *Worker) { w.writeTimeout = timeout }
}

// New creates an idle record for conn.
func New(conn net.Conn, address string, options ...Option) *Worker {
	if address == "" && conn != nil {
		address = conn.RemoteAddr().String()
	}
	ret := &Worker{
		ID:      idgen.WithPrefix("worker"),
		Address: address,
		conn:    conn,
		state:   StateIdle,
	}
	for _, opt := range options {
		opt(ret)
	}
	if ret.decoder == nil {
		ret.decoder = protocol.NewDecoder(protocol.DefaultBufferSize)
	}
	return ret
}

// State returns the lifecycle state.
func (w *Worker) State() State { return w.state }

// Assignment returns the assigned parameter set, nil when idle.
func (w *Worker) Assignment() *model.Assignment { return w.assignment }

// Closed reports whether the peer closed the connection.
func (w *Worker) Closed() bool { return w.closed }

// Outcome returns the task output or error once the record is done.
func (w *Worker) Outcome() (interface{}, error) { return w.output, w.err }

// Elapsed returns time since the task was sent.
func (w *Worker) Elapsed() time.Duration {
	if w.startedAt.IsZero() {
		return 0
	}
	return clock.Now().Sub(w.startedAt)
}

// Assign moves an idle record to assigned.
func (w *Worker) Assign(assignment *model.Assignment) error {
	if assignment == nil {
		return nil
	}
	if w.state != StateIdle || w.closed {
		return fmt.Errorf("%w: cannot assign in %v", ErrInvalidState, w.state)
	}
	w.assignment = assignment
	w.state = StateAssigned
	w.assignedAt = clock.Now()
	return nil
}

// Run sends the assigned parameter set. A send that timed out leaves the
// record assigned so that it is retried; a broken connection completes the
// task with ErrConnectionClosed.
func (w *Worker) Run() error {
	if w.state != StateAssigned {
		return fmt.Errorf("%w: cannot run in %v", ErrInvalidState, w.state)
	}
	if err := w.send(protocol.NewRun(w.assignment.Parameters)); err != nil {
		if isTimeout(err) {
			return err
		}
		w.fail(err)
		return err
	}
	w.state = StateRunning
	w.startedAt = clock.Now()
	return nil
}

// Poll performs at most one read bounded by timeout and applies every
// complete message. It returns true once the record is done.
func (w *Worker) Poll(timeout time.Duration) (bool, error) {
	if w.state != StateRunning {
		return w.state == StateDone, nil
	}
	if done, err := w.drain(); done || err != nil {
		return done, err
	}
	if timeout > 0 {
		if err := w.conn.SetReadDeadline(clock.Now().Add(timeout)); err != nil {
			w.fail(err)
			return true, w.err
		}
	}
	n, err := w.decoder.ReadFrom(w.conn)
	if n > 0 {
		if done, decodeErr := w.drain(); done || decodeErr != nil {
			return done, decodeErr
		}
	}
	if err != nil {
		if isTimeout(err) {
			return false, nil
		}
		w.fail(err)
		return true, w.err
	}
	return false, nil
}

func (w *Worker) drain() (bool, error) {
	for {
		message, err := w.decoder.Next()
		if err != nil {
			w.state = StateDone
			w.err = err
			return true, nil
		}
		if message == nil {
			return false, nil
		}
		switch message.Action {
		case protocol.ActionResult:
			w.output = message.Data
			w.state = StateDone
			return true, nil
		case protocol.ActionError:
			w.err = &TaskError{Message: message.Error}
			w.state = StateDone
			return true, nil
		case protocol.ActionReady, protocol.ActionReceived, protocol.ActionDone:
		default:
			w.err = fmt.Errorf("%w: unexpected %q from worker", protocol.ErrInvalidMessage, message.Action)
			w.state = StateDone
			return true, nil
		}
	}
}

// Acknowledge sends the done message after the outcome was consumed.
func (w *Worker) Acknowledge() error {
	if w.closed {
		return ErrConnectionClosed
	}
	err := w.send(protocol.NewDone())
	if err != nil && !isTimeout(err) {
		w.closed = true
	}
	return err
}

// Reset returns the record to idle, keeping connection and address.
func (w *Worker) Reset() {
	w.state = StateIdle
	w.assignment = nil
	w.output = nil
	w.err = nil
	w.assignedAt = time.Time{}
	w.startedAt = time.Time{}
	// complete frames are stale; an incomplete trailing frame is kept
	for {
		message, err := w.decoder.Next()
		if err != nil || message == nil {
			return
		}
	}
}

// Close closes the underlying connection.
func (w *Worker) Close() error {
	w.closed = true
	if w.conn == nil {
		return nil
	}
	return w.conn.Close()
}

func (w *Worker) send(message *protocol.Message) error {
	if w.closed {
		return ErrConnectionClosed
	}
	if w.writeTimeout > 0 {
		if err := w.conn.SetWriteDeadline(clock.Now().Add(w.writeTimeout)); err != nil {
			return err
		}
	}
	return protocol.Write(w.conn, message)
}

// fail completes the in-flight task after a transport error; the
// connection is unusable afterwards.
func (w *Worker) fail(err error) {
	if isClosed(err) {
		err = fmt.Errorf("%w: %v: %v", ErrConnectionClosed, w.Address, err)
	}
	w.err = err
	w.state = StateDone
	w.closed = true
	if w.conn != nil {
		_ = w.conn.Close()
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}
