package logs

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/viant/parally/internal/clock"
)

// Type classifies a log record.
type Type string

const (
	TypeInfo    Type = "info"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeDebug   Type = "debug"
	TypeOutput  Type = "output"
)

// Record is a single log entry.
type Record struct {
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Type      Type   `json:"type" yaml:"type"`
	Message   string `json:"message" yaml:"message"`
}

// String returns the plain rendering of the record.
func (r Record) String() string {
	return fmt.Sprintf("%s: %s-> %s", r.Timestamp, r.Type, r.Message)
}

var styles = map[Type]lipgloss.Style{
	TypeInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	TypeError:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	TypeWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	TypeDebug:   lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
	TypeOutput:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
}

var timestampStyle = lipgloss.NewStyle().Faint(true)

// Logs is a concurrency safe, append-only log.
type Logs struct {
	mu        sync.Mutex
	records   []Record
	verbose   bool
	writer    io.Writer
	listeners []func(Record)
}

// Option customises Logs.
type Option func(l *Logs)

// WithVerbose enables rendering of every record to the writer.
func WithVerbose(verbose bool) Option {
	return func(l *Logs) { l.verbose = verbose }
}

// WithWriter sets the verbose writer, os.Stdout by default.
func WithWriter(w io.Writer) Option {
	return func(l *Logs) {
		if w != nil {
			l.writer = w
		}
	}
}

// WithListener registers a function notified with every appended record.
func WithListener(fn func(Record)) Option {
	return func(l *Logs) {
		if fn != nil {
			l.listeners = append(l.listeners, fn)
		}
	}
}

// New creates a log.
func New(options ...Option) *Logs {
	ret := &Logs{writer: os.Stdout}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// SetVerbose toggles verbose rendering.
func (l *Logs) SetVerbose(verbose bool) {
	l.mu.Lock()
	l.verbose = verbose
	l.mu.Unlock()
}

// AddListener registers a record listener.
func (l *Logs) AddListener(fn func(Record)) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
}

func (l *Logs) Info(format string, args ...interface{}) {
	l.append(TypeInfo, fmt.Sprintf(format, args...))
}

func (l *Logs) Error(format string, args ...interface{}) {
	l.append(TypeError, fmt.Sprintf(format, args...))
}

func (l *Logs) Warning(format string, args ...interface{}) {
	l.append(TypeWarning, fmt.Sprintf(format, args...))
}

func (l *Logs) Debug(format string, args ...interface{}) {
	l.append(TypeDebug, fmt.Sprintf(format, args...))
}

// Output records a value produced by the system; non string values are
// rendered as JSON.
func (l *Logs) Output(value interface{}) {
	var message string
	switch actual := value.(type) {
	case string:
		message = actual
	case []byte:
		message = string(actual)
	default:
		if data, err := json.Marshal(value); err == nil {
			message = string(data)
		} else {
			message = fmt.Sprintf("%v", value)
		}
	}
	l.append(TypeOutput, message)
}

// Records returns a copy of all records.
func (l *Logs) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.records...)
}

// Len returns the number of records.
func (l *Logs) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Clear removes all records.
func (l *Logs) Clear() {
	l.mu.Lock()
	l.records = nil
	l.mu.Unlock()
}

func (l *Logs) append(kind Type, message string) {
	if l == nil {
		return
	}
	record := Record{Timestamp: clock.Stamp(), Type: kind, Message: message}
	l.mu.Lock()
	l.records = append(l.records, record)
	verbose := l.verbose
	writer := l.writer
	listeners := l.listeners
	if verbose {
		fmt.Fprintln(writer, render(record))
	}
	l.mu.Unlock()
	for _, listener := range listeners {
		listener(record)
	}
}

func render(record Record) string {
	style, ok := styles[record.Type]
	if !ok {
		style = lipgloss.NewStyle()
	}
	return timestampStyle.Render(record.Timestamp) + ": " + style.Render(string(record.Type)+"->") + " " + record.Message
}
