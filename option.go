package parally

import (
	"io"

	"github.com/viant/afs/storage"
	"github.com/viant/parally/logs"
	"github.com/viant/parally/progress"
	"github.com/viant/parally/service/acceptor"
	"github.com/viant/parally/service/client"
	"github.com/viant/parally/service/dao"
	"github.com/viant/parally/service/dao/result"
	"github.com/viant/parally/service/dao/result/fs"
	"github.com/viant/parally/service/dispatcher"
	"github.com/viant/parally/service/event"
	"github.com/viant/parally/service/executor"
	"github.com/viant/parally/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises a Server
type Option func(s *Server)

// WithVerbose enables rendering of the coordinator log
func WithVerbose(verbose bool) Option {
	return func(s *Server) {
		s.verbose = verbose
	}
}

// WithLogWriter sets the writer verbose log records are rendered to
func WithLogWriter(w io.Writer) Option {
	return func(s *Server) {
		s.logWriter = w
	}
}

// WithPolicy sets the assignment mode, fifo or random
func WithPolicy(mode string) Option {
	return func(s *Server) {
		s.policy.Mode = mode
	}
}

// WithRandom replaces the random index source used by the random policy
func WithRandom(intn func(n int) int) Option {
	return func(s *Server) {
		s.intn = intn
	}
}

// WithDispatcherConfig sets the scheduling loop configuration
func WithDispatcherConfig(config dispatcher.Config) Option {
	return func(s *Server) {
		s.dispatcherConfig = config
	}
}

// WithAcceptorConfig sets the accept loop configuration
func WithAcceptorConfig(config acceptor.Config) Option {
	return func(s *Server) {
		s.acceptorConfig = config
	}
}

// WithSession sets the session identifier, a generated one is used otherwise
func WithSession(session string) Option {
	return func(s *Server) {
		s.session = session
	}
}

// WithResultDAO sets the result journal
func WithResultDAO(journal dao.Service[string, result.Record]) Option {
	return func(s *Server) {
		s.journal = journal
	}
}

// WithJournalURL persists result records as JSON files under URL
func WithJournalURL(URL string) Option {
	return func(s *Server) {
		journal, err := fs.New(URL)
		if err != nil {
			s.optionErr = err
			return
		}
		s.journal = journal
	}
}

// WithProgressListener sets a function notified on every progress change
func WithProgressListener(listener func(progress.Progress)) Option {
	return func(s *Server) {
		s.progressListener = listener
	}
}

// WithLogListener streams every coordinator log record through the event
// service to listener
func WithLogListener(listener func(logs.Record)) Option {
	return func(s *Server) {
		s.logListener = listener
	}
}

// WithEventService sets the event service log records are published on
func WithEventService(service *event.Service) Option {
	return func(s *Server) {
		s.events = service
	}
}

// WithMetaBaseURL sets the base URL relative parameter locations resolve against
func WithMetaBaseURL(URL string) Option {
	return func(s *Server) {
		s.metaBaseURL = URL
	}
}

// WithMetaFsOptions sets the storage options used to load parameter documents
func WithMetaFsOptions(options ...storage.Option) Option {
	return func(s *Server) {
		s.metaFsOptions = options
	}
}

// WithTracing configures OpenTelemetry tracing. If outputFile is empty the
// stdout exporter is used; the first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Server) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing with a custom exporter.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Server) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}

// ClientOption customises a Client
type ClientOption func(c *Client)

// WithClientVerbose enables rendering of the worker log
func WithClientVerbose(verbose bool) ClientOption {
	return func(c *Client) {
		c.verbose = verbose
	}
}

// WithClientLogWriter sets the writer verbose log records are rendered to
func WithClientLogWriter(w io.Writer) ClientOption {
	return func(c *Client) {
		c.logWriter = w
	}
}

// WithClientConfig sets the worker runtime configuration
func WithClientConfig(config client.Config) ClientOption {
	return func(c *Client) {
		c.config = config
	}
}

// WithExecutorOptions supplies additional options passed to executor.NewService
func WithExecutorOptions(options ...executor.Option) ClientOption {
	return func(c *Client) {
		c.executorOptions = append(c.executorOptions, options...)
	}
}

// WithClientTracing configures OpenTelemetry tracing for the worker.
func WithClientTracing(serviceName, serviceVersion, outputFile string) ClientOption {
	return func(c *Client) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}
