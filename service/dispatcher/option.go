package dispatcher

import (
	"github.com/viant/parally/logs"
	"github.com/viant/parally/model"
	"github.com/viant/parally/policy"
	"github.com/viant/parally/progress"
	"github.com/viant/parally/runtime/aggregate"
	"github.com/viant/parally/service/acceptor"
	"github.com/viant/parally/service/dao"
	"github.com/viant/parally/service/dao/result"
	"github.com/viant/parally/service/messaging"
)

type Option func(*Service)

// WithConfig sets the configuration for the service
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithQueue sets the queue accepted connections arrive on
func WithQueue(queue messaging.Poller[acceptor.Connection]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithPending sets the pending parameter sets
func WithPending(pending *policy.Pending) Option {
	return func(s *Service) {
		s.pending = pending
	}
}

// WithGroup sets the result aggregator
func WithGroup(group *aggregate.Group) Option {
	return func(s *Service) {
		s.group = group
	}
}

// WithCallbacks sets the completion and error callbacks
func WithCallbacks(onCompleted model.Callback, onError model.ErrorCallback) Option {
	return func(s *Service) {
		s.onCompleted = onCompleted
		s.onError = onError
	}
}

// WithLogger sets the coordinator log
func WithLogger(logger *logs.Logs) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithProgress sets the progress tracker
func WithProgress(tracker *progress.Progress) Option {
	return func(s *Service) {
		s.progress = tracker
	}
}

// WithJournal sets the result journal
func WithJournal(journal dao.Service[string, result.Record]) Option {
	return func(s *Service) {
		s.journal = journal
	}
}

// WithSession sets the session identifier recorded in the journal
func WithSession(session string) Option {
	return func(s *Service) {
		s.session = session
	}
}
