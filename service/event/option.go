package event

import "github.com/viant/parally/service/messaging/memory"

type Option func(s *Service)

// WithQueueConfig sets the memory queue configuration used for every event type
func WithQueueConfig(config memory.Config) Option {
	return func(s *Service) {
		s.queueConfig = config
	}
}
