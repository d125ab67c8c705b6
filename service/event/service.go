package event

import (
	"context"
	"reflect"
	"sync"

	"github.com/viant/parally/service/messaging/memory"
)

// Service keeps one publisher and at most one listener per event payload type.
type Service struct {
	publishers  map[reflect.Type]any
	listeners   map[reflect.Type]any
	stoppers    []func()
	mux         sync.RWMutex
	queueConfig memory.Config
}

func New(opts ...Option) *Service {
	ret := &Service{
		publishers:  make(map[reflect.Type]any),
		listeners:   make(map[reflect.Type]any),
		queueConfig: memory.Config{QueueBuffer: 1024},
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func keyOf[T any]() reflect.Type {
	rType := reflect.TypeOf((*T)(nil)).Elem()
	if rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	return rType
}

// PublisherOf returns a publisher for the provided type
func PublisherOf[T any](s *Service) *Publisher[T] {
	key := keyOf[T]()
	s.mux.Lock()
	defer s.mux.Unlock()
	if ret, ok := s.publishers[key]; ok {
		return ret.(*Publisher[T])
	}
	publisher := NewPublisher[T](memory.NewQueue[Event[T]](s.queueConfig))
	s.publishers[key] = publisher
	return publisher
}

// SetListenerOf replaces the listener of type T and starts it
func SetListenerOf[T any](ctx context.Context, s *Service, handler func(*Event[T])) {
	key := keyOf[T]()
	s.mux.RLock()
	prev, ok := s.listeners[key]
	s.mux.RUnlock()
	if ok {
		prev.(*Listener[T]).Stop()
	}
	listener := NewListener[T](PublisherOf[T](s), handler)
	s.mux.Lock()
	s.listeners[key] = listener
	s.stoppers = append(s.stoppers, listener.Stop)
	s.mux.Unlock()
	listener.Start(ctx)
}

// Close stops every listener
func (s *Service) Close() {
	s.mux.Lock()
	stoppers := s.stoppers
	s.stoppers = nil
	s.mux.Unlock()
	for _, stop := range stoppers {
		stop()
	}
}
