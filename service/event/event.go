package event

import (
	"time"

	"github.com/viant/parally/internal/clock"
)

// Context describes where an event originated.
type Context struct {
	Session   string `json:"session"`
	Worker    string `json:"worker,omitempty"`
	EventType string `json:"eventType"`
	Service   string `json:"service"`
}

type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: clock.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
