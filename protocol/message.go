package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/viant/parally/model"
)

// Action discriminates control messages.
type Action string

const (
	ActionReady    Action = "ready"
	ActionRun      Action = "run"
	ActionResult   Action = "result"
	ActionError    Action = "error"
	ActionDone     Action = "done"
	ActionReceived Action = "received"
)

var (
	// ErrInvalidMessage is returned for frames that are not a JSON message.
	ErrInvalidMessage = errors.New("protocol: invalid message")
	// ErrUnknownAction is returned for well-formed frames with an unsupported action.
	ErrUnknownAction = errors.New("protocol: unknown action")
)

// Known reports whether the action is part of the protocol.
func (a Action) Known() bool {
	switch a {
	case ActionReady, ActionRun, ActionResult, ActionError, ActionDone, ActionReceived:
		return true
	}
	return false
}

// Message is a single control message.
type Message struct {
	Action     Action             `json:"action"`
	Parameters model.ParameterSet `json:"parameters,omitempty"`
	Data       interface{}        `json:"data,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// NewReady creates a worker readiness message.
func NewReady() *Message { return &Message{Action: ActionReady} }

// NewDone creates a coordinator acknowledgement.
func NewDone() *Message { return &Message{Action: ActionDone} }

// NewRun creates a task assignment.
func NewRun(parameters model.ParameterSet) *Message {
	return &Message{Action: ActionRun, Parameters: parameters}
}

// NewResult creates a successful task outcome.
func NewResult(data interface{}) *Message {
	return &Message{Action: ActionResult, Data: data}
}

// NewError creates a failed task outcome.
func NewError(message string) *Message {
	return &Message{Action: ActionError, Error: message}
}

// MarshalJSON emits only the payload field that belongs to the action.
func (m Message) MarshalJSON() ([]byte, error) {
	switch m.Action {
	case ActionRun:
		parameters := m.Parameters
		if parameters == nil {
			parameters = model.ParameterSet{}
		}
		return json.Marshal(struct {
			Action     Action             `json:"action"`
			Parameters model.ParameterSet `json:"parameters"`
		}{m.Action, parameters})
	case ActionResult:
		return json.Marshal(struct {
			Action Action      `json:"action"`
			Data   interface{} `json:"data"`
		}{m.Action, m.Data})
	case ActionError:
		return json.Marshal(struct {
			Action Action `json:"action"`
			Error  string `json:"error"`
		}{m.Action, m.Error})
	}
	return json.Marshal(struct {
		Action Action `json:"action"`
	}{m.Action})
}

// Encode returns the wire form of a message.
func Encode(message *Message) ([]byte, error) {
	if message == nil {
		return nil, fmt.Errorf("%w: nil message", ErrInvalidMessage)
	}
	if !message.Action.Known() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, message.Action)
	}
	return json.Marshal(message)
}

// Decode parses a single complete frame.
func Decode(data []byte) (*Message, error) {
	message := &Message{}
	if err := json.Unmarshal(data, message); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if !message.Action.Known() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, message.Action)
	}
	return message, nil
}

// Write encodes the message and writes it to w in a single call.
func Write(w io.Writer, message *Message) error {
	data, err := Encode(message)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// IsProtocolError reports whether err originates from a malformed frame.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrInvalidMessage) || errors.Is(err, ErrUnknownAction)
}
