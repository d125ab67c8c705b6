package protocol

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoder_Partial(t *testing.T) {
	decoder := NewDecoder(0)
	frame := `{"action":"result","data":{"sum":11}}`
	decoder.Feed([]byte(frame[:10]))
	message, err := decoder.Next()
	require.NoError(t, err)
	assert.Nil(t, message)
	assert.Equal(t, 10, decoder.Buffered())

	decoder.Feed([]byte(frame[10:]))
	message, err = decoder.Next()
	require.NoError(t, err)
	require.NotNil(t, message)
	assert.Equal(t, ActionResult, message.Action)
	assert.Equal(t, map[string]interface{}{"sum": float64(11)}, message.Data)
	assert.Equal(t, 0, decoder.Buffered())
}

func TestDecoder_MultipleFrames(t *testing.T) {
	decoder := NewDecoder(0)
	decoder.Feed([]byte(`{"action":"ready"}{"action":"result","data":3}{"action":"err`))

	var actions []Action
	for {
		message, err := decoder.Next()
		require.NoError(t, err)
		if message == nil {
			break
		}
		actions = append(actions, message.Action)
	}
	assert.Equal(t, []Action{ActionReady, ActionResult}, actions)
	assert.Equal(t, len(`{"action":"err`), decoder.Buffered())

	decoder.Feed([]byte(`or","error":"bad"}`))
	message, err := decoder.Next()
	require.NoError(t, err)
	require.NotNil(t, message)
	assert.Equal(t, "bad", message.Error)
}

func TestDecoder_Invalid(t *testing.T) {
	decoder := NewDecoder(0)
	decoder.Feed([]byte(`{"action":}`))
	message, err := decoder.Next()
	assert.Nil(t, message)
	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.Equal(t, 0, decoder.Buffered())

	decoder.Feed([]byte(`{"action":"fly"}`))
	_, err = decoder.Next()
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestDecoder_MaxFrameSize(t *testing.T) {
	decoder := NewDecoder(0).WithMaxFrameSize(16)
	decoder.Feed([]byte(`{"action":"result","data":"` + strings.Repeat("x", 32)))
	_, err := decoder.Next()
	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.Equal(t, 0, decoder.Buffered())
}

func TestDecoder_ReadFrom(t *testing.T) {
	decoder := NewDecoder(8)
	reader := bytes.NewReader([]byte(`{"action":"done"}`))
	var message *Message
	for message == nil {
		n, err := decoder.ReadFrom(reader)
		require.NoError(t, err)
		assert.LessOrEqual(t, n, 8)
		message, err = decoder.Next()
		require.NoError(t, err)
	}
	assert.Equal(t, ActionDone, message.Action)
}
