package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/parally/model"
)

func parameters() []model.ParameterSet {
	return []model.ParameterSet{{"a": 1, "b": 2}, {"a": 3, "b": 4}, {"a": 5, "b": 6}}
}

func TestParseMode(t *testing.T) {
	var testCases = []struct {
		input     string
		expect    string
		expectErr bool
	}{
		{input: "", expect: ModeFIFO},
		{input: "FIFO", expect: ModeFIFO},
		{input: " random ", expect: ModeRandom},
		{input: "lifo", expectErr: true},
	}
	for _, testCase := range testCases {
		actual, err := ParseMode(testCase.input)
		if testCase.expectErr {
			assert.Error(t, err, testCase.input)
			continue
		}
		assert.Equal(t, testCase.expect, actual, testCase.input)
	}
	assert.Error(t, (&Config{Mode: "x"}).Validate())
	assert.NoError(t, (*Config)(nil).Validate())
}

func TestPending_FIFO(t *testing.T) {
	pending, err := NewPending(nil, parameters())
	require.NoError(t, err)
	assert.Equal(t, ModeFIFO, pending.Mode())

	var slots []int
	for {
		assignment, ok := pending.Next()
		if !ok {
			break
		}
		slots = append(slots, assignment.Slot)
		for _, item := range pending.Snapshot() {
			assert.False(t, model.Equal(item, assignment.Parameters), "in-flight set must not stay pending")
		}
	}
	assert.Equal(t, []int{0, 1, 2}, slots)
	assert.Equal(t, 0, pending.Len())
}

func TestPending_Random(t *testing.T) {
	pending, err := NewPending(&Config{Mode: ModeRandom}, parameters(), WithRandom(func(n int) int { return n - 1 }))
	require.NoError(t, err)
	var slots []int
	for pending.Len() > 0 {
		assignment, ok := pending.Next()
		require.True(t, ok)
		slots = append(slots, assignment.Slot)
	}
	assert.Equal(t, []int{2, 1, 0}, slots)
}

func TestPending_Remove(t *testing.T) {
	pending, err := NewPending(nil, parameters())
	require.NoError(t, err)
	assert.True(t, pending.Remove(1))
	assert.False(t, pending.Remove(1))
	assert.Equal(t, 2, pending.Len())
	assignment, _ := pending.Next()
	assert.Equal(t, 0, assignment.Slot)
	assignment, _ = pending.Next()
	assert.Equal(t, 2, assignment.Slot)
}

func TestNewPending_InvalidMode(t *testing.T) {
	_, err := NewPending(&Config{Mode: "weighted"}, parameters())
	assert.Error(t, err)
}

func TestPending_RemoveAssigned(t *testing.T) {
	for _, mode := range []string{ModeFIFO, ModeRandom} {
		pending, err := NewPending(&Config{Mode: mode}, parameters())
		require.NoError(t, err)
		assignment, ok := pending.Next()
		require.True(t, ok)
		assert.False(t, pending.Remove(assignment.Slot), mode)
		assert.Equal(t, 2, pending.Len(), mode)
	}
}
