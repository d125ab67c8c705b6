package logs

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/parally/internal/clock"
)

func TestLogs(t *testing.T) {
	prev := clock.NowFunc
	defer func() { clock.NowFunc = prev }()
	clock.NowFunc = func() time.Time { return time.Date(2024, 1, 2, 13, 4, 5, 0, time.UTC) }

	var received []Record
	buffer := &bytes.Buffer{}
	logger := New(WithWriter(buffer), WithListener(func(record Record) { received = append(received, record) }))

	logger.Info("Connection from %v", "127.0.0.1:5000")
	logger.Error("boom")
	logger.Warning("careful")
	logger.Debug("trace %d", 1)
	logger.Output([]interface{}{1, "a"})
	logger.Output("plain")

	records := logger.Records()
	require.Len(t, records, 6)
	assert.Equal(t, Record{Timestamp: "13:04:05", Type: TypeInfo, Message: "Connection from 127.0.0.1:5000"}, records[0])
	assert.Equal(t, TypeError, records[1].Type)
	assert.Equal(t, TypeWarning, records[2].Type)
	assert.Equal(t, "trace 1", records[3].Message)
	assert.Equal(t, `[1,"a"]`, records[4].Message)
	assert.Equal(t, "plain", records[5].Message)
	assert.Equal(t, records, received)
	assert.Equal(t, "", buffer.String(), "non verbose log should not render")

	logger.Clear()
	assert.Equal(t, 0, logger.Len())
}

func TestLogs_Verbose(t *testing.T) {
	buffer := &bytes.Buffer{}
	logger := New(WithWriter(buffer), WithVerbose(true))
	logger.Info("hello")
	output := buffer.String()
	assert.True(t, strings.Contains(output, "info->"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(output), "hello"))
}

func TestRecord_String(t *testing.T) {
	record := Record{Timestamp: "10:00:00", Type: TypeDebug, Message: "x"}
	assert.Equal(t, "10:00:00: debug-> x", record.String())
}
