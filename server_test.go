package parally_test

import (
	"context"
	"embed"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "github.com/viant/afs/embed"
	"github.com/viant/parally"
	"github.com/viant/parally/logs"
	"github.com/viant/parally/model"
	"github.com/viant/parally/policy"
	"github.com/viant/parally/progress"
	"github.com/viant/parally/service/acceptor"
	"github.com/viant/parally/service/executor"
)

//go:embed testdata/*
var embedFS embed.FS

func freePort(t *testing.T) int {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port
}

func add(_ context.Context, parameters model.ParameterSet) (interface{}, error) {
	a, okA := parameters["a"].(float64)
	b, okB := parameters["b"].(float64)
	if !okA || !okB {
		return nil, errors.New("unsupported operand type(s) for +")
	}
	return a + b, nil
}

type collector struct {
	mu        sync.Mutex
	completed []model.Results
	errors    []string
}

func (c *collector) onCompleted(results model.Results) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed = append(c.completed, results)
}

func (c *collector) onError(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, message)
}

func fastOptions() []parally.Option {
	return []parally.Option{
		parally.WithAcceptorConfig(acceptor.Config{AcceptTimeout: 20 * time.Millisecond}),
		parally.WithSession("test"),
	}
}

func startWorker(t *testing.T, port int, task model.Task) {
	worker, err := parally.NewClient("127.0.0.1", port, task)
	require.NoError(t, err)
	go func() { _ = worker.Start(context.Background()) }()
}

func hasMessage(records []logs.Record, kind logs.Type, fragment string) bool {
	for _, record := range records {
		if record.Type == kind && strings.Contains(record.Message, fragment) {
			return true
		}
	}
	return false
}

func TestServer_Scenario(t *testing.T) {
	port := freePort(t)
	var mu sync.Mutex
	var snapshots []progress.Progress
	srv := parally.NewServer("127.0.0.1", port, append(fastOptions(), parally.WithProgressListener(func(p progress.Progress) {
		mu.Lock()
		snapshots = append(snapshots, p)
		mu.Unlock()
	}))...)
	defer srv.Close()
	c := &collector{}
	require.NoError(t, srv.BindParameters([]map[string]interface{}{{"a": 1, "b": 2}, {"a": 3, "b": 4}, {"a": 5, "b": 6}}))
	require.NoError(t, srv.OnCompleted(c.onCompleted))
	require.NoError(t, srv.OnError(c.onError))
	ctx := context.Background()
	require.NoError(t, srv.Start(ctx))
	assert.True(t, srv.Running())

	startWorker(t, port, add)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Wait(waitCtx))
	assert.False(t, srv.Running())

	c.mu.Lock()
	require.Len(t, c.completed, 1)
	assert.Empty(t, c.errors)
	results := c.completed[0]
	c.mu.Unlock()
	require.Len(t, results, 3)
	for input, expect := range map[int]float64{1: 3, 3: 7, 5: 11} {
		entry := results.Lookup(model.ParameterSet{"a": input, "b": input + 1})
		require.NotNil(t, entry)
		assert.EqualValues(t, expect, entry.Output)
	}
	assert.Equal(t, results, srv.Results())
	assert.Empty(t, srv.Stalled())
	assert.True(t, srv.Progress().Finished())

	records, err := srv.Journal().List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	logRecords := srv.Logs()
	assert.True(t, hasMessage(logRecords, logs.TypeInfo, "All tasks completed."))
	assert.True(t, hasMessage(logRecords, logs.TypeInfo, "Stopping server..."))
	assert.True(t, hasMessage(logRecords, logs.TypeOutput, `"output":3`))
	srv.ClearLogs()
	assert.Empty(t, srv.Logs())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, snapshots)
	assert.Equal(t, 3, snapshots[len(snapshots)-1].Completed)
}

func TestServer_TaskError(t *testing.T) {
	port := freePort(t)
	srv := parally.NewServer("127.0.0.1", port, fastOptions()...)
	defer srv.Close()
	c := &collector{}
	require.NoError(t, srv.BindParameters([]interface{}{
		map[string]interface{}{"a": 1, "b": 2},
		map[string]interface{}{"a": "x", "b": 2},
		map[string]interface{}{"a": 5, "b": 6},
	}))
	require.NoError(t, srv.OnCompleted(c.onCompleted))
	require.NoError(t, srv.OnError(c.onError))
	require.NoError(t, srv.Start(context.Background()))
	startWorker(t, port, add)

	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Wait(waitCtx))

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, []string{"unsupported operand type(s) for +"}, c.errors)
	require.Len(t, c.completed, 1)
	assert.Len(t, c.completed[0], 2)
	assert.Nil(t, c.completed[0].Lookup(model.ParameterSet{"a": "x", "b": 2}))
	assert.Equal(t, []model.ParameterSet{{"a": "x", "b": 2}}, srv.Stalled())
	assert.True(t, hasMessage(srv.Logs(), logs.TypeError, "unsupported operand"))
}

func TestServer_TypedTaskManyWorkers(t *testing.T) {
	type operands struct {
		A float64
		B float64
	}
	sum := executor.Typed(func(ctx context.Context, in operands) (float64, error) {
		return in.A + in.B, nil
	})
	port := freePort(t)
	srv := parally.NewServer("127.0.0.1", port, append(fastOptions(), parally.WithPolicy(policy.ModeRandom))...)
	defer srv.Close()
	var parameters []map[string]interface{}
	for i := 0; i < 12; i++ {
		parameters = append(parameters, map[string]interface{}{"A": i, "B": i})
	}
	c := &collector{}
	require.NoError(t, srv.BindParameters(parameters))
	require.NoError(t, srv.OnCompleted(c.onCompleted))
	require.NoError(t, srv.Start(context.Background()))
	for i := 0; i < 3; i++ {
		startWorker(t, port, sum)
	}
	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Wait(waitCtx))

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.completed, 1)
	require.Len(t, c.completed[0], 12)
	for i := 0; i < 12; i++ {
		entry := c.completed[0].Lookup(model.ParameterSet{"A": i, "B": i})
		require.NotNil(t, entry)
		assert.EqualValues(t, 2*i, entry.Output)
	}
}

func TestServer_ConfigurationErrors(t *testing.T) {
	srv := parally.NewServer("127.0.0.1", freePort(t), fastOptions()...)
	defer srv.Close()
	ctx := context.Background()

	assert.ErrorIs(t, srv.Start(ctx), parally.ErrNoParameters)
	assert.ErrorIs(t, srv.BindParameters("not a list"), parally.ErrNotList)
	assert.ErrorIs(t, srv.BindParameters(map[string]interface{}{"a": 1}), parally.ErrNotList)
	require.NoError(t, srv.BindParameters([]map[string]interface{}{{"a": 1, "b": 2}}))
	assert.ErrorIs(t, srv.BindParameters([]map[string]interface{}{{"a": 3}}), parally.ErrParametersBound)
	assert.ErrorIs(t, srv.Start(ctx), parally.ErrNoCallback)
	assert.ErrorIs(t, srv.OnCompleted(nil), parally.ErrNoCallback)
	assert.ErrorIs(t, srv.OnError(nil), parally.ErrNoErrorCallback)
	_, err := srv.Stop()
	assert.ErrorIs(t, err, parally.ErrNotRunning)
	assert.False(t, srv.Running())
	assert.True(t, hasMessage(srv.Logs(), logs.TypeError, "no parameters bound"))
}

func TestServer_StartStop(t *testing.T) {
	port := freePort(t)
	srv := parally.NewServer("127.0.0.1", port, fastOptions()...)
	defer srv.Close()
	c := &collector{}
	require.NoError(t, srv.BindParameters([]map[string]interface{}{{"a": 1, "b": 2}}))
	require.NoError(t, srv.OnCompleted(c.onCompleted))
	ctx := context.Background()
	require.NoError(t, srv.Start(ctx))
	assert.ErrorIs(t, srv.Start(ctx), parally.ErrAlreadyRunning)
	assert.Equal(t, srv.Addr(), net.JoinHostPort("127.0.0.1", itoa(port)))

	results, err := srv.Stop()
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.False(t, srv.Running())
	select {
	case <-srv.Done():
	default:
		t.Fatal("done channel not closed after stop")
	}
	c.mu.Lock()
	assert.Empty(t, c.completed)
	c.mu.Unlock()
}

func TestServer_Cancel(t *testing.T) {
	srv := parally.NewServer("127.0.0.1", freePort(t), fastOptions()...)
	defer srv.Close()
	c := &collector{}
	require.NoError(t, srv.BindParameters([]map[string]interface{}{{"a": 1, "b": 2}}))
	require.NoError(t, srv.OnCompleted(c.onCompleted))
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, srv.Start(ctx))
	cancel()
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	assert.ErrorIs(t, srv.Wait(waitCtx), context.Canceled)
	assert.False(t, srv.Running())
}

func TestNewServer_Defaults(t *testing.T) {
	var testCases = []struct {
		description string
		host        string
		port        int
		expect      string
		warning     bool
	}{
		{description: "empty host", host: "", port: 6000, expect: "localhost:6000"},
		{description: "port too low", host: "127.0.0.1", port: 80, expect: "127.0.0.1:5000", warning: true},
		{description: "port too high", host: "127.0.0.1", port: 70000, expect: "127.0.0.1:5000", warning: true},
	}
	for _, testCase := range testCases {
		srv := parally.NewServer(testCase.host, testCase.port)
		assert.Equal(t, testCase.expect, srv.Addr(), testCase.description)
		assert.Equal(t, testCase.warning, hasMessage(srv.Logs(), logs.TypeWarning, "Invalid port"), testCase.description)
		assert.NotEmpty(t, srv.Session(), testCase.description)
	}
}

func TestServer_BindParametersFrom(t *testing.T) {
	srv := parally.NewServer("127.0.0.1", freePort(t),
		parally.WithMetaBaseURL("embed:///testdata"),
		parally.WithMetaFsOptions(&embedFS))
	defer srv.Close()
	require.NoError(t, srv.BindParametersFrom(context.Background(), "parameters.yaml"))
	assert.True(t, hasMessage(srv.Logs(), logs.TypeInfo, "Bound 3 parameter sets"))
	assert.Error(t, srv.BindParametersFrom(context.Background(), "missing.yaml"))
}

func TestServer_LogListener(t *testing.T) {
	received := make(chan logs.Record, 16)
	srv := parally.NewServer("127.0.0.1", 80, parally.WithLogListener(func(record logs.Record) {
		received <- record
	}))
	defer srv.Close()
	require.NoError(t, srv.BindParameters([]map[string]interface{}{{"a": 1}}))

	var messages []string
	timeout := time.After(2 * time.Second)
	for len(messages) < 2 {
		select {
		case record := <-received:
			messages = append(messages, record.Message)
		case <-timeout:
			t.Fatalf("log records not streamed, got %v", messages)
		}
	}
	assert.Contains(t, messages[0], "Invalid port 80")
	assert.Contains(t, messages[1], "Bound 1 parameter sets")
}

func TestNewClient(t *testing.T) {
	_, err := parally.NewClient("127.0.0.1", 6000, nil)
	assert.ErrorIs(t, err, parally.ErrNoTask)

	worker, err := parally.NewClient("", 1, add)
	require.NoError(t, err)
	assert.Equal(t, "localhost:5000", worker.Address())
	assert.True(t, hasMessage(worker.Logs(), logs.TypeWarning, "Invalid port"))
	assert.NoError(t, worker.Close())

	port := freePort(t)
	worker, err = parally.NewClient("127.0.0.1", port, add)
	require.NoError(t, err)
	assert.Error(t, worker.Start(context.Background()))
}

func TestServer_StopFromCallback(t *testing.T) {
	var testCases = []struct {
		description string
		parameters  []map[string]interface{}
		fromError   bool
	}{
		{description: "completion callback", parameters: []map[string]interface{}{{"a": 1, "b": 2}}},
		{description: "error callback", parameters: []map[string]interface{}{{"a": "x", "b": 2}, {"a": 3, "b": 4}, {"a": 5, "b": 6}}, fromError: true},
	}
	for _, testCase := range testCases {
		port := freePort(t)
		srv := parally.NewServer("127.0.0.1", port, fastOptions()...)
		returned := make(chan error, 1)
		stop := func() {
			_, err := srv.Stop()
			returned <- err
		}
		require.NoError(t, srv.BindParameters(testCase.parameters), testCase.description)
		if testCase.fromError {
			require.NoError(t, srv.OnCompleted(func(model.Results) {}))
			require.NoError(t, srv.OnError(func(string) { stop() }))
		} else {
			require.NoError(t, srv.OnCompleted(func(model.Results) { stop() }))
		}
		require.NoError(t, srv.Start(context.Background()), testCase.description)
		startWorker(t, port, add)

		select {
		case err := <-returned:
			assert.NoError(t, err, testCase.description)
		case <-time.After(3 * time.Second):
			t.Fatalf("%v: Stop called from a callback did not return", testCase.description)
		}
		waitCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		assert.NoError(t, srv.Wait(waitCtx), testCase.description)
		cancel()
		assert.False(t, srv.Running(), testCase.description)
		require.NoError(t, srv.Close(), testCase.description)
	}
}

func TestServer_CloseFromCallback(t *testing.T) {
	port := freePort(t)
	srv := parally.NewServer("127.0.0.1", port, append(fastOptions(), parally.WithLogListener(func(logs.Record) {}))...)
	returned := make(chan error, 1)
	require.NoError(t, srv.BindParameters([]map[string]interface{}{{"a": 1, "b": 2}}))
	require.NoError(t, srv.OnCompleted(func(model.Results) { returned <- srv.Close() }))
	require.NoError(t, srv.Start(context.Background()))
	startWorker(t, port, add)

	select {
	case err := <-returned:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Close called from the completion callback did not return")
	}
	select {
	case <-srv.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("run did not halt")
	}
}

func TestServer_LogStreamClosed(t *testing.T) {
	srv := parally.NewServer("127.0.0.1", 6000, parally.WithLogListener(func(logs.Record) {}))
	require.NoError(t, srv.Close())
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for i := 0; i < 1030; i++ {
			_ = srv.OnError(nil)
		}
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("logging blocked once the log stream was closed")
	}
	assert.GreaterOrEqual(t, len(srv.Logs()), 1030)
}
