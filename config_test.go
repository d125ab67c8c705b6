package parally_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/parally"
	"github.com/viant/parally/policy"
)

func itoa(i int) string {
	return strconv.Itoa(i)
}

func TestLoadConfig(t *testing.T) {
	ctx := context.Background()
	config, err := parally.LoadConfig(ctx, "embed:///testdata/config.yaml", &embedFS)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, 6100, config.Server.Port)
	assert.True(t, config.Server.Verbose)
	assert.Equal(t, policy.ModeRandom, config.Server.Policy.Mode)
	assert.Equal(t, 2*time.Millisecond, config.Server.Dispatcher.PollInterval)
	assert.Equal(t, 20*time.Millisecond, config.Server.Dispatcher.PollTimeout)
	assert.Equal(t, 5*time.Second, config.Server.Dispatcher.WriteTimeout)
	assert.Equal(t, 100*time.Millisecond, config.Server.Acceptor.AcceptTimeout)
	assert.Equal(t, "parameters.yaml", config.Server.Parameters)
	assert.Equal(t, 2*time.Second, config.Client.Runtime.DialTimeout)

	srv := parally.NewServerFromConfig(&config.Server, parally.WithLogWriter(&nopWriter{}))
	assert.Equal(t, "127.0.0.1:6100", srv.Addr())
	worker, err := parally.NewClientFromConfig(&config.Client, add)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6100", worker.Address())

	_, err = parally.LoadConfig(ctx, "embed:///testdata/invalid.yaml", &embedFS)
	assert.Error(t, err)
	_, err = parally.LoadConfig(ctx, "embed:///testdata/missing.yaml", &embedFS)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	var testCases = []struct {
		description string
		adjust      func(c *parally.Config)
		expectErr   bool
	}{
		{description: "defaults", adjust: func(c *parally.Config) {}},
		{description: "server port", adjust: func(c *parally.Config) { c.Server.Port = 1023 }, expectErr: true},
		{description: "client port", adjust: func(c *parally.Config) { c.Client.Port = 65536 }, expectErr: true},
		{description: "policy", adjust: func(c *parally.Config) { c.Server.Policy.Mode = "lifo" }, expectErr: true},
		{description: "dispatcher", adjust: func(c *parally.Config) { c.Server.Dispatcher.PollTimeout = 0 }, expectErr: true},
	}
	for _, testCase := range testCases {
		config := parally.DefaultConfig()
		testCase.adjust(config)
		err := config.Validate()
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		assert.NoError(t, err, testCase.description)
	}
}

type nopWriter struct{}

func (n *nopWriter) Write(p []byte) (int, error) { return len(p), nil }
