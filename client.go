package parally

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"

	"github.com/viant/parally/logs"
	"github.com/viant/parally/model"
	"github.com/viant/parally/service/client"
	"github.com/viant/parally/service/executor"
)

// ErrNoTask is returned when a worker is created without a task.
var ErrNoTask = errors.New("task is required")

// Client is a worker serving the bound task for a coordinator.
type Client struct {
	address         string
	verbose         bool
	logWriter       io.Writer
	logger          *logs.Logs
	config          client.Config
	executorOptions []executor.Option
	runtime         *client.Service
}

// NewClient creates a worker for the coordinator at host and port.
func NewClient(host string, port int, task model.Task, options ...ClientOption) (*Client, error) {
	if task == nil {
		return nil, ErrNoTask
	}
	c := &Client{config: client.DefaultConfig()}
	for _, opt := range options {
		opt(c)
	}
	c.logger = logs.New(logs.WithVerbose(c.verbose), logs.WithWriter(c.logWriter))
	if host == "" {
		host = DefaultHost
	}
	if !validPort(port) {
		c.logger.Warning("Invalid port %d, using %d", port, FallbackPort)
		port = FallbackPort
	}
	c.address = net.JoinHostPort(host, strconv.Itoa(port))
	executorOptions := append([]executor.Option{executor.WithListener(executor.LogListener(c.logger))}, c.executorOptions...)
	c.runtime = client.New(c.address, executor.NewService(task, executorOptions...), c.logger, c.config)
	return c, nil
}

// NewClientFromConfig creates a worker from the client section of config.
func NewClientFromConfig(config *ClientConfig, task model.Task, options ...ClientOption) (*Client, error) {
	return NewClient(config.Host, config.Port, task, append(config.ClientOptions(), options...)...)
}

// Start connects once and serves tasks until the coordinator closes the
// connection or ctx is done. A failed connect is returned.
func (c *Client) Start(ctx context.Context) error {
	if err := c.runtime.Connect(ctx); err != nil {
		c.logger.Error("%v", err)
		return err
	}
	return c.runtime.Run(ctx)
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.runtime.Close()
}

// Address returns the coordinator address.
func (c *Client) Address() string {
	return c.address
}

func (c *Client) Logs() []logs.Record {
	return c.logger.Records()
}
