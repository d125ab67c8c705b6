package parally

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/parally/policy"
	"github.com/viant/parally/service/acceptor"
	"github.com/viant/parally/service/client"
	"github.com/viant/parally/service/dispatcher"
	"github.com/viant/parally/service/meta"
)

// Config is a serialisable representation of coordinator and worker settings.
// It can be loaded from a JSON or YAML document with LoadConfig; zero nested
// values inherit their package defaults.
type Config struct {
	Server ServerConfig `json:"server" yaml:"server"`
	Client ClientConfig `json:"client" yaml:"client"`
}

// ServerConfig represents coordinator settings
type ServerConfig struct {
	Host       string            `json:"host,omitempty" yaml:"host,omitempty"`
	Port       int               `json:"port,omitempty" yaml:"port,omitempty"`
	Verbose    bool              `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	Policy     policy.Config     `json:"policy" yaml:"policy"`
	Dispatcher dispatcher.Config `json:"dispatcher" yaml:"dispatcher"`
	Acceptor   acceptor.Config   `json:"acceptor" yaml:"acceptor"`
	// JournalURL, when set, persists result records under this afs URL
	JournalURL string `json:"journalURL,omitempty" yaml:"journalURL,omitempty"`
	// Parameters, when set, is the afs URL of the parameter list to bind
	Parameters string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// ClientConfig represents worker settings
type ClientConfig struct {
	Host    string        `json:"host,omitempty" yaml:"host,omitempty"`
	Port    int           `json:"port,omitempty" yaml:"port,omitempty"`
	Verbose bool          `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	Runtime client.Config `json:"runtime" yaml:"runtime"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:       DefaultHost,
			Port:       FallbackPort,
			Policy:     policy.Config{Mode: policy.ModeFIFO},
			Dispatcher: dispatcher.DefaultConfig(),
			Acceptor:   acceptor.DefaultConfig(),
		},
		Client: ClientConfig{
			Host:    DefaultHost,
			Port:    FallbackPort,
			Runtime: client.DefaultConfig(),
		},
	}
}

// Validate returns an error describing the first invalid setting or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if !validPort(c.Server.Port) {
		return fmt.Errorf("server.port must be within %d-%d, got %d", MinPort, MaxPort, c.Server.Port)
	}
	if !validPort(c.Client.Port) {
		return fmt.Errorf("client.port must be within %d-%d, got %d", MinPort, MaxPort, c.Client.Port)
	}
	if err := c.Server.Policy.Validate(); err != nil {
		return err
	}
	return c.Server.Dispatcher.Validate()
}

// ServerOptions returns the options reflecting the server settings.
func (c *ServerConfig) ServerOptions() []Option {
	options := []Option{
		WithVerbose(c.Verbose),
		WithPolicy(c.Policy.Mode),
		WithDispatcherConfig(c.Dispatcher),
		WithAcceptorConfig(c.Acceptor),
	}
	if c.JournalURL != "" {
		options = append(options, WithJournalURL(c.JournalURL))
	}
	return options
}

// ClientOptions returns the options reflecting the worker settings.
func (c *ClientConfig) ClientOptions() []ClientOption {
	return []ClientOption{
		WithClientVerbose(c.Verbose),
		WithClientConfig(c.Runtime),
	}
}

// LoadConfig reads a JSON or YAML document from URL over the defaults.
// ${env.NAME} expressions are expanded before decoding.
func LoadConfig(ctx context.Context, URL string, options ...storage.Option) (*Config, error) {
	ret := DefaultConfig()
	metaService := meta.New(afs.New(), "", options...)
	if err := metaService.Load(ctx, URL, ret); err != nil {
		return nil, err
	}
	if err := ret.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	return ret, nil
}
