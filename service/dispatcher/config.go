package dispatcher

import (
	"fmt"
	"time"

	"github.com/viant/parally/protocol"
)

// Config represents dispatcher configuration
type Config struct {
	// PollInterval is the pause between passes
	PollInterval time.Duration `json:"pollInterval,omitempty" yaml:"pollInterval,omitempty"`
	// PollTimeout bounds a single read from a running worker
	PollTimeout time.Duration `json:"pollTimeout,omitempty" yaml:"pollTimeout,omitempty"`
	// WriteTimeout bounds a single send to a worker
	WriteTimeout time.Duration `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty"`
	// ReadBufferSize is the size of a single read
	ReadBufferSize int `json:"readBufferSize,omitempty" yaml:"readBufferSize,omitempty"`
}

// DefaultConfig returns the default dispatcher configuration
func DefaultConfig() Config {
	return Config{
		PollInterval:   5 * time.Millisecond,
		PollTimeout:    10 * time.Millisecond,
		WriteTimeout:   5 * time.Second,
		ReadBufferSize: protocol.DefaultBufferSize,
	}
}

// Validate returns an error describing an invalid setting.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("dispatcher.pollInterval must be > 0")
	}
	if c.PollTimeout <= 0 {
		return fmt.Errorf("dispatcher.pollTimeout must be > 0")
	}
	if c.ReadBufferSize <= 0 {
		return fmt.Errorf("dispatcher.readBufferSize must be > 0")
	}
	return nil
}

func (c *Config) init() {
	defaults := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = defaults.PollTimeout
	}
	if c.WriteTimeout < 0 {
		c.WriteTimeout = 0
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = defaults.ReadBufferSize
	}
}
