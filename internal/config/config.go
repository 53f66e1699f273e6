// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the rep command configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultURL is where the server listens and the client dials.
	DefaultURL = "tcp://127.0.0.1:32050"
	// DefaultParallel is the worker pool size, the server's concurrency bound.
	DefaultParallel = 128
	// DefaultTotal is the number of requests the client issues.
	DefaultTotal = 100000
	// DefaultReply is the server's answer to every request.
	DefaultReply = "Ferris"
)

// Config holds the rep configuration.
type Config struct {
	URL      string `yaml:"url"`
	LogLevel string `yaml:"log_level"`
	Server   Server `yaml:"server"`
	Client   Client `yaml:"client"`
}

// Server configures the responder.
type Server struct {
	Parallel         int           `yaml:"parallel"`
	Reply            string        `yaml:"reply"`
	Policy           string        `yaml:"policy"`
	Dispatchers      int           `yaml:"dispatchers"`
	MaxMsgSize       int           `yaml:"max_msg_size"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	ReusePort        bool          `yaml:"reuse_port"`
	RecvBuffer       int           `yaml:"recv_buffer"`
	SendBuffer       int           `yaml:"send_buffer"`
}

// Client configures the benchmark requester.
type Client struct {
	Total     int  `yaml:"total"`
	Peers     int  `yaml:"peers"`
	DialRetry bool `yaml:"dial_retry"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		URL:      DefaultURL,
		LogLevel: "info",
		Server: Server{
			Parallel:         DefaultParallel,
			Reply:            DefaultReply,
			Policy:           "escalate",
			MaxMsgSize:       1 << 20,
			HandshakeTimeout: 5 * time.Second,
		},
		Client: Client{
			Total:     DefaultTotal,
			Peers:     1,
			DialRetry: true,
		},
	}
}

// DefaultPath returns the default config file path: ~/.rep/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".rep", "config.yaml")
	}
	return filepath.Join(home, ".rep", "config.yaml")
}

// Load reads the configuration from the given YAML file path over the
// defaults. If the file does not exist, it returns Default() with no error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first out-of-range setting.
func (c *Config) Validate() error {
	switch {
	case c.URL == "":
		return errors.New("url must not be empty")
	case c.Server.Parallel < 1:
		return fmt.Errorf("server.parallel must be positive, got %d", c.Server.Parallel)
	case c.Server.Dispatchers < 0:
		return fmt.Errorf("server.dispatchers must not be negative, got %d", c.Server.Dispatchers)
	case c.Server.MaxMsgSize < 1:
		return fmt.Errorf("server.max_msg_size must be positive, got %d", c.Server.MaxMsgSize)
	case c.Server.HandshakeTimeout < 0:
		return fmt.Errorf("server.handshake_timeout must not be negative, got %s", c.Server.HandshakeTimeout)
	case c.Client.Total < 0:
		return fmt.Errorf("client.total must not be negative, got %d", c.Client.Total)
	case c.Client.Peers < 1:
		return fmt.Errorf("client.peers must be positive, got %d", c.Client.Peers)
	}
	return nil
}
