package sse

import "time"

// Config holds configuration for SSE connections.
type Config struct {
	// KeepAliveInterval is how often to send keep-alive pings to
	// prevent proxy idle timeouts.
	KeepAliveInterval time.Duration
}

// DefaultConfig returns the default SSE configuration. 15 seconds
// stays under common proxy idle timeouts.
func DefaultConfig() *Config {
	return &Config{
		KeepAliveInterval: 15 * time.Second,
	}
}
