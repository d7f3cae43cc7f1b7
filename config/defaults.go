package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, .env files, and environment variable loading.

const (
	// EnvPrefix namespaces every environment variable (TCPCHAT_PORT…).
	EnvPrefix = "TCPCHAT"

	// DefaultDotEnv is the optional file consulted before the process
	// environment.
	DefaultDotEnv = ".env"

	// DefaultReadBufferSize is the size of one read chunk.  Lines longer
	// than a chunk are reassembled by the session.
	DefaultReadBufferSize = 16 * 1024

	// DefaultQueueBytes bounds the output waiting for one client.  A
	// client whose backlog grows past it, or whose socket stops taking
	// writes for WriteTimeout, is disconnected.
	DefaultQueueBytes = 4 << 20

	// DefaultWriteTimeout bounds a single write to a client socket.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultMaxAcceptFailures is the number of consecutive accept
	// errors after which the listener is considered dead.
	DefaultMaxAcceptFailures = 32

	// DefaultDialAttempts is how often the client tries to reach the
	// server before giving up.
	DefaultDialAttempts = 5

	// DefaultDialTimeout bounds one client connection attempt.
	DefaultDialTimeout = 10 * time.Second

	// DefaultShutdownGrace is how long shutdown waits for outbound
	// queues to drain.
	DefaultShutdownGrace = 5 * time.Second

	// Colour modes for the terminal client.
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Default returns a Config populated with every default value.
func Default() *Config {
	return &Config{
		ReadBufferSize:    DefaultReadBufferSize,
		QueueBytes:        DefaultQueueBytes,
		WriteTimeout:      DefaultWriteTimeout,
		MaxAcceptFailures: DefaultMaxAcceptFailures,
		ShutdownGrace:     DefaultShutdownGrace,
		DialAttempts:      DefaultDialAttempts,
		DialTimeout:       DefaultDialTimeout,
		Color:             ColorAuto,
		Verbose:           1,
	}
}
