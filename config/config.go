// Package config defines the runtime configuration for the chat server
// and its terminal client.
package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	cerrors "tcpchat/internal/errors"
	"tcpchat/util"
)

// Config holds every tuneable for one process, server or client.
//
// The envconfig tags name the variable below [EnvPrefix]; the flag tags
// name the CLI flag so validation errors point at what the user typed.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────
	Port              int           `envconfig:"PORT" flag:"port" validate:"gte=0,lte=65535"`
	BindAddress       string        `envconfig:"BIND" flag:"bind" validate:"omitempty,ip|hostname"`
	WSAddress         string        `envconfig:"WS_ADDR" flag:"ws-addr" validate:"omitempty,hostname_port"`
	ReadBufferSize    int           `envconfig:"READ_BUFFER" flag:"read-buffer" validate:"gte=512,lte=1048576"`
	QueueBytes        int           `envconfig:"QUEUE_BYTES" flag:"queue-bytes" validate:"gte=4096,lte=1073741824"`
	WriteTimeout      time.Duration `envconfig:"WRITE_TIMEOUT" flag:"write-timeout" validate:"gte=0"`
	AcceptRate        float64       `envconfig:"ACCEPT_RATE" flag:"accept-rate" validate:"gte=0"`
	AcceptBurst       int           `envconfig:"ACCEPT_BURST" flag:"accept-burst" validate:"gte=0"`
	MaxAcceptFailures int           `envconfig:"MAX_ACCEPT_FAILURES" flag:"max-accept-failures" validate:"gte=1"`
	ShutdownGrace     time.Duration `envconfig:"SHUTDOWN_GRACE" flag:"shutdown-grace" validate:"gte=0"`

	// ── Client ───────────────────────────────────────────────────────
	Connect      string        `envconfig:"CONNECT" flag:"connect" validate:"omitempty,hostname_port"`
	DialAttempts int           `envconfig:"DIAL_ATTEMPTS" flag:"retries" validate:"gte=1"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" flag:"dial-timeout" validate:"gte=0"`
	Color        string        `envconfig:"COLOR" flag:"color" validate:"oneof=auto always never"`

	// ── Output ───────────────────────────────────────────────────────
	Verbose int  `envconfig:"VERBOSE" flag:"verbose" validate:"gte=0,lte=3"`
	DryRun  bool `envconfig:"DRY_RUN" flag:"dry-run"`
}

// ClientMode reports whether the process runs the terminal client.
func (c *Config) ClientMode() bool { return c.Connect != "" }

// ListenAddr is the TCP address the server binds.
func (c *Config) ListenAddr() string {
	return util.FormatAddr(c.BindAddress, c.Port)
}

// AcceptThrottled reports whether per-address accept limiting is on.
func (c *Config) AcceptThrottled() bool { return c.AcceptRate > 0 }

// ── Port helpers ─────────────────────────────────────────────────────

// ParsePort accepts a decimal port in 1-65535.
func ParsePort(arg string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", arg)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return port, nil
}

// ── Validation ───────────────────────────────────────────────────────

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("flag"); name != "" {
			return name
		}
		return strings.ToLower(f.Name)
	})
	return v
}

// Validate checks that the configuration is internally consistent.
// Structural checks come from the validate tags; the mode rules are
// checked by hand.  Every failure is a *errors.ConfigError.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if cerrors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return err
	}

	if c.ClientMode() {
		if c.Port != 0 {
			return &cerrors.ConfigError{
				Field:   "connect",
				Value:   c.Connect,
				Message: "a listen port and --connect are mutually exclusive",
				Hint:    "run the server as 'tcpchat <port>' and the client as 'tcpchat -C host:port'",
			}
		}
		return nil
	}

	if c.Port == 0 {
		return &cerrors.ConfigError{
			Field:   "port",
			Message: "a listen port is required",
			Hint:    "usage: tcpchat [options] <port>",
		}
	}
	if c.AcceptBurst == 0 && c.AcceptThrottled() {
		return &cerrors.ConfigError{
			Field:   "accept-burst",
			Value:   c.AcceptBurst,
			Message: "burst must be at least 1 when --accept-rate is set",
			Hint:    "try --accept-burst=5",
		}
	}
	return nil
}

var hints = map[string]string{
	"port":                "ports range from 1 to 65535",
	"bind":                "use an IP address such as 127.0.0.1 or a host name",
	"ws-addr":             "use host:port, for example :8081",
	"connect":             "use host:port, for example localhost:8000",
	"read-buffer":         "choose a chunk size between 512 and 1048576 bytes",
	"queue-bytes":         "choose a per-client budget between 4096 and 1073741824 bytes",
	"max-accept-failures": "at least one failure must be tolerated",
	"retries":             "the client needs at least one attempt",
	"color":               "choose auto, always or never",
	"verbose":             "use -v up to three times",
}

func fieldError(fe validator.FieldError) error {
	msg := fmt.Sprintf("failed %q check", fe.Tag())
	switch fe.Tag() {
	case "gte", "min":
		msg = "must be at least " + fe.Param()
	case "lte", "max":
		msg = "must be at most " + fe.Param()
	case "oneof":
		msg = "must be one of: " + fe.Param()
	case "hostname_port":
		msg = "must be a host:port address"
	case "ip|hostname":
		msg = "must be an IP address or host name"
	}
	return &cerrors.ConfigError{
		Field:   fe.Field(),
		Value:   fe.Value(),
		Message: msg,
		Hint:    hints[fe.Field()],
	}
}
