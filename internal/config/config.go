package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/typewire-dev/typewire/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "typewire.json"

	// DotEnvFileName is the name of the optional environment file.
	DotEnvFileName = ".env"

	// DefaultAddr is the default relay listen address.
	DefaultAddr = "localhost:9270"

	// DefaultPath is the default WebSocket endpoint path.
	DefaultPath = "/ws"

	// DefaultURL is the default relay URL for clients.
	DefaultURL = "ws://localhost:9270/ws"

	// DefaultTopic is the topic a relay starts with.
	DefaultTopic = "welcome"
)

// Config represents the complete typewire.json configuration.
//
// Values are resolved in order: defaults, the JSON file, then TYPEWIRE_*
// environment variables (which may come from a .env file).
type Config struct {
	// Relay contains relay server configuration.
	Relay RelayConfig `json:"relay"`

	// Client contains client connection configuration.
	Client ClientConfig `json:"client"`

	// Log contains logging configuration.
	Log LogConfig `json:"log"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// RelayConfig contains relay server settings.
type RelayConfig struct {
	// Addr is the host:port to listen on.
	Addr string `json:"addr,omitempty" env:"TYPEWIRE_RELAY_ADDR" validate:"required,hostname_port"`

	// Path is the WebSocket endpoint path.
	Path string `json:"path,omitempty" env:"TYPEWIRE_RELAY_PATH" validate:"required,startswith=/"`

	// Topic is the topic sent to connections before any change.
	Topic string `json:"topic,omitempty" env:"TYPEWIRE_RELAY_TOPIC" validate:"max=65529"`

	// SendQueue is the per-connection outbound queue length. A connection
	// whose queue fills up is closed.
	SendQueue int `json:"sendQueue,omitempty" env:"TYPEWIRE_RELAY_SEND_QUEUE" validate:"min=1,max=65536"`

	// WriteTimeout bounds each WebSocket write.
	WriteTimeout Duration `json:"writeTimeout,omitempty" env:"TYPEWIRE_RELAY_WRITE_TIMEOUT" validate:"gt=0"`

	// MaxFrameSize is the largest client frame accepted.
	MaxFrameSize int `json:"maxFrameSize,omitempty" env:"TYPEWIRE_RELAY_MAX_FRAME_SIZE" validate:"min=3,max=65535"`

	// AllowedOrigins lists origins allowed to connect. Empty allows only
	// same-origin requests; "*" allows any. Separate env values with "|".
	AllowedOrigins []string `json:"allowedOrigins,omitempty" env:"TYPEWIRE_RELAY_ALLOWED_ORIGINS"`
}

// ClientConfig contains client connection settings.
type ClientConfig struct {
	// URL is the relay WebSocket URL.
	URL string `json:"url,omitempty" env:"TYPEWIRE_URL" validate:"required,url"`

	// Name is the participant name sent with Init.
	Name string `json:"name,omitempty" env:"TYPEWIRE_NAME" validate:"max=255"`

	// Color is the participant color sent with Init.
	Color uint8 `json:"color,omitempty" env:"TYPEWIRE_COLOR"`

	// QueueSize is the length of the inbound frame queue.
	QueueSize int `json:"queueSize,omitempty" env:"TYPEWIRE_QUEUE_SIZE" validate:"min=1"`

	// PingInterval is how often the client measures latency.
	PingInterval Duration `json:"pingInterval,omitempty" env:"TYPEWIRE_PING_INTERVAL" validate:"gt=0"`

	// WriteTimeout bounds each WebSocket write.
	WriteTimeout Duration `json:"writeTimeout,omitempty" env:"TYPEWIRE_WRITE_TIMEOUT" validate:"gt=0"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" env:"TYPEWIRE_LOG_LEVEL" validate:"oneof=debug info warn error"`

	// Format is text or json.
	Format string `json:"format,omitempty" env:"TYPEWIRE_LOG_FORMAT" validate:"oneof=text json"`
}

// Duration is a time.Duration that reads "10s"-style strings from JSON and
// the environment.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String returns the duration in Go syntax.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON encodes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return d.UnmarshalEnvironmentValue(s)
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("duration must be a string like \"10s\": %s", data)
	}
	*d = Duration(n)
	return nil
}

// UnmarshalEnvironmentValue implements env.Unmarshaler.
func (d *Duration) UnmarshalEnvironmentValue(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Relay: RelayConfig{
			Addr:         DefaultAddr,
			Path:         DefaultPath,
			Topic:        DefaultTopic,
			SendQueue:    256,
			WriteTimeout: Duration(10 * time.Second),
			MaxFrameSize: 4096,
		},
		Client: ClientConfig{
			URL:          DefaultURL,
			QueueSize:    1024,
			PingInterval: Duration(5 * time.Second),
			WriteTimeout: Duration(10 * time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads typewire.json from the given directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile loads configuration from a specific file path. Missing fields
// keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("T001").
				WithDetail("No " + ConfigFileName + " found at " + path)
		}
		return nil, errors.New("T002").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("T002").
			WithDetail("Failed to parse " + path + ": " + err.Error())
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Resolve builds the effective configuration.
//
// If path is empty, typewire.json in the working directory is used when it
// exists and defaults otherwise. A .env file next to the configuration is
// loaded into the process environment without overriding variables that
// are already set. TYPEWIRE_* variables then override file values, and the
// result is validated.
func Resolve(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	dir := filepath.Dir(path)
	if path == "" {
		dir = "."
		cfg, err = Load(dir)
		if errors.Code(err) == "T001" {
			cfg, err = New(), nil
		}
	} else {
		cfg, err = LoadFile(path)
	}
	if err != nil {
		return nil, err
	}

	if err := LoadDotEnv(dir); err != nil {
		return nil, err
	}

	es, err := env.EnvironToEnvSet(os.Environ())
	if err != nil {
		return nil, errors.New("T004").Wrap(err)
	}
	if err := cfg.ApplyEnv(es); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads dir/.env into the process environment if it exists.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, DotEnvFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.New("T005").WithDetail(path).Wrap(err)
	}
	return nil
}

// ApplyEnv overrides fields from TYPEWIRE_* variables in es.
func (c *Config) ApplyEnv(es env.EnvSet) error {
	if err := env.Unmarshal(es, c); err != nil {
		return errors.New("T004").Wrap(err)
	}
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for zero fields.
func (c *Config) applyDefaults() {
	d := New()
	if c.Relay.Addr == "" {
		c.Relay.Addr = d.Relay.Addr
	}
	if c.Relay.Path == "" {
		c.Relay.Path = d.Relay.Path
	}
	if c.Relay.SendQueue == 0 {
		c.Relay.SendQueue = d.Relay.SendQueue
	}
	if c.Relay.WriteTimeout == 0 {
		c.Relay.WriteTimeout = d.Relay.WriteTimeout
	}
	if c.Relay.MaxFrameSize == 0 {
		c.Relay.MaxFrameSize = d.Relay.MaxFrameSize
	}
	if c.Client.URL == "" {
		c.Client.URL = d.Client.URL
	}
	if c.Client.QueueSize == 0 {
		c.Client.QueueSize = d.Client.QueueSize
	}
	if c.Client.PingInterval == 0 {
		c.Client.PingInterval = d.Client.PingInterval
	}
	if c.Client.WriteTimeout == 0 {
		c.Client.WriteTimeout = d.Client.WriteTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.New("T003").Wrap(err)
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describe(fe))
	}
	return errors.New("T003").
		WithDetail(strings.Join(problems, "; ")).
		Wrap(err)
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	if fe.Param() != "" {
		return fmt.Sprintf("%s must satisfy %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s must satisfy %s (got %v)", field, fe.Tag(), fe.Value())
}
