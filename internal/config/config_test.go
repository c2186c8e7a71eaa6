package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	env "github.com/Netflix/go-env"

	"github.com/typewire-dev/typewire/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Relay.Addr != DefaultAddr {
		t.Errorf("Relay.Addr = %q, want %q", cfg.Relay.Addr, DefaultAddr)
	}
	if cfg.Relay.Path != DefaultPath {
		t.Errorf("Relay.Path = %q, want %q", cfg.Relay.Path, DefaultPath)
	}
	if cfg.Client.URL != DefaultURL {
		t.Errorf("Client.URL = %q, want %q", cfg.Client.URL, DefaultURL)
	}
	if cfg.Client.PingInterval.Std() != 5*time.Second {
		t.Errorf("Client.PingInterval = %v, want 5s", cfg.Client.PingInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load(tmpDir)
	if errors.Code(err) != "T001" {
		t.Fatalf("Load() on empty dir error = %v, want T001", err)
	}

	configJSON := `{
  "relay": {
    "addr": "0.0.0.0:8080",
    "topic": "standup",
    "writeTimeout": "2s",
    "allowedOrigins": ["*"]
  },
  "client": {
    "name": "Al",
    "color": 9,
    "pingInterval": 1500000000
  },
  "log": {
    "level": "debug"
  }
}
`
	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Relay.Addr != "0.0.0.0:8080" || cfg.Relay.Topic != "standup" {
		t.Errorf("Relay = %+v", cfg.Relay)
	}
	if cfg.Relay.WriteTimeout.Std() != 2*time.Second {
		t.Errorf("Relay.WriteTimeout = %v, want 2s", cfg.Relay.WriteTimeout)
	}
	if len(cfg.Relay.AllowedOrigins) != 1 || cfg.Relay.AllowedOrigins[0] != "*" {
		t.Errorf("Relay.AllowedOrigins = %v", cfg.Relay.AllowedOrigins)
	}
	if cfg.Client.Name != "Al" || cfg.Client.Color != 9 {
		t.Errorf("Client = %+v", cfg.Client)
	}
	if cfg.Client.PingInterval.Std() != 1500*time.Millisecond {
		t.Errorf("Client.PingInterval = %v, want 1.5s", cfg.Client.PingInterval)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v", cfg.Log)
	}

	// Defaults survive for fields the file omits.
	if cfg.Relay.Path != DefaultPath || cfg.Relay.SendQueue != 256 {
		t.Errorf("defaults lost: %+v", cfg.Relay)
	}
	if cfg.Path() != configPath {
		t.Errorf("Path() = %q, want %q", cfg.Path(), configPath)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(path, []byte(`{"relay": `), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(path)
	if errors.Code(err) != "T002" {
		t.Errorf("LoadFile() error = %v, want T002", err)
	}

	if err := os.WriteFile(path, []byte(`{"relay": {"writeTimeout": "soon"}}`), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = LoadFile(path)
	if errors.Code(err) != "T002" {
		t.Errorf("LoadFile() with bad duration error = %v, want T002", err)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := New()
	err := cfg.ApplyEnv(env.EnvSet{
		"TYPEWIRE_RELAY_ADDR":            ":9999",
		"TYPEWIRE_RELAY_WRITE_TIMEOUT":   "250ms",
		"TYPEWIRE_RELAY_ALLOWED_ORIGINS": "a.example|b.example",
		"TYPEWIRE_COLOR":                 "200",
		"TYPEWIRE_LOG_FORMAT":            "json",
		"UNRELATED":                      "x",
	})
	if err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}

	if cfg.Relay.Addr != ":9999" {
		t.Errorf("Relay.Addr = %q", cfg.Relay.Addr)
	}
	if cfg.Relay.WriteTimeout.Std() != 250*time.Millisecond {
		t.Errorf("Relay.WriteTimeout = %v", cfg.Relay.WriteTimeout)
	}
	if strings.Join(cfg.Relay.AllowedOrigins, ",") != "a.example,b.example" {
		t.Errorf("Relay.AllowedOrigins = %v", cfg.Relay.AllowedOrigins)
	}
	if cfg.Client.Color != 200 {
		t.Errorf("Client.Color = %d", cfg.Client.Color)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q", cfg.Log.Format)
	}
	// Unset variables leave values alone.
	if cfg.Relay.Path != DefaultPath {
		t.Errorf("Relay.Path = %q, want default", cfg.Relay.Path)
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	cfg := New()
	err := cfg.ApplyEnv(env.EnvSet{"TYPEWIRE_PING_INTERVAL": "often"})
	if errors.Code(err) != "T004" {
		t.Errorf("ApplyEnv() error = %v, want T004", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"bad_addr", func(c *Config) { c.Relay.Addr = "nowhere" }, "Relay.Addr"},
		{"bad_path", func(c *Config) { c.Relay.Path = "ws" }, "Relay.Path"},
		{"zero_queue", func(c *Config) { c.Relay.SendQueue = 0 }, "Relay.SendQueue"},
		{"huge_frame", func(c *Config) { c.Relay.MaxFrameSize = 70000 }, "Relay.MaxFrameSize"},
		{"bad_url", func(c *Config) { c.Client.URL = "" }, "Client.URL"},
		{"zero_ping", func(c *Config) { c.Client.PingInterval = 0 }, "Client.PingInterval"},
		{"bad_level", func(c *Config) { c.Log.Level = "loud" }, "Log.Level"},
		{"bad_format", func(c *Config) { c.Log.Format = "xml" }, "Log.Format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := New()
			tc.modify(cfg)
			err := cfg.Validate()
			if errors.Code(err) != "T003" {
				t.Fatalf("Validate() error = %v, want T003", err)
			}
			ce := errors.FromError(err, "")
			if !strings.Contains(ce.Detail, tc.field) {
				t.Errorf("Detail = %q, want mention of %s", ce.Detail, tc.field)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(path, []byte(`{"relay": {"topic": "from-file", "addr": "localhost:1000"}}`), 0644); err != nil {
		t.Fatal(err)
	}
	dotenv := "TYPEWIRE_RELAY_TOPIC=from-dotenv\nTYPEWIRE_RELAY_ADDR=localhost:2000\n"
	if err := os.WriteFile(filepath.Join(tmpDir, DotEnvFileName), []byte(dotenv), 0644); err != nil {
		t.Fatal(err)
	}

	// Variables already in the environment win over .env.
	t.Setenv("TYPEWIRE_RELAY_ADDR", "localhost:3000")
	// godotenv sets variables for the rest of the process.
	t.Cleanup(func() { os.Unsetenv("TYPEWIRE_RELAY_TOPIC") })

	cfg, err := Resolve(path)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Relay.Topic != "from-dotenv" {
		t.Errorf("Relay.Topic = %q, want from-dotenv", cfg.Relay.Topic)
	}
	if cfg.Relay.Addr != "localhost:3000" {
		t.Errorf("Relay.Addr = %q, want localhost:3000", cfg.Relay.Addr)
	}
}

func TestResolveValidates(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(path, []byte(`{"log": {"level": "chatty"}}`), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Resolve(path)
	if errors.Code(err) != "T003" {
		t.Errorf("Resolve() error = %v, want T003", err)
	}

	_, err = Resolve(filepath.Join(tmpDir, "missing.json"))
	if errors.Code(err) != "T001" {
		t.Errorf("Resolve(missing) error = %v, want T001", err)
	}
}

func TestDurationJSON(t *testing.T) {
	d := Duration(90 * time.Second)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"1m30s"` {
		t.Errorf("Marshal = %s", data)
	}

	var back Duration
	if err := json.Unmarshal(data, &back); err != nil || back != d {
		t.Errorf("Unmarshal = %v, %v", back, err)
	}
	if err := json.Unmarshal([]byte(`true`), &back); err == nil {
		t.Error("Unmarshal(true) should fail")
	}
}
