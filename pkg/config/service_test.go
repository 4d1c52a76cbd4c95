package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NotCoffee418/p1_forwarder/pkg/pathing"
)

const fullConfig = `
[serial]
port = "/dev/ttyAMA0"
driver = "bugst"

[token]
url = "https://auth.example.com/oauth2/token"
clientId = "meter-42"
clientSecret = "s3cret"
scope = "readings.write"

[send]
url = "https://collector.example.com/readings"
sleepSec = 30
timeoutSec = 5
requeueOnFailure = true
requeueCap = 500

[logging]
level = "debug"

[api]
listenAddress = "127.0.0.1:9039"
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "p1_forwarder.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadForwarderConfig(t *testing.T) {
	cfg, err := LoadForwarderConfig(writeFile(t, fullConfig))
	require.NoError(t, err)

	assert.Equal(t, &ForwarderConfig{
		Serial: SerialConfig{Port: "/dev/ttyAMA0", Driver: "bugst"},
		Token: TokenConfig{
			URL:          "https://auth.example.com/oauth2/token",
			ClientID:     "meter-42",
			ClientSecret: "s3cret",
			Scope:        "readings.write",
		},
		Send: SendConfig{
			URL:              "https://collector.example.com/readings",
			SleepSec:         30,
			TimeoutSec:       5,
			RequeueOnFailure: true,
			RequeueCap:       500,
		},
		Logging: LoggingConfig{Level: "debug"},
		API:     APIConfig{ListenAddress: "127.0.0.1:9039"},
	}, cfg)
	assert.Same(t, cfg, ActiveForwarderConfig)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, 30*time.Second, cfg.Send.Interval())
	assert.Equal(t, 5*time.Second, cfg.Send.Timeout())
}

func TestLoadForwarderConfigKeepsDefaults(t *testing.T) {
	cfg, err := LoadForwarderConfig(writeFile(t, `
[token]
url = "https://auth.example.com/token"
clientId = "id"
clientSecret = "secret"

[send]
url = "https://collector.example.com/"
`))
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
	assert.Equal(t, "jacobsa", cfg.Serial.Driver)
	assert.Equal(t, 10, cfg.Send.SleepSec)
	assert.Equal(t, 10, cfg.Send.TimeoutSec)
	assert.False(t, cfg.Send.RequeueOnFailure)
	assert.Equal(t, 1000, cfg.Send.RequeueCap)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Empty(t, cfg.API.ListenAddress)
	assert.NoError(t, cfg.Validate())
}

func TestLoadForwarderConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "p1_forwarder.toml")

	cfg, err := LoadForwarderConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultForwarderConfig(), cfg)

	var written ForwarderConfig
	_, err = toml.DecodeFile(path, &written)
	require.NoError(t, err)
	assert.Equal(t, *DefaultForwarderConfig(), written)

	// Endpoints must still be filled in.
	assert.Error(t, cfg.Validate())
}

func TestLoadForwarderConfigDefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(pathing.ConfigDirEnv, dir)

	_, err := LoadForwarderConfig("")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "p1_forwarder.toml"))
}

func TestLoadForwarderConfigInvalidToml(t *testing.T) {
	_, err := LoadForwarderConfig(writeFile(t, "[send\nurl = "))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *ForwarderConfig {
		cfg := DefaultForwarderConfig()
		cfg.Token = TokenConfig{URL: "https://auth.example.com/token", ClientID: "id", ClientSecret: "secret"}
		cfg.Send.URL = "http://collector.local/readings"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*ForwarderConfig)
		want   string
	}{
		{"no port", func(c *ForwarderConfig) { c.Serial.Port = " " }, "serial.port is required"},
		{"unknown driver", func(c *ForwarderConfig) { c.Serial.Driver = "ftdi" }, "serial.driver"},
		{"no token url", func(c *ForwarderConfig) { c.Token.URL = "" }, "token.url is required"},
		{"token url scheme", func(c *ForwarderConfig) { c.Token.URL = "ftp://auth" }, "token.url must be an http(s) URL"},
		{"no client id", func(c *ForwarderConfig) { c.Token.ClientID = "" }, "token.clientId is required"},
		{"no client secret", func(c *ForwarderConfig) { c.Token.ClientSecret = "" }, "token.clientSecret is required"},
		{"no send url", func(c *ForwarderConfig) { c.Send.URL = "" }, "send.url is required"},
		{"zero sleep", func(c *ForwarderConfig) { c.Send.SleepSec = 0 }, "send.sleepSec must be > 0"},
		{"zero timeout", func(c *ForwarderConfig) { c.Send.TimeoutSec = 0 }, "send.timeoutSec must be > 0"},
		{"negative cap", func(c *ForwarderConfig) { c.Send.RequeueCap = -1 }, "send.requeueCap must be >= 0"},
		{"bad level", func(c *ForwarderConfig) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	err := DefaultForwarderConfig().Validate()
	require.Error(t, err)

	assert.Contains(t, err.Error(), "token.url is required")
	assert.Contains(t, err.Error(), "token.clientId is required")
	assert.Contains(t, err.Error(), "send.url is required")
}
