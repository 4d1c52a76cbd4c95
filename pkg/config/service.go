package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/NotCoffee418/p1_forwarder/pkg/logging"
	"github.com/NotCoffee418/p1_forwarder/pkg/pathing"
	"github.com/NotCoffee418/p1_forwarder/pkg/port_reader"
)

var ActiveForwarderConfig *ForwarderConfig

func DefaultForwarderConfig() *ForwarderConfig {
	return &ForwarderConfig{
		Serial: SerialConfig{
			Port:   "/dev/ttyUSB0",
			Driver: port_reader.DriverJacobsa,
		},
		Send: SendConfig{
			SleepSec:   10,
			TimeoutSec: 10,
			RequeueCap: 1000,
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// LoadForwarderConfig reads the config at path, or the default location when
// path is empty. A missing file is created with defaults. Keys absent from
// the file keep their default values.
func LoadForwarderConfig(path string) (*ForwarderConfig, error) {
	if path == "" {
		path = pathing.GetConfigPath()
	}

	cfg := DefaultForwarderConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config %s: %w", path, err)
		}
		slog.Info("Created default config", "path", path)
		ActiveForwarderConfig = cfg
		return cfg, nil
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	for _, key := range meta.Undecoded() {
		slog.Warn("Unknown config key", "path", path, "key", key.String())
	}

	ActiveForwarderConfig = cfg
	return cfg, nil
}

func writeConfig(path string, cfg *ForwarderConfig) error {
	if err := pathing.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	cfgFile, err := os.Create(path)
	if err != nil {
		return err
	}
	defer cfgFile.Close()
	return toml.NewEncoder(cfgFile).Encode(cfg)
}

// Validate reports every problem found, joined.
func (c *ForwarderConfig) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Serial.Port) == "" {
		errs = append(errs, errors.New("serial.port is required"))
	}
	if _, err := port_reader.NewDialer(c.Serial.Driver, c.Serial.Port); err != nil {
		errs = append(errs, fmt.Errorf("serial.driver: %w", err))
	}

	if err := validateURL("token.url", c.Token.URL); err != nil {
		errs = append(errs, err)
	}
	if c.Token.ClientID == "" {
		errs = append(errs, errors.New("token.clientId is required"))
	}
	if c.Token.ClientSecret == "" {
		errs = append(errs, errors.New("token.clientSecret is required"))
	}

	if err := validateURL("send.url", c.Send.URL); err != nil {
		errs = append(errs, err)
	}
	if c.Send.SleepSec <= 0 {
		errs = append(errs, errors.New("send.sleepSec must be > 0"))
	}
	if c.Send.TimeoutSec <= 0 {
		errs = append(errs, errors.New("send.timeoutSec must be > 0"))
	}
	if c.Send.RequeueCap < 0 {
		errs = append(errs, errors.New("send.requeueCap must be >= 0"))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}

	return errors.Join(errs...)
}

func validateURL(key, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%s is required", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", key, raw)
	}
	return nil
}
