package config

import "time"

type ForwarderConfig struct {
	Serial  SerialConfig  `toml:"serial"`
	Token   TokenConfig   `toml:"token"`
	Send    SendConfig    `toml:"send"`
	Logging LoggingConfig `toml:"logging"`
	API     APIConfig     `toml:"api"`
}

type SerialConfig struct {
	Port string `toml:"port"`
	// jacobsa or bugst
	Driver string `toml:"driver"`
}

type TokenConfig struct {
	URL          string `toml:"url"`
	ClientID     string `toml:"clientId"`
	ClientSecret string `toml:"clientSecret"`
	Scope        string `toml:"scope"`
}

type SendConfig struct {
	URL              string `toml:"url"`
	SleepSec         int    `toml:"sleepSec"`
	TimeoutSec       int    `toml:"timeoutSec"`
	RequeueOnFailure bool   `toml:"requeueOnFailure"`
	RequeueCap       int    `toml:"requeueCap"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type APIConfig struct {
	// Empty disables the live feed.
	ListenAddress string `toml:"listenAddress"`
}

func (c SendConfig) Interval() time.Duration {
	return time.Duration(c.SleepSec) * time.Second
}

func (c SendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}
