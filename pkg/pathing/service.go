package pathing

import (
	"os"
	"path/filepath"
)

// ConfigDirEnv overrides the configuration directory.
const ConfigDirEnv = "P1_FORWARDER_CONFIG_DIR"

const (
	defaultConfigDir = "/etc/p1_forwarder"
	configFileName   = "p1_forwarder.toml"
)

func GetConfigDir() string {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir
	}
	return defaultConfigDir
}

func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), configFileName)
}

// EnsureDir creates dir and its parents when missing.
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
