package tool

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/moyoez/tunshare/types"
)

var ConfigPath = "config.yaml" // be aware that it can be changed, default to ./config.yaml

const (
	DefaultInterfacePort  = 3000
	DefaultServePort      = 3004
	DefaultSpoolThreshold = 32 << 20 // 32MB in memory before spilling to a temp file
)

func DefaultConfig() types.AppConfig {
	return types.AppConfig{
		InterfacePort:  DefaultInterfacePort,
		ServePort:      DefaultServePort,
		CredentialPath: "", // resolved by DefaultCredentialPath
		TunnelTimeout:  30 * time.Second,
		ArchiveTimeout: 10 * time.Minute,
		SpoolThreshold: DefaultSpoolThreshold,
		Log:            "dev",
	}
}

// LoadConfig reads the yaml config, writing a default one when the file does not exist yet.
func LoadConfig(path string) (types.AppConfig, error) {
	if path == "" {
		path = ConfigPath
	}
	ConfigPath = path

	cfg := DefaultConfig()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if writeErr := writeDefaultConfig(path, cfg); writeErr != nil {
				// a read-only cwd should not stop serving
				DefaultLogger.Warnf("Config file not found, and failed to generate default config: %v", writeErr)
			} else {
				DefaultLogger.Infof("Created new config file at %s", path)
			}
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if info.IsDir() {
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %v", err)
	}
	normalizeConfig(&cfg)

	return cfg, nil
}

// normalizeConfig puts defaults back for zero or invalid values.
func normalizeConfig(cfg *types.AppConfig) {
	def := DefaultConfig()
	if cfg.InterfacePort <= 0 || cfg.InterfacePort > 65535 {
		cfg.InterfacePort = def.InterfacePort
	}
	if cfg.ServePort <= 0 || cfg.ServePort > 65535 {
		cfg.ServePort = def.ServePort
	}
	if cfg.TunnelTimeout <= 0 {
		cfg.TunnelTimeout = def.TunnelTimeout
	}
	if cfg.ArchiveTimeout <= 0 {
		cfg.ArchiveTimeout = def.ArchiveTimeout
	}
	if cfg.SpoolThreshold <= 0 {
		cfg.SpoolThreshold = def.SpoolThreshold
	}
}

// ApplyServeFlags merges serve command flags over the loaded config.
func ApplyServeFlags(cfg *types.AppConfig, flags types.ServeFlags) {
	if flags.Port > 0 {
		cfg.ServePort = flags.Port
	}
	if flags.InterfacePort > 0 {
		cfg.InterfacePort = flags.InterfacePort
	}
	if flags.CredentialPath != "" {
		cfg.CredentialPath = flags.CredentialPath
	}
	if flags.Log != "" {
		cfg.Log = flags.Log
	}
}

func writeDefaultConfig(path string, cfg types.AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
