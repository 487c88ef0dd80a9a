package types

import "time"

// AppConfig represents the application configuration loaded from config file
type AppConfig struct {
	InterfacePort      int           `yaml:"interfacePort"`
	ServePort          int           `yaml:"servePort"`
	CredentialPath     string        `yaml:"credentialPath,omitempty"`
	TunnelTimeout      time.Duration `yaml:"tunnelTimeout"`
	ArchiveTimeout     time.Duration `yaml:"archiveTimeout"`
	SpoolThreshold     int64         `yaml:"spoolThreshold"`
	LocalOnlyInterface bool          `yaml:"localOnlyInterface,omitempty"`
	Log                string        `yaml:"log,omitempty"`
}

// ServeFlags holds runtime overrides from the serve command flags
type ServeFlags struct {
	Path           string
	Port           int // download/tunnel port, 0 keeps config value
	InterfacePort  int // browse interface port, 0 keeps config value
	UseConfigPath  string
	Log            string
	CredentialPath string
}

// AuthFlags holds the flags of the auth command
type AuthFlags struct {
	Token          string
	UseConfigPath  string
	CredentialPath string
}
