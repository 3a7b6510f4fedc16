package config

import (
	"path/filepath"
	"time"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
)

// Init holds build/initialization hook configuration
type Init struct {
	// Command overrides hook auto-detection when non-empty
	Command string        `koanf:"command"`
	Timeout time.Duration `koanf:"timeout"`
}

// Services holds service discovery and service-manager configuration
type Services struct {
	// SystemdDirs are scanned for unit links; each link names one service
	SystemdDirs []string `koanf:"systemd_dirs"`
	// WebServerDirs are scanned for links; any match implicates WebServerService
	WebServerDirs    []string `koanf:"webserver_dirs"`
	WebServerService string   `koanf:"webserver_service"`
	Systemctl        string   `koanf:"systemctl"`
	UseSudo          bool     `koanf:"use_sudo"`
}

// Git holds version-control configuration
type Git struct {
	Binary string `koanf:"binary"`
	// Branch is the ref whose pushes trigger a deployment
	Branch string `koanf:"branch"`
}

// History holds deployment history configuration
type History struct {
	Enabled bool `koanf:"enabled"`
	// Database is resolved against the deployment base when relative
	Database string `koanf:"database"`
}

// Config is the main configuration structure
type Config struct {
	Init     Init     `koanf:"init"`
	Services Services `koanf:"services"`
	Git      Git      `koanf:"git"`
	History  History  `koanf:"history"`
}

// Default returns the embedded default configuration
func Default() *Config {
	cfg, err := Load(LoadOptions{SkipFiles: true, SkipEnv: true})
	if err != nil {
		// Fallback to minimal config if the embedded defaults cannot load
		return &Config{
			Init:     Init{Timeout: 30 * time.Minute},
			Services: Services{WebServerService: "apache2", Systemctl: "systemctl", UseSudo: true},
			Git:      Git{Binary: "git", Branch: "refs/heads/master"},
			History:  History{Enabled: true, Database: "deployments.db"},
		}
	}
	return cfg
}

// Validate checks values that would make a deployment misbehave
func (c *Config) Validate() error {
	if c.Git.Branch == "" {
		return errors.New(errors.ErrInvalidInput, "git.branch must not be empty")
	}
	if c.Git.Binary == "" {
		return errors.New(errors.ErrInvalidInput, "git.binary must not be empty")
	}
	if c.Services.Systemctl == "" {
		return errors.New(errors.ErrInvalidInput, "services.systemctl must not be empty")
	}
	if len(c.Services.WebServerDirs) > 0 && c.Services.WebServerService == "" {
		return errors.New(errors.ErrInvalidInput,
			"services.webserver_service is required when webserver_dirs are configured")
	}
	if c.Init.Timeout < 0 {
		return errors.Newf(errors.ErrInvalidInput, "init.timeout must not be negative, got %s", c.Init.Timeout)
	}
	return nil
}

// HistoryPath returns the history database location for a deployment base
func (c *Config) HistoryPath(base string) string {
	if filepath.IsAbs(c.History.Database) {
		return c.History.Database
	}
	return filepath.Join(base, c.History.Database)
}
