package config

import (
	"github.com/arthur-debert/pushdeploy/pkg/errors"
	"github.com/pelletier/go-toml/v2"
)

// fileView mirrors Config in the shape of the TOML file
type fileView struct {
	Init struct {
		Command string `toml:"command"`
		Timeout string `toml:"timeout"`
	} `toml:"init"`
	Services struct {
		SystemdDirs      []string `toml:"systemd_dirs"`
		WebServerDirs    []string `toml:"webserver_dirs"`
		WebServerService string   `toml:"webserver_service"`
		Systemctl        string   `toml:"systemctl"`
		UseSudo          bool     `toml:"use_sudo"`
	} `toml:"services"`
	Git struct {
		Binary string `toml:"binary"`
		Branch string `toml:"branch"`
	} `toml:"git"`
	History struct {
		Enabled  bool   `toml:"enabled"`
		Database string `toml:"database"`
	} `toml:"history"`
}

// TOML renders the effective configuration in config-file syntax
func (c *Config) TOML() ([]byte, error) {
	var v fileView
	v.Init.Command = c.Init.Command
	v.Init.Timeout = c.Init.Timeout.String()
	v.Services.SystemdDirs = c.Services.SystemdDirs
	v.Services.WebServerDirs = c.Services.WebServerDirs
	v.Services.WebServerService = c.Services.WebServerService
	v.Services.Systemctl = c.Services.Systemctl
	v.Services.UseSudo = c.Services.UseSudo
	v.Git.Binary = c.Git.Binary
	v.Git.Branch = c.Git.Branch
	v.History.Enabled = c.History.Enabled
	v.History.Database = c.History.Database

	out, err := toml.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to render configuration")
	}
	return out, nil
}
