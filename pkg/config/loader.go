package config

import (
	_ "embed"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// SystemConfigFile is the host-wide configuration file
	SystemConfigFile = "/etc/pushdeploy/config.toml"

	// BaseConfigFile is looked up inside the deployment base
	BaseConfigFile = "pushdeploy.toml"

	// EnvPrefix prefixes environment overrides, sections are separated by "__"
	EnvPrefix = "PUSHDEPLOY_"

	// ListSeparator splits list values given as a single string
	ListSeparator = ":"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, stderrors.New("not implemented")
}

// LoadOptions selects the configuration layers to load
type LoadOptions struct {
	// Base is the deployment base; <Base>/pushdeploy.toml is loaded when present
	Base string
	// SystemFile replaces SystemConfigFile when non-empty
	SystemFile string
	// ConfigFile is an explicit file that must exist when set
	ConfigFile string
	// Overrides are flattened keys ("services.systemd_dirs") set from flags
	Overrides map[string]interface{}
	SkipFiles bool
	SkipEnv   bool
}

// Load builds the configuration from, in increasing priority: embedded
// defaults, system file, base file, explicit file, environment, overrides.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to load defaults")
	}

	if !opts.SkipFiles {
		systemFile := opts.SystemFile
		if systemFile == "" {
			systemFile = SystemConfigFile
		}
		if err := loadOptionalFile(k, systemFile); err != nil {
			return nil, err
		}

		if opts.Base != "" {
			if err := loadOptionalFile(k, filepath.Join(opts.Base, BaseConfigFile)); err != nil {
				return nil, err
			}
		}

		if opts.ConfigFile != "" {
			if _, err := os.Stat(opts.ConfigFile); err != nil {
				return nil, errors.Wrapf(err, errors.ErrConfigLoad, "config file %s", opts.ConfigFile)
			}
			if err := k.Load(file.Provider(opts.ConfigFile), toml.Parser()); err != nil {
				return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to load config from %s", opts.ConfigFile)
			}
		}
	}

	if !opts.SkipEnv {
		err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load env vars")
		}
	}

	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load overrides")
		}
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(ListSeparator),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to unmarshal configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadOptionalFile merges a TOML file into k when it exists
func loadOptionalFile(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, errors.ErrConfigLoad, "failed to stat config %s", path)
	}
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return errors.Wrapf(err, errors.ErrConfigParse, "failed to load config from %s", path)
	}
	return nil
}

// envKey maps PUSHDEPLOY_SERVICES__USE_SUDO to services.use_sudo
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}
