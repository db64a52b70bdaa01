package config

import (
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/grafana/sigma-rule-deployment/errors"
)

// LoadFromFile loads the conversion configuration from a YAML file.
// Global defaults are registered first so omitted fields resolve to the
// documented values, and CONVERT_* environment variables override any
// key (CONVERT_DEFAULTS_TARGET, CONVERT_DEFAULTS_FILE_PATTERN, ...).
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	SetDefaults(v)

	v.SetEnvPrefix("CONVERT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.WrapConfiguration(err, "failed to read config file "+configPath)
	}

	return LoadWithViper(v)
}

// LoadWithViper unmarshals and validates a configuration from a prepared
// Viper instance. Split out so tests can assemble configs in memory.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, errors.WrapConfiguration(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults configures default values for all global options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("defaults.target", "loki")
	v.SetDefault("defaults.format", "default")
	v.SetDefault("defaults.skip-unsupported", true)
	v.SetDefault("defaults.file-pattern", "*.yml")
	v.SetDefault("defaults.encoding", "utf-8")
	v.SetDefault("defaults.engine-command", "sigma convert")
	v.SetDefault("defaults.output-mode", OutputModeRaw)
	v.SetDefault("defaults.timeout", "0s") // no per-job engine timeout
}

// decodeHooks composes the decode hooks the config schema needs: the
// stock duration hook plus one that accepts a bare string wherever a
// list of strings is expected, so `input: rules/**/*.yml` and
// `input: [a, b]` both parse.
func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		scalarToSliceHook(),
	)
}

func scalarToSliceHook() mapstructure.DecodeHookFuncType {
	stringSlice := reflect.TypeOf([]string(nil))
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() == reflect.String && to == stringSlice {
			return []string{data.(string)}, nil
		}
		return data, nil
	}
}
