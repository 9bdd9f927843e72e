package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/toyz/tyx/internal/annotations"
	"github.com/toyz/tyx/internal/errors"
	"github.com/toyz/tyx/internal/utils"
)

// Output formats accepted by Config.Format
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ConfigName is the base name of the optional configuration file
const ConfigName = "tyx"

// Config holds the configuration for a CLI run
type Config struct {
	// Directories is the list of directories to scan for annotated Go files.
	// Entries ending in /... are scanned recursively.
	Directories []string `mapstructure:"directories"`

	// ModuleName overrides the module path read from go.mod
	ModuleName string `mapstructure:"module"`

	// Verbose enables detailed logging and error reporting
	Verbose bool `mapstructure:"verbose"`

	// Quiet only shows errors and final results
	Quiet bool `mapstructure:"quiet"`

	// Format selects text, json or yaml output
	Format string `mapstructure:"format"`

	// Prefix is the annotation namespace, "tyx" for //tyx::api
	Prefix string `mapstructure:"prefix"`
}

// NewViper returns a viper instance carrying the defaults and environment
// bindings of Config. Flags may be bound onto it before LoadConfig.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("directories", []string{"./..."})
	v.SetDefault("module", "")
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)
	v.SetDefault("format", FormatText)
	v.SetDefault("prefix", annotations.DefaultPrefix)

	v.SetEnvPrefix("TYX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads path, or tyx.yaml from the working directory when path is
// empty. A missing default file is not an error.
func LoadConfig(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.WrapConfigurationError(ConfigName, "read", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.WrapConfigurationError(ConfigName, "decode", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// configRules are checked in order by Validate
var configRules = utils.NewValidatorChain(
	field("format", func(c *Config) string { return c.Format },
		utils.IsOneOf("format", FormatText, FormatJSON, FormatYAML)),
	field("prefix", func(c *Config) string { return c.Prefix },
		utils.NotEmpty("prefix"),
		utils.ExcludesAny("prefix", " \t:/", "spaces, colons or slashes")),
	field("directories", func(c *Config) []string { return c.Directories },
		utils.SliceNotEmpty[string]("directories")),
	func(c *Config) error {
		if c.Verbose && c.Quiet {
			return errors.ConfigurationError(ConfigName, "verbose and quiet cannot both be set")
		}
		return nil
	},
)

// field lifts validators of one Config value into a Config validator and
// reports failures as configuration errors.
func field[T any](name string, get func(*Config) T, validators ...utils.Validator[T]) utils.Validator[*Config] {
	chain := utils.NewValidatorChain(validators...)
	return func(c *Config) error {
		value := get(c)
		if err := chain.Validate(value); err != nil {
			return errors.ConfigurationError(ConfigName, fmt.Sprintf("%s %v", name, err)).
				WithContext(name, value)
		}
		return nil
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	return configRules.Validate(c)
}
