package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	configName      = ".rally"
	configType      = "yaml"
	envPrefix       = "RALLY"
	envKeySeparator = "_"
)

// Load reads configuration from defaults, an optional YAML file and RALLY_*
// environment variables, in increasing precedence. If configPath is empty
// the file is searched as .rally.yaml in the working directory and $HOME.
// A missing file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", DefaultAddr)
	v.SetDefault("server.read_timeout", DefaultReadTimeout)
	v.SetDefault("server.write_timeout", DefaultWriteTimeout)

	v.SetDefault("storage.driver", DefaultStorageDriver)
	v.SetDefault("storage.path", DefaultStoragePath)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)

	// Registered so AutomaticEnv can see them during Unmarshal.
	v.SetDefault("feed.base_url", "")
	v.SetDefault("feed.token_url", "")
	v.SetDefault("feed.client_id", "")
	v.SetDefault("feed.client_secret", "")
	v.SetDefault("feed.scopes", []string{})
}
