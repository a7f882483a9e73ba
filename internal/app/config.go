package app

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Server struct {
		Port string `toml:"port"`
	} `toml:"server"`

	Auth struct {
		RedisURL    string `toml:"redis_url"`
		TokenHeader string `toml:"token_header"`
	} `toml:"auth"`

	// Admin is the single reviewer credential. It is not a stored row;
	// the defaults match the legacy deployment.
	Admin struct {
		Name     string `toml:"name"`
		Password string `toml:"password"`
	} `toml:"admin"`

	Database struct {
		DSN           string `toml:"dsn"`
		MigrationsDir string `toml:"migrations_dir"`
	} `toml:"database"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf(
			"error reading config file %s\n> Error: %w\n> Content:\n%s",
			path,
			err,
			string(data),
		)
	}

	if config.Server.Port == "" {
		return nil, fmt.Errorf("Server port is not specified in config, use a value like :9999")
	}
	if config.Auth.RedisURL == "" {
		return nil, fmt.Errorf("Auth redis_url is not specified in config")
	}
	if config.Auth.TokenHeader == "" {
		config.Auth.TokenHeader = "Authorization"
	}
	if config.Admin.Name == "" {
		config.Admin.Name = "admin"
	}
	if config.Admin.Password == "" {
		config.Admin.Password = "admin"
	}

	return &config, nil
}
