package main

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds the environment defaults for the command-line flags.
type Config struct {
	Relay    []string `env:"RELAY"              envSeparator:","`
	Port     int      `env:"WEREWOLF_PORT"      envDefault:"8080"`
	Name     string   `env:"WEREWOLF_NAME"      envDefault:"werewolf"`
	DataPath string   `env:"WEREWOLF_DATA_PATH" envDefault:"werewolf-data"`
	CredKey  string   `env:"WEREWOLF_CRED_KEY"`
	Seed     int64    `env:"WEREWOLF_SEED"`
	LogLevel string   `env:"WEREWOLF_LOG_LEVEL" envDefault:"info"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// relayServers drops blank entries from a comma-split relay list.
func relayServers(raw []string) []string {
	servers := make([]string, 0, len(raw))
	for _, s := range raw {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			servers = append(servers, trimmed)
		}
	}
	return servers
}
