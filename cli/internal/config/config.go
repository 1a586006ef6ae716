// Package config provides configuration for the CLI.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds CLI configuration.
type Config struct {
	// Output format
	Format string // json, table, yaml

	// Verbosity
	Verbose bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Format:  getEnv("NAXOS_FORMAT", "table"),
		Verbose: getEnvBool("NAXOS_VERBOSE", false),
	}
}

// RunFile is a declarative evaluation run definition. It mirrors the
// evaluate command's flags; flags win when both are set.
type RunFile struct {
	Name    string   `yaml:"name"`
	Input   string   `yaml:"input"`
	Output  string   `yaml:"output"`
	Metrics []string `yaml:"metrics"`

	Judge struct {
		Backend    string `yaml:"backend"`
		Model      string `yaml:"model"`
		EmbedModel string `yaml:"embed_model"`
	} `yaml:"judge"`
}

// LoadRunFile parses a run definition from a YAML file.
func LoadRunFile(path string) (*RunFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	var rf RunFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse run file: %w", err)
	}
	return &rf, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}
