// Package hookconfig loads the configurable lint/test tool
// invocations used by the complete-current pipeline from .specflow.tools.yml.
package hookconfig

import (
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultTimeoutSeconds applies when a ToolConfig omits Timeout.
const DefaultTimeoutSeconds = 30

// ToolConfig defines a single external tool invocation.
type ToolConfig struct {
	Command    string `yaml:"command"`
	Timeout    int    `yaml:"timeout"`
	PipeOutput bool   `yaml:"pipe_output"`
}

// TimeoutOrDefault returns the configured timeout, or DefaultTimeoutSeconds
// when unset.
func (t ToolConfig) TimeoutOrDefault() int {
	if t.Timeout <= 0 {
		return DefaultTimeoutSeconds
	}
	return t.Timeout
}

// Config is the top-level tool configuration.
type Config struct {
	Version int        `yaml:"version"`
	Lint    ToolConfig `yaml:"lint"`
	Test    ToolConfig `yaml:"test"`
}

// Load reads and parses the tool configuration at path. A missing file
// returns an empty Config with no error: every caller treats an empty
// Command as "skip this step".
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
