package jmp

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gnolang/jmp/internal"
)

// DefaultConfigFile is read when it exists and no other file is named.
const DefaultConfigFile = ".jmp.yaml"

// MacroDef is a user macro defined before processing starts. Params uses
// the syntax of the @def parameter block, e.g. "$a $b".
type MacroDef struct {
	Name   string `yaml:"name"`
	Params string `yaml:"params,omitempty"`
	Body   string `yaml:"body"`
}

// Config is everything a run can be configured with.
type Config struct {
	Name string `yaml:"name,omitempty"`
	// Restrict forbids redefining any existing macro.
	Restrict bool `yaml:"restrict"`
	// Prefix is prepended to the input before processing.
	Prefix string          `yaml:"prefix,omitempty"`
	Limits internal.Limits `yaml:"limits"`
	Macros []MacroDef      `yaml:"macros,omitempty"`
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	var config Config

	f, err := os.Open(path)
	if err != nil {
		return config, err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	// an empty document leaves the zero configuration
	if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return config, fmt.Errorf("parsing %s: %w", path, err)
	}

	for i, m := range config.Macros {
		if m.Name == "" {
			return config, fmt.Errorf("parsing %s: macro %d has no name", path, i+1)
		}
		config.Macros[i].Name = macroName(m.Name)
	}
	return config, nil
}

// WriteConfig writes config as YAML to path, replacing any existing file.
func WriteConfig(path string, config Config) error {
	d, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(d)
	return err
}

// DefaultConfig is the configuration `jmp init` writes.
func DefaultConfig() Config {
	return Config{
		Name: "jmp",
		Macros: []MacroDef{
			{Name: "@empty", Body: ""},
		},
	}
}

// macroName accepts names written with or without the leading '@'.
func macroName(name string) string {
	if strings.HasPrefix(name, "@") {
		return name
	}
	return "@" + name
}
