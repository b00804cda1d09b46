package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ReadFile decodes path into cfg. Fields absent from the file keep their
// current values. The format follows the extension: .json, or .yaml/.yml.
func ReadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config %q: %w", path, os.ErrNotExist)
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("json unmarshal %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("yaml unmarshal %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config %q: unknown extension %q: %w", path, ext, ErrInvalid)
	}
	return nil
}

// WriteFile encodes cfg to path, creating parent directories.
func WriteFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}

	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		data, err = json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("json marshal: %w", err)
		}
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("yaml marshal: %w", err)
		}
	default:
		return fmt.Errorf("config %q: unknown extension %q: %w", path, ext, ErrInvalid)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// MarshalJSON writes TickRate as a duration string such as "16.667ms", the
// same form the YAML encoder uses.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	return json.Marshal(struct {
		alias
		TickRate string `json:"tickRate"`
	}{alias(c), c.TickRate.String()})
}

// UnmarshalJSON accepts TickRate as a duration string or as integer
// nanoseconds. Fields absent from data keep their current values.
func (c *Config) UnmarshalJSON(data []byte) error {
	type alias Config
	aux := struct {
		*alias
		TickRate json.RawMessage `json:"tickRate"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.TickRate) == 0 || string(aux.TickRate) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(aux.TickRate, &s); err == nil {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("tickRate %q: %w: %w", s, ErrInvalid, err)
		}
		c.TickRate = d
		return nil
	}
	var n int64
	if err := json.Unmarshal(aux.TickRate, &n); err != nil {
		return fmt.Errorf("tickRate %s: %w: %w", aux.TickRate, ErrInvalid, err)
	}
	c.TickRate = time.Duration(n)
	return nil
}
