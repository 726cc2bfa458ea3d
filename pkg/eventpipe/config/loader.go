package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf picks the format from a file extension (.yaml, .yml or .json).
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported config file extension %q", filepath.Ext(path))
	}
}

// FromFile loads the document at path. ${VAR} references are expanded from
// the environment before parsing, so secrets such as ingestion tokens can
// stay out of the file.
func FromFile(path string) (Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Config{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Read(f, format)
}

// Read decodes one document from r after environment expansion.
func Read(r io.Reader, format Format) (Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	expanded := []byte(os.ExpandEnv(string(raw)))

	switch format {
	case FormatYAML:
		return FromYAML(expanded)
	case FormatJSON:
		return FromJSON(expanded)
	default:
		return Config{}, fmt.Errorf("unknown config format %q", format)
	}
}

// FromYAML parses a YAML mapping. An empty document yields an empty Config.
func FromYAML(data []byte) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse yaml config: %w", err)
	}
	return New(m), nil
}

// FromJSON parses a JSON object. Numbers decode as float64.
func FromJSON(data []byte) (Config, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return New(nil), nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse json config: %w", err)
	}
	return New(m), nil
}
