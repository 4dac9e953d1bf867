// Package manifest loads the list of known voices from a YAML file.
//
//	voices:
//	  - language: en
//	    country: US
//	    path: en_US-amy
//	  - language: es
//	    country: ES
//	    variant: ""
//	    path: /opt/voices/es_ES-carla.onnx
//
// Entry order is catalog insertion order, and therefore lookup priority.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/lexiqai/voice-catalog/internal/voices"
)

// Entry is one voice in the manifest
type Entry struct {
	Language string `yaml:"language"`
	Country  string `yaml:"country"`
	Variant  string `yaml:"variant"`
	Name     string `yaml:"name,omitempty"`
	Path     string `yaml:"path"`
}

// Locale returns the entry's locale
func (e Entry) Locale() voices.Locale {
	return voices.NewLocale(e.Language, e.Country, e.Variant)
}

// Manifest is the parsed voice list
type Manifest struct {
	Voices []Entry `yaml:"voices"`
}

// Load reads a manifest file. Relative voice paths are resolved against baseDir.
func Load(path, baseDir string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data, baseDir)
}

// Parse decodes manifest YAML and validates every entry
func Parse(data []byte, baseDir string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	for i := range m.Voices {
		e := &m.Voices[i]
		if e.Language == "" {
			return nil, fmt.Errorf("voice %d: language is required", i)
		}
		if e.Path == "" {
			return nil, fmt.Errorf("voice %d (%s): path is required", i, e.Locale())
		}
		if !filepath.IsAbs(e.Path) && baseDir != "" {
			e.Path = filepath.Join(baseDir, e.Path)
		}
	}
	return &m, nil
}

// Populate adds every manifest voice to the catalog, in file order.
// Registration errors under AllRegistered are collected, not fatal: the
// voice stays listed and its lookups report it unregistered.
func (m *Manifest) Populate(c *voices.Catalog, register voices.RegisterFunc, unregister voices.UnregisterFunc) []error {
	var errs []error
	for _, e := range m.Voices {
		if err := c.Add(e.Locale(), e.Path, register, unregister); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
