package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/km-arc/go-ioc/framework/container"
)

// Manifest lists the plugins an application loads at startup.
//
//	name: congratulations
//	plugins:
//	  - name: english
//	  - name: file-logger
//	    conf:
//	      path: /var/log/congratulations.log
type Manifest struct {
	Name    string                 `json:"name"`
	Plugins []container.PluginSpec `json:"plugins"`
}

// Names returns the plugin names in load order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Plugins))
	for i, p := range m.Plugins {
		names[i] = p.Name
	}
	return names
}

// LoadManifest reads a YAML or JSON manifest. Environment variables prefixed
// with IOC_ override its keys (IOC_NAME sets name, IOC_A__B sets a.b).
// IOC_PLUGINS replaces the plugin list with a comma separated list of names.
func LoadManifest(path string) (*Manifest, error) {
	k := koanf.New(".")
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("config: unsupported manifest format: %s", filepath.Ext(path))
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("config: load manifest %s: %w", path, err)
	}
	if err := k.Load(env.Provider("IOC_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "ioc_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	var override []container.PluginSpec
	if raw, ok := k.Get("plugins").(string); ok {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				override = append(override, container.PluginSpec{Name: name})
			}
		}
		k.Delete("plugins")
	}

	var m Manifest
	if err := k.UnmarshalWithConf("", &m, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("config: decode manifest %s: %w", path, err)
	}
	if override != nil {
		m.Plugins = override
	}
	for i, p := range m.Plugins {
		if p.Name == "" {
			return nil, fmt.Errorf("config: manifest %s: plugin %d has no name", path, i)
		}
	}
	return &m, nil
}

// DecodeConf decodes a plugin's raw settings into v using `json` tags.
// Scalars are converted weakly, so "8080" fills an int field.
func DecodeConf(conf map[string]any, v any) error {
	k := koanf.New(".")
	for key, val := range conf {
		if err := k.Set(key, val); err != nil {
			return err
		}
	}
	if err := k.UnmarshalWithConf("", v, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return fmt.Errorf("config: decode plugin conf: %w", err)
	}
	return nil
}
