package formconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Designer tools occasionally paste markup into titles and help text; strip it
// before the config reaches any consumer.
var sanitizer = bluemonday.StrictPolicy()

// ParseJSON decodes, sanitises, and validates a JSON configuration document.
func ParseJSON(data []byte) (*FormConfig, error) {
	var cfg FormConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("formconfig: decode json: %w", err)
	}
	return finalise(&cfg)
}

// ParseYAML decodes, sanitises, and validates a YAML configuration document.
func ParseYAML(data []byte) (*FormConfig, error) {
	var cfg FormConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("formconfig: decode yaml: %w", err)
	}
	return finalise(&cfg)
}

// LoadFile reads a configuration from disk, choosing the decoder by file
// extension (.yaml/.yml for YAML, anything else JSON).
func LoadFile(path string) (*FormConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("formconfig: read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// FromMap decodes an already-parsed document (for callers embedding form
// configs inside larger configuration trees) into a validated FormConfig.
func FromMap(doc map[string]any) (*FormConfig, error) {
	var cfg FormConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("formconfig: decoder: %w", err)
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, fmt.Errorf("formconfig: decode document: %w", err)
	}
	return finalise(&cfg)
}

func finalise(cfg *FormConfig) (*FormConfig, error) {
	sanitise(cfg)
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func sanitise(cfg *FormConfig) {
	cfg.Walk(func(sec *Section, _ *Section) bool {
		sec.Title = cleanText(sec.Title)
		for i := range sec.Fields {
			sec.Fields[i].Label = cleanText(sec.Fields[i].Label)
			sec.Fields[i].Description = cleanText(sec.Fields[i].Description)
		}
		return true
	})
}

func cleanText(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(sanitizer.Sanitize(raw))
}

func applyDefaults(cfg *FormConfig) {
	cfg.Walk(func(sec *Section, _ *Section) bool {
		for i := range sec.Fields {
			if sec.Fields[i].Type == "" {
				sec.Fields[i].Type = FieldTypeText
			}
		}
		return true
	})
}
