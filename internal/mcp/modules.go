package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultModuleConfigPath is where the module document is looked up when
	// no path is configured.
	DefaultModuleConfigPath = "modules.json"
)

// DefaultModuleOrder is the built-in module set used when the module document
// cannot be read.
var DefaultModuleOrder = []string{
	"search",
	"papers",
	"reviews",
	"citations",
	"users",
	"auth",
	"marketplace",
	"credits",
}

// ModuleEntry is the per-module part of the module document.
type ModuleEntry struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ModuleSet maps module names to entries and remembers document order.
type ModuleSet struct {
	names   []string
	entries map[string]ModuleEntry
}

// Get returns the entry for name.
func (s ModuleSet) Get(name string) (ModuleEntry, bool) {
	entry, ok := s.entries[name]
	return entry, ok
}

// Set adds or replaces an entry. New names go to the end.
func (s *ModuleSet) Set(name string, entry ModuleEntry) {
	if s.entries == nil {
		s.entries = map[string]ModuleEntry{}
	}
	if _, exists := s.entries[name]; !exists {
		s.names = append(s.names, name)
	}
	s.entries[name] = entry
}

// Names returns module names in document order.
func (s ModuleSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of modules.
func (s ModuleSet) Len() int { return len(s.names) }

func (s ModuleSet) clone() ModuleSet {
	out := ModuleSet{
		names:   s.Names(),
		entries: make(map[string]ModuleEntry, len(s.entries)),
	}
	for name, entry := range s.entries {
		out.entries[name] = entry
	}
	return out
}

// UnmarshalJSON keeps key order. Entries that do not decode as an object are
// kept as disabled.
func (s *ModuleSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = ModuleSet{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("enabledModules must be an object")
	}
	out := ModuleSet{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var entry ModuleEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			entry = ModuleEntry{}
		}
		out.Set(name, entry)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

// MarshalJSON writes entries in document order.
func (s ModuleSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range s.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(s.entries[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML keeps key order, like UnmarshalJSON.
func (s *ModuleSet) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("enabledModules must be a mapping (line %d)", value.Line)
	}
	out := ModuleSet{}
	for i := 0; i+1 < len(value.Content); i += 2 {
		var entry ModuleEntry
		if err := value.Content[i+1].Decode(&entry); err != nil {
			entry = ModuleEntry{}
		}
		out.Set(value.Content[i].Value, entry)
	}
	*s = out
	return nil
}

// MarshalYAML writes entries in document order.
func (s ModuleSet) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range s.names {
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(s.entries[name]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: name}, valueNode)
	}
	return node, nil
}

// ModuleConfig is the module document: which modules are enabled and the
// order they load in.
type ModuleConfig struct {
	EnabledModules  ModuleSet `json:"enabledModules" yaml:"enabledModules"`
	ModuleLoadOrder []string  `json:"moduleLoadOrder,omitempty" yaml:"moduleLoadOrder,omitempty"`
}

// LoadOrder returns the explicit order, or document key order when none is set.
func (c ModuleConfig) LoadOrder() []string {
	if len(c.ModuleLoadOrder) > 0 {
		out := make([]string, len(c.ModuleLoadOrder))
		copy(out, c.ModuleLoadOrder)
		return out
	}
	return c.EnabledModules.Names()
}

// IsEnabled reports whether name has an entry with enabled set.
func (c ModuleConfig) IsEnabled(name string) bool {
	entry, ok := c.EnabledModules.Get(name)
	return ok && entry.Enabled
}

// Clone returns a deep copy.
func (c ModuleConfig) Clone() ModuleConfig {
	out := ModuleConfig{EnabledModules: c.EnabledModules.clone()}
	if c.ModuleLoadOrder != nil {
		out.ModuleLoadOrder = make([]string, len(c.ModuleLoadOrder))
		copy(out.ModuleLoadOrder, c.ModuleLoadOrder)
	}
	return out
}

// DefaultModuleConfig enables every built-in module in DefaultModuleOrder.
func DefaultModuleConfig() ModuleConfig {
	cfg := ModuleConfig{}
	for _, name := range DefaultModuleOrder {
		cfg.EnabledModules.Set(name, ModuleEntry{Enabled: true})
	}
	cfg.ModuleLoadOrder = append([]string(nil), DefaultModuleOrder...)
	return cfg
}

// ReadModuleConfig reads and decodes the module document at path.
func ReadModuleConfig(path string) (ModuleConfig, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultModuleConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ModuleConfig{}, err
	}
	var cfg ModuleConfig
	if isYAMLPath(path) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return ModuleConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadModuleConfig reads the module document and falls back to
// DefaultModuleConfig when it is missing or malformed.
func LoadModuleConfig(log *slog.Logger, path string) ModuleConfig {
	if log == nil {
		log = slog.Default()
	}
	cfg, err := ReadModuleConfig(path)
	if err != nil {
		log.Warn("module config unavailable, using built-in defaults",
			slog.String("path", path),
			slog.Any("error", err),
		)
		return DefaultModuleConfig()
	}
	return cfg
}

// SaveModuleConfig writes the module document to path, replacing it atomically.
func SaveModuleConfig(path string, cfg ModuleConfig) error {
	if strings.TrimSpace(path) == "" {
		path = DefaultModuleConfigPath
	}
	var (
		data []byte
		err  error
	)
	if isYAMLPath(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("encode module config: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".modules-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
