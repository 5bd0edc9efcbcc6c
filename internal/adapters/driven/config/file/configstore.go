package file

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// EnvPrefix prefixes environment variables that override config keys.
// SERCHA_RAG_LLM_API_KEY overrides llm.api_key.
const EnvPrefix = "SERCHA_RAG_"

// providerKeyEnv maps well-known provider variables to config keys.
var providerKeyEnv = map[string][]string{
	"OPENAI_API_KEY":    {"embedding.api_key", "llm.api_key"},
	"ANTHROPIC_API_KEY": {"llm.api_key"},
	"OLLAMA_HOST":       {"embedding.base_url", "llm.base_url"},
}

// ConfigStore is a file-based implementation of driven.ConfigStore using TOML.
// Keys use dot notation ("retrieval.min_score") and map to TOML tables.
//
// Values from the environment shadow file values but are never written
// back to disk, so API keys supplied through the environment stay out of
// the config file.
type ConfigStore struct {
	mu        sync.RWMutex
	filePath  string
	data      map[string]any
	overrides map[string]any
}

// DefaultDir returns the sercha-rag home directory. SERCHA_RAG_HOME
// takes precedence over ~/.sercha-rag.
func DefaultDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".sercha-rag"), nil
}

// NewConfigStore creates a new TOML-based config store.
// If configDir is empty, DefaultDir is used.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		filePath:  filepath.Join(configDir, "config.toml"),
		data:      make(map[string]any),
		overrides: make(map[string]any),
	}

	if err := s.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return s, nil
}

// ApplyEnv reads overrides from the environment. Provider variables such
// as OPENAI_API_KEY only fill keys whose provider matches; SERCHA_RAG_*
// variables always win.
func (s *ConfigStore) ApplyEnv(environ []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && v != "" {
			env[k] = v
		}
	}

	for name, keys := range providerKeyEnv {
		v, ok := env[name]
		if !ok {
			continue
		}
		for _, key := range keys {
			if providerAccepts(s.lookup(sectionOf(key)+".provider"), name) {
				s.overrides[key] = v
			}
		}
	}

	for name, v := range env {
		if !strings.HasPrefix(name, EnvPrefix) || name == EnvPrefix+"HOME" {
			continue
		}
		key := envToKey(strings.TrimPrefix(name, EnvPrefix))
		if key == "" {
			continue
		}
		s.overrides[key] = parseScalar(v)
	}
}

// envToKey turns LLM_API_KEY into llm.api_key. The first underscore
// separates the table, except for the VECTOR_STORE table.
func envToKey(name string) string {
	name = strings.ToLower(name)
	if rest, ok := strings.CutPrefix(name, "vector_store_"); ok {
		return "vector_store." + rest
	}
	section, rest, ok := strings.Cut(name, "_")
	if !ok || rest == "" {
		return ""
	}
	return section + "." + rest
}

func sectionOf(key string) string {
	section, _, _ := strings.Cut(key, ".")
	return section
}

func providerAccepts(provider any, envName string) bool {
	p, _ := provider.(string)
	switch envName {
	case "OPENAI_API_KEY":
		return p == "openai"
	case "ANTHROPIC_API_KEY":
		return p == "anthropic"
	case "OLLAMA_HOST":
		return p == "ollama"
	default:
		return false
	}
}

// parseScalar keeps environment values typed the way TOML would.
func parseScalar(v string) any {
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}

// lookup reads a key, overrides first (caller must hold lock).
func (s *ConfigStore) lookup(key string) any {
	if v, ok := s.overrides[key]; ok {
		return v
	}
	return s.data[key]
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if val, ok := s.overrides[key]; ok {
		return val, true
	}
	val, ok := s.data[key]
	return val, ok
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	val, _ := s.Get(key)
	str, _ := val.(string)
	return str
}

// GetInt retrieves an integer configuration value.
func (s *ConfigStore) GetInt(key string) int {
	val, ok := s.Get(key)
	if !ok {
		return 0
	}

	// TOML integers are parsed as int64
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// GetFloat retrieves a floating point configuration value.
func (s *ConfigStore) GetFloat(key string) float64 {
	val, ok := s.Get(key)
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// GetBool retrieves a boolean configuration value.
func (s *ConfigStore) GetBool(key string) bool {
	val, _ := s.Get(key)
	b, _ := val.(bool)
	return b
}

// GetStringSlice retrieves a string slice configuration value.
func (s *ConfigStore) GetStringSlice(key string) []string {
	val, ok := s.Get(key)
	if !ok {
		return nil
	}

	// TOML arrays are parsed as []any
	switch v := val.(type) {
	case []string:
		return v
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	default:
		return nil
	}
}

// Set stores a configuration value and persists immediately.
// A value set explicitly replaces any environment override for the key.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	delete(s.overrides, key)
	return s.save()
}

// Save persists the current configuration to disk.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes configuration as nested TOML tables (caller must hold lock).
func (s *ConfigStore) save() error {
	data, err := toml.Marshal(nestMap(s.data))
	if err != nil {
		return err
	}

	// Write with restricted permissions
	return os.WriteFile(s.filePath, data, 0600)
}

// Load reads configuration from the TOML file.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = make(map[string]any)
			return nil
		}
		return err
	}

	var loaded map[string]any
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return err
	}

	s.data = flattenMap(loaded, "")
	return nil
}

// flattenMap converts nested maps to dot-notation keys.
// E.g., {"a": {"b": 1}} becomes {"a.b": 1}.
func flattenMap(m map[string]any, prefix string) map[string]any {
	result := make(map[string]any)

	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			for k, v := range flattenMap(nested, fullKey) {
				result[k] = v
			}
		} else {
			result[fullKey] = value
		}
	}

	return result
}

// nestMap is the inverse of flattenMap, so the file reads as TOML tables.
func nestMap(flat map[string]any) map[string]any {
	result := make(map[string]any)
	for key, value := range flat {
		parts := strings.Split(key, ".")
		node := result
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}
	return result
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}
