package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/reactor"
)

const defaultMaxIncludeDepth = 10

// Loader reads configuration files. A file may list other files under a
// top-level "includes" key; included files are merged first and the
// including file overrides them. Values may reference the environment
// as ${VAR} or ${VAR:-default}; "$$" is a literal dollar sign.
type Loader struct {
	maxDepth int
	active   map[string]bool
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		maxDepth: defaultMaxIncludeDepth,
		active:   make(map[string]bool),
	}
}

// LoadConfig loads configuration from a file path.
func LoadConfig(path string) (*GatewayConfig, error) {
	return NewLoader().Load(path)
}

// LoadConfigFromReader loads configuration from an io.Reader. Includes are
// resolved against the working directory.
func LoadConfigFromReader(r io.Reader) (*GatewayConfig, error) {
	return NewLoader().LoadFromReader(r)
}

// Load loads the file at path and its includes.
func (l *Loader) Load(path string) (*GatewayConfig, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	return l.loadFile(absPath, 0)
}

// LoadFromReader loads configuration from r.
func (l *Loader) LoadFromReader(r io.Reader) (*GatewayConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return l.loadData(filepath.Join(dir, "<reader>"), data, 0)
}

// LoadData loads data as if it had been read from path, so includes are
// resolved relative to path.
func (l *Loader) LoadData(path string, data []byte) (*GatewayConfig, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	return l.loadData(absPath, data, 0)
}

func (l *Loader) loadFile(path string, depth int) (*GatewayConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // configuration path is operator supplied
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return l.loadData(path, data, depth)
}

func (l *Loader) loadData(path string, data []byte, depth int) (*GatewayConfig, error) {
	if l.active[path] {
		return nil, fmt.Errorf("circular include detected: %s", path)
	}
	if depth > l.maxDepth {
		return nil, fmt.Errorf("maximum include depth (%d) exceeded at %s", l.maxDepth, path)
	}
	l.active[path] = true
	defer delete(l.active, path)

	content := []byte(expandEnv(string(data)))

	var header struct {
		Includes []string `yaml:"includes"`
	}
	if err := yaml.Unmarshal(content, &header); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in %s: %w", path, err)
	}

	layers := make([]*GatewayConfig, 0, len(header.Includes)+1)
	for _, include := range header.Includes {
		if !filepath.IsAbs(include) {
			include = filepath.Join(filepath.Dir(path), include)
		}
		included, err := l.loadFile(include, depth+1)
		if err != nil {
			return nil, fmt.Errorf("failed to load include %s: %w", include, err)
		}
		layers = append(layers, included)
	}

	own, err := parseConfig(content)
	if err != nil {
		return nil, err
	}
	layers = append(layers, own)

	cfg := MergeConfigs(layers...)
	cfg.ApplyDefaults()
	return cfg, nil
}

// parseConfig decodes expanded YAML.
func parseConfig(data []byte) (*GatewayConfig, error) {
	var cfg GatewayConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &cfg, nil
}

// expandEnv replaces ${VAR} and ${VAR:-default} with the environment
// value, or the default when VAR is unset. "$$" yields "$". Anything else,
// including an unterminated "${", is copied unchanged.
func expandEnv(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '$' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case '$':
			b.WriteByte('$')
			i++
		case '{':
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				b.WriteByte(s[i])
				continue
			}
			b.WriteString(lookupEnv(s[i+2 : i+2+end]))
			i += 2 + end
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func lookupEnv(expr string) string {
	name, def, _ := strings.Cut(expr, ":-")
	if value, ok := os.LookupEnv(name); ok {
		return value
	}
	return def
}

// MergeConfigs merges configurations, later ones taking precedence. With
// no input it returns DefaultConfig.
func MergeConfigs(configs ...*GatewayConfig) *GatewayConfig {
	if len(configs) == 0 {
		return DefaultConfig()
	}
	result := configs[0]
	for _, next := range configs[1:] {
		result = merge(result, next)
	}
	return result
}

// merge overlays override on base. APIs are merged by id; servers are
// replaced when override declares any. Neither input is modified.
func merge(base, override *GatewayConfig) *GatewayConfig {
	if override == nil {
		return base
	}
	if base == nil {
		return override
	}

	result := *base
	result.APIVersion = firstNonEmpty(override.APIVersion, base.APIVersion)
	result.Kind = firstNonEmpty(override.Kind, base.Kind)
	result.Metadata.Name = firstNonEmpty(override.Metadata.Name, base.Metadata.Name)

	result.Metadata.Labels = make(map[string]string, len(base.Metadata.Labels)+len(override.Metadata.Labels))
	for _, labels := range []map[string]string{base.Metadata.Labels, override.Metadata.Labels} {
		for k, v := range labels {
			result.Metadata.Labels[k] = v
		}
	}

	if len(override.Spec.Servers) > 0 {
		result.Spec.Servers = override.Spec.Servers
	}
	result.Spec.APIs = mergeAPIs(base.Spec.APIs, override.Spec.APIs)

	if override.Spec.Proxy != (ProxyConfig{}) {
		result.Spec.Proxy = override.Spec.Proxy
	}
	if override.Spec.Admin != nil {
		result.Spec.Admin = override.Spec.Admin
	}
	if override.Spec.Observability != nil {
		result.Spec.Observability = override.Spec.Observability
	}
	if override.Spec.Redis != nil {
		result.Spec.Redis = override.Spec.Redis
	}
	return &result
}

// mergeAPIs keeps the order of base, replacing definitions override
// redeclares, and appends the new ones.
func mergeAPIs(base, override []reactor.API) []reactor.API {
	merged := append([]reactor.API(nil), base...)
	index := make(map[string]int, len(merged))
	for i := range merged {
		index[merged[i].ID()] = i
	}
	for _, api := range override {
		if i, ok := index[api.ID()]; ok {
			merged[i] = api
			continue
		}
		index[api.ID()] = len(merged)
		merged = append(merged, api)
	}
	return merged
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ResolveConfigPath returns the absolute path of the configuration file.
// A relative path that does not exist is also looked up under ./configs,
// /etc/avapigw-acceptor and ~/.avapigw-acceptor.
func ResolveConfigPath(path string) (string, error) {
	candidates := []string{path}
	if !filepath.IsAbs(path) {
		candidates = append(candidates,
			filepath.Join("configs", path),
			filepath.Join(string(filepath.Separator), "etc", "avapigw-acceptor", path),
		)
		if home, err := os.UserHomeDir(); err == nil {
			candidates = append(candidates, filepath.Join(home, ".avapigw-acceptor", path))
		}
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return filepath.Abs(candidate)
		}
	}
	return "", fmt.Errorf("config file not found: %s", path)
}
