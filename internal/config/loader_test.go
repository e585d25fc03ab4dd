package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/acceptor"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/reactor"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewLoader(t *testing.T) {
	t.Parallel()

	loader := NewLoader()
	assert.NotNil(t, loader)
	assert.NotNil(t, loader.active)
	assert.Equal(t, defaultMaxIncludeDepth, loader.maxDepth)
}

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	configPath := writeFile(t, t.TempDir(), "config.yaml", validConfigYAML)

	cfg, err := NewLoader().Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, APIVersion, cfg.APIVersion)
	assert.Equal(t, KindGateway, cfg.Kind)
	assert.Equal(t, "test-gateway", cfg.Metadata.Name)

	require.Len(t, cfg.Spec.Servers, 2)
	assert.Equal(t, acceptor.KindTCP, cfg.Spec.Servers[1].Kind)
	assert.Equal(t, DefaultReadTimeout, cfg.Spec.Servers[0].ReadTimeout.Duration())
	assert.Equal(t, DefaultMaxConnections, cfg.Spec.Servers[1].MaxConnections)

	require.Len(t, cfg.Spec.APIs, 2)
	products, ok := cfg.APIByID("products")
	require.True(t, ok)
	assert.Equal(t, []reactor.VirtualHost{
		{Path: "/products"},
		{Host: "api.gravitee.io", Path: "/products/v2", ServerIDs: []string{"public"}},
	}, products.VirtualHosts)

	acme, ok := cfg.APIByID("acme")
	require.True(t, ok)
	assert.Equal(t, []reactor.TCPHost{{Host: "acme.com", ServerIDs: []string{"tls"}}}, acme.TCPHosts)

	assert.NoError(t, ValidateConfig(cfg))
}

func TestLoader_Load_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoadConfigFromReader(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfigFromReader(strings.NewReader(`
apiVersion: gateway.avapigw.io/v1
kind: Gateway
metadata:
  name: reader
spec:
  servers:
    - id: edge
      address: ":8080"
      readTimeout: 5s
  redis:
    address: localhost:6379
`))
	require.NoError(t, err)

	require.Len(t, cfg.Spec.Servers, 1)
	assert.Equal(t, acceptor.KindHTTP, cfg.Spec.Servers[0].Kind)
	assert.Equal(t, 5*time.Second, cfg.Spec.Servers[0].ReadTimeout.Duration())
	require.NotNil(t, cfg.Spec.Redis)
	assert.Equal(t, DefaultRedisChannel, cfg.Spec.Redis.Channel)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("ACCEPTOR_TEST_TARGET", "http://backend:9000")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "set variable", in: "target: ${ACCEPTOR_TEST_TARGET}", want: "target: http://backend:9000"},
		{name: "default used", in: "port: ${ACCEPTOR_TEST_UNSET:-8080}", want: "port: 8080"},
		{name: "set variable ignores default", in: "${ACCEPTOR_TEST_TARGET:-x}", want: "http://backend:9000"},
		{name: "unset without default", in: "a${ACCEPTOR_TEST_UNSET}b", want: "ab"},
		{name: "escaped dollar", in: "$${ACCEPTOR_TEST_TARGET}", want: "${ACCEPTOR_TEST_TARGET}"},
		{name: "bare dollar kept", in: "price: $5", want: "price: $5"},
		{name: "unterminated", in: "a: ${ACCEPTOR_TEST_TARGET", want: "a: ${ACCEPTOR_TEST_TARGET"},
		{name: "no variables", in: "plain", want: "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnv(tt.in))
		})
	}
}

func TestParseConfig_InvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := parseConfig([]byte("spec: [unclosed"))
	assert.Error(t, err)
}

func TestLoader_Load_Includes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "apis.yaml", `
spec:
  apis:
    - id: a
      target: http://a:80
    - id: b
      target: http://b:80
`)
	main := writeFile(t, dir, "gateway.yaml", `
includes:
  - apis.yaml
apiVersion: gateway.avapigw.io/v1
kind: Gateway
metadata:
  name: main
spec:
  servers:
    - id: edge
      address: ":8080"
  apis:
    - id: b
      target: http://b-override:80
    - id: c
      target: http://c:80
`)

	cfg, err := NewLoader().Load(main)
	require.NoError(t, err)

	assert.Equal(t, "main", cfg.Metadata.Name)
	require.Len(t, cfg.Spec.APIs, 3)
	b, ok := cfg.APIByID("b")
	require.True(t, ok)
	assert.Equal(t, "http://b-override:80", b.Target)
	_, ok = cfg.APIByID("a")
	assert.True(t, ok)
}

func TestLoader_Load_CircularInclude(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "includes: [b.yaml]\n")
	writeFile(t, dir, "b.yaml", "includes: [a.yaml]\n")

	_, err := NewLoader().Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular include")
}

func TestLoader_Load_SharedInclude(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "common.yaml", "spec:\n  apis:\n    - id: common\n      target: http://common:80\n")
	writeFile(t, dir, "a.yaml", "includes: [common.yaml]\n")
	writeFile(t, dir, "b.yaml", "includes: [common.yaml]\n")
	main := writeFile(t, dir, "gateway.yaml", "includes: [a.yaml, b.yaml]\nmetadata:\n  name: main\n")

	cfg, err := NewLoader().Load(main)
	require.NoError(t, err)
	require.Len(t, cfg.Spec.APIs, 1)
	assert.Equal(t, "common", cfg.Spec.APIs[0].ID())
}

func TestLoader_LoadData(t *testing.T) {
	t.Setenv("ACCEPTOR_TEST_NAME", "from-env")

	dir := t.TempDir()
	writeFile(t, dir, "servers.yaml", "spec:\n  servers:\n    - id: edge\n      address: \":8080\"\n")

	cfg, err := NewLoader().LoadData(filepath.Join(dir, "gateway.yaml"),
		[]byte("includes: [servers.yaml]\nmetadata:\n  name: ${ACCEPTOR_TEST_NAME}\n"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Metadata.Name)
	require.Len(t, cfg.Spec.Servers, 1)
	assert.Equal(t, DefaultShutdownTimeout, cfg.Spec.Servers[0].ShutdownTimeout.Duration())
}

func TestMergeConfigs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultConfig(), MergeConfigs())

	base := &GatewayConfig{
		Metadata: Metadata{Name: "base", Labels: map[string]string{"env": "dev", "team": "core"}},
		Spec: GatewaySpec{
			Servers: []ServerConfig{{ID: "edge", Address: ":8080"}},
			Admin:   &AdminConfig{Enabled: true, Address: ":9090"},
		},
	}
	override := &GatewayConfig{
		Metadata: Metadata{Labels: map[string]string{"env": "prod"}},
		Spec: GatewaySpec{
			Redis: &RedisConfig{Address: "redis:6379"},
		},
	}

	merged := MergeConfigs(base, override)
	assert.Equal(t, "base", merged.Metadata.Name)
	assert.Equal(t, map[string]string{"env": "prod", "team": "core"}, merged.Metadata.Labels)
	assert.Equal(t, base.Spec.Servers, merged.Spec.Servers)
	assert.Equal(t, base.Spec.Admin, merged.Spec.Admin)
	assert.Equal(t, override.Spec.Redis, merged.Spec.Redis)
	assert.Equal(t, "dev", base.Metadata.Labels["env"])
}

func TestResolveConfigPath(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "gateway.yaml", validConfigYAML)

	resolved, err := ResolveConfigPath(path)
	require.NoError(t, err)
	assert.Equal(t, path, resolved)

	_, err = ResolveConfigPath("/definitely/missing/gateway.yaml")
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, ValidateConfig(cfg))
	assert.Equal(t, map[string]acceptor.Kind{"http": acceptor.KindHTTP}, cfg.ServerIDs())
}

func TestDuration_YAML(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfigFromReader(strings.NewReader(`
spec:
  proxy:
    drainTimeout: 1m30s
`))
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Spec.Proxy.DrainTimeout.Duration())

	_, err = LoadConfigFromReader(strings.NewReader("spec:\n  proxy:\n    drainTimeout: soon\n"))
	assert.Error(t, err)
}
