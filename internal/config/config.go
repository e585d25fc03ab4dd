package config

import (
	"time"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/acceptor"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/reactor"
)

const (
	// APIVersion is the configuration schema version.
	APIVersion = "gateway.avapigw.io/v1"
	// KindGateway is the only supported configuration kind.
	KindGateway = "Gateway"
)

// GatewayConfig is the root of the gateway configuration.
type GatewayConfig struct {
	APIVersion string      `yaml:"apiVersion" json:"apiVersion"`
	Kind       string      `yaml:"kind" json:"kind"`
	Metadata   Metadata    `yaml:"metadata" json:"metadata"`
	Spec       GatewaySpec `yaml:"spec" json:"spec"`
}

// Metadata identifies a gateway instance.
type Metadata struct {
	Name   string            `yaml:"name" json:"name"`
	Labels map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// GatewaySpec holds the gateway settings.
type GatewaySpec struct {
	Servers       []ServerConfig       `yaml:"servers" json:"servers"`
	APIs          []reactor.API        `yaml:"apis,omitempty" json:"apis,omitempty"`
	Proxy         ProxyConfig          `yaml:"proxy,omitempty" json:"proxy,omitempty"`
	Admin         *AdminConfig         `yaml:"admin,omitempty" json:"admin,omitempty"`
	Observability *ObservabilityConfig `yaml:"observability,omitempty" json:"observability,omitempty"`
	Redis         *RedisConfig         `yaml:"redis,omitempty" json:"redis,omitempty"`
}

// ServerConfig declares one entrypoint server. Its ID is the server id
// acceptors may be restricted to.
type ServerConfig struct {
	ID              string        `yaml:"id" json:"id"`
	Kind            acceptor.Kind `yaml:"kind" json:"kind"`
	Address         string        `yaml:"address" json:"address"`
	ReadTimeout     Duration      `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	WriteTimeout    Duration      `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`
	IdleTimeout     Duration      `yaml:"idleTimeout,omitempty" json:"idleTimeout,omitempty"`
	ShutdownTimeout Duration      `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"`
	SNITimeout      Duration      `yaml:"sniTimeout,omitempty" json:"sniTimeout,omitempty"`
	MaxConnections  int           `yaml:"maxConnections,omitempty" json:"maxConnections,omitempty"`
}

// ProxyConfig tunes the handlers created for deployed APIs.
type ProxyConfig struct {
	DialTimeout   Duration `yaml:"dialTimeout,omitempty" json:"dialTimeout,omitempty"`
	DrainTimeout  Duration `yaml:"drainTimeout,omitempty" json:"drainTimeout,omitempty"`
	FlushInterval Duration `yaml:"flushInterval,omitempty" json:"flushInterval,omitempty"`
	BufferSize    int      `yaml:"bufferSize,omitempty" json:"bufferSize,omitempty"`
}

// AdminConfig configures the administration endpoint.
type AdminConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
}

// ObservabilityConfig groups logging and tracing settings.
type ObservabilityConfig struct {
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty"`
	Tracing *TracingConfig `yaml:"tracing,omitempty" json:"tracing,omitempty"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	ServiceName  string  `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
	OTLPEndpoint string  `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty" json:"samplingRate,omitempty"`
}

// RedisConfig configures the Redis deployment event channel.
type RedisConfig struct {
	Address  string `yaml:"address" json:"address"`
	Password string `yaml:"password,omitempty" json:"-"`
	DB       int    `yaml:"db,omitempty" json:"db,omitempty"`
	Channel  string `yaml:"channel,omitempty" json:"channel,omitempty"`
}

// Default values applied by ApplyDefaults.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultSNITimeout      = 5 * time.Second
	DefaultMaxConnections  = 10000
	DefaultAdminAddress    = ":9090"
	DefaultRedisChannel    = "gateway:deployments"
)

// DefaultConfig returns a configuration with one HTTP server on :8080 and
// the admin endpoint enabled.
func DefaultConfig() *GatewayConfig {
	cfg := &GatewayConfig{
		APIVersion: APIVersion,
		Kind:       KindGateway,
		Metadata:   Metadata{Name: "gateway"},
		Spec: GatewaySpec{
			Servers: []ServerConfig{
				{ID: "http", Kind: acceptor.KindHTTP, Address: ":8080"},
			},
			Admin: &AdminConfig{Enabled: true, Address: DefaultAdminAddress},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset optional fields.
func (c *GatewayConfig) ApplyDefaults() {
	for i := range c.Spec.Servers {
		s := &c.Spec.Servers[i]
		if s.Kind == "" {
			s.Kind = acceptor.KindHTTP
		}
		setDefault(&s.ReadTimeout, DefaultReadTimeout)
		setDefault(&s.WriteTimeout, DefaultWriteTimeout)
		setDefault(&s.IdleTimeout, DefaultIdleTimeout)
		setDefault(&s.ShutdownTimeout, DefaultShutdownTimeout)
		setDefault(&s.SNITimeout, DefaultSNITimeout)
		if s.MaxConnections <= 0 {
			s.MaxConnections = DefaultMaxConnections
		}
	}
	if c.Spec.Admin != nil && c.Spec.Admin.Address == "" {
		c.Spec.Admin.Address = DefaultAdminAddress
	}
	if c.Spec.Redis != nil && c.Spec.Redis.Channel == "" {
		c.Spec.Redis.Channel = DefaultRedisChannel
	}
}

func setDefault(d *Duration, value time.Duration) {
	if *d <= 0 {
		*d = Duration(value)
	}
}

// APIByID returns the API definition declared under id.
func (c *GatewayConfig) APIByID(id string) (*reactor.API, bool) {
	for i := range c.Spec.APIs {
		if c.Spec.APIs[i].ID() == id {
			return &c.Spec.APIs[i], true
		}
	}
	return nil, false
}

// ServerIDs returns the ids of every configured server.
func (c *GatewayConfig) ServerIDs() map[string]acceptor.Kind {
	ids := make(map[string]acceptor.Kind, len(c.Spec.Servers))
	for _, s := range c.Spec.Servers {
		ids[s.ID] = s.Kind
	}
	return ids
}
