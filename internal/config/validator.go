package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/acceptor"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/reactor"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/util"
)

// ErrInvalidConfig matches every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Is reports whether target is ErrInvalidConfig.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidConfig
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates gateway configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates a gateway configuration.
func ValidateConfig(config *GatewayConfig) error {
	v := NewValidator()
	return v.Validate(config)
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *GatewayConfig) error {
	v.errors = make(ValidationErrors, 0)

	if config == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateRoot(config)
	v.validateMetadata(&config.Metadata)
	v.validateSpec(&config.Spec)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

// ValidateAPI validates a single API definition against the configured
// servers. It is used for APIs received at runtime.
func (v *Validator) ValidateAPI(api *reactor.API, servers map[string]acceptor.Kind) error {
	v.errors = make(ValidationErrors, 0)
	v.validateAPI(api, "api", servers)
	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateRoot(config *GatewayConfig) {
	if config.APIVersion == "" {
		v.addError("apiVersion", "apiVersion is required")
	} else if !strings.HasPrefix(config.APIVersion, "gateway.avapigw.io/") {
		v.addError("apiVersion", "apiVersion must start with 'gateway.avapigw.io/'")
	}

	if config.Kind == "" {
		v.addError("kind", "kind is required")
	} else if config.Kind != KindGateway {
		v.addError("kind", "kind must be 'Gateway'")
	}
}

func (v *Validator) validateMetadata(metadata *Metadata) {
	if metadata.Name == "" {
		v.addError("metadata.name", "name is required")
	}
}

func (v *Validator) validateSpec(spec *GatewaySpec) {
	if len(spec.Servers) == 0 {
		v.addError("spec.servers", "at least one server is required")
	}

	servers := v.validateServers(spec.Servers)
	v.validateAPIs(spec.APIs, servers)

	if spec.Admin != nil && spec.Admin.Enabled {
		v.validateListenAddress(spec.Admin.Address, "spec.admin.address")
	}
	if spec.Observability != nil {
		v.validateObservability(spec.Observability)
	}
	if spec.Redis != nil {
		if spec.Redis.Address == "" {
			v.addError("spec.redis.address", "address is required")
		} else if err := util.ValidateAddress(spec.Redis.Address); err != nil {
			v.addError("spec.redis.address", err.Error())
		}
	}
	if spec.Proxy.BufferSize < 0 {
		v.addError("spec.proxy.bufferSize", "bufferSize must not be negative")
	}
}

// validateServers returns the kind of every valid server id.
func (v *Validator) validateServers(servers []ServerConfig) map[string]acceptor.Kind {
	ids := make(map[string]acceptor.Kind, len(servers))
	addresses := make(map[string]string, len(servers))

	for i := range servers {
		s := &servers[i]
		path := fmt.Sprintf("spec.servers[%d]", i)

		switch {
		case s.ID == "":
			v.addError(path+".id", "server id is required")
		case ids[s.ID] != "":
			v.addError(path+".id", fmt.Sprintf("duplicate server id: %s", s.ID))
		}

		switch s.Kind {
		case acceptor.KindHTTP, acceptor.KindTCP:
			if s.ID != "" && ids[s.ID] == "" {
				ids[s.ID] = s.Kind
			}
		default:
			v.addError(path+".kind", fmt.Sprintf("kind must be http or tcp, got: %q", s.Kind))
		}

		if v.validateListenAddress(s.Address, path+".address") {
			if other, ok := addresses[s.Address]; ok {
				v.addError(path+".address", fmt.Sprintf("address %s already used by server %s", s.Address, other))
			}
			addresses[s.Address] = s.ID
		}

		if s.MaxConnections < 0 {
			v.addError(path+".maxConnections", "maxConnections must not be negative")
		}
	}
	return ids
}

// validateListenAddress accepts host:port and :port.
func (v *Validator) validateListenAddress(address, path string) bool {
	if address == "" {
		v.addError(path, "address is required")
		return false
	}
	_, port, err := net.SplitHostPort(address)
	if err != nil {
		v.addError(path, fmt.Sprintf("invalid address %q: %v", address, err))
		return false
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		v.addError(path, fmt.Sprintf("invalid port in address %q", address))
		return false
	}
	if err := util.ValidatePort(p); err != nil {
		v.addError(path, err.Error())
		return false
	}
	return true
}

func (v *Validator) validateAPIs(apis []reactor.API, servers map[string]acceptor.Kind) {
	seen := make(map[string]bool, len(apis))
	for i := range apis {
		path := fmt.Sprintf("spec.apis[%d]", i)
		id := apis[i].ID()
		if id != "" && seen[id] {
			v.addError(path+".id", fmt.Sprintf("duplicate api id: %s", id))
		}
		seen[id] = true
		v.validateAPI(&apis[i], path, servers)
	}
}

func (v *Validator) validateAPI(api *reactor.API, path string, servers map[string]acceptor.Kind) {
	if api.ID() == "" {
		v.addError(path+".id", "api id is required")
	}

	for i, vh := range api.VirtualHosts {
		vhPath := fmt.Sprintf("%s.virtualHosts[%d]", path, i)
		if err := util.ValidatePath(vh.Path); err != nil {
			v.addError(vhPath+".path", err.Error())
		}
		if vh.Host != "" {
			if err := util.ValidateHostname(vh.Host); err != nil {
				v.addError(vhPath+".host", err.Error())
			}
		}
		v.validateServerRefs(vh.ServerIDs, acceptor.KindHTTP, vhPath+".serverIds", servers)
	}

	for i, th := range api.TCPHosts {
		thPath := fmt.Sprintf("%s.tcpHosts[%d]", path, i)
		if th.Host != "" {
			if err := util.ValidateHostname(th.Host); err != nil {
				v.addError(thPath+".host", err.Error())
			}
		}
		v.validateServerRefs(th.ServerIDs, acceptor.KindTCP, thPath+".serverIds", servers)
	}

	v.validateTarget(api, path+".target")
}

func (v *Validator) validateServerRefs(ids []string, kind acceptor.Kind, path string, servers map[string]acceptor.Kind) {
	for _, id := range ids {
		got, ok := servers[id]
		switch {
		case !ok:
			v.addError(path, fmt.Sprintf("unknown server id: %s", id))
		case got != kind:
			v.addError(path, fmt.Sprintf("server %s is a %s server, expected %s", id, got, kind))
		}
	}
}

// validateTarget accepts http(s) targets, and tcp targets for APIs that
// only declare TCP hosts.
func (v *Validator) validateTarget(api *reactor.API, path string) {
	if api.Target == "" {
		v.addError(path, "target is required")
		return
	}

	if strings.HasPrefix(api.Target, "tcp://") {
		if len(api.VirtualHosts) > 0 || len(api.TCPHosts) == 0 {
			v.addError(path, "tcp target requires an api with only tcp hosts")
			return
		}
		u, err := url.Parse(api.Target)
		if err == nil {
			err = util.ValidateAddress(u.Host)
		}
		if err != nil {
			v.addError(path, fmt.Sprintf("tcp target must be tcp://host:port, got: %q", api.Target))
		}
		return
	}

	if err := util.ValidateURL(api.Target); err != nil {
		v.addError(path, err.Error())
	}
}

func (v *Validator) validateObservability(obs *ObservabilityConfig) {
	if obs.Logging != nil {
		switch obs.Logging.Level {
		case "", "debug", "info", "warn", "error":
		default:
			v.addError("spec.observability.logging.level",
				fmt.Sprintf("level must be debug, info, warn or error, got: %q", obs.Logging.Level))
		}
		switch obs.Logging.Format {
		case "", "json", "console":
		default:
			v.addError("spec.observability.logging.format",
				fmt.Sprintf("format must be json or console, got: %q", obs.Logging.Format))
		}
	}

	if obs.Tracing != nil && obs.Tracing.Enabled {
		if obs.Tracing.SamplingRate < 0 || obs.Tracing.SamplingRate > 1 {
			v.addError("spec.observability.tracing.samplingRate", "samplingRate must be between 0 and 1")
		}
	}
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}
