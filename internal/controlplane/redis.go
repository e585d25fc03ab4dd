package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/acceptor"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/config"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/observability"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/reactor"
)

// ErrInvalidMessage is returned for deployment messages that cannot be
// turned into a lifecycle event.
var ErrInvalidMessage = errors.New("invalid deployment message")

// Message is the JSON payload carried on the deployment channel.
type Message struct {
	Type reactor.EventType `json:"type"`
	API  *reactor.API      `json:"api,omitempty"`
}

// RedisSource emits the deployment messages published on a Redis channel.
type RedisSource struct {
	client  redis.UniversalClient
	channel string
	servers map[string]acceptor.Kind
	logger  observability.Logger
}

// RedisOption configures a RedisSource.
type RedisOption func(*RedisSource)

// WithRedisLogger sets the logger.
func WithRedisLogger(logger observability.Logger) RedisOption {
	return func(s *RedisSource) {
		s.logger = logger
	}
}

// WithServers sets the servers received APIs may reference.
func WithServers(servers map[string]acceptor.Kind) RedisOption {
	return func(s *RedisSource) {
		s.servers = servers
	}
}

// NewRedisSource creates a source subscribed to channel.
func NewRedisSource(client redis.UniversalClient, channel string, opts ...RedisOption) *RedisSource {
	if channel == "" {
		channel = config.DefaultRedisChannel
	}
	s := &RedisSource{
		client:  client,
		channel: channel,
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRedisClient creates a client from the redis configuration section.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Name implements Source.
func (s *RedisSource) Name() string {
	return "redis:" + s.channel
}

// Run implements Source. Malformed messages are logged and skipped.
func (s *RedisSource) Run(ctx context.Context, events chan<- reactor.Event) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}

	s.logger.Info("subscribed to deployment channel",
		observability.String("channel", s.channel),
	)

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			ev, err := s.Decode([]byte(msg.Payload))
			if err != nil {
				s.logger.Warn("deployment message rejected",
					observability.String("channel", s.channel),
					observability.Error(err),
				)
				continue
			}
			if err := send(ctx, events, ev); err != nil {
				return nil
			}
		}
	}
}

// Decode turns a JSON payload into a lifecycle event.
func (s *RedisSource) Decode(payload []byte) (reactor.Event, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return reactor.Event{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	switch msg.Type {
	case reactor.EventStop:
		return reactor.Event{Type: reactor.EventStop}, nil
	case reactor.EventUndeploy:
		if msg.API == nil || msg.API.ID() == "" {
			return reactor.Event{}, fmt.Errorf("%w: %s requires an api id", ErrInvalidMessage, msg.Type)
		}
	case reactor.EventDeploy, reactor.EventUpdate:
		if msg.API == nil {
			return reactor.Event{}, fmt.Errorf("%w: %s requires an api", ErrInvalidMessage, msg.Type)
		}
		if err := config.NewValidator().ValidateAPI(msg.API, s.servers); err != nil {
			return reactor.Event{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
		}
	default:
		return reactor.Event{}, fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, msg.Type)
	}

	return reactor.Event{Type: msg.Type, Reactable: msg.API}, nil
}

// Publish sends msg on channel.
func Publish(ctx context.Context, client redis.UniversalClient, channel string, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode deployment message: %w", err)
	}
	if err := client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}
