package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisChannel is the pub/sub channel events are published on.
const DefaultRedisChannel = "hostel:complaints:events"

// PublishTimeout bounds a single publish. Notify runs while the caller holds
// the dashboard lock, so an unreachable server must not stall it.
const PublishTimeout = 500 * time.Millisecond

// redisEnvelope tags an event with the publishing instance so subscribers
// can skip their own events.
type redisEnvelope struct {
	InstanceID string `json:"instance_id"`
	Event      Event  `json:"event"`
}

// RedisPublisher publishes events to a Redis pub/sub channel.
type RedisPublisher struct {
	client     *redis.Client
	channel    string
	instanceID string
	logger     *slog.Logger
	timeout    time.Duration
}

// NewRedisPublisher creates a publisher for addr. An empty channel uses DefaultRedisChannel.
func NewRedisPublisher(addr, channel string, logger *slog.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisPublisher{
		client: redis.NewClient(&redis.Options{
			Addr:        addr,
			DialTimeout: PublishTimeout,
			MaxRetries:  1,
		}),
		channel:    channel,
		instanceID: uuid.NewString(),
		logger:     logger,
		timeout:    PublishTimeout,
	}
}

// Ping checks the connection.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Notify publishes e. Failures are logged, never returned.
func (p *RedisPublisher) Notify(ctx context.Context, e Event) {
	data, err := p.encode(e)
	if err != nil {
		p.logger.Error("failed to marshal complaint event", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		p.logger.Error("failed to publish complaint event",
			"channel", p.channel,
			"type", e.Type,
			"error", err,
		)
		return
	}
	p.logger.Debug("complaint event published to Redis", "channel", p.channel, "type", e.Type)
}

// Subscribe calls handler for every event published by other instances
// until ctx is cancelled.
func (p *RedisPublisher) Subscribe(ctx context.Context, handler func(Event)) error {
	sub := p.client.Subscribe(ctx, p.channel)
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", p.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			e, own, err := p.decode(msg.Payload)
			if err != nil {
				p.logger.Warn("failed to unmarshal complaint event", "payload", msg.Payload, "error", err)
				continue
			}
			if !own {
				handler(e)
			}
		}
	}
}

// Close closes the Redis client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

func (p *RedisPublisher) encode(e Event) ([]byte, error) {
	return json.Marshal(redisEnvelope{InstanceID: p.instanceID, Event: e})
}

// decode reports whether the payload came from this instance.
func (p *RedisPublisher) decode(payload string) (Event, bool, error) {
	var env redisEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return Event{}, false, err
	}
	return env.Event, env.InstanceID == p.instanceID, nil
}
