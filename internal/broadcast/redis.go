package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/celerix-dev/celerix-canvas/pkg/schema"
)

// TopicPrefix prefixes the pub/sub channel name; the namespace follows it.
const TopicPrefix = "canvas:boards:"

// RedisOptions configures a Redis transport.
type RedisOptions struct {
	// Addr is host:port or a redis:// URL.
	Addr      string
	Password  string
	DB        int
	Namespace string
}

// RedisChannel publishes snapshots with PUBLISH and receives them on a single
// SUBSCRIBE connection.
type RedisChannel struct {
	client *redis.Client
	pubsub *redis.PubSub
	topic  string
	origin string
	logger *slog.Logger

	subs subscribers
	done chan struct{}
	once sync.Once
}

func newRedisClient(opts RedisOptions) (*redis.Client, error) {
	if strings.HasPrefix(opts.Addr, "redis://") {
		parsed, err := redis.ParseURL(opts.Addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(parsed), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

// NewRedisChannel connects, pings and subscribes. The caller owns Close.
func NewRedisChannel(ctx context.Context, opts RedisOptions, origin string, logger *slog.Logger) (*RedisChannel, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := newRedisClient(opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ns := opts.Namespace
	if ns == "" {
		ns = "default"
	}
	topic := TopicPrefix + ns

	pubsub := client.Subscribe(ctx, topic)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		client.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", topic, err)
	}

	c := &RedisChannel{
		client: client,
		pubsub: pubsub,
		topic:  topic,
		origin: origin,
		logger: logger.With("transport", "redis", "topic", topic),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *RedisChannel) readLoop() {
	msgs := c.pubsub.Channel()
	for {
		select {
		case <-c.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			env, err := decode([]byte(msg.Payload))
			if err != nil {
				c.logger.Warn("skipping malformed snapshot", "error", err)
				continue
			}
			if env.Origin == c.origin {
				continue
			}
			c.subs.deliver(env.Board)
		}
	}
}

func (c *RedisChannel) Publish(ctx context.Context, board schema.Board) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	data, err := encode(c.origin, board)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, c.topic, data).Err()
}

// Subscribe registers fn. Delivery runs on the single reader goroutine, so
// calls are sequential.
func (c *RedisChannel) Subscribe(fn func(schema.Board)) func() {
	return c.subs.add(fn)
}

func (c *RedisChannel) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		if cerr := c.pubsub.Close(); cerr != nil {
			err = cerr
		}
		if cerr := c.client.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}
