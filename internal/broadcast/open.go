package broadcast

import (
	"context"
	"log/slog"
)

// Transport modes accepted by Open.
const (
	ModeLocal = "local"
	ModeRedis = "redis"
	ModeNone  = "none"
)

var defaultHub = NewHub(DefaultQueueSize, nil)

// DefaultHub is the process-wide hub used by ModeLocal when no hub is given.
func DefaultHub() *Hub {
	return defaultHub
}

// Options selects and configures a transport.
type Options struct {
	Mode  string
	Redis RedisOptions
	// Hub overrides DefaultHub for ModeLocal.
	Hub *Hub
}

// Open builds the configured transport. It never fails: when the transport
// cannot be reached the observer runs without cross-observer sync.
func Open(ctx context.Context, opts Options, origin string, logger *slog.Logger) Channel {
	if logger == nil {
		logger = slog.Default()
	}

	switch opts.Mode {
	case ModeNone:
		return Noop{}
	case ModeRedis:
		ch, err := NewRedisChannel(ctx, opts.Redis, origin, logger)
		if err != nil {
			logger.WarnContext(ctx, "redis sync unavailable, continuing without it", "addr", opts.Redis.Addr, "error", err)
			return Noop{}
		}
		return ch
	case ModeLocal, "":
		hub := opts.Hub
		if hub == nil {
			hub = DefaultHub()
		}
		return hub.Join(origin)
	default:
		logger.WarnContext(ctx, "unknown sync mode, continuing without sync", "mode", opts.Mode)
		return Noop{}
	}
}
