package livesync

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Channel carries project-change notifications from the management
// subsystem. The payload is the changed project id, or empty for a bulk
// change. Polling remains the fallback when nothing publishes here.
const Channel = "verdant:projects:changed"

// RedisNotifier converts pub/sub messages into synchronizer wakeups and
// reports changed project ids to an optional callback (used to mark the
// project's view stale).
type RedisNotifier struct {
	pubsub    *redis.PubSub
	wakeups   chan struct{}
	onProject func(projectID int64)
}

func NewRedisNotifier(ctx context.Context, rdb *redis.Client, onProject func(projectID int64)) *RedisNotifier {
	n := &RedisNotifier{
		pubsub:    rdb.Subscribe(ctx, Channel),
		wakeups:   make(chan struct{}, 1),
		onProject: onProject,
	}
	go n.run()
	return n
}

// Wakeups is plugged into Options.Wakeups.
func (n *RedisNotifier) Wakeups() <-chan struct{} {
	return n.wakeups
}

func (n *RedisNotifier) run() {
	defer close(n.wakeups)
	for msg := range n.pubsub.Channel() {
		if msg.Payload != "" {
			id, err := strconv.ParseInt(msg.Payload, 10, 64)
			if err != nil {
				log.Warn().Str("payload", msg.Payload).Msg("Ignoring malformed change notification")
				continue
			}
			if n.onProject != nil {
				n.onProject(id)
			}
		}
		// Coalesce bursts: one pending wakeup is enough.
		select {
		case n.wakeups <- struct{}{}:
		default:
		}
	}
}

// Close stops the subscription; the wakeup channel closes once drained.
func (n *RedisNotifier) Close() error {
	return n.pubsub.Close()
}
