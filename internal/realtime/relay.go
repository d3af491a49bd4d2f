package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ChannelPrefix 是房间在 Redis 中的频道前缀，完整频道为 mindmap:room:<projectId>。
const ChannelPrefix = "mindmap:room:"

// RedisRelay 通过 Redis Pub/Sub 在多个 API 实例之间同步房间事件。
// 每条消息带上发布方的实例 ID，实例不会重复投递自己发出的消息。
type RedisRelay struct {
	client *redis.Client
	origin string
	logger *slog.Logger
}

type relayEnvelope struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

// DeliverFunc 把远端事件投递到本地房间，返回投递到的连接数。
type DeliverFunc func(room string, payload []byte) int

// NewRedisRelay 创建 RedisRelay。
func NewRedisRelay(client *redis.Client, logger *slog.Logger) *RedisRelay {
	if logger == nil {
		logger = slog.Default()
	}
	origin := uuid.NewString()
	return &RedisRelay{
		client: client,
		origin: origin,
		logger: logger.With(slog.String("component", "realtime_relay"), slog.String("origin", origin)),
	}
}

// Origin 返回本实例 ID。
func (r *RedisRelay) Origin() string { return r.origin }

// Publish 把事件发布到房间频道。
func (r *RedisRelay) Publish(ctx context.Context, room string, payload []byte) error {
	data, err := json.Marshal(relayEnvelope{Origin: r.origin, Payload: payload})
	if err != nil {
		return fmt.Errorf("encode relay envelope: %w", err)
	}
	if err := r.client.Publish(ctx, ChannelPrefix+room, data).Err(); err != nil {
		return fmt.Errorf("publish to %s%s: %w", ChannelPrefix, room, err)
	}
	return nil
}

// Start 订阅全部房间频道，订阅确认后在后台循环投递，ctx 结束时退出。
func (r *RedisRelay) Start(ctx context.Context, deliver DeliverFunc) error {
	pubsub := r.client.PSubscribe(ctx, ChannelPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe %s*: %w", ChannelPrefix, err)
	}
	r.logger.Info("subscribed to realtime relay", slog.String("pattern", ChannelPrefix+"*"))

	go r.loop(ctx, pubsub, deliver)
	return nil
}

func (r *RedisRelay) loop(ctx context.Context, pubsub *redis.PubSub, deliver DeliverFunc) {
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				r.logger.Warn("realtime relay channel closed")
				return
			}
			r.handle(msg, deliver)
		}
	}
}

func (r *RedisRelay) handle(msg *redis.Message, deliver DeliverFunc) {
	room := strings.TrimPrefix(msg.Channel, ChannelPrefix)
	if room == "" || room == msg.Channel {
		return
	}

	var env relayEnvelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		r.logger.Warn("drop malformed relay message", slog.String("channel", msg.Channel), slog.Any("error", err))
		return
	}
	if env.Origin == r.origin || len(env.Payload) == 0 {
		return
	}
	deliver(room, env.Payload)
}
