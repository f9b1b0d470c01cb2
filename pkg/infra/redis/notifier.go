package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"oip/dpaccuracy/internal/events"
	"oip/dpaccuracy/pkg/logger"
)

// Notifier 检查事件 Redis 发布器
// 将事件总线上的检查生命周期事件转发到 Redis 频道，供宿主应用消费
type Notifier struct {
	client  *redis.Client
	channel string
	logger  logger.Logger
}

// NewNotifier 创建 Notifier 实例
func NewNotifier(addr, password string, db int, channel string, log logger.Logger) (*Notifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// 测试连接
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Notifier{
		client:  client,
		channel: channel,
		logger:  log,
	}, nil
}

// envelope 频道消息结构
type envelope struct {
	Kind    events.Kind `json:"kind"`
	Payload interface{} `json:"payload"`
}

// Publish 发布单个事件
func (n *Notifier) Publish(ctx context.Context, ev events.Event) error {
	msgJSON, err := json.Marshal(envelope{Kind: ev.Kind(), Payload: ev})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := n.client.Publish(ctx, n.channel, msgJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Forward 订阅总线上的完成/失败事件并转发到 Redis 频道
// 阻塞直到 ctx 取消或两个订阅 channel 均被关闭（Bus.Close），须在独立协程运行
func (n *Notifier) Forward(ctx context.Context, bus *events.Bus) {
	completed := bus.Subscribe(events.KindCheckCompleted, 64)
	failed := bus.Subscribe(events.KindCheckFailed, 64)

	for completed != nil || failed != nil {
		select {
		case <-ctx.Done():
			n.logger.Infof(ctx, "[Notifier] Context cancelled, forwarder exiting")
			return
		case ev, ok := <-completed:
			if !ok {
				completed = nil
				continue
			}
			if err := n.Publish(ctx, ev); err != nil {
				n.logger.Warnf(ctx, "[Notifier] Publish failed: %v", err)
			}
		case ev, ok := <-failed:
			if !ok {
				failed = nil
				continue
			}
			if err := n.Publish(ctx, ev); err != nil {
				n.logger.Warnf(ctx, "[Notifier] Publish failed: %v", err)
			}
		}
	}

	n.logger.Infof(ctx, "[Notifier] Event channels closed, forwarder exiting")
}

// Subscribe 订阅 Redis 频道（用于测试）
func (n *Notifier) Subscribe(ctx context.Context) *redis.PubSub {
	return n.client.Subscribe(ctx, n.channel)
}

// Close 关闭 Redis 连接
func (n *Notifier) Close() error {
	return n.client.Close()
}
