package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"chat-team/backend/models"

	"github.com/redis/go-redis/v9"
)

// Publisher 是 *redis.Client 的子集，方便測試替換
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher 將成員事件發佈到 Redis 頻道 "<prefix>:<chatId>:members"
type RedisPublisher struct {
	client Publisher
	prefix string
	log    *slog.Logger
}

func NewRedisPublisher(client Publisher, prefix string, log *slog.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix, log: log}
}

// Channel 回傳聊天室對應的頻道名稱
func (p *RedisPublisher) Channel(chatID int64) string {
	return fmt.Sprintf("%s:%d:members", p.prefix, chatID)
}

func (p *RedisPublisher) Dispatch(ctx context.Context, events ...models.DomainEvent) error {
	var errs []error
	for _, event := range events {
		envelope, err := NewEnvelope(event)
		if err != nil {
			errs = append(errs, fmt.Errorf("encode %s: %w", event.EventName(), err))
			continue
		}
		body, err := json.Marshal(envelope)
		if err != nil {
			errs = append(errs, fmt.Errorf("encode %s: %w", event.EventName(), err))
			continue
		}

		channel := p.Channel(event.ChatID())
		receivers, err := p.client.Publish(ctx, channel, body).Result()
		if err != nil {
			errs = append(errs, fmt.Errorf("publish %s to %s: %w", event.EventName(), channel, err))
			continue
		}
		p.log.Debug("event published", "event", event.EventName(), "channel", channel, "receivers", receivers)
	}
	return errors.Join(errs...)
}
