package events

//go:generate go run go.uber.org/mock/mockgen -source=dispatcher.go -destination=../mocks/mock_dispatcher.go -package=mocks

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"chat-team/backend/models"

	"github.com/google/uuid"
)

// Dispatcher 在資料寫入成功後派送領域事件
type Dispatcher interface {
	Dispatch(ctx context.Context, events ...models.DomainEvent) error
}

// MultiDispatcher 依序交給每個 Dispatcher，任一失敗不影響其他
type MultiDispatcher []Dispatcher

func (m MultiDispatcher) Dispatch(ctx context.Context, events ...models.DomainEvent) error {
	var errs []error
	for _, d := range m {
		if err := d.Dispatch(ctx, events...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Envelope 對外傳送事件時的 JSON 格式
type Envelope struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	ChatID     int64           `json:"chatId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope 將事件包裝成 Envelope
func NewEnvelope(event models.DomainEvent) (Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:         event.EventID(),
		Name:       event.EventName(),
		ChatID:     event.ChatID(),
		OccurredAt: event.OccurredAt(),
		Payload:    payload,
	}, nil
}
