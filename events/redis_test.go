package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"chat-team/backend/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	channel string
	body    []byte
}

type fakePublisher struct {
	messages []published
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.messages = append(f.messages, published{channel: channel, body: message.([]byte)})
	return redis.NewIntResult(1, nil)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRedisPublisher_Dispatch(t *testing.T) {
	client := &fakePublisher{}
	publisher := NewRedisPublisher(client, "chat", discardLogger())

	member, events := models.NewChatMember(7, 42, models.RoleMember, models.WithID(3))
	require.NoError(t, publisher.Dispatch(context.Background(), events...))

	require.Len(t, client.messages, 1)
	assert.Equal(t, "chat:42:members", client.messages[0].channel)

	var envelope Envelope
	require.NoError(t, json.Unmarshal(client.messages[0].body, &envelope))
	assert.Equal(t, models.EventChatMemberCreated, envelope.Name)
	assert.Equal(t, int64(42), envelope.ChatID)
	assert.Equal(t, events[0].EventID(), envelope.ID)

	var payload struct {
		Member models.ChatMember `json:"member"`
	}
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, member.ID, payload.Member.ID)
	assert.Equal(t, int64(7), payload.Member.UserID)
}

func TestRedisPublisher_DispatchError(t *testing.T) {
	client := &fakePublisher{err: errors.New("connection refused")}
	publisher := NewRedisPublisher(client, "chat", discardLogger())

	_, events := models.NewChatMember(7, 42, models.RoleMember)
	err := publisher.Dispatch(context.Background(), events...)

	assert.ErrorContains(t, err, "connection refused")
}

type recordingDispatcher struct {
	got []models.DomainEvent
	err error
}

func (r *recordingDispatcher) Dispatch(_ context.Context, events ...models.DomainEvent) error {
	r.got = append(r.got, events...)
	return r.err
}

func TestMultiDispatcher(t *testing.T) {
	failing := &recordingDispatcher{err: errors.New("boom")}
	ok := &recordingDispatcher{}

	_, events := models.NewChatMember(1, 2, models.RoleMember)
	err := MultiDispatcher{failing, ok}.Dispatch(context.Background(), events...)

	assert.ErrorContains(t, err, "boom")
	assert.Len(t, failing.got, 1)
	assert.Len(t, ok.got, 1, "前一個失敗不應阻擋後面的 Dispatcher")
}
