package database

import (
	"context"
	"testing"
	"time"

	"chat-team/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract 對任一 Store 實作執行相同的行為檢查
func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	alice := &models.User{Email: "alice@example.com", Username: "alice", Password: "hash", CreatedAt: now}
	bob := &models.User{Email: "bob@example.com", Username: "bob", Password: "hash", CreatedAt: now}
	require.NoError(t, store.CreateUser(ctx, alice))
	require.NoError(t, store.CreateUser(ctx, bob))
	assert.NotZero(t, alice.ID)
	assert.NotEqual(t, alice.ID, bob.ID)

	t.Run("users", func(t *testing.T) {
		dup := &models.User{Email: "alice@example.com", Username: "alice2", Password: "hash", CreatedAt: now}
		assert.ErrorIs(t, store.CreateUser(ctx, dup), models.ErrEmailAlreadyExists)

		found, err := store.GetUserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, found.ID)
		assert.True(t, now.Equal(found.CreatedAt))

		_, err = store.GetUserByID(ctx, 9999)
		assert.ErrorIs(t, err, models.ErrUserNotFound)

		users, err := store.GetUsersByIDs(ctx, []int64{bob.ID, alice.ID})
		require.NoError(t, err)
		assert.Len(t, users, 2)

		all, err := store.ListUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	chat := &models.Chat{Name: "general", CreatorID: alice.ID, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.CreateChat(ctx, chat))
	assert.NotZero(t, chat.ID)

	t.Run("chats", func(t *testing.T) {
		found, err := store.GetChatByID(ctx, chat.ID)
		require.NoError(t, err)
		assert.Equal(t, "general", found.Name)

		_, err = store.GetChatByID(ctx, 9999)
		assert.ErrorIs(t, err, models.ErrChatNotFound)
	})

	t.Run("members", func(t *testing.T) {
		member, _ := models.NewChatMember(bob.ID, chat.ID, models.RoleMember, models.WithClock(func() time.Time { return now }))
		require.NoError(t, store.CreateMember(ctx, member))
		assert.True(t, member.IsPersisted(), "寫入後應該回填 ID")

		again, _ := models.NewChatMember(bob.ID, chat.ID, models.RoleAdmin)
		assert.ErrorIs(t, store.CreateMember(ctx, again), models.ErrMemberAlreadyExists)
		assert.False(t, again.IsPersisted())

		found, err := store.GetMember(ctx, chat.ID, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, member.ID, found.ID)
		assert.Equal(t, models.RoleMember, found.Role)
		assert.Nil(t, found.UpdatedAt)

		_, err = store.GetMember(ctx, chat.ID, alice.ID)
		assert.ErrorIs(t, err, models.ErrMemberNotFound)

		_, err = found.ChangeRole(models.RoleAdmin, now.Add(time.Minute))
		require.NoError(t, err)
		require.NoError(t, store.UpdateMemberRole(ctx, found))

		updated, err := store.GetMember(ctx, chat.ID, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, updated.Role)
		require.NotNil(t, updated.UpdatedAt)
		assert.True(t, now.Add(time.Minute).Equal(*updated.UpdatedAt))
		assert.True(t, now.Equal(updated.CreatedAt))

		chats, err := store.ListChatsByUser(ctx, bob.ID)
		require.NoError(t, err)
		require.Len(t, chats, 1)
		assert.Equal(t, chat.ID, chats[0].ID)

		members, err := store.ListMembers(ctx, chat.ID)
		require.NoError(t, err)
		assert.Len(t, members, 1)

		require.NoError(t, store.DeleteMember(ctx, member.ID))
		assert.ErrorIs(t, store.DeleteMember(ctx, member.ID), models.ErrMemberNotFound)

		chats, err = store.ListChatsByUser(ctx, bob.ID)
		require.NoError(t, err)
		assert.Empty(t, chats)
	})

	t.Run("delete chat", func(t *testing.T) {
		require.NoError(t, store.DeleteChat(ctx, chat.ID))
		_, err := store.GetChatByID(ctx, chat.ID)
		assert.ErrorIs(t, err, models.ErrChatNotFound)
	})
}
