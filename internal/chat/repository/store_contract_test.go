package repository

import (
	"context"
	"fmt"
	"testing"

	"realtime_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract behaviour every MessageRepository / ConversationRepository pair must share
func runStoreContract(t *testing.T, msgs MessageRepository, convs ConversationRepository) {
	ctx := context.Background()

	t.Run("messages come back in creation order", func(t *testing.T) {
		chatID := "ann_ben"
		for i := 0; i < 30; i++ {
			m := &domain.Message{ChatID: chatID, Sender: "ann", Receiver: "ben", Text: fmt.Sprintf("m%d", i)}
			require.NoError(t, msgs.CreateMessage(ctx, m))
			assert.NotEmpty(t, m.ID)
			assert.False(t, m.CreatedAt.IsZero())
		}
		list, err := msgs.FindMessagesByConversation(ctx, chatID, 0)
		require.NoError(t, err)
		require.Len(t, list, 30)
		for i := 1; i < len(list); i++ {
			assert.False(t, list[i].CreatedAt.Before(list[i-1].CreatedAt))
		}
		assert.Equal(t, "m0", list[0].Text)

		limited, err := msgs.FindMessagesByConversation(ctx, chatID, 5)
		require.NoError(t, err)
		assert.Len(t, limited, 5)

		empty, err := msgs.FindMessagesByConversation(ctx, "nobody_there", 0)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("flags only move forward", func(t *testing.T) {
		m := &domain.Message{ChatID: "cat_dan", Sender: "cat", Receiver: "dan", Text: "hi"}
		require.NoError(t, msgs.CreateMessage(ctx, m))

		got, err := msgs.UpdateMessageFlags(ctx, m.ID, domain.MessageFlags{})
		require.NoError(t, err)
		assert.False(t, got.Delivered)
		assert.False(t, got.Seen)

		got, err = msgs.UpdateMessageFlags(ctx, m.ID, domain.MessageFlags{Seen: true})
		require.NoError(t, err)
		assert.True(t, got.Seen)
		assert.True(t, got.Delivered, "seen implies delivered")

		got, err = msgs.UpdateMessageFlags(ctx, m.ID, domain.MessageFlags{Delivered: true})
		require.NoError(t, err)
		assert.True(t, got.Seen)

		again, err := msgs.UpdateMessageFlags(ctx, m.ID, domain.MessageFlags{Seen: true})
		require.NoError(t, err)
		assert.Equal(t, got.Seen, again.Seen)
		assert.Equal(t, got.Delivered, again.Delivered)

		_, err = msgs.UpdateMessageFlags(ctx, "000000000000000000000000", domain.MessageFlags{Seen: true})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = msgs.FindMessageByID(ctx, "000000000000000000000000")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delivered flip targets the receiver only", func(t *testing.T) {
		chatID := "eve_fay"
		for _, dir := range [][2]string{{"eve", "fay"}, {"eve", "fay"}, {"fay", "eve"}} {
			require.NoError(t, msgs.CreateMessage(ctx, &domain.Message{ChatID: chatID, Sender: dir[0], Receiver: dir[1], Text: "x"}))
		}
		require.NoError(t, msgs.CreateMessage(ctx, &domain.Message{ChatID: "fay_gus", Sender: "gus", Receiver: "fay", Text: "x"}))

		n, err := msgs.MarkDeliveredForRecipient(ctx, chatID, "fay")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = msgs.MarkDeliveredForRecipient(ctx, chatID, "fay")
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		unseen, err := msgs.CountUnseen(ctx, chatID, "fay")
		require.NoError(t, err)
		assert.Equal(t, 2, unseen)
		unseen, err = msgs.CountUnseen(ctx, chatID, "eve")
		require.NoError(t, err)
		assert.Equal(t, 1, unseen)

		other, err := msgs.FindMessagesByConversation(ctx, "fay_gus", 0)
		require.NoError(t, err)
		require.Len(t, other, 1)
		assert.False(t, other[0].Delivered)
	})

	t.Run("conversation upsert and partial updates", func(t *testing.T) {
		chatID := "hal_ivy"
		c, err := convs.CreateOrGetConversation(ctx, chatID, "hal", "ivy")
		require.NoError(t, err)
		assert.Equal(t, chatID, c.ID)
		assert.ElementsMatch(t, []string{"hal", "ivy"}, c.Users)
		assert.Equal(t, 0, c.Unread("ivy"))

		again, err := convs.CreateOrGetConversation(ctx, chatID, "ivy", "hal")
		require.NoError(t, err)
		assert.Equal(t, c.Users, again.Users)

		require.NoError(t, convs.UpdateConversation(ctx, chatID, domain.ConversationUpdate{LatestMessage: "m1", IncrementUnread: "ivy"}))
		require.NoError(t, convs.UpdateConversation(ctx, chatID, domain.ConversationUpdate{LatestMessage: "m2", IncrementUnread: "ivy"}))
		got, err := convs.FindByID(ctx, chatID)
		require.NoError(t, err)
		assert.Equal(t, "m2", got.LatestMessage)
		assert.Equal(t, 2, got.Unread("ivy"))

		require.NoError(t, convs.UpdateConversation(ctx, chatID, domain.ConversationUpdate{ResetUnread: "ivy"}))
		got, err = convs.FindByID(ctx, chatID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Unread("ivy"))
		assert.Equal(t, "m2", got.LatestMessage)

		require.NoError(t, convs.UpdateConversation(ctx, chatID, domain.ConversationUpdate{Unread: map[string]int{"hal": 3, "ivy": 1}}))
		got, err = convs.FindByID(ctx, chatID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Unread("hal"))
		assert.Equal(t, 1, got.Unread("ivy"))

		err = convs.UpdateConversation(ctx, "jay_kim", domain.ConversationUpdate{ResetUnread: "kim"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = convs.FindByID(ctx, "jay_kim")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
