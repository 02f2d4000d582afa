package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-converse/internal/domain"
	chatrepo "github.com/iyunix/go-converse/internal/repository/chat"
)

type mapLoader struct {
	chats map[string]*domain.Chat
	err   error
}

func (m *mapLoader) FindByID(_ context.Context, id string) (*domain.Chat, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.chats[id]
	if !ok {
		return nil, chatrepo.ErrChatNotFound
	}
	return c, nil
}

func TestGuardLoad(t *testing.T) {
	loader := &mapLoader{chats: map[string]*domain.Chat{
		"c1": {ID: "c1", OwnerID: "alice"},
	}}
	g := NewGuard(loader)
	ctx := context.Background()

	c, err := g.Load(ctx, "get_chat", "alice", "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID)

	_, foreignErr := g.Load(ctx, "get_chat", "bob", "c1")
	_, missingErr := g.Load(ctx, "get_chat", "bob", "nope")
	assert.Equal(t, ErrTypeNotFound, TypeOf(foreignErr))
	assert.Equal(t, ErrTypeNotFound, TypeOf(missingErr))
	assert.Equal(t, missingErr.Error(), foreignErr.Error())

	_, err = g.Load(ctx, "get_chat", "", "c1")
	assert.Equal(t, ErrTypeNotFound, TypeOf(err))
}

func TestGuardLoad_StorageFailure(t *testing.T) {
	cause := errors.New("disk on fire")
	g := NewGuard(&mapLoader{err: cause})

	_, err := g.Load(context.Background(), "get_chat", "alice", "c1")
	assert.Equal(t, ErrTypeStorage, TypeOf(err))
	assert.ErrorIs(t, err, cause)
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ErrTypeConflict, TypeOf(NewConflictError("send_message", "c1", nil)))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
	assert.Equal(t, ErrTypeRateLimited, TypeOf(NewRateLimitedError("send_message", 0, nil)))
}
