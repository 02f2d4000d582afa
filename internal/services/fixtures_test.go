package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-converse/internal/database"
	"github.com/iyunix/go-converse/internal/lease"
	"github.com/iyunix/go-converse/internal/logging"
	"github.com/iyunix/go-converse/internal/metrics"
	"github.com/iyunix/go-converse/internal/repository/chat"
	"github.com/iyunix/go-converse/internal/repository/message"
	"github.com/iyunix/go-converse/internal/services/ai"
	chatservice "github.com/iyunix/go-converse/internal/services/chat"
)

type fakeGateway struct {
	mu sync.Mutex

	replies  []string
	replyErr error
	title    string
	titleErr error
	// entered, when set, receives a value as each reply call starts; the
	// call then blocks until release is closed.
	entered chan struct{}
	release chan struct{}

	replyCalls [][]ai.Turn
	titleCalls []string
}

func (g *fakeGateway) GenerateReply(ctx context.Context, turns []ai.Turn) (string, error) {
	g.mu.Lock()
	g.replyCalls = append(g.replyCalls, turns)
	n := len(g.replyCalls)
	entered, release := g.entered, g.release
	g.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
		<-release
	}
	if g.replyErr != nil {
		return "", g.replyErr
	}
	if len(g.replies) == 0 {
		return "reply", nil
	}
	if n > len(g.replies) {
		n = len(g.replies)
	}
	return g.replies[n-1], nil
}

func (g *fakeGateway) GenerateTitle(ctx context.Context, seed string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.titleCalls = append(g.titleCalls, seed)
	if g.titleErr != nil {
		return "", g.titleErr
	}
	return g.title, nil
}

func (g *fakeGateway) replyCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.replyCalls)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	chats   *ChatService
	shares  *ShareService
	history *HistoryService
	repo    chat.ChatRepository
	gateway *fakeGateway
	clock   *testClock
	config  *chatservice.Config
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T, mutate ...func(*chatservice.Config)) *testEnv {
	t.Helper()
	db, err := database.OpenInMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := chatservice.DefaultConfig()
	cfg.ShareBaseURL = "https://chat.example.com"
	cfg.LeaseWait = 50 * time.Millisecond
	cfg.GenerationTimeout = 2 * time.Second
	for _, m := range mutate {
		m(cfg)
	}

	logger := &logging.NoOpLogger{}
	repo := chat.NewChatRepository(db, logger)
	msgRepo := message.NewMessageRepository(db, logger)
	gw := &fakeGateway{title: "Friendly Greeting"}
	clock := &testClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	rec := metrics.New()

	shares, err := NewShareService(cfg, repo, rec, logger)
	require.NoError(t, err)
	shares.now = clock.Now

	chats, err := NewChatService(cfg, repo, msgRepo, gw, lease.NewMemoryLocker(), shares, rec, logger)
	require.NoError(t, err)
	chats.now = clock.Now

	history, err := NewHistoryService(cfg, repo, logger)
	require.NoError(t, err)

	return &testEnv{
		chats:   chats,
		shares:  shares,
		history: history,
		repo:    repo,
		gateway: gw,
		clock:   clock,
		config:  cfg,
		metrics: rec,
	}
}

// send is a SendMessage shortcut that fails the test on error.
func (e *testEnv) send(t *testing.T, owner, chatID, text string) *SendResult {
	t.Helper()
	res, err := e.chats.SendMessage(context.Background(), SendInput{OwnerID: owner, ChatID: chatID, Text: text})
	require.NoError(t, err)
	e.clock.Advance(time.Second)
	return res
}

func requireChatErr(t *testing.T, err error, want chatservice.ErrorType) *chatservice.ChatError {
	t.Helper()
	require.Error(t, err)
	ce, ok := err.(*chatservice.ChatError)
	require.True(t, ok, "expected *ChatError, got %T: %v", err, err)
	require.Equal(t, want, ce.Type, ce.Error())
	return ce
}
