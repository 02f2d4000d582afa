package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-converse/internal/domain"
)

func TestSearch_TitleOutranksContent(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	titleHit := newChat("owner-1", "Kubernetes notes", baseTime)
	require.NoError(t, repo.SaveExchange(ctx, titleHit, Exchange{
		CreateChat: true,
		Append:     []domain.Message{msg(0, domain.RoleUser, "pods"), msg(1, domain.RoleAssistant, "ok")},
	}))

	contentHit := newChat("owner-1", "Infra", baseTime.Add(time.Hour))
	require.NoError(t, repo.SaveExchange(ctx, contentHit, Exchange{
		CreateChat: true,
		Append:     []domain.Message{msg(0, domain.RoleUser, "how do I scale kubernetes"), msg(1, domain.RoleAssistant, "use replicas")},
	}))

	miss := newChat("owner-1", "Cooking", baseTime)
	require.NoError(t, repo.Create(ctx, miss))

	foreign := newChat("owner-2", "Kubernetes for owner two", baseTime)
	require.NoError(t, repo.Create(ctx, foreign))

	results, total, err := repo.Search(ctx, "owner-1", "KUBERNETES", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, results, 2)
	assert.Equal(t, titleHit.ID, results[0].ID)
	assert.Equal(t, contentHit.ID, results[1].ID)
}

func TestSearch_PaginatesRankedResults(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, newChat("owner-1", "golang tips", baseTime.Add(time.Duration(i)*time.Minute))))
	}

	page, total, err := repo.Search(ctx, "owner-1", "golang", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 1)

	page, total, err = repo.Search(ctx, "owner-1", "golang", 2, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Empty(t, page)
}

func TestSearch_EscapesWildcards(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newChat("owner-1", "plain title", baseTime)))

	results, total, err := repo.Search(ctx, "owner-1", "%", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, results)
}

func TestSearch_FoldsNonASCIICase(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	titleHit := newChat("owner-1", "Привет мир", baseTime)
	require.NoError(t, repo.Create(ctx, titleHit))

	contentHit := newChat("owner-1", "Greetings", baseTime.Add(time.Hour))
	require.NoError(t, repo.SaveExchange(ctx, contentHit, Exchange{
		CreateChat: true,
		Append:     []domain.Message{msg(0, domain.RoleUser, "Скажи ПРИВЕТ"), msg(1, domain.RoleAssistant, "ok")},
	}))

	miss := newChat("owner-1", "Пока", baseTime)
	require.NoError(t, repo.Create(ctx, miss))

	results, total, err := repo.Search(ctx, "owner-1", "привет", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, results, 2)
	assert.Equal(t, titleHit.ID, results[0].ID)
	assert.Equal(t, contentHit.ID, results[1].ID)
}

func TestAllASCII(t *testing.T) {
	assert.True(t, allASCII([]string{"go", "k8s"}))
	assert.False(t, allASCII([]string{"go", "ёж"}))
	assert.True(t, allASCII(nil))
}

func TestScoreChat(t *testing.T) {
	terms := searchTerms("Go  go channels")
	assert.Equal(t, []string{"go", "channels"}, terms)

	assert.Equal(t, 2, scoreChat("go basics", nil, terms))
	assert.Equal(t, 1, scoreChat("basics", []string{"buffered channels"}, terms))
	assert.Equal(t, 4, scoreChat("go channels", []string{"unrelated"}, terms))
	assert.Equal(t, 0, scoreChat("rust", []string{"lifetimes"}, terms))
}
