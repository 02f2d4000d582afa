package chat

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/iyunix/go-converse/internal/domain"
)

const (
	titleWeight   = 2
	contentWeight = 1
	maxQueryTerms = 16
)

// Title matches outrank content matches 2:1 on both dialects. Postgres ranks
// with ts_rank over a weighted document (A=1.0, B=0.5); other dialects score
// each term in Go.
const postgresRankSQL = `
WITH q AS (
	SELECT replace(plainto_tsquery('simple', ?)::text, '&', '|')::tsquery AS query
), docs AS (
	SELECT c.id, c.updated_at,
		setweight(to_tsvector('simple', c.title), 'A') ||
		setweight(to_tsvector('simple', coalesce(string_agg(m.content, ' '), '')), 'B') AS doc
	FROM chats c
	LEFT JOIN messages m ON m.chat_id = c.id
	WHERE c.owner_id = ?
	GROUP BY c.id, c.title, c.updated_at
)
SELECT docs.id, ts_rank('{0.1,0.2,0.5,1.0}', docs.doc, q.query) AS score
FROM docs, q
WHERE docs.doc @@ q.query
ORDER BY score DESC, docs.updated_at DESC, docs.id DESC`

type rankedChat struct {
	ID        string
	Score     float64
	UpdatedAt time.Time
}

// Search returns one page of the owner's chats matching query, best match
// first, plus the number of matching chats.
func (r *gormChatRepository) Search(ctx context.Context, ownerID, query string, limit, offset int) ([]domain.Chat, int64, error) {
	if ownerID == "" {
		return nil, 0, errors.New("invalid owner ID")
	}
	if limit <= 0 || limit > 1000 || offset < 0 {
		return nil, 0, errors.New("invalid pagination")
	}
	terms := searchTerms(query)
	if len(terms) == 0 {
		return []domain.Chat{}, 0, nil
	}

	var ids []string
	var err error
	if r.db.Dialector.Name() == "postgres" {
		ids, err = r.rankPostgres(ctx, ownerID, strings.Join(terms, " "))
	} else {
		ids, err = r.rankByTerms(ctx, ownerID, terms)
	}
	if err != nil {
		r.logger.Error("[ChatRepository] search failed", "error", err)
		return nil, 0, errors.Wrap(err, "database error searching chats")
	}

	total := int64(len(ids))
	if offset >= len(ids) {
		return []domain.Chat{}, total, nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	page := ids[offset:end]

	var chats []domain.Chat
	if err := r.db.WithContext(ctx).Where("id IN ?", page).Find(&chats).Error; err != nil {
		return nil, 0, errors.Wrap(err, "database error loading search results")
	}
	byID := make(map[string]domain.Chat, len(chats))
	for _, c := range chats {
		byID[c.ID] = c
	}
	ordered := make([]domain.Chat, 0, len(page))
	for _, id := range page {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, total, nil
}

func (r *gormChatRepository) rankPostgres(ctx context.Context, ownerID, query string) ([]string, error) {
	var rows []rankedChat
	if err := r.db.WithContext(ctx).Raw(postgresRankSQL, query, ownerID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids, nil
}

// rankByTerms scores every owner chat containing at least one term:
// titleWeight per term found in the title plus contentWeight per term found
// in any message. sqlite's LOWER and LIKE fold ASCII only, so the SQL
// prefilter is used for ASCII terms and non-ASCII queries are matched in Go
// against all of the owner's chats.
func (r *gormChatRepository) rankByTerms(ctx context.Context, ownerID string, terms []string) ([]string, error) {
	db := r.db.WithContext(ctx)

	q := db.Model(&domain.Chat{}).
		Select("id", "title", "updated_at").
		Where("owner_id = ?", ownerID)
	if allASCII(terms) {
		where, args := likeFilter(terms)
		q = q.Where(where, args...)
	}
	var candidates []domain.Chat
	if err := q.Find(&candidates).Error; err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []string{}, nil
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	var msgs []domain.Message
	if err := db.Select("chat_id", "content").Where("chat_id IN ?", ids).Find(&msgs).Error; err != nil {
		return nil, err
	}
	contents := make(map[string][]string, len(candidates))
	for _, m := range msgs {
		contents[m.ChatID] = append(contents[m.ChatID], strings.ToLower(m.Content))
	}

	ranked := make([]rankedChat, 0, len(candidates))
	for _, c := range candidates {
		score := scoreChat(strings.ToLower(c.Title), contents[c.ID], terms)
		if score > 0 {
			ranked = append(ranked, rankedChat{ID: c.ID, Score: float64(score), UpdatedAt: c.UpdatedAt})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if !ranked[i].UpdatedAt.Equal(ranked[j].UpdatedAt) {
			return ranked[i].UpdatedAt.After(ranked[j].UpdatedAt)
		}
		return ranked[i].ID > ranked[j].ID
	})

	out := make([]string, len(ranked))
	for i, rc := range ranked {
		out[i] = rc.ID
	}
	return out, nil
}

// likeFilter matches chats whose title or any message contains a term.
func likeFilter(terms []string) (string, []interface{}) {
	titleParts := make([]string, 0, len(terms))
	contentParts := make([]string, 0, len(terms))
	titleArgs := make([]interface{}, 0, len(terms))
	contentArgs := make([]interface{}, 0, len(terms))
	for _, t := range terms {
		pattern := "%" + escapeLike(t) + "%"
		titleParts = append(titleParts, `LOWER(title) LIKE ? ESCAPE '\'`)
		contentParts = append(contentParts, `LOWER(content) LIKE ? ESCAPE '\'`)
		titleArgs = append(titleArgs, pattern)
		contentArgs = append(contentArgs, pattern)
	}
	where := "((" + strings.Join(titleParts, " OR ") + ") OR id IN (SELECT chat_id FROM messages WHERE " +
		strings.Join(contentParts, " OR ") + "))"
	return where, append(titleArgs, contentArgs...)
}

func allASCII(terms []string) bool {
	for _, t := range terms {
		for i := 0; i < len(t); i++ {
			if t[i] >= utf8.RuneSelf {
				return false
			}
		}
	}
	return true
}

func scoreChat(title string, contents []string, terms []string) int {
	score := 0
	for _, t := range terms {
		if strings.Contains(title, t) {
			score += titleWeight
		}
		for _, c := range contents {
			if strings.Contains(c, t) {
				score += contentWeight
				break
			}
		}
	}
	return score
}

// searchTerms lowercases and de-duplicates the whitespace-separated terms.
func searchTerms(query string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
		if len(terms) == maxQueryTerms {
			break
		}
	}
	return terms
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
