package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/ranking"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKING CACHE
// ══════════════════════════════════════════════════════════════════════════════

// RankingCache keeps the latest snapshot in Redis for other portal instances.
//
// Layout:
//   - Sorted Set "ranking:order" maps studentID -> rank (ascending = best first)
//   - Hash "ranking:entries" maps studentID -> entry JSON
//   - String "ranking:meta" holds snapshot id, time and size
//
// The set is scored by rank rather than total score so that equal totals keep
// the snapshot's StudentID tie-break when read back.
type RankingCache struct {
	cache *Cache
	ttl   time.Duration
}

var _ ranking.SnapshotCache = (*RankingCache)(nil)

const (
	keyRankingOrder   = "ranking:order"
	keyRankingEntries = "ranking:entries"
	keyRankingMeta    = "ranking:meta"
)

// RankingMeta describes the cached snapshot.
type RankingMeta struct {
	SnapshotID    string    `json:"snapshot_id"`
	CalculatedAt  time.Time `json:"calculated_at"`
	TotalStudents int       `json:"total_students"`
	AverageScore  float64   `json:"average_score"`
}

type cachedEntry struct {
	StudentID        string  `json:"student_id"`
	StudentName      string  `json:"student_name"`
	Photo            string  `json:"photo,omitempty"`
	AttendanceScore  float64 `json:"attendance_score"`
	ProgressScore    float64 `json:"progress_score"`
	QuizScore        float64 `json:"quiz_score"`
	AchievementScore float64 `json:"achievement_score"`
	TotalScore       float64 `json:"total_score"`
	Rank             int     `json:"rank"`
	Medal            string  `json:"medal,omitempty"`
	RankChange       int     `json:"rank_change"`
}

func fromDomainEntry(e *ranking.Entry) cachedEntry {
	return cachedEntry{
		StudentID:        e.StudentID.String(),
		StudentName:      e.StudentName,
		Photo:            e.Photo,
		AttendanceScore:  e.AttendanceScore,
		ProgressScore:    e.ProgressScore,
		QuizScore:        e.QuizScore,
		AchievementScore: e.AchievementScore,
		TotalScore:       e.TotalScore,
		Rank:             int(e.Rank),
		Medal:            string(e.Medal),
		RankChange:       int(e.RankChange),
	}
}

func (c cachedEntry) toDomain() *ranking.Entry {
	return &ranking.Entry{
		StudentID:        shared.StudentID(c.StudentID),
		StudentName:      c.StudentName,
		Photo:            c.Photo,
		AttendanceScore:  c.AttendanceScore,
		ProgressScore:    c.ProgressScore,
		QuizScore:        c.QuizScore,
		AchievementScore: c.AchievementScore,
		TotalScore:       c.TotalScore,
		Rank:             ranking.Rank(c.Rank),
		Medal:            ranking.Medal(c.Medal),
		RankChange:       ranking.RankChange(c.RankChange),
	}
}

// NewRankingCache creates a RankingCache. ttl 0 keeps keys until the next publish.
func NewRankingCache(cache *Cache, ttl time.Duration) *RankingCache {
	return &RankingCache{cache: cache, ttl: ttl}
}

// Publish replaces the cached ranking with s in a single MULTI/EXEC.
func (r *RankingCache) Publish(ctx context.Context, s *ranking.Snapshot) error {
	orderKey := r.cache.Key(keyRankingOrder)
	entriesKey := r.cache.Key(keyRankingEntries)
	metaKey := r.cache.Key(keyRankingMeta)

	meta, err := json.Marshal(RankingMeta{
		SnapshotID:    s.ID,
		CalculatedAt:  s.CalculatedAt,
		TotalStudents: s.Count(),
		AverageScore:  s.AverageScore(),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	members := make([]redis.Z, 0, s.Count())
	hash := make(map[string]any, s.Count())
	for _, e := range s.Entries {
		data, err := json.Marshal(fromDomainEntry(e))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
		}
		members = append(members, redis.Z{Score: float64(e.Rank), Member: e.StudentID.String()})
		hash[e.StudentID.String()] = data
	}

	pipe := r.cache.Client().TxPipeline()
	pipe.Del(ctx, orderKey, entriesKey)
	if len(members) > 0 {
		pipe.ZAdd(ctx, orderKey, members...)
		pipe.HSet(ctx, entriesKey, hash)
	}
	pipe.Set(ctx, metaKey, meta, r.ttl)
	if r.ttl > 0 && len(members) > 0 {
		pipe.Expire(ctx, orderKey, r.ttl)
		pipe.Expire(ctx, entriesKey, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish ranking snapshot: %w", err)
	}
	return nil
}

// Top returns the first n cached entries in rank order. n <= 0 yields an empty slice.
func (r *RankingCache) Top(ctx context.Context, n int) ([]*ranking.Entry, error) {
	if n <= 0 {
		return make([]*ranking.Entry, 0), nil
	}

	ids, err := r.cache.Client().ZRange(ctx, r.cache.Key(keyRankingOrder), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read ranking order: %w", err)
	}
	if len(ids) == 0 {
		return make([]*ranking.Entry, 0), nil
	}

	values, err := r.cache.Client().HMGet(ctx, r.cache.Key(keyRankingEntries), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("read ranking entries: %w", err)
	}

	out := make([]*ranking.Entry, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var ce cachedEntry
		if err := json.Unmarshal([]byte(str), &ce); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
		}
		out = append(out, ce.toDomain())
	}
	return out, nil
}

// Get returns a student's cached entry or shared.ErrStudentNotRanked.
func (r *RankingCache) Get(ctx context.Context, id shared.StudentID) (*ranking.Entry, error) {
	data, err := r.cache.Client().HGet(ctx, r.cache.Key(keyRankingEntries), id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.ErrStudentNotRanked
	}
	if err != nil {
		return nil, fmt.Errorf("read ranking entry: %w", err)
	}

	var ce cachedEntry
	if err := json.Unmarshal(data, &ce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return ce.toDomain(), nil
}

// Meta returns the cached snapshot description or ErrCacheMiss.
func (r *RankingCache) Meta(ctx context.Context) (*RankingMeta, error) {
	var m RankingMeta
	if err := r.cache.GetJSON(ctx, keyRankingMeta, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SnapshotID returns the cached snapshot id, or "" when nothing is cached.
func (r *RankingCache) SnapshotID(ctx context.Context) (string, error) {
	m, err := r.Meta(ctx)
	if errors.Is(err, ErrCacheMiss) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return m.SnapshotID, nil
}

// Invalidate drops every ranking key.
func (r *RankingCache) Invalidate(ctx context.Context) error {
	err := r.cache.Client().Del(ctx,
		r.cache.Key(keyRankingOrder),
		r.cache.Key(keyRankingEntries),
		r.cache.Key(keyRankingMeta),
	).Err()
	if err != nil {
		return fmt.Errorf("invalidate ranking cache: %w", err)
	}
	return nil
}
