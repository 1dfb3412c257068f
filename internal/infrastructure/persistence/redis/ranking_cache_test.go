package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/ranking"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheFromClient(client, "test:"), mr
}

func tiedSnapshot() *ranking.Snapshot {
	// b and a tie; a must stay ahead through the StudentID tie-break.
	return ranking.NewSnapshot("snap-1", time.Date(2024, 10, 7, 12, 0, 0, 0, time.UTC), ranking.Compute([]ranking.Input{
		{StudentID: "c", StudentName: "Citra", Signals: ranking.Signals{Present: 1}},
		{StudentID: "b", StudentName: "Budi"},
		{StudentID: "a", StudentName: "Ani"},
	}))
}

func TestRankingCache_PublishAndTop(t *testing.T) {
	cache, _ := newTestCache(t)
	rc := NewRankingCache(cache, 0)
	ctx := context.Background()

	require.NoError(t, rc.Publish(ctx, tiedSnapshot()))

	top, err := rc.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, shared.StudentID("c"), top[0].StudentID)
	assert.Equal(t, shared.StudentID("a"), top[1].StudentID)
	assert.Equal(t, shared.StudentID("b"), top[2].StudentID)
	assert.Equal(t, ranking.MedalGold, top[0].Medal)
	assert.InDelta(t, 30.0, top[0].AttendanceScore, 1e-9)

	two, err := rc.Top(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)

	none, err := rc.Top(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	meta, err := rc.Meta(ctx)
	require.NoError(t, err)
	assert.Equal(t, "snap-1", meta.SnapshotID)
	assert.Equal(t, 3, meta.TotalStudents)
}

func TestRankingCache_PublishReplacesPrevious(t *testing.T) {
	cache, _ := newTestCache(t)
	rc := NewRankingCache(cache, 0)
	ctx := context.Background()

	require.NoError(t, rc.Publish(ctx, tiedSnapshot()))
	next := ranking.NewSnapshot("snap-2", time.Now().UTC(), ranking.Compute([]ranking.Input{
		{StudentID: "a", StudentName: "Ani"},
	}))
	require.NoError(t, rc.Publish(ctx, next))

	top, err := rc.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)

	_, err = rc.Get(ctx, "c")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	e, err := rc.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, ranking.Rank(1), e.Rank)

	// An empty snapshot clears the ranking but keeps the metadata.
	require.NoError(t, rc.Publish(ctx, ranking.NewEmptySnapshot()))
	top, err = rc.Top(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestRankingCache_TTL(t *testing.T) {
	cache, mr := newTestCache(t)
	rc := NewRankingCache(cache, time.Minute)
	ctx := context.Background()

	require.NoError(t, rc.Publish(ctx, tiedSnapshot()))
	assert.Equal(t, time.Minute, mr.TTL("test:ranking:order"))

	mr.FastForward(2 * time.Minute)
	top, err := rc.Top(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, top)

	_, err = rc.Meta(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRankingCache_SnapshotIDAndInvalidate(t *testing.T) {
	cache, mr := newTestCache(t)
	rc := NewRankingCache(cache, 0)
	ctx := context.Background()

	id, err := rc.SnapshotID(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, rc.Publish(ctx, tiedSnapshot()))
	id, err = rc.SnapshotID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "snap-1", id)

	require.NoError(t, rc.Invalidate(ctx))
	assert.False(t, mr.Exists("test:ranking:order"))
	assert.False(t, mr.Exists("test:ranking:entries"))
	assert.False(t, mr.Exists("test:ranking:meta"))

	id, err = rc.SnapshotID(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)
	top, err := rc.Top(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestRankingCache_ServerDown(t *testing.T) {
	cache, mr := newTestCache(t)
	rc := NewRankingCache(cache, 0)
	mr.Close()

	err := rc.Publish(context.Background(), tiedSnapshot())
	assert.Error(t, err)

	_, err = rc.Top(context.Background(), 3)
	assert.Error(t, err)
}

func TestCache_JSONHelpers(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	type payload struct{ N int }
	require.NoError(t, cache.SetJSON(ctx, "k", payload{N: 7}, 0))

	var got payload
	require.NoError(t, cache.GetJSON(ctx, "k", &got))
	assert.Equal(t, 7, got.N)

	assert.ErrorIs(t, cache.GetJSON(ctx, "missing", &got), ErrCacheMiss)
	assert.ErrorIs(t, cache.SetJSON(ctx, "", 1, 0), ErrCacheKeyEmpty)
	assert.Equal(t, "test:k", cache.Key("k"))
}
