package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/config"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/attendance"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/student"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/pkg/logger"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	for _, key := range []string{"APP_ENV", "DATABASE_URL", "DB_HOST", "DB_USER", "REDIS_URL", "ADMIN_PASSWORD_HASH"} {
		t.Setenv(key, "")
	}
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	return cfg
}

func execute(t *testing.T, cfg *config.Config, stdin string, args ...string) (string, error) {
	t.Helper()
	root := buildRootCommand(&runtime{load: func() (*config.Config, error) { return cfg, nil }})

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHashPasswordCommand(t *testing.T) {
	out, err := execute(t, nil, "", "hash-password", "s3cret")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))

	out, err = execute(t, nil, "from-stdin\n", "hash-password")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("from-stdin")))

	_, err = execute(t, nil, "\n", "hash-password")
	assert.Error(t, err)
}

func TestMigrateNeedsDatabase(t *testing.T) {
	_, err := execute(t, memoryConfig(t), "", "migrate", "status")
	assert.ErrorIs(t, err, errNoDatabase)
}

func TestRankingsComputeOnEmptyMemoryStore(t *testing.T) {
	out, err := execute(t, memoryConfig(t), "", "rankings", "compute", "--json")
	require.NoError(t, err)

	var doc rankingsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, 0, doc.TotalStudents)
	assert.Empty(t, doc.Entries)
	assert.NotEmpty(t, doc.SnapshotID)
}

func TestRankingsShowWithoutSnapshot(t *testing.T) {
	out, err := execute(t, memoryConfig(t), "", "rankings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "no stored ranking snapshot")
}

func newTestApp(t *testing.T) *app {
	t.Helper()
	a, err := newApp(context.Background(), memoryConfig(t), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestAppComputesAndPrintsRanking(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	for _, s := range []struct{ id, name string }{{"s1", "Ada"}, {"s2", "Brook"}} {
		st, err := student.NewStudent(shared.StudentID(s.id), s.name, "")
		require.NoError(t, err)
		require.NoError(t, a.students.Save(ctx, st))
	}
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	entry, err := attendance.NewEntry("s2", day, "morning", attendance.StatusPresent, "")
	require.NoError(t, err)
	_, err = a.attendance.Record(ctx, entry)
	require.NoError(t, err)

	snap, report, err := a.engine.CalculateRankings(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, snap.Count())
	assert.Equal(t, shared.StudentID("s2"), snap.Entries[0].StudentID)

	var buf bytes.Buffer
	require.NoError(t, printRankings(&buf, snap, report, rankingsFlags{limit: 1}))
	out := buf.String()
	assert.Contains(t, out, "Brook")
	assert.Contains(t, out, "gold")
	assert.NotContains(t, out, "Ada")

	latest, err := a.snapshots.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, latest.ID)
}

func TestAppSchedulerRegistersJobs(t *testing.T) {
	a := newTestApp(t)

	s, err := a.newScheduler()
	require.NoError(t, err)

	var names []string
	for _, j := range s.ListJobs() {
		names = append(names, j.Name)
	}
	assert.Equal(t, []string{"prune_snapshots", "recalculate_rankings"}, names)
}

func TestAppServerServesHealthAndMetrics(t *testing.T) {
	a := newTestApp(t)
	ts := httptest.NewServer(a.newServer().Handler())
	defer ts.Close()

	for _, path := range []string{"/health", "/metrics", "/api/v1/rankings"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
