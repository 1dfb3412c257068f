package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/application/command"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/application/engine"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/application/query"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/attendance"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/ranking"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/infrastructure/messaging"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/infrastructure/metrics"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/infrastructure/persistence/memory"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/interface/http/handlers"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/pkg/logger"
)

const (
	adminUser = "teacher"
	adminPass = "s3cret"
)

type testAPI struct {
	srv        *httptest.Server
	attendance *memory.AttendanceRepository
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := logger.Discard()

	students := memory.NewStudentRepository()
	att := memory.NewAttendanceRepository()
	prog := memory.NewProgressRepository()
	quizzes := memory.NewQuizRepository()
	snapshots := memory.NewSnapshotRepository()

	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{Logger: log})
	t.Cleanup(func() { _ = bus.Close() })

	m := metrics.New()
	eng, err := engine.New(engine.Dependencies{
		Students:   students,
		Attendance: att,
		Progress:   prog,
		Quizzes:    quizzes,
		Snapshots:  snapshots,
		Publisher:  bus,
		Recorder:   m,
		Logger:     log,
	}, ranking.DefaultWeights)
	require.NoError(t, err)
	require.NoError(t, eng.Subscribe(bus))

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPass), bcrypt.MinCost)
	require.NoError(t, err)

	health := handlers.NewCompositeHealthChecker("test")
	health.AddCheck("engine", func(context.Context) error { return nil })

	cfg := DefaultConfig()
	cfg.Version = "test"
	server := NewServer(cfg, Dependencies{
		Rankings:       query.NewGetRankingsHandler(eng),
		StudentRank:    query.NewGetStudentRankHandler(eng),
		History:        query.NewGetStudentHistoryHandler(snapshots),
		Top:            query.NewGetTopStudentsHandler(eng, nil, log),
		Directory:      query.NewDirectoryHandler(students, att, prog, quizzes),
		Students:       command.NewStudentHandler(students, att, prog, quizzes, bus, log),
		Attendance:     command.NewAttendanceHandler(att, students, bus, log),
		Progress:       command.NewProgressHandler(prog, students, bus, log),
		Quizzes:        command.NewQuizHandler(quizzes, students, bus, log),
		Engine:         eng,
		Admin:          handlers.NewAdminAuth(adminUser, string(hash)),
		HealthChecker:  health,
		Metrics:        m,
		MetricsHandler: m.Handler(),
		Logger:         log,
	})

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return &testAPI{srv: ts, attendance: att}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func (a *testAPI) do(t *testing.T, method, path string, body any, admin bool) (int, envelope) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.SetBasicAuth(adminUser, adminPass)
	}

	resp, err := a.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func (a *testAPI) putStudent(t *testing.T, id, name string) {
	t.Helper()
	code, env := a.do(t, http.MethodPut, "/api/v1/students/"+id, map[string]any{"name": name}, true)
	require.Equal(t, http.StatusOK, code, "%+v", env.Error)
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/health", "/ready", "/live", "/"} {
		code, env := api.do(t, http.MethodGet, path, nil, false)
		assert.Equal(t, http.StatusOK, code, path)
		assert.True(t, env.Success, path)
	}

	resp, err := api.srv.Client().Get(api.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `portal_http_requests_total{method="GET",route="/health",status="200"}`)
}

func TestRankingFlow(t *testing.T) {
	api := newTestAPI(t)

	api.putStudent(t, "s1", "Ani")
	api.putStudent(t, "s2", "Budi")

	code, env := api.do(t, http.MethodPost, "/api/v1/attendance", map[string]any{
		"student_id": "s2",
		"date":       time.Date(2024, 10, 7, 9, 0, 0, 0, time.UTC),
		"session":    "morning",
		"status":     "present",
	}, true)
	require.Equal(t, http.StatusCreated, code, "%+v", env.Error)
	entry := decodeData[query.AttendanceEntryDTO](t, env)
	assert.Equal(t, "2024-10-07", entry.Date)

	code, env = api.do(t, http.MethodGet, "/api/v1/rankings", nil, false)
	require.Equal(t, http.StatusOK, code)
	page := decodeData[query.GetRankingsResult](t, env)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, "s2", page.Entries[0].StudentID)
	assert.Equal(t, "gold", page.Entries[0].Medal)
	assert.InDelta(t, 30.0, page.Entries[0].Scores.Total, 1e-9)
	assert.Equal(t, "s1", page.Entries[1].StudentID)

	code, env = api.do(t, http.MethodGet, "/api/v1/rankings/s1?neighbors=1", nil, false)
	require.Equal(t, http.StatusOK, code)
	rank := decodeData[query.GetStudentRankResult](t, env)
	assert.Equal(t, 2, rank.Entry.Rank)
	assert.InDelta(t, 30.0, rank.ScoreToNextRank, 1e-9)

	code, env = api.do(t, http.MethodGet, "/api/v1/rankings/top?count=1", nil, false)
	require.Equal(t, http.StatusOK, code)
	top := decodeData[query.GetTopStudentsResult](t, env)
	require.Len(t, top.Entries, 1)
	assert.Equal(t, "memory", top.Source)

	code, env = api.do(t, http.MethodGet, "/api/v1/rankings/top?count=0", nil, false)
	require.Equal(t, http.StatusOK, code)
	top = decodeData[query.GetTopStudentsResult](t, env)
	assert.Empty(t, top.Entries)
	assert.Equal(t, 2, top.Total)

	code, env = api.do(t, http.MethodGet, "/api/v1/rankings/top", nil, false)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decodeData[query.GetTopStudentsResult](t, env).Entries, 2)

	code, env = api.do(t, http.MethodGet, "/api/v1/rankings/s2/history", nil, false)
	require.Equal(t, http.StatusOK, code)
	hist := decodeData[query.GetStudentHistoryResult](t, env)
	assert.NotEmpty(t, hist.Points)
}

func TestStudentDirectoryEndpoints(t *testing.T) {
	api := newTestAPI(t)
	api.putStudent(t, "s1", "Ani")

	code, env := api.do(t, http.MethodGet, "/api/v1/students", nil, false)
	require.Equal(t, http.StatusOK, code)
	list := decodeData[[]query.StudentDTO](t, env)
	require.Len(t, list, 1)
	assert.Equal(t, "Ani", list[0].Name)

	code, env = api.do(t, http.MethodPost, "/api/v1/students/s1/achievements", map[string]string{"achievement_id": "a1"}, true)
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, map[string]bool{"granted": true}, decodeData[map[string]bool](t, env))

	code, _ = api.do(t, http.MethodPost, "/api/v1/students/s1/achievements", map[string]string{"achievement_id": "a1"}, true)
	assert.Equal(t, http.StatusOK, code)

	code, env = api.do(t, http.MethodGet, "/api/v1/rankings/s1", nil, false)
	require.Equal(t, http.StatusOK, code)
	assert.InDelta(t, 1.5, decodeData[query.GetStudentRankResult](t, env).Entry.Scores.Achievement, 1e-9)

	code, _ = api.do(t, http.MethodDelete, "/api/v1/students/s1", nil, true)
	assert.Equal(t, http.StatusNoContent, code)

	code, env = api.do(t, http.MethodGet, "/api/v1/students/s1", nil, false)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", env.Error.Code)

	code, _ = api.do(t, http.MethodGet, "/api/v1/rankings/s1", nil, false)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAdminAuthRequired(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(t, http.MethodPut, "/api/v1/students/s1", map[string]any{"name": "Ani"}, false)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthorized", env.Error.Code)

	writes := []struct{ method, path string }{
		{http.MethodPut, "/api/v1/plans/p1"},
		{http.MethodPost, "/api/v1/plans/p1/tasks/t1/toggle"},
		{http.MethodDelete, "/api/v1/plans/p1"},
		{http.MethodPost, "/api/v1/quizzes/q1/submissions"},
	}
	for _, w := range writes {
		code, _ := api.do(t, w.method, w.path, map[string]any{"student_id": "s1", "score": 100}, false)
		assert.Equal(t, http.StatusUnauthorized, code, "%s %s", w.method, w.path)
	}

	req, err := http.NewRequest(http.MethodPost, api.srv.URL+"/api/v1/rankings/recalculate", nil)
	require.NoError(t, err)
	req.SetBasicAuth(adminUser, "wrong")
	resp, err := api.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))
}

func TestValidationErrors(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(t, http.MethodPut, "/api/v1/students/s1", map[string]any{"name": "Ani", "role": "admin"}, true)
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_failed", env.Error.Code)
	assert.Equal(t, "oneof=student monitor", env.Error.Fields["role"])

	code, env = api.do(t, http.MethodPut, "/api/v1/students/s1", map[string]any{"name": "Ani", "nickname": "A"}, true)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_request", env.Error.Code)

	code, _ = api.do(t, http.MethodGet, "/api/v1/rankings?limit=abc", nil, false)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = api.do(t, http.MethodGet, "/api/v1/rankings?offset=-1", nil, false)
	assert.Equal(t, http.StatusBadRequest, code)

	api.putStudent(t, "s1", "Ani")
	code, env = api.do(t, http.MethodPost, "/api/v1/quizzes/q1/submissions", map[string]any{"student_id": "s1", "score": 120}, true)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "lte=100", env.Error.Fields["score"])

	code, _ = api.do(t, http.MethodGet, "/api/v1/nope", nil, false)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPlanAndQuizEndpoints(t *testing.T) {
	api := newTestAPI(t)
	api.putStudent(t, "s1", "Ani")
	api.putStudent(t, "s2", "Budi")

	code, env := api.do(t, http.MethodPut, "/api/v1/plans/p1", map[string]any{
		"student_id": "s1",
		"title":      "Week 1",
		"tasks": []map[string]any{
			{"id": "t1", "description": "read chapter 1"},
			{"id": "t2", "description": "exercises", "completed": true},
		},
	}, true)
	require.Equal(t, http.StatusOK, code, "%+v", env.Error)
	plan := decodeData[query.PlanDTO](t, env)
	assert.Equal(t, 2, plan.Total)
	assert.Equal(t, 1, plan.Completed)

	code, env = api.do(t, http.MethodPost, "/api/v1/plans/p1/tasks/t1/toggle", nil, true)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, decodeData[query.PlanDTO](t, env).Completed)

	code, env = api.do(t, http.MethodPut, "/api/v1/plans/p1", map[string]any{"student_id": "s2", "title": "stolen"}, true)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", env.Error.Code)

	code, env = api.do(t, http.MethodPost, "/api/v1/quizzes/q1/submissions", map[string]any{"student_id": "s1", "score": 80}, true)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "q1", decodeData[query.SubmissionDTO](t, env).QuizID)

	code, env = api.do(t, http.MethodGet, "/api/v1/rankings/s1", nil, false)
	require.Equal(t, http.StatusOK, code)
	scores := decodeData[query.GetStudentRankResult](t, env).Entry.Scores
	assert.InDelta(t, 30.0, scores.Progress, 1e-9)
	assert.InDelta(t, 20.0, scores.Quiz, 1e-9)

	code, _ = api.do(t, http.MethodDelete, "/api/v1/plans/p1", nil, true)
	assert.Equal(t, http.StatusNoContent, code)

	code, env = api.do(t, http.MethodGet, "/api/v1/students/s1/plans", nil, false)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decodeData[query.StudentPlansResult](t, env).Plans)
}

func TestRecalculateReportsOrphans(t *testing.T) {
	api := newTestAPI(t)
	api.putStudent(t, "s1", "Ani")

	// Written outside the command layer, as an external import would.
	e, err := attendance.NewEntry("ghost", time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC), "morning", attendance.StatusPresent, "")
	require.NoError(t, err)
	_, err = api.attendance.Record(context.Background(), e)
	require.NoError(t, err)

	code, env := api.do(t, http.MethodPost, "/api/v1/rankings/recalculate", nil, true)
	require.Equal(t, http.StatusOK, code, "%+v", env.Error)
	res := decodeData[RecalculateResponse](t, env)
	assert.Equal(t, 1, res.TotalStudents)
	require.Len(t, res.Orphans, 1)
	assert.Equal(t, ranking.SourceAttendance, res.Orphans[0].Source)
	assert.EqualValues(t, "ghost", res.Orphans[0].StudentID)
}
