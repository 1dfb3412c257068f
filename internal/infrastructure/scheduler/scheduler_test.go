package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/pkg/logger"
)

type countingJob struct {
	name string
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "test job" }
func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

type stepSchedule struct{ step time.Duration }

func (s stepSchedule) Next(t time.Time) time.Time { return t.Add(s.step) }
func (s stepSchedule) String() string             { return "step" }

func newTestScheduler() *Scheduler {
	return New(Config{Logger: logger.Discard(), TickInterval: 5 * time.Millisecond})
}

func TestParseCron(t *testing.T) {
	s, err := ParseCron("0 3 * * *")
	require.NoError(t, err)
	assert.Equal(t, "0 3 * * *", s.String())

	from := time.Date(2024, 10, 7, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 10, 8, 3, 0, 0, 0, time.UTC), s.Next(from))

	hourly, err := ParseCron("@hourly")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 10, 7, 11, 0, 0, 0, time.UTC), hourly.Next(from))

	_, err = ParseCron("61 * * * *")
	assert.Error(t, err)
	_, err = ParseCron("* * *")
	assert.Error(t, err)

	assert.Panics(t, func() { MustParseCron("bogus") })
}

func TestEvery(t *testing.T) {
	s := Every(15 * time.Minute)
	from := time.Date(2024, 10, 7, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, from.Add(15*time.Minute), s.Next(from))
	assert.Equal(t, "@every 15m0s", s.String())
}

func TestRegister(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "a"}

	require.NoError(t, s.Register(job, Every(time.Hour)))
	assert.ErrorIs(t, s.Register(job, Every(time.Hour)), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Register(nil, Every(time.Hour)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "b"}, nil), ErrNilSchedule)

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.Equal(t, "a", infos[0].Name)
	assert.True(t, infos[0].Enabled)
	assert.Equal(t, "@every 1h0m0s", infos[0].Schedule)
}

func TestRunNow(t *testing.T) {
	s := newTestScheduler()
	failing := &countingJob{name: "fail", err: errors.New("boom")}
	require.NoError(t, s.Register(failing, Every(time.Hour)))

	var seen []JobResult
	s.OnJobComplete(func(r JobResult) { seen = append(seen, r) })

	res, err := s.RunNow(context.Background(), "fail")
	assert.EqualError(t, err, "boom")
	require.NotNil(t, res)
	assert.True(t, res.Manual)
	assert.False(t, res.Success())

	info, err := s.GetJobInfo("fail")
	require.NoError(t, err)
	assert.EqualValues(t, 1, info.RunCount)
	assert.EqualValues(t, 1, info.FailCount)
	require.Len(t, seen, 1)
	assert.Equal(t, "fail", seen[0].JobName)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestStartRunsDueJobs(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "tick"}
	require.NoError(t, s.Register(job, stepSchedule{step: time.Millisecond}))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool { return job.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
	assert.False(t, s.IsRunning())
}

func TestDisabledJobDoesNotRun(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "off"}
	require.NoError(t, s.Register(job, stepSchedule{step: time.Millisecond}))
	require.NoError(t, s.SetEnabled("off", false))
	assert.ErrorIs(t, s.SetEnabled("missing", true), ErrJobNotFound)

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, s.Stop())

	assert.Zero(t, job.runs.Load())
}
