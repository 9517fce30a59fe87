package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/credit-engine/internal/config"
	"github.com/segyhp/credit-engine/internal/service"
)

type fakeSweeper struct {
	calls  int
	result service.SweepResult
	err    error
}

func (f *fakeSweeper) SweepOverdue(ctx context.Context) (service.SweepResult, error) {
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		return service.SweepResult{}, errors.New("sweep must run with a deadline")
	}
	return f.result, f.err
}

func schedulerConfig(expr, tz string) *config.Config {
	return &config.Config{Scheduler: config.SchedulerConfig{OverdueCron: expr, Timezone: tz}}
}

func TestNew_SchedulesSweep(t *testing.T) {
	log, _ := test.NewNullLogger()

	c, err := New(&fakeSweeper{}, schedulerConfig("0 5 0 * * *", "America/Lima"), log)
	require.NoError(t, err)

	entries := c.Entries()
	require.Len(t, entries, 1)

	lima, err := time.LoadLocation("America/Lima")
	require.NoError(t, err)
	from := time.Date(2024, time.March, 1, 12, 0, 0, 0, lima)
	next := entries[0].Schedule.Next(from)
	assert.True(t, time.Date(2024, time.March, 2, 0, 5, 0, 0, lima).Equal(next), "next run %s", next)
}

func TestNew_RejectsBadExpression(t *testing.T) {
	log, _ := test.NewNullLogger()

	_, err := New(&fakeSweeper{}, schedulerConfig("every day", "UTC"), log)
	assert.Error(t, err)
}

func TestRunSweep(t *testing.T) {
	log, hook := test.NewNullLogger()

	sweeper := &fakeSweeper{result: service.SweepResult{Marked: 3, Recalculated: 2, Failed: 1}}
	RunSweep(context.Background(), sweeper, log)
	assert.Equal(t, 1, sweeper.calls)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, 3, hook.LastEntry().Data["marked"])

	hook.Reset()
	sweeper.err = errors.New("database is down")
	RunSweep(context.Background(), sweeper, log)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}
