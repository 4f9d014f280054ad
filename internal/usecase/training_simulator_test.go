package usecase

import (
	"testing"
	"time"

	"QuantDesk/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSimulator(t *testing.T) (*TrainingSimulator, *manualScheduler, *recordedActivity) {
	t.Helper()
	sched := &manualScheduler{}
	act := &recordedActivity{}
	sim := NewTrainingSimulator(bundled(t).Networks(), sched, DefaultTrainingDelays(), act, nopMetrics(), nopLogger())
	return sim, sched, act
}

func TestTrainingStartsIdle(t *testing.T) {
	sim, _, _ := newSimulator(t)
	st := sim.Status()
	assert.Equal(t, models.StageIdle, st.Stage)
	assert.Equal(t, 0, st.Step)
	assert.False(t, st.Running)
	assert.Equal(t, 2, st.ExecutionTotal)
}

func TestTrainingPlaysScriptWithDefaultDelays(t *testing.T) {
	sim, sched, _ := newSimulator(t)

	var seen []models.TrainingStatus
	sim.Subscribe(func(st models.TrainingStatus) { seen = append(seen, st) })

	st, err := sim.Start("LSTM-Sequence-v2")
	require.NoError(t, err)
	assert.Equal(t, models.StageRetrievingData, st.Stage)
	assert.NotEmpty(t, st.RunID)
	require.NotNil(t, st.StartedAt)

	expected := []struct {
		hold       time.Duration
		stage      models.TrainingStage
		executions int
		running    bool
	}{
		{5 * time.Second, models.StageExecutingStrategies, 0, true},
		{10 * time.Second, models.StageExecutingStrategies, 1, true},
		{5 * time.Second, models.StageBuildingNetwork, 2, true},
		{20 * time.Second, models.StageFinalizing, 2, true},
		{3 * time.Second, models.StageComplete, 2, true},
		{2 * time.Second, models.StageComplete, 2, false},
	}
	for i, want := range expected {
		hold, ok := sched.fire()
		require.True(t, ok, "transition %d", i)
		assert.Equal(t, want.hold, hold, "transition %d", i)

		got := sim.Status()
		assert.Equal(t, want.stage, got.Stage, "transition %d", i)
		assert.Equal(t, want.stage.Step(), got.Step, "transition %d", i)
		assert.Equal(t, want.executions, got.ExecutionCount, "transition %d", i)
		assert.Equal(t, want.running, got.Running, "transition %d", i)
	}

	_, pending := sched.next()
	assert.False(t, pending)
	assert.Len(t, seen, 7)
	assert.Equal(t, models.StageRetrievingData, seen[0].Stage)
}

func TestTrainingRejectsSecondStartWhileRunning(t *testing.T) {
	sim, sched, _ := newSimulator(t)

	_, err := sim.Start("WaveNet-Dilated")
	require.NoError(t, err)
	_, err = sim.Start("WaveNet-Dilated")
	assert.ErrorIs(t, err, ErrTrainingRunning)

	for {
		if _, ok := sched.fire(); !ok {
			break
		}
	}
	assert.False(t, sim.Status().Running)

	st, err := sim.Start("N-BEATS-Ensemble")
	require.NoError(t, err)
	assert.Equal(t, "N-BEATS-Ensemble", st.Network)
	assert.Equal(t, models.StageRetrievingData, st.Stage)
	assert.Equal(t, 0, st.ExecutionCount)
}

func TestTrainingRequiresKnownNetwork(t *testing.T) {
	sim, sched, _ := newSimulator(t)

	_, err := sim.Start("")
	assert.ErrorIs(t, err, ErrNetworkRequired)
	_, err = sim.Start("GPT-Trader")
	assert.ErrorIs(t, err, ErrUnknownNetwork)

	assert.Equal(t, models.StageIdle, sim.Status().Stage)
	_, pending := sched.next()
	assert.False(t, pending)
}

func TestTrainingRecordsEveryStage(t *testing.T) {
	sim, sched, act := newSimulator(t)
	_, err := sim.Start("DeepAR-Probabilistic")
	require.NoError(t, err)
	for {
		if _, ok := sched.fire(); !ok {
			break
		}
	}

	stages := 0
	for _, k := range act.kinds() {
		if k == models.ActivityTrainingStage {
			stages++
		}
	}
	assert.Equal(t, 7, stages)
}

func TestTrainingShutdownStopsPendingTimer(t *testing.T) {
	sim, sched, _ := newSimulator(t)
	_, err := sim.Start("LSTM-Sequence-v2")
	require.NoError(t, err)

	sim.Shutdown()
	_, ok := sched.fire()
	require.True(t, ok)
	assert.Equal(t, models.StageRetrievingData, sim.Status().Stage)
}

func TestTrainingWithRealScheduler(t *testing.T) {
	delays := TrainingDelays{
		Retrieve: time.Millisecond, FirstPass: time.Millisecond, NextPass: time.Millisecond,
		Build: time.Millisecond, Finalize: time.Millisecond, Complete: time.Millisecond,
	}
	sim := NewTrainingSimulator(bundled(t).Networks(), RealScheduler(), delays, &recordedActivity{}, nopMetrics(), nopLogger())

	_, err := sim.Start("LSTM-Sequence-v2")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		st := sim.Status()
		return !st.Running && st.Stage == models.StageComplete
	}, time.Second, 5*time.Millisecond)
}
