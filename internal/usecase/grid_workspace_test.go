package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"QuantDesk/internal/domain/models"
	domrepo "QuantDesk/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkspace(t *testing.T, store *memStore) (*GridWorkspace, *recordedActivity) {
	t.Helper()
	act := &recordedActivity{}
	return NewGridWorkspace(context.Background(), store, bundled(t), act, nopMetrics(), nopLogger()), act
}

func TestMomentumAlphaScenario(t *testing.T) {
	w, _ := newWorkspace(t, newMemStore())

	s, err := w.LoadStrategy(context.Background(), "Momentum Alpha")
	require.NoError(t, err)
	assert.Equal(t, 1, s.ID)

	snap := w.Snapshot()
	require.Len(t, snap.Rows, 1)
	assert.Equal(t, int64(3), snap.Rows[0].TotalSteps)
	assert.Equal(t, float64(10), snap.CoveragePercent)
	assert.Equal(t, "3", snap.Breakdown)

	w.SetCoverage(25)
	snap = w.Snapshot()
	assert.Equal(t, int64(3), snap.TotalCombinations)
	assert.Equal(t, int64(1), snap.EstimatedRuns)
}

func TestLoadStrategyIsCaseInsensitiveAndTrimmed(t *testing.T) {
	w, _ := newWorkspace(t, newMemStore())

	s, err := w.LoadStrategy(context.Background(), "  mean reversion PRO ")
	require.NoError(t, err)
	assert.Equal(t, "Mean Reversion Pro", s.Name)

	snap := w.Snapshot()
	assert.Equal(t, int64(15), snap.TotalCombinations)
	assert.Equal(t, "3 × 5", snap.Breakdown)
	assert.Equal(t, int64(2), snap.EstimatedRuns)
}

func TestLoadStrategyNormalizesLegacyRows(t *testing.T) {
	w, _ := newWorkspace(t, newMemStore())

	_, err := w.LoadStrategy(context.Background(), "Volatility Breakout")
	require.NoError(t, err)

	snap := w.Snapshot()
	require.Len(t, snap.Rows, 3)
	assert.Equal(t, models.ParameterRange{
		ParameterName: "ATR Period", OptimizedTarget: "Profit Factor",
		StartValue: 10, EndValue: 30, Increment: 5, TotalSteps: 5,
	}, snap.Rows[0])
	assert.Equal(t, "Stop Multiplier", snap.Rows[2].ParameterName)
	assert.Equal(t, int64(1), snap.Rows[2].Increment)
	assert.Equal(t, int64(60), snap.TotalCombinations)
}

func TestLoadStrategyEmptyQuery(t *testing.T) {
	w, _ := newWorkspace(t, newMemStore())
	_, err := w.LoadStrategy(context.Background(), "Momentum Alpha")
	require.NoError(t, err)

	_, err = w.LoadStrategy(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)

	snap := w.Snapshot()
	assert.Equal(t, MsgEmptyQuery, snap.SearchError)
	require.NotNil(t, snap.Strategy)
	assert.Len(t, snap.Rows, 1)
}

func TestLoadStrategyMissClearsSelection(t *testing.T) {
	w, act := newWorkspace(t, newMemStore())
	_, err := w.LoadStrategy(context.Background(), "Momentum Alpha")
	require.NoError(t, err)

	_, err = w.LoadStrategy(context.Background(), "Quantum Gravity")
	assert.ErrorIs(t, err, ErrStrategyNotFound)

	snap := w.Snapshot()
	assert.Nil(t, snap.Strategy)
	assert.Empty(t, snap.Rows)
	assert.Equal(t, MsgStrategyNotFound, snap.SearchError)
	assert.Equal(t, int64(0), snap.TotalCombinations)
	assert.Equal(t, "—", snap.Breakdown)
	assert.Equal(t, "0", snap.EstimatedRunsLabel)
	assert.Contains(t, act.kinds(), models.ActivityStrategySearch)
}

func TestLoadResetsCoverage(t *testing.T) {
	w, _ := newWorkspace(t, newMemStore())
	_, err := w.LoadStrategy(context.Background(), "Momentum Alpha")
	require.NoError(t, err)
	w.SetCoverage(80)

	_, err = w.LoadStrategy(context.Background(), "Momentum Alpha")
	require.NoError(t, err)
	assert.Equal(t, float64(10), w.Snapshot().CoveragePercent)
}

func TestEditParameterOnlyTouchesItsRow(t *testing.T) {
	w, _ := newWorkspace(t, newMemStore())
	_, err := w.LoadStrategy(context.Background(), "Macro Trend Follower")
	require.NoError(t, err)
	before := w.Snapshot().Rows

	inputs := []struct {
		field string
		value any
		want  models.ParameterRange
	}{
		{"startValue", "10", models.ParameterRange{StartValue: 10, EndValue: 50, Increment: 5, TotalSteps: 9}},
		{"endValue", 12.5, models.ParameterRange{StartValue: 10, EndValue: 13, Increment: 5, TotalSteps: 1}},
		{"increment", "abc", models.ParameterRange{StartValue: 10, EndValue: 13, Increment: 1, TotalSteps: 4}},
		{"increment", "-3", models.ParameterRange{StartValue: 10, EndValue: 13, Increment: 1, TotalSteps: 4}},
		{"startValue", "20px", models.ParameterRange{StartValue: 20, EndValue: 13, Increment: 1, TotalSteps: 0}},
		{"startValue", -7, models.ParameterRange{StartValue: 0, EndValue: 13, Increment: 1, TotalSteps: 14}},
	}
	for _, in := range inputs {
		row, err := w.EditParameter(0, in.field, in.value)
		require.NoError(t, err)
		assert.Equal(t, in.want.StartValue, row.StartValue, in.field)
		assert.Equal(t, in.want.EndValue, row.EndValue, in.field)
		assert.Equal(t, in.want.Increment, row.Increment, in.field)
		assert.Equal(t, in.want.TotalSteps, row.TotalSteps, in.field)
		assert.Equal(t, before[1], w.Snapshot().Rows[1])
	}
}

func TestEditParameterNonNumericValuesReadAsZero(t *testing.T) {
	w, _ := newWorkspace(t, newMemStore())
	_, err := w.LoadStrategy(context.Background(), "Momentum Alpha")
	require.NoError(t, err)

	row, err := w.EditParameter(0, "startValue", true)
	require.NoError(t, err)
	assert.Equal(t, int64(0), row.StartValue)

	row, err = w.EditParameter(0, "increment", true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), row.Increment)

	row, err = w.EditParameter(0, "endValue", 0.49999999999999994)
	require.NoError(t, err)
	assert.Equal(t, int64(0), row.EndValue)

	row, err = w.EditParameter(0, "endValue", json.Number("7.5"))
	require.NoError(t, err)
	assert.Equal(t, int64(8), row.EndValue)
}

func TestEditParameterTextFields(t *testing.T) {
	w, _ := newWorkspace(t, newMemStore())
	_, err := w.LoadStrategy(context.Background(), "Momentum Alpha")
	require.NoError(t, err)

	row, err := w.EditParameter(0, "notes", "  keep spaces ")
	require.NoError(t, err)
	assert.Equal(t, "  keep spaces ", row.Notes)
	assert.Equal(t, int64(3), row.TotalSteps)

	row, err = w.EditParameter(0, "parameterName", "Window")
	require.NoError(t, err)
	assert.Equal(t, "Window", row.ParameterName)

	row, err = w.EditParameter(0, "optimizedTarget", nil)
	require.NoError(t, err)
	assert.Equal(t, "", row.OptimizedTarget)
}

func TestEditParameterErrors(t *testing.T) {
	w, _ := newWorkspace(t, newMemStore())

	_, err := w.EditParameter(0, "startValue", "1")
	assert.ErrorIs(t, err, ErrRowOutOfRange)

	_, err = w.LoadStrategy(context.Background(), "Momentum Alpha")
	require.NoError(t, err)
	_, err = w.EditParameter(1, "startValue", "1")
	assert.ErrorIs(t, err, ErrRowOutOfRange)
	_, err = w.EditParameter(-1, "startValue", "1")
	assert.ErrorIs(t, err, ErrRowOutOfRange)
	_, err = w.EditParameter(0, "totalSteps", "99")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestSetCoverageClamps(t *testing.T) {
	w, _ := newWorkspace(t, newMemStore())
	assert.Equal(t, float64(0), w.SetCoverage(-5))
	assert.Equal(t, float64(100), w.SetCoverage(250))
	assert.Equal(t, 33.5, w.SetCoverage(33.5))
}

func TestSaveThenLoadReturnsSavedGrid(t *testing.T) {
	store := newMemStore()
	w, act := newWorkspace(t, store)
	ctx := context.Background()

	_, err := w.LoadStrategy(ctx, "Momentum Alpha")
	require.NoError(t, err)
	_, err = w.EditParameter(0, "endValue", "20")
	require.NoError(t, err)

	saved, err := w.SaveParameters(ctx)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.True(t, w.Snapshot().Saved)
	assert.Contains(t, act.kinds(), models.ActivityParametersSaved)

	_, err = w.LoadStrategy(ctx, "Quantum Gravity")
	require.Error(t, err)
	_, err = w.LoadStrategy(ctx, "momentum alpha")
	require.NoError(t, err)
	assert.Equal(t, int64(5), w.Snapshot().Rows[0].TotalSteps)

	// A fresh workspace over the same store sees the persisted catalog.
	reopened, _ := newWorkspace(t, store)
	assert.Equal(t, CatalogPersisted, reopened.CatalogOrigin())
	_, err = reopened.LoadStrategy(ctx, "Momentum Alpha")
	require.NoError(t, err)
	assert.Equal(t, int64(20), reopened.Snapshot().Rows[0].EndValue)
}

func TestSaveLeavesOtherStrategiesAndBundledCatalogAlone(t *testing.T) {
	store := newMemStore()
	data := bundled(t)
	w := NewGridWorkspace(context.Background(), store, data, &recordedActivity{}, nopMetrics(), nopLogger())
	ctx := context.Background()

	_, err := w.LoadStrategy(ctx, "Momentum Alpha")
	require.NoError(t, err)
	_, err = w.EditParameter(0, "increment", "1")
	require.NoError(t, err)
	_, err = w.SaveParameters(ctx)
	require.NoError(t, err)

	raw, ok := store.get(domrepo.KeyCatalog)
	require.True(t, ok)
	var persisted models.Catalog
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	require.Len(t, persisted.Strategies, len(data.Bundled().Strategies))
	assert.Equal(t, data.Bundled().Strategies[1].Name, persisted.Strategies[1].Name)
	assert.Len(t, persisted.Strategies[1].ParameterGrid, 2)

	shipped, _ := data.Bundled().FindByName("Momentum Alpha")
	assert.EqualValues(t, 5, shipped.ParameterGrid[0].Increment)
}

func TestSaveWithoutSelectionIsNoop(t *testing.T) {
	store := newMemStore()
	w, _ := newWorkspace(t, store)

	saved, err := w.SaveParameters(context.Background())
	require.NoError(t, err)
	assert.False(t, saved)
	_, ok := store.get(domrepo.KeyCatalog)
	assert.False(t, ok)
}

func TestSaveFailureKeepsCatalog(t *testing.T) {
	store := newMemStore()
	w, _ := newWorkspace(t, store)
	ctx := context.Background()
	_, err := w.LoadStrategy(ctx, "Momentum Alpha")
	require.NoError(t, err)
	_, err = w.EditParameter(0, "endValue", "40")
	require.NoError(t, err)

	store.failSave = true
	_, err = w.SaveParameters(ctx)
	assert.ErrorIs(t, err, errStoreDown)
	assert.False(t, w.Snapshot().Saved)

	s, _ := w.Catalog().FindByName("Momentum Alpha")
	assert.EqualValues(t, 10, s.ParameterGrid[0].EndValue)
}

func TestSavedNoticeExpires(t *testing.T) {
	w, _ := newWorkspace(t, newMemStore())
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	_, err := w.LoadStrategy(context.Background(), "Momentum Alpha")
	require.NoError(t, err)
	_, err = w.SaveParameters(context.Background())
	require.NoError(t, err)
	assert.True(t, w.Snapshot().Saved)

	now = now.Add(SavedNoticeDuration)
	assert.False(t, w.Snapshot().Saved)
}

func TestLoadStrategyClearsSavedNotice(t *testing.T) {
	w, _ := newWorkspace(t, newMemStore())
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	_, err := w.LoadStrategy(context.Background(), "Momentum Alpha")
	require.NoError(t, err)
	_, err = w.SaveParameters(context.Background())
	require.NoError(t, err)
	require.True(t, w.Snapshot().Saved)

	_, err = w.LoadStrategy(context.Background(), "Mean Reversion Pro")
	require.NoError(t, err)
	assert.False(t, w.Snapshot().Saved)

	_, err = w.LoadStrategy(context.Background(), "Momentum Alpha")
	require.NoError(t, err)
	_, err = w.SaveParameters(context.Background())
	require.NoError(t, err)
	_, err = w.LoadStrategy(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrStrategyNotFound)
	assert.False(t, w.Snapshot().Saved)

	_, err = w.LoadStrategy(context.Background(), "Momentum Alpha")
	require.NoError(t, err)
	_, err = w.SaveParameters(context.Background())
	require.NoError(t, err)
	_, err = w.LoadStrategy(context.Background(), " ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.False(t, w.Snapshot().Saved)
}

func TestCorruptCatalogFallsBackToBundled(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":       `{"strategies": [`,
		"wrong shape":    `[1, 2, 3]`,
		"missing field":  `{"other": true}`,
		"strategies obj": `{"strategies": {"id": 1}}`,
	} {
		t.Run(name, func(t *testing.T) {
			store := newMemStore()
			store.data[domrepo.KeyCatalog] = raw
			w, _ := newWorkspace(t, store)

			assert.Equal(t, CatalogCorrupt, w.CatalogOrigin())
			assert.Len(t, w.Catalog().Strategies, 5)
		})
	}
}

func TestCatalogLoadFailureUsesBundled(t *testing.T) {
	store := newMemStore()
	store.failLoad = true
	w, _ := newWorkspace(t, store)
	assert.Equal(t, CatalogBundled, w.CatalogOrigin())
	assert.Len(t, w.Catalog().Strategies, 5)
}
