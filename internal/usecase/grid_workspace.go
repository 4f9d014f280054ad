package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"QuantDesk/internal/domain/models"
	domrepo "QuantDesk/internal/domain/repository"
	domsvc "QuantDesk/internal/domain/service"
	applogger "QuantDesk/pkg/logger"
	"QuantDesk/pkg/util"
)

// User-facing search messages.
const (
	MsgEmptyQuery       = "Please enter a strategy name"
	MsgStrategyNotFound = "Strategy not found. Please try a different name."
)

var (
	ErrEmptyQuery       = errors.New("empty strategy query")
	ErrStrategyNotFound = errors.New("strategy not found")
	ErrRowOutOfRange    = errors.New("parameter row out of range")
	ErrUnknownField     = errors.New("unknown parameter field")
)

// CatalogOutcome reports where the working catalog came from.
type CatalogOutcome int

const (
	CatalogBundled CatalogOutcome = iota
	CatalogPersisted
	CatalogCorrupt
)

func (o CatalogOutcome) String() string {
	switch o {
	case CatalogPersisted:
		return "persisted"
	case CatalogCorrupt:
		return "corrupt"
	default:
		return "bundled"
	}
}

// GridSnapshot is everything the explorer renders.
type GridSnapshot struct {
	Strategy               *models.Strategy        `json:"strategy"`
	Rows                   []models.ParameterRange `json:"rows"`
	CoveragePercent        float64                 `json:"coveragePercent"`
	TotalCombinations      int64                   `json:"totalCombinations"`
	EstimatedRuns          int64                   `json:"estimatedRuns"`
	Breakdown              string                  `json:"breakdown"`
	TotalCombinationsLabel string                  `json:"totalCombinationsLabel"`
	EstimatedRunsLabel     string                  `json:"estimatedRunsLabel"`
	SearchError            string                  `json:"searchError,omitempty"`
	Saved                  bool                    `json:"saved"`
}

// GridWorkspace is the parameter-grid explorer: a strategy catalog, the
// selected strategy, and its editable rows.
type GridWorkspace struct {
	store    domrepo.StateStore
	source   domrepo.CatalogSource
	activity domrepo.ActivityRecorder
	metrics  domrepo.Metrics
	logger   *applogger.Logger

	mu       sync.RWMutex
	catalog  models.Catalog
	selected *models.Strategy
	rows     []models.ParameterRange
	coverage float64
	lastErr  string
	savedAt  time.Time
	outcome  CatalogOutcome

	now func() time.Time
}

// SavedNoticeDuration is how long Snapshot reports a save as fresh.
const SavedNoticeDuration = 2800 * time.Millisecond

// NewGridWorkspace restores the working catalog from the state store.
func NewGridWorkspace(ctx context.Context, store domrepo.StateStore, source domrepo.CatalogSource, activity domrepo.ActivityRecorder, metrics domrepo.Metrics, l *applogger.Logger) *GridWorkspace {
	w := &GridWorkspace{
		store:    store,
		source:   source,
		activity: activity,
		metrics:  metrics,
		logger:   l,
		coverage: domsvc.DefaultCoverage,
		now:      time.Now,
	}
	w.catalog, w.outcome = w.restoreCatalog(ctx)
	l.Info("strategy catalog loaded",
		applogger.String("source", w.outcome.String()),
		applogger.Int("strategies", len(w.catalog.Strategies)))
	return w
}

func (w *GridWorkspace) restoreCatalog(ctx context.Context) (models.Catalog, CatalogOutcome) {
	raw, ok, err := w.store.Load(ctx, domrepo.KeyCatalog)
	if err != nil {
		w.logger.Error("load catalog failed, using bundled catalog", applogger.Error(err))
		return w.source.Bundled(), CatalogBundled
	}
	if !ok {
		return w.source.Bundled(), CatalogBundled
	}

	var c models.Catalog
	if err := json.Unmarshal([]byte(raw), &c); err != nil || c.Strategies == nil {
		if err == nil {
			err = errors.New("catalog has no strategies array")
		}
		w.logger.Warn("persisted catalog is corrupt, using bundled catalog", applogger.Error(err))
		return w.source.Bundled(), CatalogCorrupt
	}
	return c, CatalogPersisted
}

// CatalogOrigin reports where the catalog was restored from.
func (w *GridWorkspace) CatalogOrigin() CatalogOutcome {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.outcome
}

// Catalog returns a deep copy of the working catalog.
func (w *GridWorkspace) Catalog() models.Catalog {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.catalog.Clone()
}

// LoadStrategy selects the strategy whose name matches query and resets the
// workspace to its grid. An empty query is rejected without scanning the catalog.
func (w *GridWorkspace) LoadStrategy(ctx context.Context, query string) (models.Strategy, error) {
	start := time.Now()
	defer func() { w.metrics.RecordLatency("grid_load", time.Since(start).Seconds()) }()

	q := strings.TrimSpace(query)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.savedAt = time.Time{}
	if q == "" {
		w.lastErr = MsgEmptyQuery
		w.metrics.RecordGridLoad("empty")
		return models.Strategy{}, ErrEmptyQuery
	}

	s, ok := w.catalog.FindByName(q)
	if !ok {
		w.selected, w.rows = nil, nil
		w.lastErr = MsgStrategyNotFound
		w.metrics.RecordGridLoad("not_found")
		w.activity.Record(models.ActivityEvent{Kind: models.ActivityStrategySearch, Subject: q, Detail: "not found"})
		w.logger.Debug("strategy search missed", applogger.String("query", q))
		return models.Strategy{}, fmt.Errorf("%w: %q", ErrStrategyNotFound, q)
	}

	sel := s.Clone()
	w.selected = &sel
	w.rows = domsvc.NormalizeGrid(sel.ParameterGrid)
	w.coverage = domsvc.DefaultCoverage
	w.lastErr = ""

	w.metrics.RecordGridLoad("found")
	w.activity.Record(models.ActivityEvent{
		Kind:    models.ActivityStrategySearch,
		Subject: sel.Name,
		Detail:  fmt.Sprintf("%d parameters", len(w.rows)),
	})
	w.logger.Debug("strategy loaded",
		applogger.Int("id", sel.ID),
		applogger.String("name", sel.Name),
		applogger.Int("rows", len(w.rows)))
	return sel.Clone(), nil
}

// EditParameter updates one field of one row. Numeric fields accept numbers
// or numeric text and are sanitized; the row's step count follows.
func (w *GridWorkspace) EditParameter(index int, field string, value any) (models.ParameterRange, error) {
	if !domsvc.IsEditableField(field) {
		return models.ParameterRange{}, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if index < 0 || index >= len(w.rows) {
		return models.ParameterRange{}, fmt.Errorf("%w: %d", ErrRowOutOfRange, index)
	}

	row := w.rows[index]
	switch field {
	case domsvc.FieldStartValue:
		row.StartValue = sanitizeValue(field, value)
	case domsvc.FieldEndValue:
		row.EndValue = sanitizeValue(field, value)
	case domsvc.FieldIncrement:
		row.Increment = sanitizeValue(field, value)
	case domsvc.FieldParameterName:
		row.ParameterName = textValue(value)
	case domsvc.FieldNotes:
		row.Notes = textValue(value)
	case domsvc.FieldOptimizedTarget:
		row.OptimizedTarget = textValue(value)
	}
	row.TotalSteps = domsvc.TotalSteps(row.StartValue, row.EndValue, row.Increment)
	w.rows[index] = row
	return row, nil
}

// sanitizeValue reads text and numbers. Anything else, booleans included,
// reads as 0.
func sanitizeValue(field string, value any) int64 {
	switch v := value.(type) {
	case string:
		return domsvc.SanitizeNumericInput(field, v)
	case float64, float32, int, int64, json.Number:
		f, ok := util.ToNumber(v)
		if !ok {
			f = 0
		}
		return domsvc.SanitizeNumericInput(field, strconv.FormatFloat(f, 'g', -1, 64))
	default:
		return domsvc.SanitizeNumericInput(field, "0")
	}
}

func textValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// SetCoverage sets the sampling percentage, clamped to [0, 100].
func (w *GridWorkspace) SetCoverage(percent float64) float64 {
	switch {
	case percent != percent || percent < 0:
		percent = 0
	case percent > 100:
		percent = 100
	}
	w.mu.Lock()
	w.coverage = percent
	w.mu.Unlock()
	return percent
}

// Snapshot returns the derived view of the workspace.
func (w *GridWorkspace) Snapshot() GridSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	rows := append([]models.ParameterRange{}, w.rows...)
	total := domsvc.TotalCombinations(rows)
	runs := domsvc.EstimatedRuns(total, w.coverage)

	snap := GridSnapshot{
		Rows:                   rows,
		CoveragePercent:        w.coverage,
		TotalCombinations:      total,
		EstimatedRuns:          runs,
		Breakdown:              domsvc.CombinationBreakdown(rows),
		TotalCombinationsLabel: domsvc.FormatCount(total),
		EstimatedRunsLabel:     domsvc.FormatCount(runs),
		SearchError:            w.lastErr,
		Saved:                  !w.savedAt.IsZero() && w.now().Sub(w.savedAt) < SavedNoticeDuration,
	}
	if w.selected != nil {
		s := w.selected.Clone()
		snap.Strategy = &s
	}
	return snap
}

// SaveParameters writes the edited rows into a copy of the catalog, persists
// it and swaps it in. It does nothing when no strategy is selected.
func (w *GridWorkspace) SaveParameters(ctx context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.selected == nil {
		return false, nil
	}

	next := w.catalog.Clone()
	idx := next.IndexOf(w.selected.ID)
	if idx < 0 {
		return false, fmt.Errorf("%w: id %d", ErrStrategyNotFound, w.selected.ID)
	}
	grid := make([]models.ParameterRangeRaw, len(w.rows))
	for i, r := range w.rows {
		grid[i] = r.Raw()
	}
	next.Strategies[idx].ParameterGrid = grid

	b, err := json.Marshal(next)
	if err != nil {
		return false, fmt.Errorf("encode catalog: %w", err)
	}
	if err := w.store.Save(ctx, domrepo.KeyCatalog, string(b)); err != nil {
		w.metrics.RecordError("catalog_persist")
		return false, fmt.Errorf("persist catalog: %w", err)
	}

	w.catalog = next
	sel := next.Strategies[idx].Clone()
	w.selected = &sel
	w.savedAt = w.now()
	w.outcome = CatalogPersisted

	w.metrics.RecordGridSave()
	w.activity.Record(models.ActivityEvent{
		Kind:    models.ActivityParametersSaved,
		Subject: sel.Name,
		Detail:  fmt.Sprintf("%d parameters", len(grid)),
	})
	w.logger.Info("parameters saved",
		applogger.Int("id", sel.ID),
		applogger.String("name", sel.Name))
	return true, nil
}
