package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"QuantDesk/internal/domain/models"
	"QuantDesk/internal/repository"
	"QuantDesk/internal/service/ratelimit"
	"QuantDesk/internal/usecase"
	"QuantDesk/pkg/cache"
	applogger "QuantDesk/pkg/logger"
	"QuantDesk/pkg/metrics"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type discardActivity struct{}

func (discardActivity) Record(models.ActivityEvent) {}

// heldScheduler keeps callbacks queued so training never advances on its own.
type heldScheduler struct {
	mu      sync.Mutex
	pending []func()
}

type heldTimer struct{}

func (heldTimer) Stop() bool { return true }

func (s *heldScheduler) AfterFunc(_ time.Duration, f func()) usecase.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, f)
	return heldTimer{}
}

func (s *heldScheduler) fire() {
	s.mu.Lock()
	f := s.pending[0]
	s.pending = s.pending[1:]
	s.mu.Unlock()
	f()
}

type fixture struct {
	e         *echo.Echo
	sessions  *usecase.SessionManager
	guard     *usecase.RouteGuard
	workspace *usecase.GridWorkspace
	training  *usecase.TrainingSimulator
	scheduler *heldScheduler
	store     *repository.CacheStateStore
}

func newFixture(t *testing.T, restore bool, limiter *ratelimit.Limiter) *fixture {
	t.Helper()
	data, err := repository.LoadBundledData()
	require.NoError(t, err)

	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })
	store := repository.NewCacheStateStore(mem)
	l := applogger.Nop()
	m := metrics.Nop{}

	sessions := usecase.NewSessionManager(data, store, discardActivity{}, m, l)
	guard := usecase.NewRouteGuard(sessions)
	workspace := usecase.NewGridWorkspace(context.Background(), store, data, discardActivity{}, m, l)
	sched := &heldScheduler{}
	training := usecase.NewTrainingSimulator(data.Networks(), sched, usecase.DefaultTrainingDelays(), discardActivity{}, m, l)
	t.Cleanup(training.Shutdown)

	serial := NewSerializer()
	e := echo.New()
	NewAuthEchoHandler(l, sessions, guard, serial, limiter).RegisterRoutes(e)
	NewDashboardEchoHandler(l, sessions, guard, workspace, training, serial).RegisterRoutes(e)
	NewTrainingEchoHandler(l, guard, training, serial).RegisterRoutes(e)

	if restore {
		sessions.Restore(context.Background())
	}
	return &fixture{e: e, sessions: sessions, guard: guard, workspace: workspace, training: training, scheduler: sched, store: store}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	rec := f.do(http.MethodPost, "/api/auth/login", `{"email":"investor@hnw.com","password":"demo123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	if dest != nil {
		require.NoError(t, json.Unmarshal(env.Data, dest))
	}
	return env
}

type appErr struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

func TestGuardWhileLoading(t *testing.T) {
	f := newFixture(t, false, nil)

	rec := f.do(http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var d usecase.Decision
	decode(t, rec, &d)
	assert.True(t, d.Waiting)
	assert.Equal(t, usecase.LoadingMessage, d.Message)

	rec = f.do(http.MethodGet, "/api/grid", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGuardUnauthenticated(t *testing.T) {
	f := newFixture(t, true, nil)

	rec := f.do(http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	rec = f.do(http.MethodGet, "/api/strategies", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEntryView(t *testing.T) {
	f := newFixture(t, true, nil)

	rec := f.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view EntryView
	decode(t, rec, &view)
	assert.Equal(t, "/api/auth/login", view.Form.Action)
	assert.Len(t, view.Form.Fields, 2)
	assert.Equal(t, usecase.GuardUnauthenticated, view.Guard.State)
	assert.Nil(t, view.Session)
}

func TestLoginFlow(t *testing.T) {
	f := newFixture(t, true, nil)

	rec := f.do(http.MethodPost, "/api/auth/login", `{"email":"investor@hnw.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var errs []appErr
	decode(t, rec, &errs)
	require.Len(t, errs, 1)
	assert.Equal(t, usecase.MsgInvalidCredentials, errs[0].Message)

	rec = f.do(http.MethodPost, "/api/auth/login", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPost, "/api/auth/login", `{"email":"investor@hnw.com","password":"demo123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var res LoginResult
	decode(t, rec, &res)
	assert.Equal(t, DashboardRoute, res.RedirectTo)
	assert.Equal(t, "investor@hnw.com", res.User.Email)
	assert.NotContains(t, rec.Body.String(), "demo123")

	rec = f.do(http.MethodGet, "/api/auth/session", "")
	var sv SessionView
	decode(t, rec, &sv)
	assert.True(t, sv.Authenticated)
	assert.Equal(t, usecase.GuardAuthenticated, sv.State)

	rec = f.do(http.MethodGet, "/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var dash DashboardView
	decode(t, rec, &dash)
	assert.Equal(t, "investor@hnw.com", dash.User.Email)
	require.Len(t, dash.Strategies, 5)
	assert.Equal(t, 1, dash.Strategies[0].ID)
	assert.Equal(t, "Momentum Alpha", dash.Strategies[0].Name)
	assert.Equal(t, 1, dash.Strategies[0].Parameters)
	assert.Len(t, dash.Networks, 5)
	assert.Equal(t, models.StageIdle, dash.Training.Stage)

	rec = f.do(http.MethodPost, "/api/auth/logout", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(http.MethodPost, "/api/auth/logout", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestUnknownPathRedirects(t *testing.T) {
	f := newFixture(t, true, nil)

	rec := f.do(http.MethodGet, "/no/such/page", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
}

func TestGridEndpoints(t *testing.T) {
	f := newFixture(t, true, nil)
	f.login(t)

	rec := f.do(http.MethodPost, "/api/grid/load", `{"query":"   "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var errs []appErr
	decode(t, rec, &errs)
	assert.Equal(t, usecase.MsgEmptyQuery, errs[0].Message)

	rec = f.do(http.MethodPost, "/api/grid/load", `{"query":"Nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	decode(t, rec, &errs)
	assert.Equal(t, usecase.MsgStrategyNotFound, errs[0].Message)

	rec = f.do(http.MethodPost, "/api/grid/load", `{"query":"mean reversion pro"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap usecase.GridSnapshot
	decode(t, rec, &snap)
	require.NotNil(t, snap.Strategy)
	assert.Equal(t, "Mean Reversion Pro", snap.Strategy.Name)
	assert.Equal(t, 10.0, snap.CoveragePercent)
	assert.Empty(t, snap.SearchError)

	rec = f.do(http.MethodPatch, "/api/grid/params/0", `{"field":"endValue","value":"abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var row models.ParameterRange
	decode(t, rec, &row)
	assert.Equal(t, int64(0), row.EndValue)

	rec = f.do(http.MethodPatch, "/api/grid/params/99", `{"field":"endValue","value":5}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPatch, "/api/grid/params/0", `{"field":"totalSteps","value":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPut, "/api/grid/coverage", `{"percent":150}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &snap)
	assert.Equal(t, 100.0, snap.CoveragePercent)

	rec = f.do(http.MethodPut, "/api/grid/coverage", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/grid/save", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var saved SaveResult
	decode(t, rec, &saved)
	assert.True(t, saved.Saved)
	assert.True(t, saved.Grid.Saved)

	_, ok, err := f.store.Load(context.Background(), "strategiesData")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTrainingEndpoints(t *testing.T) {
	f := newFixture(t, true, nil)
	f.login(t)

	rec := f.do(http.MethodGet, "/api/networks", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/api/training/start", `{"network":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/training/start", `{"network":"GPT-Whatever"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(http.MethodPost, "/api/training/start", `{"network":"LSTM-Sequence-v2"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var st models.TrainingStatus
	decode(t, rec, &st)
	assert.Equal(t, models.StageRetrievingData, st.Stage)
	assert.True(t, st.Running)

	rec = f.do(http.MethodPost, "/api/training/start", `{"network":"LSTM-Sequence-v2"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	f.scheduler.fire()
	rec = f.do(http.MethodGet, "/api/training", "")
	decode(t, rec, &st)
	assert.Equal(t, models.StageExecutingStrategies, st.Stage)
	assert.Equal(t, 0, st.ExecutionCount)
}

func TestLoginRateLimit(t *testing.T) {
	f := newFixture(t, true, ratelimit.New(1, 0.001))

	rec := f.do(http.MethodPost, "/api/auth/login", `{"email":"a","password":"b"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.do(http.MethodPost, "/api/auth/login", `{"email":"a","password":"b"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
