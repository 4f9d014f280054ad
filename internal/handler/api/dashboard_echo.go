package api

import (
	"QuantDesk/internal/domain/models"
	"QuantDesk/internal/usecase"
	xhttp "QuantDesk/pkg/http"
	applogger "QuantDesk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DashboardView is the protected dashboard page.
type DashboardView struct {
	User       models.SessionUser       `json:"user"`
	Strategies []models.StrategySummary `json:"strategies"`
	Grid       usecase.GridSnapshot     `json:"grid"`
	Networks   []models.NeuralNetwork   `json:"networks"`
	Training   models.TrainingStatus    `json:"training"`
}

type SaveResult struct {
	Saved bool                 `json:"saved"`
	Grid  usecase.GridSnapshot `json:"grid"`
}

// DashboardEchoHandler serves the dashboard view and the parameter-grid API.
type DashboardEchoHandler struct {
	logger    *applogger.Logger
	sessions  *usecase.SessionManager
	guard     *usecase.RouteGuard
	workspace *usecase.GridWorkspace
	training  *usecase.TrainingSimulator
	serial    *Serializer
}

func NewDashboardEchoHandler(logger *applogger.Logger, sessions *usecase.SessionManager, guard *usecase.RouteGuard, workspace *usecase.GridWorkspace, training *usecase.TrainingSimulator, serial *Serializer) *DashboardEchoHandler {
	return &DashboardEchoHandler{logger: logger, sessions: sessions, guard: guard, workspace: workspace, training: training, serial: serial}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	protect := RequireSession(h.guard)
	e.GET(DashboardRoute, h.Dashboard, protect, h.serial.Middleware())

	g := e.Group("/api", protect, h.serial.Middleware())
	g.GET("/strategies", h.Strategies)
	g.GET("/grid", h.Grid)
	g.POST("/grid/load", h.Load)
	g.PATCH("/grid/params/:index", h.EditParameter)
	g.PUT("/grid/coverage", h.Coverage)
	g.POST("/grid/save", h.Save)
}

func (h *DashboardEchoHandler) Dashboard(c echo.Context) error {
	u, _ := h.sessions.Current()
	return xhttp.SuccessResponse(c, DashboardView{
		User:       u,
		Strategies: summarize(h.workspace.Catalog()),
		Grid:       h.workspace.Snapshot(),
		Networks:   h.training.Networks(),
		Training:   h.training.Status(),
	})
}

func (h *DashboardEchoHandler) Strategies(c echo.Context) error {
	rows := summarize(h.workspace.Catalog())
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *DashboardEchoHandler) Grid(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.workspace.Snapshot())
}

func (h *DashboardEchoHandler) Load(c echo.Context) error {
	req := &models.LoadStrategyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if _, err := h.workspace.LoadStrategy(c.Request().Context(), req.Query); err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, h.workspace.Snapshot())
}

func (h *DashboardEchoHandler) EditParameter(c echo.Context) error {
	index, ok := xhttp.PathIndex(c, "index")
	if !ok {
		return xhttp.AppErrorResponse(c, toAppError(usecase.ErrRowOutOfRange))
	}
	req := &models.EditParameterRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	row, err := h.workspace.EditParameter(index, req.Field, req.Value)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, row)
}

func (h *DashboardEchoHandler) Coverage(c echo.Context) error {
	req := &models.CoverageRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	h.workspace.SetCoverage(*req.Percent)
	return xhttp.SuccessResponse(c, h.workspace.Snapshot())
}

func (h *DashboardEchoHandler) Save(c echo.Context) error {
	saved, err := h.workspace.SaveParameters(c.Request().Context())
	if err != nil {
		h.logger.Error("save parameters failed", applogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, SaveResult{Saved: saved, Grid: h.workspace.Snapshot()})
}

func summarize(cat models.Catalog) []models.StrategySummary {
	out := make([]models.StrategySummary, 0, len(cat.Strategies))
	for _, s := range cat.Strategies {
		out = append(out, s.Summary())
	}
	return out
}
