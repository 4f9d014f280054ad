package api

import (
	"net/http"
	"time"

	"QuantDesk/internal/domain/models"
	"QuantDesk/internal/usecase"
	xhttp "QuantDesk/pkg/http"
	applogger "QuantDesk/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
	streamBuffer     = 16
)

// TrainingEchoHandler serves the network list, training control and progress stream.
type TrainingEchoHandler struct {
	logger   *applogger.Logger
	guard    *usecase.RouteGuard
	training *usecase.TrainingSimulator
	serial   *Serializer
	upgrader websocket.Upgrader
}

func NewTrainingEchoHandler(logger *applogger.Logger, guard *usecase.RouteGuard, training *usecase.TrainingSimulator, serial *Serializer) *TrainingEchoHandler {
	return &TrainingEchoHandler{
		logger:   logger,
		guard:    guard,
		training: training,
		serial:   serial,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *TrainingEchoHandler) RegisterRoutes(e *echo.Echo) {
	protect := RequireSession(h.guard)
	g := e.Group("/api", protect)
	g.GET("/networks", h.Networks, h.serial.Middleware())
	g.POST("/training/start", h.Start, h.serial.Middleware())
	g.GET("/training", h.Status, h.serial.Middleware())
	// The stream outlives a request, so it does not take the console lock.
	g.GET("/training/stream", h.Stream)
}

func (h *TrainingEchoHandler) Networks(c echo.Context) error {
	nets := h.training.Networks()
	return xhttp.ListResponse(c, nets, int64(len(nets)))
}

func (h *TrainingEchoHandler) Start(c echo.Context) error {
	req := &models.StartTrainingRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.training.Start(req.Network)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.AcceptedResponse(c, st)
}

func (h *TrainingEchoHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.training.Status())
}

// Stream pushes every training status change to a websocket client,
// starting with the current one.
func (h *TrainingEchoHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("training stream upgrade failed", applogger.Error(err))
		return nil
	}
	defer conn.Close()

	updates := make(chan models.TrainingStatus, streamBuffer)
	unsubscribe := h.training.Subscribe(func(st models.TrainingStatus) {
		select {
		case updates <- st:
		default:
			h.logger.Warn("training stream slow consumer, dropping update",
				applogger.String("stage", string(st.Stage)))
		}
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go h.readPump(conn, closed)

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	if err := writeJSON(conn, h.training.Status()); err != nil {
		return nil
	}
	for {
		select {
		case <-closed:
			return nil
		case <-c.Request().Context().Done():
			return nil
		case st := <-updates:
			if err := writeJSON(conn, st); err != nil {
				h.logger.Debug("training stream write failed", applogger.Error(err))
				return nil
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

// readPump drains client frames so pongs and close frames are processed.
func (h *TrainingEchoHandler) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(v)
}
