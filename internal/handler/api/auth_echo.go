package api

import (
	"net/http"

	"QuantDesk/internal/domain/models"
	"QuantDesk/internal/service/ratelimit"
	"QuantDesk/internal/usecase"
	xhttp "QuantDesk/pkg/http"
	applogger "QuantDesk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DashboardRoute is where a successful login lands.
const DashboardRoute = "/dashboard"

// FormField describes one input of the login form.
type FormField struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder,omitempty"`
}

type LoginForm struct {
	Title  string      `json:"title"`
	Action string      `json:"action"`
	Method string      `json:"method"`
	Fields []FormField `json:"fields"`
}

// EntryView is the public landing page.
type EntryView struct {
	Form    LoginForm           `json:"form"`
	Guard   usecase.Decision    `json:"guard"`
	Session *models.SessionUser `json:"session,omitempty"`
}

type LoginResult struct {
	User       models.SessionUser `json:"user"`
	RedirectTo string             `json:"redirectTo"`
}

type SessionView struct {
	Authenticated bool                `json:"authenticated"`
	State         usecase.GuardState  `json:"state"`
	User          *models.SessionUser `json:"user,omitempty"`
}

var loginForm = LoginForm{
	Title:  "Sign in to your dashboard",
	Action: "/api/auth/login",
	Method: http.MethodPost,
	Fields: []FormField{
		{Name: "email", Type: "email", Label: "Email address", Placeholder: "investor@hnw.com"},
		{Name: "password", Type: "password", Label: "Password"},
	},
}

// AuthEchoHandler serves the entry view and the login/logout API.
type AuthEchoHandler struct {
	logger   *applogger.Logger
	sessions *usecase.SessionManager
	guard    *usecase.RouteGuard
	serial   *Serializer
	limiter  *ratelimit.Limiter
}

func NewAuthEchoHandler(logger *applogger.Logger, sessions *usecase.SessionManager, guard *usecase.RouteGuard, serial *Serializer, limiter *ratelimit.Limiter) *AuthEchoHandler {
	return &AuthEchoHandler{logger: logger, sessions: sessions, guard: guard, serial: serial, limiter: limiter}
}

func (h *AuthEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Entry, h.serial.Middleware())

	g := e.Group("/api/auth", h.serial.Middleware())
	g.POST("/login", h.Login, RateLimit(h.limiter))
	g.POST("/logout", h.Logout)
	g.GET("/session", h.Session)

	e.Any("/*", h.Fallback)
}

func (h *AuthEchoHandler) Entry(c echo.Context) error {
	view := EntryView{Form: loginForm, Guard: h.guard.Evaluate()}
	if u, ok := h.sessions.Current(); ok {
		view.Session = &u
	}
	return xhttp.SuccessResponse(c, view)
}

func (h *AuthEchoHandler) Login(c echo.Context) error {
	req := &models.LoginRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	u, err := h.sessions.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, LoginResult{User: u, RedirectTo: DashboardRoute})
}

func (h *AuthEchoHandler) Logout(c echo.Context) error {
	h.sessions.Logout(c.Request().Context())
	return xhttp.SuccessResponse(c, map[string]string{"redirectTo": usecase.EntryRoute})
}

func (h *AuthEchoHandler) Session(c echo.Context) error {
	view := SessionView{State: h.guard.State()}
	if u, ok := h.sessions.Current(); ok {
		view.Authenticated = true
		view.User = &u
	}
	return xhttp.SuccessResponse(c, view)
}

// Fallback sends unknown paths to the entry route.
func (h *AuthEchoHandler) Fallback(c echo.Context) error {
	return c.Redirect(http.StatusFound, usecase.EntryRoute)
}
