package http

import "github.com/labstack/echo/v4"

// Handler registers a group of console routes on the server.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// RoutesFunc adapts a plain function to Handler.
type RoutesFunc func(e *echo.Echo)

func (f RoutesFunc) RegisterRoutes(e *echo.Echo) { f(e) }
