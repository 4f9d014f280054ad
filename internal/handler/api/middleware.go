package api

import (
	"net/http"
	"sync"

	"QuantDesk/internal/service/ratelimit"
	"QuantDesk/internal/usecase"
	xhttp "QuantDesk/pkg/http"

	"github.com/labstack/echo/v4"
)

// Serializer lets one console request run at a time.
type Serializer struct {
	mu sync.Mutex
}

func NewSerializer() *Serializer { return &Serializer{} }

func (s *Serializer) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			return next(c)
		}
	}
}

// RequireSession applies the route guard decision to protected routes.
// API callers get status codes; view callers are redirected to the entry route.
func RequireSession(guard *usecase.RouteGuard) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := guard.Evaluate()
			switch {
			case d.Render:
				return next(c)
			case d.Waiting:
				c.Response().Header().Set("Retry-After", "1")
				return xhttp.ServiceUnavailableResponse(c, d)
			case xhttp.IsAPIRequest(c):
				return xhttp.UnauthorizedResponse(c, d)
			default:
				return c.Redirect(http.StatusFound, d.RedirectTo)
			}
		}
	}
}

// RateLimit rejects callers that exhaust their token bucket, keyed by client IP.
func RateLimit(l *ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l == nil || l.Allow(c.RealIP()) {
				return next(c)
			}
			return xhttp.DataResponse(c, http.StatusTooManyRequests, "Too many requests")
		}
	}
}
