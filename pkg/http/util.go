package http

import (
	xutil "QuantDesk/pkg/util"

	"github.com/labstack/echo/v4"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int { return xutil.ParseIntDefault(s, def) }

// PathIndex reads a non-negative integer path parameter.
func PathIndex(c echo.Context, name string) (int, bool) {
	v := xutil.ParseIntDefault(c.Param(name), -1)
	return v, v >= 0
}

// IsAPIRequest reports whether the request targets the JSON API rather than a view.
func IsAPIRequest(c echo.Context) bool {
	p := c.Request().URL.Path
	return len(p) >= 5 && p[:5] == "/api/"
}
