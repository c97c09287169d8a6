package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSConfig holds CORS configuration. Methods defaults to GET and OPTIONS.
type CORSConfig struct {
	AllowOrigins []string
	Methods      []string
	MaxAge       int
}

var corsHeaders = strings.Join([]string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept}, ", ")

// CORS answers cross-origin requests from the configured origins. A "*"
// entry allows any origin. Preflights from other origins get 403; plain
// requests from them pass through without CORS headers.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	wildcard := false
	allowed := make(map[string]struct{}, len(cfg.AllowOrigins))
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			wildcard = true
			continue
		}
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	methods := cfg.Methods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodOptions}
	}
	allowMethods := strings.Join(methods, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			origin := c.Request().Header.Get(echo.HeaderOrigin)
			if origin == "" {
				return next(c)
			}
			h := c.Response().Header()
			preflight := c.Request().Method == http.MethodOptions &&
				c.Request().Header.Get(echo.HeaderAccessControlRequestMethod) != ""

			switch _, ok := allowed[origin]; {
			case ok:
				h.Add(echo.HeaderVary, echo.HeaderOrigin)
				h.Set(echo.HeaderAccessControlAllowOrigin, origin)
			case wildcard:
				h.Set(echo.HeaderAccessControlAllowOrigin, "*")
			case preflight:
				return c.NoContent(http.StatusForbidden)
			default:
				return next(c)
			}

			if !preflight {
				return next(c)
			}
			h.Set(echo.HeaderAccessControlAllowMethods, allowMethods)
			h.Set(echo.HeaderAccessControlAllowHeaders, corsHeaders)
			if cfg.MaxAge > 0 {
				h.Set(echo.HeaderAccessControlMaxAge, strconv.Itoa(cfg.MaxAge))
			}
			return c.NoContent(http.StatusNoContent)
		}
	}
}
