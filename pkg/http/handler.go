package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler registers its routes on the server.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// WriteMethods is implemented by handlers that expose routes beyond GET,
// such as an opt-in rebuild endpoint.
type WriteMethods interface {
	WriteMethods() []string
}

// AllowedMethods lists the methods h serves, for CORS preflight answers.
// GET and OPTIONS are always present.
func AllowedMethods(h Handler) []string {
	methods := []string{http.MethodGet, http.MethodOptions}
	wm, ok := h.(WriteMethods)
	if !ok {
		return methods
	}
	for _, m := range wm.WriteMethods() {
		if m != http.MethodGet && m != http.MethodOptions {
			methods = append(methods, m)
		}
	}
	return methods
}
