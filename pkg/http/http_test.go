package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queryReq struct {
	MinN  int    `query:"min_n" default:"1" validate:"gte=1"`
	Since string `query:"since" validate:"omitempty,datetime=2006-01-02"`
}

type routes struct{}

func (routes) RegisterRoutes(e *echo.Echo) {
	e.GET("/q", func(c echo.Context) error {
		var req queryReq
		if errs := ReadAndValidateRequest(c, &req); errs != nil {
			return BadRequestResponse(c, errs)
		}
		return SuccessResponse(c, req.MinN)
	})
	e.GET("/missing", func(c echo.Context) error {
		return AppErrorResponse(c, NotFoundError("no map yet"))
	})
	e.GET("/oops", func(c echo.Context) error {
		return AppErrorResponse(c, errors.New("plain"))
	})
}

func serve(t *testing.T, s *Server, target string) (int, APIResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body APIResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec.Code, body
}

func TestServerResponses(t *testing.T) {
	s := NewServer(routes{})

	code, body := serve(t, s, "/q")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body.Data, "default applied")

	code, body = serve(t, s, "/q?since=06/01/2024")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, http.StatusBadRequest, body.Status)
	errs := body.Data.([]interface{})
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_DATETIME", errs[0].(map[string]interface{})["code"])

	code, body = serve(t, s, "/missing")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Not Found", body.Message)

	code, _ = serve(t, s, "/oops")
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestServerMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "runs_total", Help: "runs"})
	reg.MustRegister(c)
	c.Inc()

	s := NewServer(nil, WithMetrics(reg, nil))
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "runs_total 1")
}

func TestServerAddr(t *testing.T) {
	s := NewServer(nil, WithHost("127.0.0.1"), WithPort(9191))
	assert.Equal(t, "127.0.0.1:9191", s.Addr())
}

func TestClientPostJSON(t *testing.T) {
	var gotMethod, gotCT, gotAuth string
	var gotBody map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotCT = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	c := NewClient(WithTimeout(2*time.Second), WithHeaders(map[string]string{"Authorization": "Bearer t"}))
	var out struct{ OK bool }
	require.NoError(t, c.PostJSON(context.Background(), ts.URL, map[string]string{"run": "r1"}, &out))
	assert.True(t, out.OK)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotCT)
	assert.Equal(t, "Bearer t", gotAuth)
	assert.Equal(t, "r1", gotBody["run"])
}

func TestClientReaderBody(t *testing.T) {
	var raw []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	var out struct{ OK bool }
	err := NewClient().Do(context.Background(), &Request{URL: ts.URL, Body: strings.NewReader(`{"pre":"encoded"}`)}, &out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pre":"encoded"}`, string(raw), "reader body is not re-encoded")
	assert.False(t, out.OK, "204 leaves dest untouched")
}

func TestClientErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		http.Error(w, strings.Repeat("x", 2000), http.StatusBadGateway)
	}))
	defer ts.Close()

	err := NewClient().Do(context.Background(), &Request{Method: http.MethodPut, URL: ts.URL}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
	assert.Less(t, len(err.Error()), 600, "error body is truncated")
}

func TestClientUnencodableBody(t *testing.T) {
	err := NewClient().PostJSON(context.Background(), "http://127.0.0.1:1", map[string]interface{}{"f": func() {}}, nil)
	assert.ErrorContains(t, err, "marshal json")
}

type rebuildRoutes struct{ routes }

func (rebuildRoutes) WriteMethods() []string { return []string{http.MethodPost} }

func TestAllowedMethods(t *testing.T) {
	assert.Equal(t, []string{http.MethodGet, http.MethodOptions}, AllowedMethods(routes{}))
	assert.Equal(t, []string{http.MethodGet, http.MethodOptions}, AllowedMethods(nil))
	assert.Equal(t, []string{http.MethodGet, http.MethodOptions, http.MethodPost}, AllowedMethods(rebuildRoutes{}))
}

func preflight(s *Server, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/q", nil)
	req.Header.Set(echo.HeaderOrigin, origin)
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestServerCORSFollowsRoutes(t *testing.T) {
	rec := preflight(NewServer(routes{}, WithCORS("https://dash.local")), "https://dash.local")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, OPTIONS", rec.Header().Get(echo.HeaderAccessControlAllowMethods))

	rec = preflight(NewServer(rebuildRoutes{}, WithCORS("https://dash.local")), "https://dash.local")
	assert.Equal(t, "GET, OPTIONS, POST", rec.Header().Get(echo.HeaderAccessControlAllowMethods))
	assert.Equal(t, "600", rec.Header().Get(echo.HeaderAccessControlMaxAge))

	rec = preflight(NewServer(routes{}), "https://dash.local")
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin), "no origins configured")
}
