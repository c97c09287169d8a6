package server

import (
	"context"
	"errors"
	"testing"

	"VariantMap/internal/domain/models"
	"VariantMap/internal/testutil"
	"VariantMap/pkg/config"
	xhttp "VariantMap/pkg/http"
	applogger "VariantMap/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	run   *models.RunResult
	err   error
	calls int
}

func (r *stubRunner) Run(context.Context) (*models.RunResult, error) {
	r.calls++
	return r.run, r.err
}

type stubWorker struct {
	started, stopped bool
	startErr         error
}

func (w *stubWorker) Start(context.Context) error {
	w.started = true
	return w.startErr
}

func (w *stubWorker) Stop(context.Context) error {
	w.stopped = true
	return nil
}

type noRoutes struct{}

func (noRoutes) RegisterRoutes(*echo.Echo) {}

func newApp(runner Runner, worker Worker) *App {
	cfg := config.Default()
	srv := xhttp.NewServer(noRoutes{}, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0))
	return New(cfg, applogger.Nop(), nil, runner, nil, srv, worker)
}

func TestRunBatch(t *testing.T) {
	r := &stubRunner{run: testutil.SampleRun()}
	require.NoError(t, newApp(r, nil).RunBatch(context.Background()))

	r.err = errors.New("publish map: sink file: disk full")
	assert.ErrorContains(t, newApp(r, nil).RunBatch(context.Background()), "disk full")
	assert.Equal(t, 2, r.calls)
}

func TestServeStopsOnCancel(t *testing.T) {
	r := &stubRunner{err: errors.New("no bars")}
	w := &stubWorker{}
	app := newApp(r, w)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, app.Serve(ctx), "failed initial build keeps serving")
	assert.Equal(t, 1, r.calls)
	assert.True(t, w.started)
	assert.True(t, w.stopped)
	assert.NoError(t, app.Close())
}

func TestServeQueueStartFailure(t *testing.T) {
	w := &stubWorker{startErr: errors.New("redis ping: refused")}
	err := newApp(&stubRunner{run: testutil.SampleRun()}, w).Serve(context.Background())
	assert.ErrorContains(t, err, "queue start")
}
