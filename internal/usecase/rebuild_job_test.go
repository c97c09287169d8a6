package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"VariantMap/internal/domain/models"
	"VariantMap/internal/testutil"

	"github.com/stretchr/testify/assert"
)

type runStub struct {
	run   *models.RunResult
	err   error
	calls int
}

func (r *runStub) Run(context.Context) (*models.RunResult, error) {
	r.calls++
	return r.run, r.err
}

func TestRebuildJob(t *testing.T) {
	ctx := context.Background()
	payload := json.RawMessage(`{"reason":"new bars","requested_at":"2024-07-01T12:00:00Z"}`)

	stub := &runStub{run: testutil.SampleRun()}
	job := NewRebuildJob(stub)
	assert.Equal(t, RebuildJobType, job.Type())
	assert.NoError(t, job.Handle(ctx, payload))

	stub.err = errors.New("publish map: sink kafka: down")
	assert.NoError(t, job.Handle(ctx, payload), "partial publish is not retried")

	stub.run, stub.err = nil, ErrBuildInProgress
	assert.ErrorIs(t, job.Handle(ctx, payload), ErrBuildInProgress)

	assert.Error(t, job.Handle(ctx, json.RawMessage(`{`)))
	assert.Equal(t, 3, stub.calls, "bad payload never reaches the runner")
}
