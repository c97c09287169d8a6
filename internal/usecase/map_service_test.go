package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"VariantMap/internal/domain/models"
	domrepo "VariantMap/internal/domain/repository"
	"VariantMap/internal/testutil"
	"VariantMap/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct {
	name string
	err  error
	mu   sync.Mutex
	runs []string
}

func (s *memSink) Name() string { return s.name }

func (s *memSink) Write(_ context.Context, run *models.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run.RunID)
	return s.err
}

func (s *memSink) Close() error { return s.err }

type sinkMetrics struct {
	mu     sync.Mutex
	writes map[string]bool
}

func (m *sinkMetrics) RecordDays(string, int) {}
func (m *sinkMetrics) RecordVariants(int) {}
func (m *sinkMetrics) RecordStageDuration(string, float64) {}
func (m *sinkMetrics) RecordError(string) {}
func (m *sinkMetrics) RecordRequest(string, int, float64) {}
func (m *sinkMetrics) RecordSinkWrite(sink string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writes == nil {
		m.writes = map[string]bool{}
	}
	m.writes[sink] = ok
}

func TestMapPublisherIsolatesSinkFailures(t *testing.T) {
	good := &memSink{name: "file"}
	bad := &memSink{name: "kafka", err: errors.New("broker down")}
	m := &sinkMetrics{}
	p := NewMapPublisher([]domrepo.MapSink{good, bad}, m)

	err := p.Publish(context.Background(), testutil.SampleRun())
	require.Error(t, err)
	assert.ErrorContains(t, err, "sink kafka: broker down")
	assert.Equal(t, []string{"run-1"}, good.runs)
	assert.Equal(t, map[string]bool{"file": true, "kafka": false}, m.writes)
	assert.Equal(t, []string{"file", "kafka"}, p.Sinks())

	assert.Error(t, p.Close())
	assert.Error(t, p.Publish(context.Background(), nil))
}

type stubBuilder struct {
	run   *models.RunResult
	err   error
	calls int
}

func (b *stubBuilder) Build(context.Context) (*models.RunResult, error) {
	b.calls++
	return b.run, b.err
}

func TestMapRunner(t *testing.T) {
	ctx := context.Background()
	lock := cache.NewMemoryCache()
	defer lock.Close()

	sink := &memSink{name: "file"}
	b := &stubBuilder{run: testutil.SampleRun()}
	r := NewMapRunner(b, NewMapPublisher([]domrepo.MapSink{sink}, nil), lock)

	run, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.RunID)
	assert.Equal(t, []string{"run-1"}, sink.runs)

	ok, err := lock.TryLock(ctx, runLockKey, runLockTTL)
	require.NoError(t, err)
	require.True(t, ok, "lock released after run")

	_, err = r.Run(ctx)
	assert.ErrorIs(t, err, ErrBuildInProgress)
	assert.Equal(t, 1, b.calls)
	require.NoError(t, lock.Unlock(ctx, runLockKey))

	b.err = errors.New("no bars")
	_, err = r.Run(ctx)
	assert.ErrorContains(t, err, "build map: no bars")

	b.err = nil
	sink.err = errors.New("disk full")
	run, err = r.Run(ctx)
	assert.ErrorContains(t, err, "publish map")
	assert.NotNil(t, run, "result survives a sink failure")
}

type snapReader struct{ snap *models.Snapshot }

func (r snapReader) Latest(context.Context) (*models.Snapshot, error) {
	if r.snap == nil {
		return nil, domrepo.ErrNotFound
	}
	return r.snap, nil
}

func TestMapQueryMap(t *testing.T) {
	snap := testutil.SampleRun().Snapshot()
	snap.Map[1].N = 60
	snap.Map[1].Reliability = models.ReliabilityMedium
	q := NewMapQuery(snapReader{snap})

	v, err := q.Map(context.Background(), MapParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, v.Count)
	assert.Equal(t, "2024-06-03", v.From)

	v, err = q.Map(context.Background(), MapParams{MinN: 2})
	require.NoError(t, err)
	require.Equal(t, 1, v.Count)
	assert.Equal(t, models.Variant("Compressed|High|Above|Above"), v.Rows[0].Variant)

	v, err = q.Map(context.Background(), MapParams{Reliability: models.ReliabilityLow, Limit: 1})
	require.NoError(t, err)
	require.Equal(t, 1, v.Count)
	assert.Equal(t, models.Variant("Normal|Both|Within|Within"), v.Rows[0].Variant)

	_, err = NewMapQuery(snapReader{}).Map(context.Background(), MapParams{})
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}

func TestMapQueryVariant(t *testing.T) {
	q := NewMapQuery(snapReader{testutil.SampleRun().Snapshot()})

	e, err := q.Variant(context.Background(), "Normal|Both|Within|Within")
	require.NoError(t, err)
	assert.Equal(t, 1.5, *e.MedianPenHigh)

	_, err = q.Variant(context.Background(), "Expanded|None|Below|Below")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)

	_, err = q.Variant(context.Background(), "Huge|None|Below|Below")
	var bad *BadVariantError
	assert.ErrorAs(t, err, &bad)
}

func TestMapQueryDays(t *testing.T) {
	q := NewMapQuery(snapReader{testutil.SampleRun().Snapshot()})

	v, err := q.Days(context.Background(), DaysParams{From: "2024-06-04"})
	require.NoError(t, err)
	require.Equal(t, 1, v.Count)
	assert.Equal(t, "Low", v.Days[0].FirstSide)

	v, err = q.Days(context.Background(), DaysParams{Variant: "Normal|Both|Within|Within"})
	require.NoError(t, err)
	require.Equal(t, 1, v.Count)
	assert.Equal(t, "2024-06-03", v.Days[0].Date)

	v, err = q.Days(context.Background(), DaysParams{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, v.Count)

	_, err = q.Days(context.Background(), DaysParams{From: "2024-06-05", To: "2024-06-01"})
	assert.Error(t, err)
}

func TestMapQueryDiagnosticsAndVariants(t *testing.T) {
	q := NewMapQuery(snapReader{testutil.SampleRun().Snapshot()})

	d, err := q.Diagnostics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", d.RunID)
	assert.Equal(t, 108, d.Summary.VariantSpace)
	assert.Equal(t, "2024-07-01T12:00:00Z", d.StartedAt)

	vs, err := q.Variants(context.Background())
	require.NoError(t, err)
	require.Len(t, vs, 108)
	seen := 0
	for _, v := range vs {
		if v.N > 0 {
			seen++
		}
	}
	assert.Equal(t, 2, seen)

	vs, err = NewMapQuery(snapReader{}).Variants(context.Background())
	require.NoError(t, err)
	assert.Len(t, vs, 108)
}
