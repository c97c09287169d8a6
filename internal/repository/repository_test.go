package repository

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"VariantMap/internal/domain/models"
	domrepo "VariantMap/internal/domain/repository"
	"VariantMap/internal/export"
	"VariantMap/internal/testutil"
	"VariantMap/pkg/cache"
	xhttp "VariantMap/pkg/http"
	pkgkafka "VariantMap/pkg/kafka"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVBarSource(t *testing.T) {
	ny := testutil.NewYork()
	src := NewCSVBarSource("unused", ny)
	in := strings.Join([]string{
		"Timestamp,Open,High,Low,Close,Volume",
		"2024-06-03 09:31:00,101,102,100,101.5,10",
		"2024-06-03 09:30:00,100,101,99,100.5,12",
		"2024-06-03T14:32:00Z,101.5,103,101,102,9",
		"2024-06-03 09:33:00,100,99,101,100,1",
		"2024-06-04 09:30:00,100,101,99,100.5,12",
	}, "\n")

	to := time.Date(2024, 6, 4, 0, 0, 0, 0, ny)
	bars, err := src.read(context.Background(), strings.NewReader(in), time.Time{}, to)
	require.NoError(t, err)

	require.Len(t, bars, 3, "invalid OHLC and out-of-range rows are dropped")
	assert.Equal(t, time.Date(2024, 6, 3, 9, 30, 0, 0, ny), bars[0].Time)
	assert.Equal(t, 101.0, bars[1].Open)
	assert.True(t, bars[2].Time.Equal(time.Date(2024, 6, 3, 10, 32, 0, 0, ny)))
	assert.Equal(t, ny, bars[2].Time.Location())
}

func TestCSVBarSourceErrors(t *testing.T) {
	src := NewCSVBarSource("unused", time.UTC)
	_, err := src.read(context.Background(), strings.NewReader("when,open,high,low,close\n"), time.Time{}, time.Time{})
	assert.ErrorContains(t, err, "timestamp column")

	_, err = src.read(context.Background(), strings.NewReader("time,open,high,low\n"), time.Time{}, time.Time{})
	assert.ErrorContains(t, err, "no close column")

	_, err = src.read(context.Background(), strings.NewReader("time,open,high,low,close\nyesterday,1,1,1,1\n"), time.Time{}, time.Time{})
	assert.ErrorContains(t, err, "line 2")

	_, err = NewCSVBarSource(filepath.Join(t.TempDir(), "missing.csv"), time.UTC).Bars(context.Background(), time.Time{}, time.Time{})
	assert.Error(t, err)
}

func TestFileSinkWritesAllOutputs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink := NewFileSink(dir, DefaultFileNames())
	run := testutil.SampleRun()
	require.NoError(t, sink.Write(context.Background(), run))

	f, err := os.Open(filepath.Join(dir, "ny_probability_map.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := export.ReadMapCSV(f)
	require.NoError(t, err)
	assert.Equal(t, export.RoundMap(run.Map), rows)

	raw, err := os.ReadFile(filepath.Join(dir, "ny_probability_map.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"variant": "Normal|Both|Within|Within"`)

	raw, err = os.ReadFile(filepath.Join(dir, "daily_sessions_with_labels.csv"))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(raw)), "\n"), 3)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temp files left behind")
}

func TestSQLiteMapStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteMapStore(filepath.Join(t.TempDir(), "db", "map.db"), 1)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Latest(ctx)
	assert.ErrorIs(t, err, domrepo.ErrNotFound)

	first := testutil.SampleRun()
	require.NoError(t, store.Write(ctx, first))

	second := testutil.SampleRun()
	second.RunID = "run-2"
	second.StartedAt = first.StartedAt.Add(time.Hour)
	second.Map = second.Map[:1]
	require.NoError(t, store.Write(ctx, second))

	got, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", got.RunID)
	assert.Equal(t, "2024-06-03", got.From)
	assert.Equal(t, second.Diagnostics, got.Diagnostics)
	assert.Equal(t, second.Summary, got.Summary)
	assert.Equal(t, export.RoundMap(second.Map), got.Map)

	require.Len(t, got.Days, 2)
	want := second.Snapshot().Days
	assert.Equal(t, want[0].Variant, got.Days[0].Variant)
	assert.True(t, want[0].FirstTouch.Equal(*got.Days[0].FirstTouch))
	assert.True(t, got.Days[0].Both)
	assert.Equal(t, 1.5, *got.Days[0].MedianPenetration)
	assert.Nil(t, got.Days[1].MedianPenetration)

	var runs int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM map_runs`).Scan(&runs))
	assert.Equal(t, 1, runs, "older runs pruned")
	var orphans int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM variant_map WHERE run_id = 'run-1'`).Scan(&orphans))
	assert.Zero(t, orphans)
}

type fakeBatch struct {
	topics []string
	msgs   [][]pkgkafka.Message
	err    error
}

func (f *fakeBatch) PublishBatch(_ context.Context, topic string, m []pkgkafka.Message) error {
	f.topics = append(f.topics, topic)
	f.msgs = append(f.msgs, m)
	return f.err
}

func TestKafkaMapPublisher(t *testing.T) {
	fb := &fakeBatch{}
	p := NewKafkaMapPublisher(fb, "vmap.map", "vmap.days")
	require.NoError(t, p.Write(context.Background(), testutil.SampleRun()))

	assert.Equal(t, []string{"vmap.map", "vmap.days"}, fb.topics)
	require.Len(t, fb.msgs[0], 2)
	assert.Equal(t, []byte("Normal|Both|Within|Within"), fb.msgs[0][0].Key)
	assert.Equal(t, []byte("2024-06-04"), fb.msgs[1][1].Key)

	raw, err := json.Marshal(fb.msgs[0][0].Value)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"run_id":"run-1"`)
	assert.Contains(t, string(raw), `"asia_regime":"Normal"`)

	fb = &fakeBatch{err: errors.New("broker down")}
	err = NewKafkaMapPublisher(fb, "vmap.map", "").Write(context.Background(), testutil.SampleRun())
	assert.ErrorContains(t, err, "publish map")
	assert.Len(t, fb.topics, 1)
}

type staticReader struct {
	snap  *models.Snapshot
	calls int
}

func (r *staticReader) Latest(context.Context) (*models.Snapshot, error) {
	r.calls++
	if r.snap == nil {
		return nil, domrepo.ErrNotFound
	}
	return r.snap, nil
}

func TestCachedMapReadThrough(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryCache()
	defer mem.Close()

	fallback := &staticReader{snap: testutil.SampleRun().Snapshot()}
	m := NewCachedMap(mem, fallback, 0)

	got, err := m.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	_, err = m.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fallback.calls, "second read served from cache")

	run := testutil.SampleRun()
	run.RunID = "run-2"
	require.NoError(t, m.Write(ctx, run))
	got, err = m.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", got.RunID)
	assert.Len(t, got.Days, 2)
}

func TestCachedMapEmpty(t *testing.T) {
	mem := cache.NewMemoryCache()
	defer mem.Close()

	_, err := NewCachedMap(mem, nil, time.Minute).Latest(context.Background())
	assert.ErrorIs(t, err, domrepo.ErrNotFound)

	_, err = NewCachedMap(mem, &staticReader{}, time.Minute).Latest(context.Background())
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}

func TestWebhookNotifier(t *testing.T) {
	var got runNotice
	var auth, method, ct string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		method = r.Method
		ct = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	client := xhttp.NewClient(xhttp.WithHeaders(map[string]string{"Authorization": "Bearer t"}))
	n := NewWebhookNotifier(client, ts.URL, 1)
	require.NoError(t, n.Write(context.Background(), testutil.SampleRun()))

	assert.Equal(t, "Bearer t", auth)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "application/json", ct)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "2024-06-04", got.To)
	require.Len(t, got.Top, 1)
	assert.Equal(t, models.Variant("Normal|Both|Within|Within"), got.Top[0].Variant)
}

func TestCHBarQuery(t *testing.T) {
	s := &CHBarSource{table: "candles_1m", symbol: "NQ"}
	q, args := s.barQuery(time.Time{}, time.Time{})
	assert.NotContains(t, q, "bucket >=")
	assert.Equal(t, []interface{}{"NQ"}, args)

	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	q, args = s.barQuery(from, from.AddDate(0, 1, 0))
	assert.Contains(t, q, "bucket >= ? AND bucket < ?")
	assert.Len(t, args, 3)
}

func TestCHRows(t *testing.T) {
	run := testutil.SampleRun()
	snap := run.Snapshot()

	row := mapRow(snap.RunID, snap.Map[0])
	assert.Len(t, row, 14)
	assert.Equal(t, uint32(1), row[6])

	row = dayLabelRow(snap.RunID, run.Days[0].Date, snap.Days[0])
	assert.Len(t, row, 11)
	assert.Equal(t, uint8(1), row[8])
	assert.Equal(t, uint8(1), row[9])
}
