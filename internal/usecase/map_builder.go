package usecase

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"VariantMap/internal/domain/models"
	domrepo "VariantMap/internal/domain/repository"
	domsvc "VariantMap/internal/domain/service"
	"VariantMap/internal/services/aggregate"
	"VariantMap/internal/services/fingerprint"
	"VariantMap/internal/services/position"
	"VariantMap/internal/services/regime"
	"VariantMap/internal/services/session"
	applogger "VariantMap/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// BuilderConfig carries the classification knobs of one map build.
type BuilderConfig struct {
	Location  *time.Location
	Windows   session.Windows
	Regime    regime.Config
	Tolerance float64
	Workers   int
	// From and To bound the bars requested from the source; zero means open.
	From time.Time
	To   time.Time
	// FirstDate and LastDate restrict which trading dates are classified,
	// inclusive; zero means open. Bars outside still feed edge sessions.
	FirstDate time.Time
	LastDate  time.Time
}

// MapBuilder runs the full pipeline: extraction and regime classification as
// one ordered fold, then per-day labeling in parallel, then aggregation.
type MapBuilder struct {
	source  domrepo.BarSource
	labeler domsvc.OutcomeLabeler
	agg     domsvc.MapAggregator
	regime  *regime.Classifier
	metrics domrepo.Metrics
	l       *applogger.Logger
	cfg     BuilderConfig
	now     func() time.Time
	newID   func() string
}

type BuilderOption func(*MapBuilder)

func WithBuilderLogger(l *applogger.Logger) BuilderOption {
	return func(b *MapBuilder) { b.l = l }
}

func WithBuilderMetrics(m domrepo.Metrics) BuilderOption {
	return func(b *MapBuilder) { b.metrics = m }
}

// WithClock overrides the wall clock used for run timestamps.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *MapBuilder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithRunID overrides run id generation.
func WithRunID(gen func() string) BuilderOption {
	return func(b *MapBuilder) {
		if gen != nil {
			b.newID = gen
		}
	}
}

func NewMapBuilder(
	source domrepo.BarSource,
	labeler domsvc.OutcomeLabeler,
	agg domsvc.MapAggregator,
	cfg BuilderConfig,
	opts ...BuilderOption,
) (*MapBuilder, error) {
	if source == nil {
		return nil, fmt.Errorf("bar source is required")
	}
	if cfg.Location == nil {
		return nil, fmt.Errorf("location is required")
	}
	if cfg.Tolerance < 0 {
		return nil, fmt.Errorf("position tolerance must be >= 0, got %v", cfg.Tolerance)
	}
	rc, err := regime.New(cfg.Regime)
	if err != nil {
		return nil, fmt.Errorf("regime classifier: %w", err)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	b := &MapBuilder{
		source:  source,
		labeler: labeler,
		agg:     agg,
		regime:  rc,
		cfg:     cfg,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Build loads bars from the source and produces a run result.
func (b *MapBuilder) Build(ctx context.Context) (*models.RunResult, error) {
	started := b.now()
	t0 := time.Now()
	bars, err := b.source.Bars(ctx, b.cfg.From, b.cfg.To)
	if err != nil {
		b.recordError("source")
		return nil, fmt.Errorf("load bars: %w", err)
	}
	b.observe("load", t0)
	if b.l != nil {
		b.l.Info("bars loaded", applogger.Int("bars", len(bars)), applogger.Duration("took_ms", time.Since(t0)))
	}
	return b.run(ctx, bars, started)
}

// BuildFromBars runs the pipeline over an in-memory series.
func (b *MapBuilder) BuildFromBars(ctx context.Context, bars []models.Bar) (*models.RunResult, error) {
	return b.run(ctx, bars, b.now())
}

func (b *MapBuilder) run(ctx context.Context, bars []models.Bar, started time.Time) (*models.RunResult, error) {
	res := &models.RunResult{RunID: b.newID(), StartedAt: started}

	t0 := time.Now()
	days, diag, err := b.fold(bars)
	if err != nil {
		b.recordError("extract")
		return nil, err
	}
	b.observe("extract", t0)

	t0 = time.Now()
	if err := b.labelAll(ctx, days); err != nil {
		b.recordError("label")
		return nil, fmt.Errorf("label days: %w", err)
	}
	b.observe("label", t0)

	for i := range days {
		days[i].StripBars()
		switch days[i].Outcome.FirstSide {
		case models.SideNone:
			diag.NoTouch++
		case models.SideAmbiguous:
			diag.AmbiguousTouch++
		}
	}
	diag.ClassifiedDays = len(days)
	diag.MappedDays = diag.ClassifiedDays - diag.NoTouch

	t0 = time.Now()
	res.Map = b.agg.Build(days)
	res.Summary = aggregate.Summarize(days)
	b.observe("aggregate", t0)
	diag.Variants = len(res.Map)

	res.Days = days
	res.Diagnostics = diag
	if len(days) > 0 {
		res.From = days[0].Date
		res.To = days[len(days)-1].Date
	}
	res.FinishedAt = b.now()

	b.record(diag)
	b.logRun(res)
	return res, nil
}

// fold walks trading dates in order. Only complete days feed the regime
// history; days inside the warm-up enter the history but are dropped.
func (b *MapBuilder) fold(bars []models.Bar) ([]models.TradingDay, models.Diagnostics, error) {
	var diag models.Diagnostics
	ex, err := session.NewExtractor(b.cfg.Location, b.cfg.Windows, bars)
	if err != nil {
		return nil, diag, fmt.Errorf("session extractor: %w", err)
	}
	if b.l != nil {
		ex.SetLogger(b.l)
	}

	dates := b.inRange(ex.TradingDates())
	diag.CandidateDates = len(dates)

	days := make([]models.TradingDay, 0, len(dates))
	hist := b.regime.Empty()
	for _, date := range dates {
		r := ex.Day(date)
		diag.TZShifts += r.Shifts
		if !r.Complete() {
			diag.MissingSession++
			if b.l != nil {
				b.l.Debug("day dropped: missing session",
					applogger.String("date", date.Format("2006-01-02")),
					applogger.Any("missing", r.Missing),
				)
			}
			continue
		}

		var lbl regime.Label
		lbl, hist = b.regime.Step(hist, r.Day.AsiaRange)
		if !lbl.OK {
			diag.InsufficientHistory++
			continue
		}
		day := r.Day
		day.Factors.Regime = lbl.Regime
		day.RegimeLower = lbl.Lower
		day.RegimeUpper = lbl.Upper
		days = append(days, day)
	}
	return days, diag, nil
}

func (b *MapBuilder) inRange(dates []time.Time) []time.Time {
	first, last := b.cfg.FirstDate, b.cfg.LastDate
	if first.IsZero() && last.IsZero() {
		return dates
	}
	out := dates[:0]
	for _, d := range dates {
		if !first.IsZero() && d.Before(first) {
			continue
		}
		if !last.IsZero() && d.After(last) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// labelAll classifies positions and outcomes concurrently; each worker writes
// only its own slot.
func (b *MapBuilder) labelAll(ctx context.Context, days []models.TradingDay) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Workers)
	for i := range days {
		d := &days[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b.label(d)
			return nil
		})
	}
	return g.Wait()
}

func (b *MapBuilder) label(d *models.TradingDay) {
	d.Factors.Sweep = position.Sweep(d.Asia, d.London)
	d.Factors.TransitionPos = position.Open(d.Transition, d.London, b.cfg.Tolerance)
	d.Factors.NYPos = position.Open(d.NY, d.London, b.cfg.Tolerance)
	d.Variant = fingerprint.Build(d.Factors)
	b.labeler.LabelDay(d)
}

func (b *MapBuilder) observe(stage string, since time.Time) {
	if b.metrics != nil {
		b.metrics.RecordStageDuration(stage, time.Since(since).Seconds())
	}
}

func (b *MapBuilder) recordError(kind string) {
	if b.metrics != nil {
		b.metrics.RecordError(kind)
	}
}

func (b *MapBuilder) record(d models.Diagnostics) {
	if b.metrics == nil {
		return
	}
	b.metrics.RecordDays("candidate", d.CandidateDates)
	b.metrics.RecordDays("missing_session", d.MissingSession)
	b.metrics.RecordDays("insufficient_history", d.InsufficientHistory)
	b.metrics.RecordDays("no_touch", d.NoTouch)
	b.metrics.RecordDays("ambiguous_touch", d.AmbiguousTouch)
	b.metrics.RecordDays("mapped", d.MappedDays)
	b.metrics.RecordVariants(d.Variants)
}

func (b *MapBuilder) logRun(res *models.RunResult) {
	if b.l == nil {
		return
	}
	d := res.Diagnostics
	b.l.Info("map built",
		applogger.String("run_id", res.RunID),
		applogger.Int("candidate_dates", d.CandidateDates),
		applogger.Int("dropped_missing_session", d.MissingSession),
		applogger.Int("dropped_insufficient_history", d.InsufficientHistory),
		applogger.Int("excluded_no_touch", d.NoTouch),
		applogger.Int("ambiguous_touch", d.AmbiguousTouch),
		applogger.Int("tz_shifts", d.TZShifts),
		applogger.Int("mapped_days", d.MappedDays),
		applogger.Int("variants", d.Variants),
		applogger.Duration("took_ms", res.FinishedAt.Sub(res.StartedAt)),
	)
	s := res.Summary
	fields := []applogger.Field{
		applogger.Any("regimes", s.RegimeCounts),
		applogger.Any("sweeps", s.SweepCounts),
		applogger.Any("first_side", s.FirstSideCounts),
		applogger.Float64("fail_pct", s.FailPct),
		applogger.Float64("both_pct", s.BothPct),
		applogger.String("coverage", fmt.Sprintf("%d/%d", s.VariantCoverage, s.VariantSpace)),
	}
	if s.MedianPenetration != nil {
		fields = append(fields, applogger.Float64("median_penetration", *s.MedianPenetration))
	}
	b.l.Info("run summary", fields...)
}
