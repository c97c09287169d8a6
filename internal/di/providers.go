package di

import (
	"context"
	"fmt"
	"time"

	"VariantMap/internal/domain/models"
	"VariantMap/internal/domain/repository"
	"VariantMap/internal/handler/api"
	internalrepo "VariantMap/internal/repository"
	"VariantMap/internal/services/aggregate"
	"VariantMap/internal/services/outcome"
	"VariantMap/internal/services/regime"
	"VariantMap/internal/services/session"
	"VariantMap/internal/usecase"
	"VariantMap/pkg/cache"
	pkgch "VariantMap/pkg/clickhouse"
	"VariantMap/pkg/config"
	xhttp "VariantMap/pkg/http"
	pkgkafka "VariantMap/pkg/kafka"
	applogger "VariantMap/pkg/logger"
	"VariantMap/pkg/metrics"
	"VariantMap/pkg/queue"
	"VariantMap/pkg/server"
	"VariantMap/pkg/util"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return l, l.RemoveCollector, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client when ClickHouse is the
// bar source or a sink; otherwise it returns nil.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled && cfg.Input.Source != "clickhouse" {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	if cfg.ClickHouse.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.InitSchema(ctx, pkgch.Schema(cfg.ClickHouse.Database)); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	l.Info("clickhouse connected", applogger.String("db", cfg.ClickHouse.Database))
	return client, cleanup, nil
}

// ProvideKafkaProducer creates a Kafka producer when Kafka is enabled and,
// if a logs topic is set, ships aggregated warn/error logs through it.
func ProvideKafkaProducer(cfg *config.Config, rec *metrics.Recorder, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithAutoTopicCreation(cfg.Kafka.Producer.AutoTopic),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithRegisterer(rec.Registry()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Kafka.LogsTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logging.Collect.Interval,
			CountThreshold: cfg.Logging.Collect.Threshold,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      producer,
		})
	}
	l.Info("kafka producer ready", applogger.Strings("brokers", cfg.Kafka.Brokers))

	cleanup := func() {
		// flush collected logs before the writer goes away
		l.RemoveCollector()
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvideRedisCache connects to Redis when enabled; otherwise nil.
func ProvideRedisCache(cfg *config.Config, l *applogger.Logger) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis connected", applogger.String("addr", cfg.Redis.Addr))
	return rc, nil
}

// ProvideCache creates the layered map cache: memory in front of Redis when
// Redis is enabled, memory only otherwise. Closing it closes Redis too.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache, l *applogger.Logger) (cache.Service, func(), error) {
	var l2 cache.Service
	if rc != nil {
		l2 = rc
	}
	c := cache.NewLayeredCache(l2,
		cache.WithLayeredMemorySize(cfg.Cache.MemorySize),
		cache.WithLayeredMemoryTTL(cfg.Cache.MemoryTTL),
	)
	cleanup := func() {
		if err := c.Close(); err != nil {
			l.Warn("cache close error", applogger.Error(err))
		}
	}
	return c, cleanup, nil
}

// ProvideBarSource selects the CSV file or the ClickHouse candle table.
func ProvideBarSource(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.BarSource, error) {
	switch cfg.Input.Source {
	case "clickhouse":
		if ch == nil {
			return nil, fmt.Errorf("clickhouse bar source: no client")
		}
		src := internalrepo.NewCHBarSource(ch, cfg.Input.Table, cfg.Input.Symbol, cfg.Location())
		src.SetLogger(l)
		return src, nil
	default:
		src := internalrepo.NewCSVBarSource(cfg.Input.Path, cfg.Location())
		src.SetLogger(l)
		return src, nil
	}
}

// sessionWindows converts configured HH:MM windows.
func sessionWindows(cfg *config.Config) (session.Windows, error) {
	conv := func(name models.SessionName, w config.Window) (models.SessionWindow, error) {
		start, err := models.ParseClockTime(w.Start)
		if err != nil {
			return models.SessionWindow{}, fmt.Errorf("%s start: %w", name, err)
		}
		end, err := models.ParseClockTime(w.End)
		if err != nil {
			return models.SessionWindow{}, fmt.Errorf("%s end: %w", name, err)
		}
		return models.SessionWindow{Name: name, Start: start, End: end, PrevDay: w.PrevDay}, nil
	}
	var (
		out session.Windows
		err error
	)
	s := cfg.Sessions
	if out.Asia, err = conv(models.SessionAsia, s.Asia); err != nil {
		return session.Windows{}, err
	}
	if out.London, err = conv(models.SessionLondon, s.London); err != nil {
		return session.Windows{}, err
	}
	if out.Transition, err = conv(models.SessionTransition, s.Transition); err != nil {
		return session.Windows{}, err
	}
	if out.NY, err = conv(models.SessionNY, s.NY); err != nil {
		return session.Windows{}, err
	}
	return out, nil
}

// builderConfig translates configuration into pipeline knobs. Bars are loaded
// from a day before input.from so its overnight Asia session is present, and
// up to the day after input.to; classification is limited to [from, to].
func builderConfig(cfg *config.Config) (usecase.BuilderConfig, error) {
	loc := cfg.Location()
	windows, err := sessionWindows(cfg)
	if err != nil {
		return usecase.BuilderConfig{}, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	bc := usecase.BuilderConfig{
		Location: loc,
		Windows:  windows,
		Regime: regime.Config{
			Window:     cfg.Regime.RollingWindow,
			MinPeriods: cfg.Regime.MinPeriods,
			Lower:      cfg.Regime.LowerQuantile,
			Upper:      cfg.Regime.UpperQuantile,
		},
		Tolerance: cfg.Position.Tolerance,
		Workers:   cfg.Pipeline.Workers,
	}
	if cfg.Input.From != "" {
		from, err := util.ParseDate(cfg.Input.From, loc)
		if err != nil {
			return bc, fmt.Errorf("%w: input.from: %v", config.ErrInvalidConfig, err)
		}
		bc.FirstDate = from
		bc.From = from.AddDate(0, 0, -1)
	}
	if cfg.Input.To != "" {
		to, err := util.ParseDate(cfg.Input.To, loc)
		if err != nil {
			return bc, fmt.Errorf("%w: input.to: %v", config.ErrInvalidConfig, err)
		}
		bc.LastDate = to
		bc.To = to.AddDate(0, 0, 1)
	}
	return bc, nil
}

// ProvideMapBuilder assembles the pipeline.
func ProvideMapBuilder(cfg *config.Config, src repository.BarSource, rec *metrics.Recorder, l *applogger.Logger) (*usecase.MapBuilder, error) {
	bc, err := builderConfig(cfg)
	if err != nil {
		return nil, err
	}
	labeler, err := outcome.NewLabeler(time.Duration(cfg.Outcome.FollowMinutes) * time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	agg, err := aggregate.New(aggregate.Tiers{MediumN: cfg.Reliability.MediumN, HighN: cfg.Reliability.HighN})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	return usecase.NewMapBuilder(src, labeler, agg, bc,
		usecase.WithBuilderLogger(l),
		usecase.WithBuilderMetrics(rec),
	)
}

// ProvideSQLiteStore opens the SQLite store when enabled; otherwise nil.
func ProvideSQLiteStore(cfg *config.Config, l *applogger.Logger) (*internalrepo.SQLiteMapStore, error) {
	if !cfg.SQLite.Enabled {
		return nil, nil
	}
	s, err := internalrepo.NewSQLiteMapStore(cfg.SQLite.Path, cfg.SQLite.KeepRuns)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: %w", err)
	}
	s.SetLogger(l)
	return s, nil
}

// ProvideCachedMap creates the API's latest-run cache, reading through to
// SQLite when it is enabled.
func ProvideCachedMap(cfg *config.Config, c cache.Service, store *internalrepo.SQLiteMapStore, l *applogger.Logger) *internalrepo.CachedMap {
	var fallback repository.MapReader
	if store != nil {
		fallback = store
	}
	m := internalrepo.NewCachedMap(c, fallback, cfg.Redis.TTL)
	m.SetLogger(l)
	return m
}

// ProvideSinks lists every enabled sink. Files are always written.
func ProvideSinks(
	cfg *config.Config,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
	store *internalrepo.SQLiteMapStore,
	cached *internalrepo.CachedMap,
	l *applogger.Logger,
) []repository.MapSink {
	sinks := []repository.MapSink{
		internalrepo.NewFileSink(cfg.Output.Dir, internalrepo.FileNames{
			MapCSV:  cfg.Output.MapCSV,
			MapJSON: cfg.Output.MapJSON,
			DaysCSV: cfg.Output.DaysCSV,
		}),
	}
	if store != nil {
		sinks = append(sinks, store)
	}
	if cfg.ClickHouse.Enabled && ch != nil {
		s := internalrepo.NewCHMapStore(ch)
		s.SetLogger(l)
		sinks = append(sinks, s)
	}
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaMapPublisher(producer, cfg.Kafka.MapTopic, cfg.Kafka.DaysTopic))
	}
	if cfg.Webhook.URL != "" {
		client := xhttp.NewClient(xhttp.WithTimeout(cfg.Webhook.Timeout), xhttp.WithHeaders(cfg.Webhook.Headers))
		sinks = append(sinks, internalrepo.NewWebhookNotifier(client, cfg.Webhook.URL, cfg.Webhook.Top))
	}
	sinks = append(sinks, cached)
	return sinks
}

// ProvideMapPublisher creates the sink fan-out.
func ProvideMapPublisher(sinks []repository.MapSink, rec *metrics.Recorder, l *applogger.Logger) *usecase.MapPublisher {
	p := usecase.NewMapPublisher(sinks, rec)
	p.SetLogger(l)
	l.Info("sinks configured", applogger.Strings("sinks", p.Sinks()))
	return p
}

// ProvideMapRunner creates the build-and-publish usecase, locked through the cache.
func ProvideMapRunner(b *usecase.MapBuilder, p *usecase.MapPublisher, c cache.Service, l *applogger.Logger) *usecase.MapRunner {
	r := usecase.NewMapRunner(b, p, c)
	r.SetLogger(l)
	return r
}

// ProvideRebuildQueue creates the Redis rebuild queue when enabled; otherwise nil.
func ProvideRebuildQueue(cfg *config.Config, rc *cache.RedisCache, r *usecase.MapRunner, l *applogger.Logger) *queue.RedisQueue {
	if !cfg.Queue.Enabled || rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(rc.Client(), queue.Config{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, queue.WithKeyPrefix(cfg.Queue.Prefix), queue.WithLogger(l))

	job := usecase.NewRebuildJob(r)
	job.SetLogger(l)
	q.RegisterJob(job)
	return q
}

// ProvideMapQuery creates the read usecase over the cached map.
func ProvideMapQuery(m *internalrepo.CachedMap) *usecase.MapQuery {
	return usecase.NewMapQuery(m)
}

// ProvideMapHandler creates the HTTP handler.
func ProvideMapHandler(cfg *config.Config, l *applogger.Logger, q *usecase.MapQuery, r *usecase.MapRunner, rq *queue.RedisQueue) *api.MapEchoHandler {
	var rb api.Rebuilder
	if cfg.HTTP.AllowRebuild {
		rb = r
	}
	h := api.NewMapEchoHandler(l, q, rb)
	if rq != nil {
		h.SetQueue(rq)
	}
	return h
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, h *api.MapEchoHandler, rec *metrics.Recorder, l *applogger.Logger) *xhttp.Server {
	return xhttp.NewServer(h,
		xhttp.WithHost(cfg.HTTP.Host),
		xhttp.WithPort(cfg.HTTP.Port),
		xhttp.WithTimeouts(cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout, cfg.HTTP.ShutdownTimeout),
		xhttp.WithCORS(cfg.HTTP.AllowOrigins...),
		xhttp.WithRateLimit(cfg.HTTP.RateLimit.Capacity, cfg.HTTP.RateLimit.RefillPerSec),
		xhttp.WithMetrics(rec.Registry(), rec),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	rec *metrics.Recorder,
	runner *usecase.MapRunner,
	publisher *usecase.MapPublisher,
	srv *xhttp.Server,
	rq *queue.RedisQueue,
) *server.App {
	var worker server.Worker
	if rq != nil {
		worker = rq
	}
	return server.New(cfg, l, rec, runner, publisher, srv, worker)
}
