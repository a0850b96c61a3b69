package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	appealhandler "dealdesk/internal/appeal/handler"
	appealservice "dealdesk/internal/appeal/service"
	"dealdesk/internal/authz"
	"dealdesk/internal/clock"
	conditionshandler "dealdesk/internal/conditions/handler"
	conditionsservice "dealdesk/internal/conditions/service"
	httpapi "dealdesk/internal/http"
	"dealdesk/internal/ledger"
	ledgerhandler "dealdesk/internal/ledger/handler"
	ledgerservice "dealdesk/internal/ledger/service"
	ledgerstore "dealdesk/internal/ledger/store"
	"dealdesk/internal/notify"
	"dealdesk/internal/platform/config"
	"dealdesk/internal/platform/kafka"
	platformmetrics "dealdesk/internal/platform/metrics"
	"dealdesk/internal/platform/middleware"
	"dealdesk/internal/platform/postgres"
	"dealdesk/internal/platform/redis"
	responsehandler "dealdesk/internal/response/handler"
	responsemetrics "dealdesk/internal/response/metrics"
	responseservice "dealdesk/internal/response/service"
	responsestore "dealdesk/internal/response/store"
	reviewhandler "dealdesk/internal/review/handler"
	reviewmetrics "dealdesk/internal/review/metrics"
	reviewservice "dealdesk/internal/review/service"
	reviewstore "dealdesk/internal/review/store"
	"dealdesk/internal/scoring"
)

type appMetrics struct {
	http     *platformmetrics.Metrics
	review   *reviewmetrics.Metrics
	response *responsemetrics.Metrics
	relay    *notify.Metrics
}

var (
	metricsOnce sync.Once
	shared      *appMetrics
)

// promauto registers globally, so metrics are created once per process.
func processMetrics() *appMetrics {
	metricsOnce.Do(func() {
		shared = &appMetrics{
			http:     platformmetrics.New(),
			review:   reviewmetrics.New(),
			response: responsemetrics.New(),
			relay:    notify.NewMetrics(),
		}
	})
	return shared
}

// app is the wired process: the HTTP handler plus optional background relay.
type app struct {
	handler http.Handler
	relay   *notify.Relay
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

type storage struct {
	ledger   ledger.Store
	tx       ledger.Transactor
	facts    reviewstore.FactsStore
	scores   reviewstore.ScoreStore
	notifier notify.Notifier
	outbox   *notify.OutboxStore
	db       *sql.DB
}

func build(ctx context.Context, cfg config.Server, logger *slog.Logger) (*app, error) {
	m := processMetrics()
	a := &app{}
	health := map[string]httpapi.HealthCheck{}

	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if st.db != nil {
		a.closers = append(a.closers, st.db.Close)
		health["postgres"] = st.db.PingContext
	}

	adapter, err := scoring.NewThresholdAdapter(cfg.Thresholds.Pass, cfg.Thresholds.Conditional)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("scoring thresholds: %w", err)
	}

	reviewRepo, err := reviewstore.NewRepository(st.facts, st.scores, st.ledger, st.tx)
	if err != nil {
		a.Close()
		return nil, err
	}
	responseRepo, err := responsestore.NewRepository(st.ledger, st.tx)
	if err != nil {
		a.Close()
		return nil, err
	}

	review, err := reviewservice.New(reviewRepo,
		reviewservice.WithLogger(logger),
		reviewservice.WithMetrics(m.review),
		reviewservice.WithNotifier(st.notifier),
		reviewservice.WithAdapter(adapter),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	appeals, err := appealservice.New(reviewRepo,
		appealservice.WithLogger(logger),
		appealservice.WithMetrics(m.review),
		appealservice.WithNotifier(st.notifier),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	conditions, err := conditionsservice.New(reviewRepo,
		conditionsservice.WithLogger(logger),
		conditionsservice.WithMetrics(m.review),
		conditionsservice.WithNotifier(st.notifier),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	responses, err := responseservice.New(responseRepo,
		responseservice.WithLogger(logger),
		responseservice.WithMetrics(m.response),
		responseservice.WithWindow(clock.NewWindow(cfg.ReconsiderWindow)),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	audit, err := ledgerservice.New(st.ledger, ledgerservice.WithLogger(logger))
	if err != nil {
		a.Close()
		return nil, err
	}

	var idem middleware.IdempotencyStore = middleware.NewMemoryIdempotencyStore()
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}
	if rc != nil {
		a.closers = append(a.closers, rc.Close)
		health["redis"] = rc.Health
		idem = redis.NewIdempotencyStore(rc)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() error { producer.Close(); return nil })
		if err := producer.EnsureTopic(ctx, 3, 1); err != nil {
			logger.WarnContext(ctx, "kafka topic provisioning failed", "topic", cfg.Kafka.Topic, "error", err)
		}
		health["kafka"] = producer.Health
		a.relay, err = notify.NewRelay(st.outbox, producer,
			notify.WithInterval(cfg.Kafka.RelayInterval),
			notify.WithBatchSize(cfg.Kafka.RelayBatch),
			notify.WithRelayLogger(logger),
			notify.WithRelayMetrics(m.relay),
		)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.handler = httpapi.NewRouter(httpapi.Config{
		Logger:         logger,
		Metrics:        m.http,
		Verifier:       authz.NewTokenService(cfg.JWTSigningKey, cfg.JWTIssuer),
		Idempotency:    idem,
		IdempotencyTTL: cfg.Redis.IdempotencyTTL,
		Health:         health,
		Handlers: []httpapi.Registrar{
			reviewhandler.New(review, logger),
			appealhandler.New(appeals, logger),
			conditionshandler.New(conditions, logger),
			responsehandler.New(responses, logger),
			ledgerhandler.New(audit, logger),
		},
	})
	return a, nil
}

// openStorage picks postgres when a database URL is configured and the
// in-memory stores otherwise.
func openStorage(ctx context.Context, cfg config.Server, logger *slog.Logger) (*storage, error) {
	if cfg.Database.URL == "" {
		logger.WarnContext(ctx, "no database configured; using in-memory stores")
		return &storage{
			ledger:   ledgerstore.NewInMemory(),
			tx:       ledgerstore.NewShardedTx(),
			facts:    reviewstore.NewInMemoryFactsStore(),
			scores:   reviewstore.NewInMemoryScoreStore(),
			notifier: notify.NewMemoryNotifier(logger),
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	outbox := notify.NewOutboxStore(db)
	return &storage{
		ledger:   ledgerstore.NewPostgres(db),
		tx:       ledgerstore.NewPostgresTx(db),
		facts:    reviewstore.NewPostgresFactsStore(db),
		scores:   reviewstore.NewPostgresScoreStore(db),
		notifier: outbox,
		outbox:   outbox,
		db:       db,
	}, nil
}
