package app

import (
	"context"
	"errors"
	"time"

	config "github.com/DRSN-tech/shop-backend/internal/cfg"
	v1Grpc "github.com/DRSN-tech/shop-backend/internal/delivery/v1/grpc"
	v1Http "github.com/DRSN-tech/shop-backend/internal/delivery/v1/http"
	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/internal/infrastructure/kafka"
	s3Repo "github.com/DRSN-tech/shop-backend/internal/repository/minio"
	"github.com/DRSN-tech/shop-backend/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/shop-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/shop-backend/internal/repository/redis"
	redisConv "github.com/DRSN-tech/shop-backend/internal/repository/redis/converter"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/clients"
	"github.com/DRSN-tech/shop-backend/pkg/closer"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/DRSN-tech/shop-backend/pkg/postgres"
	"github.com/DRSN-tech/shop-backend/pkg/telemetry"
	"github.com/DRSN-tech/shop-backend/pkg/tr"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
	"go.opentelemetry.io/otel"
)

const (
	initTimeout        = 10 * time.Second
	shutdownTimeout    = 15 * time.Second
	topicCreateTimeout = 10 * time.Second
	meterName          = "github.com/DRSN-tech/shop-backend"
)

// App держит собранные зависимости сервиса и порядок их закрытия.
type App struct {
	cfg    *config.Config
	logger logger.Logger
	closer *closer.Closer

	outboxWorker *kafka.OutboxWorker
	grpcSrv      *v1Grpc.GRPCServer
	httpSrv      *v1Http.Server
}

// NewApp подключает хранилища, собирает usecase-ы и транспорт.
// Ресурсы регистрируются в closer сразу после открытия, поэтому при ошибке
// инициализации уже открытое закрывается в обратном порядке.
func NewApp(ctx context.Context, cfg *config.Config, log logger.Logger) (_ *App, err error) {
	a := &App{
		cfg:    cfg,
		logger: log,
		closer: closer.NewCloser(0),
	}
	defer func() {
		if err != nil {
			_ = a.closeAll()
		}
	}()

	defaultCurrency, err := domain.ParseCurrency(cfg.Orders.DefaultCurrency)
	if err != nil {
		log.Errorf(err, "invalid ORDERS_DEFAULT_CURRENCY %q", cfg.Orders.DefaultCurrency)
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Otel)
	if err != nil {
		log.Errorf(err, "failed to initialize tracing")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.Add("tracing", closer.Func(shutdownTracing))

	db, err := initPGDB(ctx, log, cfg)
	if err != nil {
		return nil, err
	}
	a.closer.Add("postgres", db.Close)

	redisClient := clients.NewRedisClient(cfg.Redis)
	a.closer.Add("redis", redisClient.Close)

	redisCtx, redisCancel := context.WithTimeout(ctx, initTimeout)
	defer redisCancel()
	if err := redisClient.Ping(redisCtx); err != nil {
		log.Errorf(err, "failed to connect to redis")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minioClient, err := clients.NewMinIOClient(cfg.Minio)
	if err != nil {
		log.Errorf(err, "failed to initialize minio client")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minioCtx, minioCancel := context.WithTimeout(ctx, initTimeout)
	defer minioCancel()
	if err := clients.EnsureBucket(minioCtx, minioClient, cfg.Minio.PaymentsBucket); err != nil {
		log.Errorf(err, "failed to initialize MinIO bucket")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	productRepo := pgdb.NewProductRepo(db.Pool, pgdbConv.ProductConverter{})
	orderRepo := pgdb.NewOrderRepo(db.Pool, pgdbConv.OrderConverter{})
	outboxRepo := pgdb.NewOutboxEventRepo(db.Pool, pgdbConv.OutboxEventConverter{})
	cacheRepo := redis.NewCacheRepo(redisClient, redisConv.ProductInfoConverter{}, cfg.Redis, log)
	ratesRepo := redis.NewRatesRepo(redisClient, redisConv.RatesConverter{}, cfg.Redis)
	archiveRepo := s3Repo.NewPaymentArchiveRepo(minioClient, cfg.Minio)

	tm := tr.NewManager(db.Pool, log,
		tr.WithRetries(cfg.Orders.TxMaxRetries, cfg.Orders.TxRetryBase, cfg.Orders.TxRetryMax),
	)

	orderUC := usecase.NewOrderUC(
		tm,
		productRepo,
		orderRepo,
		outboxRepo,
		cacheRepo,
		ratesRepo,
		archiveRepo,
		log,
		usecase.WithDefaultCurrency(defaultCurrency),
		usecase.WithMeter(otel.Meter(meterName)),
	)
	productUC := usecase.NewProductUC(tm, productRepo, cacheRepo, log)
	ratesUC := usecase.NewRatesUC(ratesRepo, defaultCurrency)

	producer := kafka.NewProducer(log, cfg.Kafka)
	a.closer.Add("kafka producer", producer.Close)

	if err := producer.EnsureTopic(topicCreateTimeout); err != nil {
		log.Errorf(err, "failed to ensure kafka topic %s", cfg.Kafka.Topic)
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	a.outboxWorker = kafka.NewOutboxWorker(
		outboxRepo,
		log,
		producer,
		postgres.DSN(cfg.Db),
		pgdb.OutboxChannel,
		cfg.Orders.OutboxBatchSize,
		cfg.Orders.OutboxPoll,
	)

	a.grpcSrv = v1Grpc.NewGRPCServer(cfg.Grpc, log)
	a.grpcSrv.RegisterServices()

	router := v1Http.NewRouter(chi.NewRouter(), log)
	router.Init(cfg.Http.AllowOrigins, orderUC, productUC, ratesUC)
	a.httpSrv = v1Http.NewServer(router.Handler(), cfg.Http)

	return a, nil
}

// Run запускает фоновые процессы и серверы и блокируется до отмены ctx
// или падения одного из серверов. Затем всё закрывается через closer.
func (a *App) Run(ctx context.Context) error {
	// Воркер закрывается после серверов: события последних запросов успевают уйти
	a.outboxWorker.Start(ctx)
	a.closer.Add("outbox worker", a.outboxWorker.Stop)

	errCh := make(chan error, 2)

	go func() {
		a.logger.Infof("gRPC server starting on %s:%s", a.cfg.Grpc.NetworkMode, a.cfg.Grpc.Port)
		if err := a.grpcSrv.Start(); err != nil {
			errCh <- e.Wrap("gRPC server", err)
		}
	}()
	a.closer.Add("gRPC server", a.grpcSrv.Stop)

	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil {
			errCh <- e.Wrap("HTTP server", err)
		}
	}()
	a.closer.Add("HTTP server", a.httpSrv.Stop)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "server fatal error")
	case <-ctx.Done():
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	if err := a.closeAll(); err != nil {
		appErr = errors.Join(appErr, err)
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}

func (a *App) closeAll() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.closer.Close(ctx); err != nil {
		a.logger.Errorf(err, "shutdown finished with errors")
		return err
	}
	return nil
}

func initPGDB(ctx context.Context, log logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(ctx, cfg.Db)
	if err != nil {
		log.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(log); err != nil {
		log.Errorf(err, "failed to run migrations")
		_ = db.Close(ctx)
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.Ping(ctx); err != nil {
		log.Errorf(err, "failed to ping database")
		_ = db.Close(ctx)
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
