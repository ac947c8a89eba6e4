package main

import (
	"context"
	"database/sql"

	config "github.com/davicafu/inventorylab/internal/config"
	productApp "github.com/davicafu/inventorylab/internal/product/application"
	productDomain "github.com/davicafu/inventorylab/internal/product/domain"
	productHttp "github.com/davicafu/inventorylab/internal/product/infra/inbound/http"
	"github.com/davicafu/inventorylab/internal/product/infra/outbound/deadletter"
	"github.com/davicafu/inventorylab/internal/product/infra/outbound/eventstore"
	idemStore "github.com/davicafu/inventorylab/internal/product/infra/outbound/idempotency"
	projApp "github.com/davicafu/inventorylab/internal/projection/application"
	projDomain "github.com/davicafu/inventorylab/internal/projection/domain"
	projEvents "github.com/davicafu/inventorylab/internal/projection/infra/inbound/events"
	projHttp "github.com/davicafu/inventorylab/internal/projection/infra/inbound/http"
	"github.com/davicafu/inventorylab/internal/projection/infra/outbound/analytics/clickhouse"
	viewCache "github.com/davicafu/inventorylab/internal/projection/infra/outbound/cache"
	"github.com/davicafu/inventorylab/internal/projection/infra/outbound/views"
	sharedEvents "github.com/davicafu/inventorylab/internal/shared/events"
	infraEvents "github.com/davicafu/inventorylab/internal/shared/infra/events"
	"github.com/davicafu/inventorylab/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ---------------- Main ----------------
func main() {
	logger.Init()          // inicializa zap
	log := logger.Logger() // obtiene logger estructurado
	defer log.Sync()       // flush buffers al salir

	ctx := context.Background()
	cfg := config.LoadConfig()

	// ------------- Event Store -------------
	var store productDomain.EventStore
	if cfg.LocalDeployment {
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			log.Fatal("failed to open SQLite", zap.Error(err))
		}
		defer db.Close()
		if err := eventstore.InitSQLite(db); err != nil {
			log.Fatal("failed to initialize SQLite event store", zap.Error(err))
		}
		store = eventstore.NewEventStoreSQLite(db)
		log.Info("✅ Event store SQLite", zap.String("path", cfg.SQLitePath))
	} else {
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Fatal("failed to open Postgres", zap.Error(err))
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatal("failed to ping Postgres", zap.Error(err))
		}
		if err := eventstore.InitPostgres(db); err != nil {
			log.Fatal("failed to initialize Postgres event store", zap.Error(err))
		}
		store = eventstore.NewEventStorePostgres(db)
		log.Info("✅ Event store Postgres")
	}

	// ---------- Redis (idempotencia + cache) ----------
	var idempotencyStore productDomain.IdempotencyStore
	var cacheInstance projDomain.ViewCache
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("⚠️ Redis no disponible, idempotencia y cache en memoria:", zap.Error(err))
		idempotencyStore = idemStore.NewInMemoryStore(cfg.IdempotencyTTL, cfg.IdempotencyTTL/4)
		cacheInstance = viewCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
	} else {
		idempotencyStore = idemStore.NewRedisStore(rdb, cfg.IdempotencyTTL)
		cacheInstance = viewCache.NewRedisCache(rdb, cfg.CacheTTL)
		log.Info("✅ Redis conectado, idempotencia y cache habilitados")
	}

	// ------------- Read model -------------
	var viewRepo projDomain.ProductViewRepository
	if cfg.MongoURI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		defer client.Disconnect(ctx)
		repo, err := views.NewMongoViewRepo(ctx, client, cfg.MongoDatabase)
		if err != nil {
			log.Fatal("failed to initialize MongoDB view repo", zap.Error(err))
		}
		viewRepo = repo
		log.Info("✅ Read model en MongoDB", zap.String("database", cfg.MongoDatabase))
	} else {
		viewRepo = views.NewInMemoryViewRepo()
		log.Info("⚡️Read model en memoria")
	}

	// ---------- Analítica (opcional) ----------
	var analytics projDomain.EventAnalytics
	if cfg.ClickHouseAddr != "" {
		chRepo, err := clickhouse.NewEventLogRepo(cfg.ClickHouseAddr, cfg.ClickHouseDatabase)
		if err != nil {
			log.Warn("⚠️ ClickHouse no disponible, analítica deshabilitada:", zap.Error(err))
		} else {
			if err := chRepo.InitSchema(); err != nil {
				log.Warn("⚠️ No se pudo crear el esquema de ClickHouse:", zap.Error(err))
			} else {
				analytics = chRepo
				log.Info("✅ Analítica de eventos en ClickHouse")
			}
		}
	}

	// ------------- Proyección -------------
	projector := projApp.NewProjector(viewRepo, cacheInstance, analytics, log)
	viewConsumer := projEvents.NewViewConsumer(projector, log)

	// ---------------- Events ---------------
	var publisher productDomain.EventPublisher

	if cfg.UseKafka {
		log.Info("🚀 Usando Kafka como bus de eventos")

		// Writer genérico: el topic viaja en cada mensaje según la tabla de ruteo.
		writer := kafka.NewWriter(kafka.WriterConfig{
			Brokers: cfg.KafkaBrokers,
		})
		defer writer.Close()
		publisher = infraEvents.NewKafkaPublisher(writer, log)

		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.KafkaBrokers,
			Topic:    cfg.ConsumerTopic,
			GroupID:  cfg.KafkaGroupID,
			MinBytes: 10e3, // 10KB
			MaxBytes: 10e6, // 10MB
		})
		defer reader.Close()

		consumerAdapter := infraEvents.NewConsumerAdapter(reader, viewConsumer, log)
		consumerAdapter.Start(ctx)
	} else {
		log.Info("⚡️Usando bus de eventos en memoria (canales de Go)")

		bus := infraEvents.NewInMemoryEventBus()
		publisher = bus

		eventsChannel := bus.Subscribe(sharedEvents.StockTopic, 10)
		log.Info("🎧 Iniciando listener en memoria para eventos de stock")
		infraEvents.BackgroundConsumerChan(ctx, eventsChannel, viewConsumer)
	}

	// --------------- Servicio --------------
	deadLetters := deadletter.NewInMemoryStore()
	esHandler := productApp.NewEventSourcingHandler(store, publisher, cfg.PublishRetries, cfg.PublishBackoff, log).
		WithDeadLetters(deadLetters)

	commandHandler := productApp.NewProductCommandHandler(esHandler, log)
	dispatcher := productApp.NewCommandDispatcher()
	if err := productApp.RegisterProductHandlers(dispatcher, commandHandler); err != nil {
		log.Fatal("failed to register command handlers", zap.Error(err))
	}

	idempotencySvc := productApp.NewIdempotencyService(idempotencyStore, log)
	queryService := projApp.NewProductQueryService(viewRepo, cacheInstance, log)

	// ---------------- HTTP ----------------
	router := gin.Default()

	cmdHTTPHandler := productHttp.NewCommandHandler(dispatcher, esHandler, log)
	adminHTTPHandler := productHttp.NewAdminHandler(store, esHandler, idempotencySvc,
		func() interface{} { return projector.Status() }, viewRepo.DeleteAll, log)
	queryHTTPHandler := projHttp.NewQueryHandler(queryService, projector)

	productHttp.RegisterCommandRoutes(router, cmdHTTPHandler, productHttp.IdempotencyMiddleware(idempotencySvc, log))
	productHttp.RegisterAdminRoutes(router, adminHTTPHandler)
	projHttp.RegisterQueryRoutes(router, queryHTTPHandler)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	log.Info("🚀 Server running",
		zap.String("url", "http://localhost:"+cfg.HTTPPort),
	)
	if err := router.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatal("failed to start server: %v", zap.Error(err))
	}
}
