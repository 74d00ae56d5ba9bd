package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pagoschile/oneclick-api/internal/api"
	"github.com/pagoschile/oneclick-api/internal/auth"
	"github.com/pagoschile/oneclick-api/internal/config"
	"github.com/pagoschile/oneclick-api/internal/events"
	"github.com/pagoschile/oneclick-api/internal/inscription"
	"github.com/pagoschile/oneclick-api/internal/provider"
	"github.com/pagoschile/oneclick-api/internal/repository"
	"github.com/pagoschile/oneclick-api/internal/service"
	"github.com/pagoschile/oneclick-api/internal/storage"
	"github.com/pagoschile/oneclick-api/telemetry"
)

func schemaVersion(name string) storage.SchemaVersion {
	if name == "legacy" {
		return storage.SchemaLegacy
	}
	return storage.SchemaCurrent
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		panic(err)
	}

	log, err := telemetry.NewLogger(cfg.Development)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	telemetry.InitMetrics()

	schema := schemaVersion(cfg.DB.Schema)

	// stores: Postgres when a DSN is configured, in-memory otherwise
	var (
		inscriptionStore storage.InscriptionStore
		transactionStore storage.TransactionStore
		userStore        storage.UserStore
		dbPing           func(ctx context.Context) error
	)
	if cfg.DB.DSN != "" {
		pg, err := storage.NewPostgres(cfg.DB.DSN, schema)
		if err != nil {
			log.Fatal("database connect failed", zap.Error(err))
		}
		defer pg.DB.Close()
		inscriptionStore, transactionStore, userStore = pg, pg, pg
		dbPing = pg.Ping
		log.Info("using postgres store", zap.String("schema", schema.String()))
	} else {
		mem := storage.NewMemoryStore(schema)
		inscriptionStore, transactionStore, userStore = mem, mem, mem
		log.Info("using in-memory store", zap.String("schema", schema.String()))
	}

	inscriptions := repository.NewInscriptionRepository(inscriptionStore, schema, log)
	transactions := repository.NewTransactionRepository(transactionStore, schema, log)

	tbk := provider.NewHTTPClient(provider.Config{
		BaseURL:      cfg.Provider.BaseURL,
		CommerceCode: cfg.Provider.CommerceCode,
		APIKey:       cfg.Provider.APIKey,
		Timeout:      cfg.Provider.Timeout,
	}, log)

	var publisher events.Publisher
	brokers := strings.Split(cfg.Kafka.Brokers, ",")
	if cfg.Kafka.Enabled {
		producer, err := events.NewProducer(brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Fatal("kafka producer init failed", zap.Error(err))
		}
		defer producer.Close()
		publisher = producer
		log.Info("kafka eventing enabled", zap.String("topic", cfg.Kafka.Topic))
	}

	svc := service.New(log, tbk, inscriptions, transactions, publisher)

	authCfg := auth.Config{
		Secret:   cfg.Auth.Secret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		TTL:      cfg.Auth.TTL,
	}
	issuer, err := auth.NewJWTIssuer(authCfg)
	if err != nil {
		log.Fatal("auth init failed", zap.Error(err))
	}

	v := validator.New()

	h := &api.Handlers{
		Log:          log,
		Svc:          svc,
		V:            v,
		DBPing:       dbPing,
		KafkaEnabled: cfg.Kafka.Enabled,
		KafkaBrokers: brokers,
		KafkaTopic:   cfg.Kafka.Topic,
	}
	a := &api.AuthHandlers{
		Log:    log,
		Users:  userStore,
		V:      v,
		Tokens: issuer,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.PrometheusMiddleware())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("dur", time.Since(start)),
		)
	})

	api.SetupRoutes(r, h, a, authCfg)

	ctx, cancel := context.WithCancel(context.Background())
	expirer := inscription.NewExpirer(log, svc, cfg.Inscription.PendingTTL, cfg.Inscription.SweepInterval)
	go expirer.Run(ctx)

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()
	log.Info("server started", zap.String("addr", cfg.HTTP.Addr))

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	cancel()
	ctxTimeout, cancel2 := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel2()
	_ = srv.Shutdown(ctxTimeout)
	log.Info("server stopped")
}
