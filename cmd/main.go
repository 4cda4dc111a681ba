package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avaldez/facturador-webhook/internal/application"
	"github.com/avaldez/facturador-webhook/internal/config"
	"github.com/avaldez/facturador-webhook/internal/facturacion"
	"github.com/avaldez/facturador-webhook/internal/kafka"
	"github.com/avaldez/facturador-webhook/internal/logger"
	"github.com/avaldez/facturador-webhook/internal/migrate"
	"github.com/avaldez/facturador-webhook/internal/notify"
	"github.com/avaldez/facturador-webhook/internal/presentation"
	"github.com/avaldez/facturador-webhook/internal/repository"
	"github.com/avaldez/facturador-webhook/internal/signature"
	"github.com/avaldez/facturador-webhook/internal/transform"
)

func main() {
	logger.Init()
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Warn("config load failed", "err", err)
		os.Exit(1)
	}

	verifier := signature.NewVerifier(cfg.WEBHOOK_SECRET)

	transformer, err := transform.New(transform.Defaults{
		Serie:           cfg.DEFAULT_SERIE,
		TipoComprobante: cfg.DEFAULT_TIPO_COMPROBANTE,
		Moneda:          cfg.MONEDA,
		IGVRate:         cfg.IGV_RATE,
		StoreID:         cfg.STORE_ID,
	})
	if err != nil {
		logger.Warn("transformer init failed", "err", err)
		os.Exit(1)
	}

	client := facturacion.NewClient(facturacion.Config{
		BaseURL:     cfg.FACT_API_URL,
		APIKey:      cfg.FACT_API_KEY,
		Username:    cfg.FACT_USERNAME,
		Timeout:     cfg.FACT_TIMEOUT,
		AuthTimeout: cfg.FACT_AUTH_TIMEOUT,
	})

	notifier := notify.NewDispatcher(cfg.HUB_NOTIFY_URL, verifier, 10*time.Second)

	// Registry is optional: without DB_STRING the pipeline runs stateless.
	var repo repository.InvoiceRepo
	if cfg.DB_STRING != "" {
		if err := migrate.Up(cfg.DB_STRING); err != nil {
			logger.Warn("migrations failed", "err", err)
			os.Exit(1)
		}

		pool, err := pgxpool.New(context.Background(), cfg.DB_STRING)
		if err != nil {
			logger.Warn("pgxpool new failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := pool.Ping(context.Background()); err != nil {
			logger.Warn("db ping failed", "err", err)
			os.Exit(1)
		}
		logger.Info("db connected")
		repo = repository.NewInvoiceRepository(pool)
	}

	// Kafka outcome events, also optional.
	var producer application.OutcomePublisher
	if cfg.KAFKA_BROKERS != "" {
		prod := kafka.NewProducer(cfg.KAFKA_BROKERS, cfg.KAFKA_TOPIC)
		defer prod.Close()
		producer = prod
	}

	svc := application.NewInvoicesService(verifier, transformer, client, notifier, producer, repo)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	h := presentation.NewFacturasHandler(svc)
	h.Register(r)

	addr := ":" + cfg.HTTP_PORT
	logger.Info("starting http", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Warn("http server crashed", "err", err)
		os.Exit(1)
	}
}
