package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"panchayat/db"
	"panchayat/db/migrations"
	"panchayat/internal/award"
	"panchayat/internal/config"
	"panchayat/internal/document"
	"panchayat/internal/handlers"
	"panchayat/internal/lock"
	"panchayat/internal/logger"
	"panchayat/internal/notify"
)

func main() {
	// .env необязателен, переменные окружения важнее
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Cannot init logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	dbConn, err := db.Connect(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxIdleTime)
	cancel()
	if err != nil {
		zapLogger.Fatal("Cannot connect to DB", zap.Error(err))
	}
	defer dbConn.Close()

	if cfg.Database.Migrate {
		if err := migrations.Run(dbConn.DB); err != nil {
			zapLogger.Fatal("Cannot apply migrations", zap.Error(err))
		}
	}

	store := db.NewStorage(dbConn)
	deps := award.Deps{
		Store:        store,
		Agreements:   store,
		EarnestMoney: store,
		Logger:       zapLogger,
	}

	if cfg.Redis.Addr != "" {
		rdb := lock.NewRedisClient(cfg.Redis)
		defer rdb.Close()
		deps.Locker = lock.NewRedisLocker(rdb, cfg.Redis.LockTTL)
		zapLogger.Info("award lock enabled", zap.String("redis", cfg.Redis.Addr))
	}

	if cfg.MinIO.Endpoint != "" {
		objects, err := document.NewMinioStore(cfg.MinIO)
		if err != nil {
			zapLogger.Fatal("Cannot init object storage", zap.Error(err))
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := objects.EnsureBucket(ctx); err != nil {
			zapLogger.Warn("work order bucket unavailable, documents are not stored", zap.Error(err))
		} else {
			deps.Documents = document.NewPublisher(objects)
		}
		cancel()
	}

	if cfg.SMTP.Host != "" {
		mailer, err := notify.NewMailer(cfg.SMTP)
		if err != nil {
			zapLogger.Fatal("Cannot init mailer", zap.Error(err))
		}
		deps.Notifier = mailer
	}

	h := handlers.NewHandler(store, award.New(deps), cfg.Menu, zapLogger)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      routes(h, zapLogger, cfg.Server.RequestTimeout),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Starting server", zap.String("addr", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
}

func routes(h *handlers.Handler, zapLogger *zap.Logger, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(zapLogger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.PingHandler)
		r.Get("/menu", h.MenuHandler)
		// NIT
		r.Post("/nit/new", h.CreateNitHandler)
		r.Get("/nit", h.ListNitsHandler)
		r.Get("/nit/{nitId}", h.GetNitHandler)
		r.Patch("/nit/{nitId}/edit", h.EditNitHandler)
		// работы
		r.Post("/works/new", h.CreateWorksHandler)
		r.Get("/works", h.ListWorksHandler)
		r.Get("/works/{worksId}", h.GetWorksHandler)
		r.Get("/works/{worksId}/bids", h.GetBidsForWorkHandler)
		r.Post("/works/{worksId}/award", h.FinalizeAwardHandler)
		r.Post("/works/{worksId}/agreement", h.EnsureAgreementHandler)
		r.Get("/works/{worksId}/workorder.pdf", h.WorkOrderPDFHandler)
		// агентства и предложения
		r.Post("/agencies/new", h.CreateAgencyHandler)
		r.Get("/agencies/{agencyId}", h.GetAgencyHandler)
		r.Post("/bids/new", h.CreateBidHandler)

		r.Get("/workorders/export", h.ExportWorkOrdersHandler)
	})
	return r
}
