package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"salonbook/config"
	"salonbook/db"
	"salonbook/docstore"
	"salonbook/docstore/memstore"
	"salonbook/docstore/mongostore"
	"salonbook/docstore/pgstore"
	"salonbook/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("open store")
	}
	defer closeStore()

	server := NewServer(store, cfg.JWTSecret, cfg.SessionTTL, logger)

	if cfg.ReconcileSchedule != "" {
		scheduler, err := scheduleReconcile(ctx, server, cfg.ReconcileSchedule, logger)
		if err != nil {
			logger.WithError(err).Fatal("schedule reconcile")
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	gin.SetMode(cfg.GinMode)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{"addr": cfg.HTTPAddr, "store": cfg.StoreDriver}).Info("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown")
	}
}

// openStore connects the configured backend and returns its close function.
func openStore(ctx context.Context, cfg *config.Config) (docstore.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, int32(cfg.DBMaxConns))
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pgstore.New(pool), pool.Close, nil
	case config.DriverMongo:
		store, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = store.Close(closeCtx)
		}, nil
	case config.DriverMemory:
		return memstore.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// scheduleReconcile repairs every salon's stylist cache on a cron schedule.
func scheduleReconcile(ctx context.Context, server *Server, spec string, logger logrus.FieldLogger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		repaired, err := server.roster.ReconcileAll(ctx)
		entry := logger.WithField("repaired", repaired)
		if err != nil {
			entry.WithError(err).Warn("scheduled reconcile finished with errors")
			return
		}
		entry.Info("scheduled reconcile finished")
	})
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return c, nil
}
