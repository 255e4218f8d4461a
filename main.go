package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	bidding "auction-engine/internal/biddingService"
	"auction-engine/internal/clock"
	"auction-engine/internal/config"
	"auction-engine/internal/notifier"
	"auction-engine/internal/repository"
	"auction-engine/internal/repository/sqlite"
	"auction-engine/internal/scheduler"
	"auction-engine/internal/server"
	"auction-engine/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", os.Getenv("AUCTIOND_CONFIG"), "path to a TOML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		utils.Fatal("auction server stopped", map[string]any{"error": err.Error()})
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := utils.SetLevel(cfg.Log.Level); err != nil {
		return err
	}
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	senders := []notifier.Sender{notifier.LogSender{}}
	if cfg.Redis.Addr != "" {
		rdb, err := notifier.NewRedisClient(ctx, notifier.RedisConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		senders = append(senders, notifier.NewRedisSender(rdb, cfg.Redis.ChannelPrefix))
	}
	hub := notifier.NewHub(cfg.Feed.BufferSize, senders...)

	clk := clock.Real{}
	svc := bidding.NewBiddingService(store, bidding.Options{
		Clock:            clk,
		Publisher:        hub,
		AdmissionTimeout: cfg.Bidding.AdmissionTimeout.Duration,
		DefaultIncrement: cfg.Bidding.MinIncrement(),
		StoreTimeout:     cfg.Bidding.StoreTimeout.Duration,
	})
	if err := svc.Restore(ctx); err != nil {
		utils.Error("startup: restore finished with errors", map[string]any{"error": err.Error()})
	}

	sched := scheduler.New(svc, clk, cfg.Scheduler.Interval.Duration)
	router := server.SetupRouter(svc, server.Options{
		Feed:           hub,
		RequestTimeout: cfg.Server.RequestTimeout.Duration,
	})
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error {
		utils.Info("startup: auction server listening", map[string]any{
			"addr":  cfg.Server.Addr,
			"store": cfg.Store.Driver,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		utils.Info("shutdown: stopping auction server", nil)
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore picks the durable store named by cfg.Driver
func openStore(cfg config.StoreConfig) (repository.AuctionStore, func(), error) {
	switch cfg.Driver {
	case "sqlite":
		st, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return st, func() {
			if err := st.Close(); err != nil {
				utils.Warn("shutdown: closing sqlite store", map[string]any{"error": err.Error()})
			}
		}, nil
	default:
		return repository.NewMemoryRepo(), func() {}, nil
	}
}
