package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wisefido-bp/internal/config"
	httpapi "wisefido-bp/internal/http"
	"wisefido-bp/internal/logger"
	"wisefido-bp/internal/service"
	"wisefido-bp/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "wisefido-bp")
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	// Redis 只做快照缓存；连不上时降级为纯内存运行
	var kv store.KV
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err == nil {
		kv = store.NewRedisKV(redisClient)
	} else {
		log.Warn("Redis unavailable, snapshot cache disabled", zap.Error(err))
	}

	svc := service.NewAnalysisService(cfg, kv, log)
	fetch := service.NewFetchClient(time.Duration(cfg.FetchTimeoutSeconds)*time.Second, log)

	handler := httpapi.NewAnalysisHandler(svc, fetch, log)
	router := httpapi.NewRouter(log)
	router.RegisterAnalysisRoutes(handler)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = redisClient.Close()
}
