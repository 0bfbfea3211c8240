package main

import (
	"context"
	"errors"
	"go-cbr-converter/cbr"
	"go-cbr-converter/config"
	"go-cbr-converter/converter"
	"go-cbr-converter/http"
	"go-cbr-converter/prefs"
	"go-cbr-converter/resolver"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	nhttp "net/http"
)

func main() {
	w := log.NewSyncWriter(os.Stderr)
	logger := log.NewLogfmtLogger(w)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	cfg, err := config.LoadConfig(logger)
	if err != nil {
		level.Error(logger).Log("msg", "loading config", "err", err)
		os.Exit(1)
	}
	logger = level.NewFilter(logger, cfg.LevelOption())

	cbrService := cbr.NewService(cfg.CBRBaseURL, cfg.HTTPTimeout)
	cbrService = cbr.NewLoggingService(log.With(logger, "component", "cbr_rest"), cbrService)
	cbrService = cbr.NewCachingService(cfg.TodayCacheTTL, cbrService)

	rates := resolver.New(cbrService, log.With(logger, "component", "resolver"))

	var store prefs.Store = prefs.NewMemoryStore()
	if cfg.RedisAddr != "" {
		redisStore := prefs.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.PrefsKey)
		defer redisStore.Close()
		store = redisStore
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := converter.NewSession(rates, store, log.With(logger, "component", "session"))
	if err := session.Restore(ctx); err != nil {
		level.Warn(logger).Log("msg", "using default preferences", "err", err)
	}
	session.Refresh()
	defer session.Close()

	handler := http.NewServer(session, rates, log.With(logger, "component", "http"))
	server := &nhttp.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdown)
	}()

	level.Info(logger).Log("msg", "listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nhttp.ErrServerClosed) {
		level.Error(logger).Log("msg", "serving http", "err", err)
		os.Exit(1)
	}
}
