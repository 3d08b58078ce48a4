// omniquant-server is a fixed-role entrypoint for container deployment:
// it always runs the HTTP API and metrics server, with no subcommand
// dispatch, grounded on the arb-bot binary's flag-then-signal-then-run
// shape.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Devadharshan16/OmniQuant/internal/api"
	"github.com/Devadharshan16/OmniQuant/internal/config"
	"github.com/Devadharshan16/OmniQuant/internal/feed"
	"github.com/Devadharshan16/OmniQuant/internal/metrics"
	"github.com/Devadharshan16/OmniQuant/internal/pipeline"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfgPath := flag.String("config", "", "path to a yaml config file")
	flag.Parse()

	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("loading config", zap.Error(err))
	}

	ec := pipeline.NewEngineContext(cfg, logger)
	srv := api.NewServer(ec, feed.DefaultSimulated(0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Warn("signal received, shutting down")
		cancel()
	}()

	go metrics.Serve(ctx, cfg.Server.MetricsAddr, ec.Metrics.Reg, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/", func(w http.ResponseWriter, r *http.Request) {
		op := r.URL.Path[len("/v1/"):]
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		env := srv.Handle(r.Context(), op, body)
		w.Header().Set("Content-Type", "application/json")
		if !env.Success {
			w.WriteHeader(http.StatusBadRequest)
		}
		_ = json.NewEncoder(w).Encode(env)
	})

	httpSrv := &http.Server{Addr: cfg.Server.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("omniquant-server listening",
		zap.String("addr", cfg.Server.Addr),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
	)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server exited", zap.Error(err))
	}
}
