package cli

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Devadharshan16/OmniQuant/internal/api"
	"github.com/Devadharshan16/OmniQuant/internal/feed"
	"github.com/Devadharshan16/OmniQuant/internal/metrics"
)

const serveShutdownTimeout = 5 * time.Second

var serveMetricsOverride string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server exposing scan/allocate/stress endpoints and Prometheus metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ec := getEngine()
		srv := api.NewServer(ec, feed.DefaultSimulated(0))

		addr := ec.Config.Server.Addr
		metricsAddr := ec.Config.Server.MetricsAddr
		if serveMetricsOverride != "" {
			metricsAddr = serveMetricsOverride
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigs
			logger.Warn("signal received, shutting down")
			cancel()
		}()

		go metrics.Serve(ctx, metricsAddr, ec.Metrics.Reg, logger)

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

		httpSrv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
			defer shutdownCancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()

		logger.Info("omniquant serving", zap.String("addr", addr), zap.String("metrics_addr", metricsAddr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveMetricsOverride, "metrics-addr", "", "override the config's metrics listen address")
}
