package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ryhazerus/tick"
	"github.com/ryhazerus/tick/store"
)

const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "tickd",
		Short:         "Serve a supervised transactional counter over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), cfgFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	bindFlags(cmd.Flags())
	return cmd
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func run(ctx context.Context, cfg Config) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store, err)
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return multierror.Append(fmt.Errorf("listen %s: %w", cfg.Addr, err), st.Close())
	}
	return serve(ctx, cfg, logger, st, ln)
}

// serve runs the HTTP server on ln until ctx is done, restarting the counter
// instance on every SIGHUP. It owns st and closes it on return.
func serve(ctx context.Context, cfg Config, logger *zap.Logger, st store.Store, ln net.Listener) (err error) {
	defer func() {
		if cerr := st.Close(); cerr != nil {
			err = multierror.Append(err, fmt.Errorf("close store: %w", cerr))
		}
	}()

	policy, err := tick.ParseRestartPolicy(cfg.RestartPolicy)
	if err != nil {
		ln.Close()
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := tick.NewMetrics(reg)

	sup := tick.NewSupervisor(func() *tick.Service {
		return tick.New(
			tick.WithStore(st),
			tick.WithKey(cfg.Key),
			tick.WithLogger(logger),
			tick.WithMetrics(metrics),
			tick.WithRestartPolicy(policy),
		)
	}, tick.WithSupervisorLogger(logger), tick.WithSupervisorMetrics(metrics))

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := tick.NewRouter(sup, cfg.Path)
	if cfg.Metrics {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", ln.Addr().String()),
			zap.String("path", cfg.Path),
			zap.String("store", cfg.Store),
			zap.Stringer("restart_policy", policy),
		)
		serveErr <- srv.Serve(ln)
	}()

	for {
		select {
		case <-hup:
			sup.Restart(errors.New("SIGHUP"))
		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("serve: %w", err)
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			var result *multierror.Error
			if err := srv.Shutdown(shutdownCtx); err != nil {
				result = multierror.Append(result, fmt.Errorf("shutdown http: %w", err))
			}
			return result.ErrorOrNil()
		}
	}
}
