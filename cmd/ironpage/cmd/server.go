package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcleod/ironpage/csrf"
	"github.com/jmcleod/ironpage/guard"
	"github.com/jmcleod/ironpage/internal/config"
	"github.com/jmcleod/ironpage/internal/database"
	"github.com/jmcleod/ironpage/internal/logger"
	"github.com/jmcleod/ironpage/session"
	"github.com/jmcleod/ironpage/web"
)

var (
	host     string
	port     int
	envFiles []string
	tlsCert  string
	tlsKey   string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the page server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFiles...)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cmd.Flags().Changed("host") {
			cfg.Host = host
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = port
		}

		log, err := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
		if err != nil {
			return err
		}

		sessions := session.NewStore(
			session.WithTTL(cfg.SessionTTL),
			session.WithLogger(log.With("component", "session")),
		)
		sessions.StartCleanup(cfg.CleanupInterval)
		defer sessions.Close()

		tokens, err := csrf.NewService(
			csrf.WithMaxAge(cfg.SessionTTL),
			csrf.WithRefreshAfter(cfg.CSRFRefresh),
		)
		if err != nil {
			return fmt.Errorf("initializing csrf tokens: %w", err)
		}
		defer tokens.Close()

		hashes, err := web.ScriptHashes()
		if err != nil {
			return err
		}

		checks := map[string]web.ReadinessCheck{}
		if cfg.DatabaseURL != "" {
			pool, err := database.Connect(cmd.Context(), database.DefaultConfig(cfg.DatabaseURL))
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer pool.Close()
			checks["database"] = database.Healthcheck(pool)
		}

		g := guard.New(sessions, tokens,
			guard.WithLogger(log),
			guard.WithScriptHashes(hashes...),
			guard.WithAlertFunc(func(e guard.AlertEvent) {
				log.Warn("security alert",
					slog.String("type", string(e.Type)),
					slog.Int("count", e.Count),
					slog.Int("threshold", e.Threshold),
				)
			}),
		)

		handler, err := web.New(web.Options{
			Guard:           g,
			Sessions:        sessions,
			Logger:          log.With("component", "web"),
			ReadinessChecks: checks,
		})
		if err != nil {
			return err
		}

		server := &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelError),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		useTLS := tlsCert != "" && tlsKey != ""
		if useTLS {
			cert, err := tls.LoadX509KeyPair(tlsCert, tlsKey)
			if err != nil {
				return fmt.Errorf("failed to load TLS key pair: %w", err)
			}
			server.TLSConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			var err error
			if useTLS {
				err = server.ListenAndServeTLS("", "")
			} else {
				err = server.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner(cmd.OutOrStdout())
		log.Info("listening",
			slog.String("addr", cfg.Addr()),
			slog.Bool("tls", useTLS),
			slog.Duration("session_ttl", sessions.TTL()),
			slog.Duration("csrf_max_age", tokens.MaxAge()),
		)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			log.Info("shutting down", slog.String("signal", sig.String()))
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().StringVar(&host, "host", "0.0.0.0", "Host to listen on (overrides IRONPAGE_HOST)")
	serverCmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on (overrides IRONPAGE_PORT)")
	serverCmd.Flags().StringSliceVar(&envFiles, "env-file", nil, "Additional .env files to load")
	serverCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate file")
	serverCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS key file")
}
