package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"message-scheduler/internal/config"
	"message-scheduler/internal/db"
	"message-scheduler/internal/dispatcher"
	"message-scheduler/internal/handler"
	"message-scheduler/internal/mailer"
	"message-scheduler/internal/metrics"
	"message-scheduler/internal/repository"
	"message-scheduler/internal/router"
	"message-scheduler/internal/store"
)

// Run initializes and starts the application. It blocks until SIGINT or
// SIGTERM and then shuts down gracefully.
func Run(configPath string) error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting Message Scheduler Service")

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := configureLogging(cfg.Log); err != nil {
		return err
	}

	messages := store.New()
	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	var (
		logs     *repository.Repository
		recorder dispatcher.DeliveryRecorder
	)
	if cfg.DeliveryLog.Enabled {
		conn, err := db.Init(cfg.DeliveryLog)
		if err != nil {
			return fmt.Errorf("failed to initialize delivery log: %w", err)
		}
		defer func() {
			if err := db.Close(conn); err != nil {
				logrus.Errorf("Failed to close delivery log: %v", err)
			}
		}()
		logs = repository.New(conn)
		recorder = logs
	}

	// the transport is built on the first due message so a service
	// without mail settings still serves the API
	mail := mailer.NewLazyFromConfig(&cfg.Mail)

	d := dispatcher.New(&cfg.Dispatcher, messages, mail, recorder, m)

	h := handler.NewHandlers(messages, d, logs)
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupRouter(cfg.Server, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Dispatcher.AutoStart {
		if err := d.Start(); err != nil {
			return fmt.Errorf("failed to start dispatcher: %w", err)
		}
	}

	serverErr := make(chan error, 1)
	go func() {
		logrus.Infof("Starting HTTP server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
	case err := <-serverErr:
		runErr = fmt.Errorf("HTTP server error: %w", err)
	}

	logrus.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	shutdown(ctx, srv, d, mail)

	logrus.Info("Server stopped gracefully")
	return runErr
}

// shutdown drains HTTP first so no request can restart or trigger the
// dispatcher once it has been stopped.
func shutdown(ctx context.Context, srv *http.Server, d *dispatcher.Dispatcher, mail io.Closer) {
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	if err := d.Stop(); err != nil {
		logrus.Errorf("Failed to stop dispatcher: %v", err)
	}
	d.Wait()

	if err := mail.Close(); err != nil {
		logrus.Errorf("Failed to close mail transport: %v", err)
	}
}

func configureLogging(cfg config.LogConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	logrus.SetLevel(level)

	if cfg.Format == "text" {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
