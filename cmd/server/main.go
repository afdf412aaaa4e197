/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the fare engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (viper: env + defaults)
  2. Configure structured logging (logrus)
  3. Open the SQLite store
  4. Parse the tariff (file if configured, defaults otherwise)
  5. Configure the router and start serving

CONFIGURATION (env, FARE_ prefix):
  FARE_WEB_PORT     HTTP server port           (default 8080)
  FARE_DB_PATH      SQLite database path       (default fare.db;
                    use ":memory:" for in-memory)
  FARE_LOG_LEVEL    logrus level               (default info)
  FARE_TARIFF_PATH  JSON tariff file, optional

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait up to 30s for
  active requests, close the store, exit.

SEE ALSO:
  - api/server.go: router configuration
  - factory/tariff.go: tariff file format
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/busspass/fare-engine/api"
	"github.com/busspass/fare-engine/factory"
	"github.com/busspass/fare-engine/store/sqlite"
)

func main() {
	// Configuration
	v := viper.New()
	v.SetEnvPrefix("FARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("web.port", 8080)
	v.SetDefault("db.path", "fare.db")
	v.SetDefault("log.level", "info")

	// Logging
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(v.GetString("log.level")); err == nil {
		log.SetLevel(level)
	}

	// Store
	store, err := sqlite.New(v.GetString("db.path"))
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	// Tariff
	tariff := factory.DefaultTariff()
	if path := v.GetString("tariff.path"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.WithError(err).Fatal("failed to read tariff file")
		}
		tariff, err = factory.NewTariffFactory().ParseTariff(string(raw))
		if err != nil {
			log.WithError(err).Fatal("failed to parse tariff")
		}
	}
	log.WithFields(logrus.Fields{
		"tariff":    tariff.Name,
		"fare":      tariff.Fare.Format(),
		"daily_cap": tariff.DailyCap.Format(),
	}).Info("tariff loaded")

	// Router
	handler := api.NewHandler(store, tariff, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", v.GetInt("web.port")),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}
