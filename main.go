package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/VictoriaMetrics/metrics"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"

	"github.com/oaiiae/contacts-api/cli/api"
	"github.com/oaiiae/contacts-api/cli/logger"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	title    = "Contacts API"
	version  = "dev"
	revision = ""
	created  = ""
)

// Options for the CLI. Every option can also be set through a
// SERVICE_<NAME> environment variable, e.g. SERVICE_BACKEND=redis.
type Options struct {
	logger.Options
	api.ServerOptions
	api.RouterOptions
	api.StoreOptions
}

func main() {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not load .env file", "err", err)
	}

	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		log := logger.New(&options.Options)
		metriks := metrics.NewSet()

		store, closeStore, err := api.NewStore(context.Background(), &options.StoreOptions, metriks, log)
		if err != nil {
			log.Error("failed to open store", "err", err)
			os.Exit(1)
		}

		srv := api.NewServer(&options.ServerOptions,
			api.NewRouter(&options.RouterOptions, title, version, revision, created, store, metriks, log),
			log,
		)
		hooks.OnStart(func() {
			log.Info("listening", "addr", srv.Addr, "version", version)
			err := srv.ListenAndServe()
			if err != http.ErrServerClosed {
				log.Error("failed to listen and serve", "err", err)
			} else {
				log.Info("server closed")
			}
		})
		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), options.ShutdownTimeout)
			defer cancel()
			err := srv.Shutdown(ctx)
			if err != nil {
				log.Warn("could not shutdown the server", "err", err)
			}
			err = closeStore()
			if err != nil {
				log.Warn("could not close the store", "err", err)
			}
		})
	})
	cli.Run()
}
