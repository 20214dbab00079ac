package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/tbourn/go-companion-store/internal/ai"
	httpapi "github.com/tbourn/go-companion-store/internal/http"
	"github.com/tbourn/go-companion-store/internal/observability"
)

const shutdownGrace = 15 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Action: func(ctx context.Context, _ *cli.Command) error {
			cfg := configFrom(ctx)
			gin.SetMode(cfg.GinMode)

			shutdownTracing, err := observability.Setup(ctx, cfg.OTEL, version, observability.StoreBackend(cfg.Store.Backend))
			if err != nil {
				return err
			}
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}

			r := gin.New()
			httpapi.RegisterRoutes(r, st.kv, ai.NewClient(cfg.AI.Timeout), cfg)

			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           r,
				ReadTimeout:       cfg.ReadTimeout,
				ReadHeaderTimeout: cfg.ReadHeaderTimeout,
				WriteTimeout:      cfg.WriteTimeout,
				IdleTimeout:       cfg.IdleTimeout,
				MaxHeaderBytes:    cfg.MaxHeaderBytes,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().
					Str("addr", srv.Addr).
					Str("base_path", cfg.APIBasePath).
					Str("store", cfg.Store.Backend).
					Str("version", version).
					Msg("listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			var serveErr error
			select {
			case <-ctx.Done():
				log.Info().Msg("shutting down")
			case serveErr = <-errCh:
			}

			sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				log.Error().Err(err).Msg("http shutdown")
			}
			if err := shutdownTracing(sctx); err != nil {
				log.Error().Err(err).Msg("tracing shutdown")
			}
			if err := st.close(); err != nil {
				log.Error().Err(err).Msg("store close")
			}
			return serveErr
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or update the storage schema",
		Action: func(ctx context.Context, _ *cli.Command) error {
			cfg := configFrom(ctx)
			log.Info().Str("store", cfg.Store.Backend).Msg("running migrations")
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			log.Info().Msg("migrations completed")
			return st.close()
		},
	}
}
