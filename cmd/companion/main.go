// Command companion runs the companion store: the HTTP API (serve), schema
// setup (migrate), and offline backup tooling (export, import, reset).
//
// Configuration comes from the environment, optionally seeded from a .env
// file (see internal/config for the keys).
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/tbourn/go-companion-store/internal/config"
	"github.com/tbourn/go-companion-store/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("companion")
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "companion",
		Usage:   "AI companion phone store",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Sources: cli.EnvVars("COMPANION_ENV_FILE"),
				Usage:   "dotenv file loaded before reading configuration",
				Value:   ".env",
			},
		},
		Before: loadConfig,
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			exportCommand(),
			importCommand(),
			resetCommand(),
		},
	}
}

type configKey struct{}

// loadConfig reads the dotenv file (a missing file is fine), loads and
// validates the configuration, and sets up global logging.
func loadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := godotenv.Load(cmd.String("env-file")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return ctx, err
	}
	cfg, err := config.Load()
	if err != nil {
		return ctx, err
	}
	sysutil.ConfigureLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
	return context.WithValue(ctx, configKey{}, cfg), nil
}

func configFrom(ctx context.Context) config.Config {
	cfg, _ := ctx.Value(configKey{}).(config.Config)
	return cfg
}
