package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/tbourn/go-companion-store/internal/ai"
	"github.com/tbourn/go-companion-store/internal/domain"
	httpapi "github.com/tbourn/go-companion-store/internal/http"
)

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write a backup document",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "output file (- for stdout)",
				Value:   "-",
			},
			&cli.StringFlag{
				Name:  "partial",
				Usage: "comma-separated categories: friends,persona,chats,memories",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := configFrom(ctx)
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.close()
			svc := httpapi.NewServices(st.kv, ai.NewClient(cfg.AI.Timeout), cfg)

			var doc any
			if p := cmd.String("partial"); p != "" {
				sel, err := parseSelectors(p)
				if err != nil {
					return err
				}
				if doc, err = svc.Codec.ExportPartial(ctx, sel); err != nil {
					return err
				}
			} else if doc, err = svc.Codec.ExportAll(ctx); err != nil {
				return err
			}

			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			out := cmd.String("out")
			if out == "-" {
				_, err = fmt.Fprintln(cmd.Root().Writer, string(data))
				return err
			}
			if err := os.WriteFile(out, data, 0o600); err != nil {
				return err
			}
			log.Info().Str("file", out).Int("bytes", len(data)).Msg("export written")
			return nil
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Apply a full or partial backup document",
		ArgsUsage: "FILE (- for stdin)",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return errors.New("import: FILE argument required")
			}
			var (
				data []byte
				err  error
			)
			if path == "-" {
				data, err = io.ReadAll(cmd.Root().Reader)
			} else {
				data, err = os.ReadFile(path)
			}
			if err != nil {
				return err
			}

			cfg := configFrom(ctx)
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.close()
			svc := httpapi.NewServices(st.kv, ai.NewClient(cfg.AI.Timeout), cfg)
			if err := svc.Codec.ImportDocument(ctx, data); err != nil {
				return err
			}
			log.Info().Str("file", path).Msg("import applied")
			return nil
		},
	}
}

func resetCommand() *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Delete every record in the store namespace",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Usage: "confirm the wipe"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if !cmd.Bool("yes") {
				return errors.New("reset: refusing to wipe the store without --yes")
			}
			cfg := configFrom(ctx)
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.close()
			if err := st.kv.Clear(ctx); err != nil {
				return err
			}
			log.Warn().Str("prefix", cfg.Store.Prefix).Msg("store cleared")
			return nil
		},
	}
}

func parseSelectors(s string) (domain.ExportSelectors, error) {
	var sel domain.ExportSelectors
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "friends":
			sel.Friends = true
		case "persona":
			sel.Persona = true
		case "chats":
			sel.Chats = true
		case "memories":
			sel.Memories = true
		case "":
		default:
			return sel, fmt.Errorf("unknown export category %q", part)
		}
	}
	if !sel.Any() {
		return sel, errors.New("--partial needs at least one category")
	}
	return sel, nil
}
