package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/cinephilia/internal/letterboxd"
	"github.com/example/cinephilia/internal/platform/config"
	"github.com/example/cinephilia/internal/platform/logging"
	"github.com/example/cinephilia/internal/relay"
	archiveconfig "github.com/example/cinephilia/services/archive/internal/config"
	"github.com/example/cinephilia/services/archive/internal/ingest"
	"github.com/example/cinephilia/services/archive/internal/store"
)

const defaultExportDir = "public/letterboxd-exports"

// env is what every subcommand needs; built lazily so --help works without
// a store.
type env struct {
	cfg   archiveconfig.Config
	log   *zap.Logger
	store store.MovieStore
}

type openFunc func(ctx context.Context) (*env, error)

func openEnv(ctx context.Context) (*env, error) {
	_ = godotenv.Load()
	cfg, err := archiveconfig.Load()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(config.String("LOG_LEVEL", "info"), config.String("LOG_FORMAT", "console"))
	if err != nil {
		return nil, err
	}
	s := store.Open(ctx, cfg, log)
	if u, ok := s.(*store.Unavailable); ok {
		return nil, u.Err
	}
	return &env{cfg: cfg, log: log, store: s}, nil
}

func (e *env) close() {
	_ = e.store.Close(context.Background())
	_ = e.log.Sync()
}

func newRootCommand() *cobra.Command {
	return newRootCommandWith(openEnv)
}

func newRootCommandWith(open openFunc) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "importer",
		Short:         "Load Letterboxd exports and the RSS feed into the archive store",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newCSVCommand(open))
	rootCmd.AddCommand(newRSSCommand(open))
	return rootCmd
}

func newCSVCommand(open openFunc) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Import reviews.csv, watched.csv, diary.csv and ratings.csv",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return fmt.Errorf("export directory %q not found", dir)
			}
			e, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			src := &letterboxd.Source{ExportDir: dir, Log: e.log}
			n, err := ingest.ImportExports(cmd.Context(), e.store, src)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d movies from %s\n", n, dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", defaultExportDir, "Directory holding the Letterboxd CSV exports")
	return cmd
}

func newRSSCommand(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "rss",
		Short: "Fetch the Letterboxd feed once and upsert it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()
			if e.cfg.FeedURL == "" {
				return errors.New("LETTERBOXD_RSS_URL is not set")
			}

			src := &letterboxd.Source{
				FeedURL: e.cfg.FeedURL,
				Feed:    relay.New(relay.Options{Template: e.cfg.RelayTemplate, Log: e.log}),
				Log:     e.log,
			}
			n, err := ingest.RefreshFromFeed(cmd.Context(), e.store, src)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d movies from the feed\n", n)
			return nil
		},
	}
}
