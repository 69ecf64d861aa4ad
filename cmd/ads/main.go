// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/conversions/cmd/ads/commands"
	"github.com/allisson/conversions/internal/app"
	"github.com/allisson/conversions/internal/config"
)

const version = "1.0.0"

// withContainer runs fn with a fresh DI container and releases its resources
// afterwards.
func withContainer(fn func(container *app.Container, logger *slog.Logger) error) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer func() {
		if err := container.Shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown container", slog.Any("error", err))
		}
	}()
	return fn(container, logger)
}

func main() {
	io := commands.DefaultIO()

	cmd := &cli.Command{
		Name:    "ads",
		Usage:   "Customer outcome to advertising platform delivery pipeline",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server and the delivery publisher",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := config.Load()
					container := app.NewContainer(cfg)
					return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
				},
			},
			{
				Name:  "sync",
				Usage: "Pull campaign structure and insights from the platforms",
				Commands: []*cli.Command{
					{
						Name:  "campaigns",
						Usage: "Sync campaign, ad set and ad structure",
						Flags: []cli.Flag{
							platformsFlag(),
							formatFlag(),
						},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							return withContainer(func(container *app.Container, logger *slog.Logger) error {
								useCase, err := container.InsightUseCase()
								if err != nil {
									return fmt.Errorf("failed to initialize insight use case: %w", err)
								}
								return commands.RunSyncCampaigns(
									ctx,
									useCase,
									logger,
									io.Writer,
									cmd.StringSlice("platform"),
									cmd.String("format"),
								)
							})
						},
					},
					{
						Name:  "insights",
						Usage: "Sync daily spend insights",
						Flags: []cli.Flag{
							platformsFlag(),
							&cli.IntFlag{
								Name:    "days",
								Aliases: []string{"d"},
								Value:   0,
								Usage:   "Lookback window in days (defaults to INSIGHT_SYNC_DAYS)",
							},
							formatFlag(),
						},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							return withContainer(func(container *app.Container, logger *slog.Logger) error {
								useCase, err := container.InsightUseCase()
								if err != nil {
									return fmt.Errorf("failed to initialize insight use case: %w", err)
								}
								days := cmd.Int("days")
								if days == 0 {
									days = container.Config().InsightSyncDays
								}
								return commands.RunSyncInsights(
									ctx,
									useCase,
									logger,
									io.Writer,
									cmd.StringSlice("platform"),
									days,
									cmd.String("format"),
								)
							})
						},
					},
					{
						Name:  "publish",
						Usage: "Run a single outcome delivery publish cycle",
						Flags: []cli.Flag{
							&cli.IntFlag{
								Name:    "batch-size",
								Aliases: []string{"b"},
								Value:   0,
								Usage:   "Maximum deliveries to publish (defaults to OUTBOX_BATCH_SIZE)",
							},
							formatFlag(),
						},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							return withContainer(func(container *app.Container, logger *slog.Logger) error {
								publisher, err := container.PublisherUseCase()
								if err != nil {
									return fmt.Errorf("failed to initialize publisher: %w", err)
								}
								return commands.RunPublishOutcomes(
									ctx,
									publisher,
									logger,
									io.Writer,
									cmd.Int("batch-size"),
									cmd.String("format"),
								)
							})
						},
					},
				},
			},
			{
				Name:  "outbox",
				Usage: "Inspect and repair the outcome delivery outbox",
				Commands: []*cli.Command{
					{
						Name:  "status",
						Usage: "Show delivery counts per platform and status",
						Flags: []cli.Flag{
							formatFlag(),
						},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							return withContainer(func(container *app.Container, logger *slog.Logger) error {
								ops, err := container.OpsUseCase()
								if err != nil {
									return fmt.Errorf("failed to initialize ops use case: %w", err)
								}
								return commands.RunOutboxStatus(ctx, ops, logger, io.Writer, cmd.String("format"))
							})
						},
					},
					{
						Name:  "replay-failed",
						Usage: "Reset failed pending deliveries and re-dispatch them",
						Flags: []cli.Flag{
							platformFlag(),
							formatFlag(),
						},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							return withContainer(func(container *app.Container, logger *slog.Logger) error {
								ops, err := container.OpsUseCase()
								if err != nil {
									return fmt.Errorf("failed to initialize ops use case: %w", err)
								}
								publisher, err := container.PublisherUseCase()
								if err != nil {
									return fmt.Errorf("failed to initialize publisher: %w", err)
								}
								return commands.RunOutboxReplayFailed(
									ctx,
									ops,
									publisher,
									logger,
									io.Writer,
									cmd.String("platform"),
									cmd.String("format"),
								)
							})
						},
					},
					{
						Name:  "replay-dead-letter",
						Usage: "Reset dead-lettered deliveries and re-dispatch them",
						Flags: []cli.Flag{
							platformFlag(),
							&cli.IntFlag{
								Name:    "limit",
								Aliases: []string{"l"},
								Value:   0,
								Usage:   "Maximum deliveries to replay (0 means no limit)",
							},
							formatFlag(),
						},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							return withContainer(func(container *app.Container, logger *slog.Logger) error {
								ops, err := container.OpsUseCase()
								if err != nil {
									return fmt.Errorf("failed to initialize ops use case: %w", err)
								}
								publisher, err := container.PublisherUseCase()
								if err != nil {
									return fmt.Errorf("failed to initialize publisher: %w", err)
								}
								return commands.RunOutboxReplayDeadLetter(
									ctx,
									ops,
									publisher,
									logger,
									io.Writer,
									cmd.String("platform"),
									cmd.Int("limit"),
									cmd.String("format"),
								)
							})
						},
					},
					{
						Name:  "purge-delivered",
						Usage: "Delete delivered rows older than specified days",
						Flags: []cli.Flag{
							&cli.IntFlag{
								Name:    "days",
								Aliases: []string{"d"},
								Value:   0,
								Usage:   "Delete delivered rows older than this many days (defaults to OUTBOX_PURGE_DAYS)",
							},
							formatFlag(),
						},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							return withContainer(func(container *app.Container, logger *slog.Logger) error {
								ops, err := container.OpsUseCase()
								if err != nil {
									return fmt.Errorf("failed to initialize ops use case: %w", err)
								}
								days := cmd.Int("days")
								if days == 0 {
									days = container.Config().OutboxPurgeDays
								}
								return commands.RunOutboxPurgeDelivered(ctx, ops, logger, io.Writer, days, cmd.String("format"))
							})
						},
					},
				},
			},
			{
				Name:  "health",
				Usage: "Show the operational health report",
				Flags: []cli.Flag{
					formatFlag(),
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(func(container *app.Container, logger *slog.Logger) error {
						ops, err := container.OpsUseCase()
						if err != nil {
							return fmt.Errorf("failed to initialize ops use case: %w", err)
						}
						return commands.RunHealth(ctx, ops, logger, io.Writer, cmd.String("format"))
					})
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}

// platformsFlag selects one or more target platforms; empty means all.
func platformsFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "platform",
		Aliases: []string{"p"},
		Usage:   "Platform to target (meta, snap, tiktok); repeatable, omit for all",
	}
}

// platformFlag filters a single platform; empty means all.
func platformFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "platform",
		Aliases: []string{"p"},
		Value:   "",
		Usage:   "Platform to target (meta, snap, tiktok); omit for all",
	}
}

// formatFlag selects the command output format.
func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}
