package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/alexanderramin/tasktree/internal/backend"
	"github.com/alexanderramin/tasktree/internal/cli"
	"github.com/alexanderramin/tasktree/internal/config"
	"github.com/alexanderramin/tasktree/internal/db"
	"github.com/alexanderramin/tasktree/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.DefaultEnvFiles)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	useCases := service.NewLogUseCaseObserver(logger)

	var observer backend.Observer = backend.NoopObserver{}
	if cfg.LogCalls {
		observer = backend.NewLogObserver(logger)
	}
	client := backend.NewHTTPClient(cfg.Backend(), observer)

	app := &cli.App{
		Config:      cfg,
		Logger:      logger,
		Assignments: service.NewAssignmentService(client, logger, useCases),
		OpenStore: func(ctx context.Context) (*cli.Store, error) {
			database, err := db.OpenDB(cfg.DBPath)
			if err != nil {
				return nil, fmt.Errorf("opening database: %w", err)
			}
			uow := db.NewSQLiteUnitOfWork(database)
			return &cli.Store{
				Catalog: service.NewCatalogService(database, uow, useCases),
				Seeder:  service.NewSeedService(uow, useCases),
				Close:   database.Close,
			}, nil
		},
		IsInteractive: func() bool {
			in, out := os.Stdin.Fd(), os.Stdout.Fd()
			return (isatty.IsTerminal(in) || isatty.IsCygwinTerminal(in)) &&
				(isatty.IsTerminal(out) || isatty.IsCygwinTerminal(out))
		},
	}

	return cli.NewRootCmd(app).Execute()
}
