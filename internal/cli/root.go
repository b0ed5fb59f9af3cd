package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/tasktree/internal/config"
	"github.com/alexanderramin/tasktree/internal/service"
)

// App holds the configuration and services used by CLI commands.
type App struct {
	Config      config.Config
	Logger      *slog.Logger
	Assignments service.AssignmentService

	// OpenStore opens the local catalog database. Only serve and seed
	// need it, so it is opened on demand.
	OpenStore func(ctx context.Context) (*Store, error)

	// IsInteractive reports whether prompts can be shown.
	IsInteractive func() bool

	prompt prompter
}

// Store is the SQLite-backed reference backend.
type Store struct {
	Catalog service.CatalogService
	Seeder  service.SeedService
	Close   func() error
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

func (a *App) prompts() prompter {
	if a.prompt != nil {
		return a.prompt
	}
	return huhPrompter{}
}

func (a *App) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// NewRootCmd creates the top-level "tasktree" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "tasktree",
		Short:         "Assign task templates from the catalog to projects",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(app),
		newSeedCmd(app),
		newProjectsCmd(app),
		newCatalogCmd(app),
		newAssignCmd(app),
	)

	return root
}
