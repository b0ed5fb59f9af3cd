package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/tasktree/internal/cli/formatter"
)

func newCatalogCmd(app *App) *cobra.Command {
	var paths bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Show the category tree available for assignment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := app.Assignments.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if paths {
				for _, p := range catalogPaths(repo) {
					fmt.Fprintln(out, p.Path)
				}
				return nil
			}
			fmt.Fprintln(out, formatter.FormatCatalog(repo))
			return nil
		},
	}

	cmd.Flags().BoolVar(&paths, "paths", false, "print selection paths usable with assign --group/--template/--subtask")
	return cmd
}
