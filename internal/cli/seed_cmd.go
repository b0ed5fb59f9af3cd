package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/tasktree/internal/cli/formatter"
)

func newSeedCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "seed FILE",
		Short: "Import projects and a category tree from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.OpenStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := store.Seeder.SeedFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, formatter.StyleGreen.Render("✔ Seeded "+args[0]))
			fmt.Fprintf(out, "  projects    %d new, %d existing\n", res.ProjectsCreated, res.ProjectsExisting)
			fmt.Fprintf(out, "  catalog     %d categories, %d groups, %d templates, %d subtasks\n",
				res.Categories, res.Groups, res.Templates, res.Subtasks)
			return nil
		},
	}
}
