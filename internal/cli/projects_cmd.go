package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/tasktree/internal/cli/formatter"
	"github.com/alexanderramin/tasktree/internal/domain"
)

func newProjectsCmd(app *App) *cobra.Command {
	var status string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List destination projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" && !domain.ValidProjectStatuses[status] {
				return fmt.Errorf("unknown status %q (want active, paused, done or archived)", status)
			}
			projects, err := app.Assignments.Projects(cmd.Context(), status)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(projects)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatProjectList(projects))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", string(domain.ProjectActive), "only projects with this status; empty for all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
