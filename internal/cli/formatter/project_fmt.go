package formatter

import (
	"github.com/alexanderramin/tasktree/internal/contract"
)

// FormatProjectList renders destination projects inside a bordered box.
func FormatProjectList(projects []contract.ProjectRef) string {
	if len(projects) == 0 {
		return RenderBox("Projects", Dim("No projects."))
	}
	headers := []string{"ID", "NAME", "STATUS"}
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		id := p.ID.String()
		if id == "" {
			id = "--"
		}
		rows = append(rows, []string{id, Bold(p.Name), StatusPill(p.Status)})
	}
	return RenderBox("Projects", RenderTable(headers, rows))
}
