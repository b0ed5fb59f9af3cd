package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/tasktree/internal/contract"
	"github.com/alexanderramin/tasktree/internal/domain"
)

// FormatPreview renders the rename/budget sheet. Names are indented by
// level; rows the backend rejected as duplicates are marked in red.
func FormatPreview(items []domain.PreviewItem) string {
	if len(items) == 0 {
		return RenderBox("Preview", Dim("Nothing selected."))
	}
	headers := []string{"", "KIND", "ID", "NAME", "HOURS", "NOTE"}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		mark := " "
		if it.Duplicate {
			mark = StyleRedBold.Render("✗")
		}
		name := strings.Repeat("  ", min(it.Kind.Level(), 3)) + it.Name
		if it.Duplicate {
			name = StyleRed.Render(name)
		}
		hours := Dim("--")
		if it.Kind == domain.KindTemplate || it.Kind == domain.KindSubtask {
			hours = FormatHours(it.BudgetedHours)
		}
		rows = append(rows, []string{mark, KindBadge(it.Kind), Dim(it.ID), name, hours, previewNote(it)})
	}
	return RenderBox("Preview", RenderTable(headers, rows, 4))
}

func previewNote(it domain.PreviewItem) string {
	var notes []string
	if it.Duplicate {
		notes = append(notes, StyleRed.Render("name taken"))
	}
	if it.Implicit {
		notes = append(notes, Dim("implicit"))
	}
	if it.Name != it.OriginalName {
		notes = append(notes, Dim("was "+it.OriginalName))
	}
	return strings.Join(notes, Dim(", "))
}

// FormatDuplicates lists the rows to rename after a rejected submit, plus
// any duplicates the backend reported that match no row.
func FormatDuplicates(flagged []domain.PreviewItem, unmatched []contract.Duplicate) string {
	var b strings.Builder
	b.WriteString(StyleRedBold.Render(fmt.Sprintf("%d name(s) already exist in the destination project:", len(flagged)+len(unmatched))))
	b.WriteString("\n")
	for _, it := range flagged {
		fmt.Fprintf(&b, "  %s %s %s\n", KindBadge(it.Kind), it.Name, Dim(it.Key().String()))
	}
	for _, d := range unmatched {
		fmt.Fprintf(&b, "  %s %s %s\n", StyleDim.Render(fmt.Sprintf("[%-8s]", d.Kind)), d.Name, Dim("(not in preview)"))
	}
	return b.String()
}

// FormatResult reports a successful submit.
func FormatResult(projectID string, res *contract.AssignmentResult) string {
	if res == nil {
		return StyleGreen.Render("✔ Assigned to " + projectID)
	}
	line := fmt.Sprintf("✔ Assigned to %s: %d created", projectID, res.Created)
	if res.Reused > 0 {
		line += fmt.Sprintf(", %d reused", res.Reused)
	}
	out := StyleGreen.Render(line)
	if res.AssignmentID != "" {
		out += " " + Dim("("+res.AssignmentID+")")
	}
	return out
}
