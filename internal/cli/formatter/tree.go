package formatter

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TreeItem is one line of a tree display. Items are listed depth first;
// Level 0 is a root.
type TreeItem struct {
	Title  string
	Level  int
	IsLast bool
	Detail string
}

const (
	treeBranch = "├─ "
	treeCorner = "└─ "
	treePipe   = "│  "
	treeBlank  = "   "
)

// RenderTree renders items as an indented tree with box-drawing connectors
// and right-aligned detail badges.
func RenderTree(items []TreeItem) string {
	if len(items) == 0 {
		return ""
	}

	type lineInfo struct {
		content string
		badge   string
	}
	lines := make([]lineInfo, len(items))
	widest := 0

	// lastAt[l] records whether the most recent item at level l closed its
	// sibling list, which decides between a pipe and a blank below it.
	var lastAt []bool
	for idx, item := range items {
		for len(lastAt) <= item.Level {
			lastAt = append(lastAt, false)
		}
		lastAt[item.Level] = item.IsLast

		var prefix strings.Builder
		if item.Level > 0 {
			for l := 1; l < item.Level; l++ {
				if lastAt[l] {
					prefix.WriteString(treeBlank)
				} else {
					prefix.WriteString(treePipe)
				}
			}
			if item.IsLast {
				prefix.WriteString(treeCorner)
			} else {
				prefix.WriteString(treeBranch)
			}
		}

		lines[idx].content = StyleDim.Render(prefix.String()) + item.Title
		widest = max(widest, lipgloss.Width(lines[idx].content))
		if item.Detail != "" {
			lines[idx].badge = StyleBlue.Render("[ " + item.Detail + " ]")
		}
	}

	var b strings.Builder
	for _, li := range lines {
		if li.badge == "" {
			b.WriteString(li.content + "\n")
			continue
		}
		pad := max(0, widest-lipgloss.Width(li.content))
		b.WriteString(li.content + strings.Repeat(" ", pad) + "  " + li.badge + "\n")
	}
	return b.String()
}
