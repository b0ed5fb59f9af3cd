package formatter

import (
	"fmt"

	"github.com/alexanderramin/tasktree/internal/domain"
	"github.com/alexanderramin/tasktree/internal/tree"
)

// FormatCatalog renders the category tree with IDs and budgets.
func FormatCatalog(repo *tree.Repository) string {
	cats := repo.Categories()
	if len(cats) == 0 {
		return RenderBox("Catalog", Dim("No categories."))
	}

	var items []TreeItem
	for _, c := range cats {
		items = append(items, TreeItem{
			Title: KindStyle(domain.KindCategory).Render(c.Name) + " " + Dim(c.ID),
		})
		groups := repo.GroupsOf(c.ID)
		for gi, g := range groups {
			items = append(items, TreeItem{
				Title:  KindStyle(domain.KindGroup).Render(g.Name) + " " + Dim(g.ID),
				Level:  1,
				IsLast: gi == len(groups)-1,
			})
			templates := repo.TemplatesOf(g.ID)
			for ti, t := range templates {
				items = append(items, TreeItem{
					Title:  KindStyle(domain.KindTemplate).Render(t.Name) + " " + Dim(t.ID),
					Level:  2,
					IsLast: ti == len(templates)-1,
					Detail: FormatHours(t.BudgetedHours),
				})
				items = appendSubtasks(items, repo, t.ID, 3, map[string]bool{t.ID: true})
			}
		}
	}

	c, g, t, s := repo.Counts()
	summary := Dim(fmt.Sprintf("%d categories, %d groups, %d templates, %d subtasks", c, g, t, s))
	return RenderBox("Catalog", RenderTree(items)+"\n"+summary)
}

// appendSubtasks walks subtasks depth first. A subtask may parent further
// subtasks; seen stops the walk on a cycle.
func appendSubtasks(items []TreeItem, repo *tree.Repository, parentID string, level int, seen map[string]bool) []TreeItem {
	subs := repo.SubtasksOf(parentID)
	for i, s := range subs {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		items = append(items, TreeItem{
			Title:  s.Name + " " + Dim(s.ID),
			Level:  level,
			IsLast: i == len(subs)-1,
			Detail: FormatHours(s.BudgetedHours),
		})
		items = appendSubtasks(items, repo, s.ID, level+1, seen)
	}
	return items
}
