package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/alexanderramin/tasktree/internal/cli/formatter"
	"github.com/alexanderramin/tasktree/internal/contract"
	"github.com/alexanderramin/tasktree/internal/domain"
	"github.com/alexanderramin/tasktree/internal/preview"
	"github.com/alexanderramin/tasktree/internal/tree"
)

type action string

const (
	actionSubmit   action = "submit"
	actionEdit     action = "edit"
	actionSuffixes action = "suffixes"
	actionCancel   action = "cancel"
)

// pathOption is one selectable catalog entry: "g", "g/t" or "g/t/s".
type pathOption struct {
	Label string
	Path  string
}

// prompter asks the user for assignment input. huhPrompter is the terminal
// implementation.
type prompter interface {
	SelectPaths(options []pathOption, picked *[]string) error
	EditSuffixes(s *contract.Suffixes) error
	ChooseAction(flagged int) (action, error)
	ChooseItem(items []domain.PreviewItem) (int, error)
	EditItem(item domain.PreviewItem, name, hours *string) error
}

// catalogPaths lists every group, template and direct subtask in tree
// order, labelled with indentation.
func catalogPaths(repo *tree.Repository) []pathOption {
	var out []pathOption
	for _, c := range repo.Categories() {
		for _, g := range repo.GroupsOf(c.ID) {
			out = append(out, pathOption{Label: c.Name + " › " + g.Name, Path: g.ID})
			for _, t := range repo.TemplatesOf(g.ID) {
				tp := g.ID + "/" + t.ID
				out = append(out, pathOption{Label: "    " + t.Name, Path: tp})
				for _, s := range repo.SubtasksOf(t.ID) {
					out = append(out, pathOption{Label: "        " + s.Name, Path: tp + "/" + s.ID})
				}
			}
		}
	}
	return out
}

type huhPrompter struct{}

func (huhPrompter) run(fields ...huh.Field) error {
	return huh.NewForm(huh.NewGroup(fields...)).WithTheme(huhTheme()).Run()
}

func (p huhPrompter) SelectPaths(options []pathOption, picked *[]string) error {
	opts := make([]huh.Option[string], 0, len(options))
	for _, o := range options {
		opts = append(opts, huh.NewOption(o.Label, o.Path))
	}
	return p.run(huh.NewMultiSelect[string]().
		Title("What should be assigned?").
		Description("Picking a group takes all of its templates; picking a subtask takes its template too.").
		Options(opts...).
		Height(20).
		Value(picked))
}

func (p huhPrompter) EditSuffixes(s *contract.Suffixes) error {
	return p.run(
		huh.NewInput().Title("Category suffix").Placeholder("none").Value(&s.Category),
		huh.NewInput().Title("Group suffix").Placeholder("none").Value(&s.Group),
		huh.NewInput().Title("Template suffix").Description("Also applied to subtasks.").Placeholder("none").Value(&s.Template),
	)
}

func (p huhPrompter) ChooseAction(flagged int) (action, error) {
	choice := actionSubmit
	title := "Ready to assign?"
	if flagged > 0 {
		choice = actionEdit
		title = fmt.Sprintf("%d name(s) are taken. Rename them or change suffixes.", flagged)
	}
	err := p.run(huh.NewSelect[action]().
		Title(title).
		Options(
			huh.NewOption("Submit", actionSubmit),
			huh.NewOption("Edit a name or budget", actionEdit),
			huh.NewOption("Change suffixes", actionSuffixes),
			huh.NewOption("Cancel", actionCancel),
		).
		Value(&choice))
	return choice, err
}

func (p huhPrompter) ChooseItem(items []domain.PreviewItem) (int, error) {
	opts := make([]huh.Option[int], 0, len(items))
	for i, it := range items {
		label := fmt.Sprintf("%-9s %s", it.Kind, formatter.Truncate(it.Name, 60))
		if it.Duplicate {
			label += "  (name taken)"
		}
		opts = append(opts, huh.NewOption(label, i))
	}
	var idx int
	err := p.run(huh.NewSelect[int]().Title("Which item?").Options(opts...).Height(15).Value(&idx))
	return idx, err
}

func (p huhPrompter) EditItem(item domain.PreviewItem, name, hours *string) error {
	fields := []huh.Field{
		huh.NewInput().Title("Name").Value(name).Validate(func(s string) error {
			if s == "" {
				return fmt.Errorf("name must not be empty")
			}
			return nil
		}),
	}
	if item.Kind == domain.KindTemplate || item.Kind == domain.KindSubtask {
		fields = append(fields, huh.NewInput().
			Title("Budgeted hours").
			Placeholder(formatter.FormatHours(item.BudgetedHours)).
			Value(hours).
			Validate(func(s string) error {
				_, err := preview.ParseHours(s)
				return err
			}))
	}
	return p.run(fields...)
}

func hoursString(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
