package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/alexanderramin/tasktree/internal/assign"
	"github.com/alexanderramin/tasktree/internal/cli/formatter"
	"github.com/alexanderramin/tasktree/internal/contract"
	"github.com/alexanderramin/tasktree/internal/domain"
	"github.com/alexanderramin/tasktree/internal/preview"
	"github.com/alexanderramin/tasktree/internal/selection"
)

type assignOptions struct {
	groups      []string
	templates   []string
	subtasks    []string
	renames     *editFlag
	budgets     *editFlag
	suffixes    contract.Suffixes
	interactive bool
	dryRun      bool
}

func newAssignCmd(app *App) *cobra.Command {
	opts := &assignOptions{
		renames: newEditFlag(preview.FieldName),
		budgets: newEditFlag(preview.FieldBudget),
	}

	cmd := &cobra.Command{
		Use:   "assign PROJECT_ID",
		Short: "Assign groups, templates and subtasks to a project",
		Example: `  tasktree assign p1 --group g1
  tasktree assign p1 --subtask g1/t1/s1 --template-suffix Q2
  tasktree assign p1 --template g1/t1 --rename "template:t1=Audit 2026" --budget subtask:s1=2.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := opts.ops()
			if err != nil {
				return err
			}
			if opts.interactive || (len(ops) == 0 && app.interactive()) {
				return runAssignInteractive(cmd, app, args[0], ops, opts)
			}
			return runAssign(cmd, app, args[0], ops, opts)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&opts.groups, "group", "g", nil, "select GROUP and everything under it (repeatable)")
	f.StringArrayVarP(&opts.templates, "template", "t", nil, "select GROUP/TEMPLATE with all its subtasks (repeatable)")
	f.StringArrayVarP(&opts.subtasks, "subtask", "s", nil, "select GROUP/TEMPLATE/SUBTASK (repeatable)")
	f.Var(opts.renames, "rename", "set a target name, e.g. template:t1=Audit (repeatable)")
	f.Var(opts.budgets, "budget", "set budgeted hours, e.g. subtask:s1=2.5 (repeatable)")
	f.StringVar(&opts.suffixes.Category, "category-suffix", "", "suffix appended to category names")
	f.StringVar(&opts.suffixes.Group, "group-suffix", "", "suffix appended to group names")
	f.StringVar(&opts.suffixes.Template, "template-suffix", "", "suffix appended to template and subtask names")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "choose items and fix conflicts with prompts")
	f.BoolVar(&opts.dryRun, "dry-run", false, "print the preview without submitting")

	return cmd
}

// ops turns the selection flags into selection operations, groups first.
func (o *assignOptions) ops() ([]selection.Op, error) {
	var ops []selection.Op
	add := func(flag string, want selection.Level, values []string) error {
		for _, v := range values {
			op, err := selection.ParseOp(v, true)
			if err != nil {
				return fmt.Errorf("--%s: %w", flag, err)
			}
			if op.Level != want {
				return fmt.Errorf("--%s %q: expected a %s path", flag, v, want)
			}
			ops = append(ops, op)
		}
		return nil
	}
	if err := add("group", selection.LevelGroup, o.groups); err != nil {
		return nil, err
	}
	if err := add("template", selection.LevelTemplate, o.templates); err != nil {
		return nil, err
	}
	if err := add("subtask", selection.LevelSubtask, o.subtasks); err != nil {
		return nil, err
	}
	return ops, nil
}

func (o *assignOptions) applyEdits(session *assign.Session) error {
	for _, e := range o.renames.Edits() {
		if err := session.EditPreviewItem(e.Kind, e.ID, preview.FieldName, e.Value); err != nil {
			return fmt.Errorf("--rename %s:%s: %w", e.Kind, e.ID, err)
		}
	}
	for _, e := range o.budgets.Edits() {
		if err := session.EditPreviewItem(e.Kind, e.ID, preview.FieldBudget, e.Value); err != nil {
			return fmt.Errorf("--budget %s:%s: %w", e.Kind, e.ID, err)
		}
	}
	return nil
}

func runAssign(cmd *cobra.Command, app *App, projectID string, ops []selection.Op, o *assignOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if len(ops) == 0 {
		return domain.ErrNoSelection
	}

	session, err := app.Assignments.Open(ctx, projectID, selection.SeedFromOps(ops))
	if err != nil {
		return err
	}
	if _, err := session.AdvanceToPreview(o.suffixes); err != nil {
		return err
	}
	if err := o.applyEdits(session); err != nil {
		return err
	}

	if o.dryRun {
		fmt.Fprintln(out, formatter.FormatPreview(session.Preview()))
		fmt.Fprintln(out, formatter.Dim("Dry run: nothing submitted."))
		return nil
	}

	outcome, err := app.Assignments.Submit(ctx, session)
	if errors.Is(err, domain.ErrDuplicateNames) {
		fmt.Fprintln(out, formatter.FormatPreview(session.Preview()))
		fmt.Fprint(out, formatter.FormatDuplicates(outcome.Duplicates, outcome.Unmatched))
		return fmt.Errorf("%w: rename with --rename kind:id=name or add a suffix", err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, formatter.FormatResult(projectID, outcome.Result))
	return nil
}

// runAssignInteractive loops over the preview until a submit succeeds or the
// user cancels. Duplicate and transport failures keep the session open.
func runAssignInteractive(cmd *cobra.Command, app *App, projectID string, ops []selection.Op, o *assignOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	p := app.prompts()

	repo, err := app.Assignments.Catalog(ctx)
	if err != nil {
		return err
	}
	picked := make([]string, 0, len(ops))
	for _, op := range ops {
		picked = append(picked, opPath(op))
	}
	if err := p.SelectPaths(catalogPaths(repo), &picked); err != nil {
		return stopPrompting(out, nil, err)
	}
	ops = ops[:0]
	for _, path := range picked {
		op, err := selection.ParseOp(path, true)
		if err != nil {
			return err
		}
		ops = append(ops, op)
	}
	if len(ops) == 0 {
		return domain.ErrNoSelection
	}

	session, err := app.Assignments.Open(ctx, projectID, selection.SeedFromOps(ops))
	if err != nil {
		return err
	}
	suffixes := o.suffixes
	if err := p.EditSuffixes(&suffixes); err != nil {
		return stopPrompting(out, session, err)
	}
	if _, err := session.AdvanceToPreview(suffixes); err != nil {
		return err
	}
	if err := o.applyEdits(session); err != nil {
		return err
	}

	for {
		items := session.Preview()
		fmt.Fprintln(out, formatter.FormatPreview(items))

		act, err := p.ChooseAction(countDuplicates(items))
		if err != nil {
			return stopPrompting(out, session, err)
		}
		switch act {
		case actionCancel:
			return stopPrompting(out, session, nil)

		case actionSuffixes:
			s := session.Suffixes()
			if err := p.EditSuffixes(&s); err != nil {
				return stopPrompting(out, session, err)
			}
			if _, err := session.AdvanceToPreview(s); err != nil {
				return err
			}

		case actionEdit:
			idx, err := p.ChooseItem(items)
			if err != nil {
				return stopPrompting(out, session, err)
			}
			if idx < 0 || idx >= len(items) {
				continue
			}
			it := items[idx]
			name, hours := it.Name, hoursString(it.BudgetedHours)
			if err := p.EditItem(it, &name, &hours); err != nil {
				return stopPrompting(out, session, err)
			}
			if err := editItem(session, it, name, hours); err != nil {
				fmt.Fprintln(out, formatter.StyleRed.Render(err.Error()))
			}

		case actionSubmit:
			outcome, err := app.Assignments.Submit(ctx, session)
			switch {
			case err == nil:
				fmt.Fprintln(out, formatter.FormatResult(projectID, outcome.Result))
				return nil
			case errors.Is(err, domain.ErrDuplicateNames):
				fmt.Fprint(out, formatter.FormatDuplicates(outcome.Duplicates, outcome.Unmatched))
			case errors.Is(err, domain.ErrTransport):
				fmt.Fprintln(out, formatter.StyleRed.Render(fmt.Sprintf("Submit failed: %v", err)))
				fmt.Fprintln(out, formatter.Dim("Your selection and edits are kept. Submit again or cancel."))
			default:
				return err
			}
		}
	}
}

// editItem applies only the fields the user changed, so untouched names
// keep following the suffixes.
func editItem(session *assign.Session, it domain.PreviewItem, name, hours string) error {
	if name != it.Name {
		if err := session.EditPreviewItem(it.Kind, it.ID, preview.FieldName, name); err != nil {
			return err
		}
	}
	if hours != "" && hours != hoursString(it.BudgetedHours) {
		if err := session.EditPreviewItem(it.Kind, it.ID, preview.FieldBudget, hours); err != nil {
			return err
		}
	}
	return nil
}

// stopPrompting ends an interactive run. A user abort cancels the session
// and is not an error.
func stopPrompting(out io.Writer, session *assign.Session, err error) error {
	if err != nil && !errors.Is(err, huh.ErrUserAborted) {
		return err
	}
	if session != nil {
		_ = session.Cancel()
	}
	fmt.Fprintln(out, formatter.Dim("Cancelled. Nothing was assigned."))
	return nil
}

func countDuplicates(items []domain.PreviewItem) int {
	n := 0
	for _, it := range items {
		if it.Duplicate {
			n++
		}
	}
	return n
}

func opPath(op selection.Op) string {
	switch op.Level {
	case selection.LevelTemplate:
		return op.GroupID + "/" + op.TemplateID
	case selection.LevelSubtask:
		return op.GroupID + "/" + op.TemplateID + "/" + op.SubtaskID
	default:
		return op.GroupID
	}
}
