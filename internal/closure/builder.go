// Package closure turns a partial selection into the minimal
// ancestor-complete set of preview items.
package closure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/alexanderramin/tasktree/internal/domain"
	"github.com/alexanderramin/tasktree/internal/selection"
)

// Tree is the read-only lookup surface the builder resolves parents against.
type Tree interface {
	Category(id string) (domain.Category, bool)
	Group(id string) (domain.Group, bool)
	Template(id string) (domain.Template, bool)
	Subtask(id string) (domain.Subtask, bool)
	Position(kind domain.Kind, id string) (int, bool)
}

// Selection is the read surface of a selection state.
type Selection interface {
	Groups() []string
	Templates() []selection.TemplateEntry
	Subtasks() []selection.SubtaskKey
}

// Diagnostic describes an item dropped because a parent it needs is missing.
type Diagnostic struct {
	Kind        domain.Kind
	ID          string
	MissingKind domain.Kind
	MissingID   string
}

func (d Diagnostic) Error() string {
	if d.MissingID == "" {
		return fmt.Sprintf("%s %s: not found in tree", d.Kind, d.ID)
	}
	return fmt.Sprintf("%s %s: parent %s %s not found in tree", d.Kind, d.ID, d.MissingKind, d.MissingID)
}

// Unwrap lets callers match diagnostics with errors.Is.
func (d Diagnostic) Unwrap() error {
	return domain.ErrStructuralIntegrity
}

// Builder computes closures. It holds no state besides its logger.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder returns a Builder that reports dropped items to logger. A nil
// logger discards diagnostics.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{logger: logger}
}

// Build is a convenience for NewBuilder(nil).Build.
func Build(sel Selection, tree Tree) []domain.PreviewItem {
	return NewBuilder(nil).Build(sel, tree)
}

// Build returns the closure of sel against tree. The result is unsorted but
// deterministic: items appear in the order they were first reached.
func (b *Builder) Build(sel Selection, tree Tree) []domain.PreviewItem {
	items, _ := b.BuildWithReport(sel, tree)
	return items
}

// BuildWithReport is Build plus the diagnostics of every dropped item.
func (b *Builder) BuildWithReport(sel Selection, tree Tree) ([]domain.PreviewItem, []Diagnostic) {
	r := &resolver{
		tree:       tree,
		subtaskIDs: make(map[string]bool),
		checked:    make(map[string]error),
		out:        newResultSet(),
	}

	subtaskIDs := orderedIDs(tree, domain.KindSubtask, subtaskIDsOf(sel.Subtasks()))
	r.settleSubtaskRoles(subtaskIDs)

	// Subtasks first: subtask membership decides the role of an ID that is
	// also listed as a template.
	for _, id := range subtaskIDs {
		if err := r.addSubtask(id); err != nil {
			r.report(err)
		}
	}

	explicit := make(map[string]bool)
	var templateIDs []string
	for _, te := range sel.Templates() {
		if r.subtaskIDs[te.TemplateID] {
			continue
		}
		if _, seen := explicit[te.TemplateID]; !seen {
			templateIDs = append(templateIDs, te.TemplateID)
		}
		explicit[te.TemplateID] = explicit[te.TemplateID] || te.Explicit
	}
	for _, id := range orderedIDs(tree, domain.KindTemplate, templateIDs) {
		if err := r.addTemplate(id, !explicit[id]); err != nil {
			r.report(err)
		}
	}

	for _, id := range orderedIDs(tree, domain.KindGroup, sel.Groups()) {
		if err := r.addGroup(id, false); err != nil {
			r.report(err)
		}
	}

	for _, d := range r.diagnostics {
		b.logger.LogAttrs(context.Background(), slog.LevelWarn, "closure_dropped_item",
			slog.String("kind", string(d.Kind)),
			slog.String("id", d.ID),
			slog.String("missing_kind", string(d.MissingKind)),
			slog.String("missing_id", d.MissingID),
		)
	}
	return r.out.items(), r.diagnostics
}

type resolver struct {
	tree        Tree
	subtaskIDs  map[string]bool
	checked     map[string]error
	out         *resultSet
	diagnostics []Diagnostic
}

// settleSubtaskRoles decides which selected IDs act as subtasks. An ID whose
// own chain is broken gives up the role, so a template with the same ID and
// the subtasks listed under it resolve through the template chain instead.
// Subtasks that only fail through a broken parent subtask keep the role.
func (r *resolver) settleSubtaskRoles(ids []string) {
	for _, id := range ids {
		r.subtaskIDs[id] = true
	}
	for {
		r.checked = make(map[string]error)
		var broken []string
		for _, id := range ids {
			if !r.subtaskIDs[id] {
				continue
			}
			if err := r.checkSubtask(id, map[string]bool{}); err == nil {
				continue
			}
			if s, ok := r.tree.Subtask(id); ok && s.TemplateID != id && r.subtaskIDs[s.TemplateID] {
				continue
			}
			broken = append(broken, id)
		}
		if len(broken) == 0 {
			break
		}
		for _, id := range broken {
			delete(r.subtaskIDs, id)
		}
	}
	r.checked = make(map[string]error)
}

func (r *resolver) report(err error) {
	if d, ok := err.(Diagnostic); ok {
		r.diagnostics = append(r.diagnostics, d)
	}
}

// addSubtask adds a selected subtask and its ancestors. A parent that is
// itself a selected subtask is satisfied by that subtask.
func (r *resolver) addSubtask(id string) error {
	if err := r.checkSubtask(id, map[string]bool{}); err != nil {
		return err
	}
	s, _ := r.tree.Subtask(id)
	r.out.add(domain.PreviewItem{
		ID:            s.ID,
		Kind:          domain.KindSubtask,
		OriginalName:  s.Name,
		Name:          s.Name,
		BudgetedHours: s.BudgetedHours,
		ParentID:      s.TemplateID,
		Rank:          s.Rank,
	})
	if r.subtaskIDs[s.TemplateID] && s.TemplateID != id {
		return r.addSubtask(s.TemplateID)
	}
	return r.addTemplate(s.TemplateID, true)
}

func (r *resolver) addTemplate(id string, implicit bool) error {
	if err := r.checkTemplate(id); err != nil {
		return err
	}
	t, _ := r.tree.Template(id)
	r.out.add(domain.PreviewItem{
		ID:            t.ID,
		Kind:          domain.KindTemplate,
		OriginalName:  t.Name,
		Name:          t.Name,
		BudgetedHours: t.BudgetedHours,
		ParentID:      t.GroupID,
		Rank:          t.Rank,
		Implicit:      implicit,
	})
	return r.addGroup(t.GroupID, true)
}

func (r *resolver) addGroup(id string, implicit bool) error {
	if err := r.checkGroup(id); err != nil {
		return err
	}
	g, _ := r.tree.Group(id)
	r.out.add(domain.PreviewItem{
		ID:           g.ID,
		Kind:         domain.KindGroup,
		OriginalName: g.Name,
		Name:         g.Name,
		ParentID:     g.CategoryID,
		Rank:         g.Rank,
		Implicit:     implicit,
	})
	c, _ := r.tree.Category(g.CategoryID)
	r.out.add(domain.PreviewItem{
		ID:           c.ID,
		Kind:         domain.KindCategory,
		OriginalName: c.Name,
		Name:         c.Name,
		Rank:         c.Rank,
		Implicit:     true,
	})
	return nil
}

// checkSubtask verifies the whole ancestor chain before anything is added,
// so a dangling reference never leaves a partial chain behind.
func (r *resolver) checkSubtask(id string, visiting map[string]bool) error {
	key := "subtask:" + id
	if err, ok := r.checked[key]; ok {
		return err
	}
	err := r.resolveSubtask(id, visiting)
	r.checked[key] = err
	return err
}

func (r *resolver) resolveSubtask(id string, visiting map[string]bool) error {
	s, ok := r.tree.Subtask(id)
	if !ok {
		return Diagnostic{Kind: domain.KindSubtask, ID: id}
	}
	if r.subtaskIDs[s.TemplateID] && s.TemplateID != id {
		if visiting[id] {
			return Diagnostic{Kind: domain.KindSubtask, ID: id, MissingKind: domain.KindTemplate, MissingID: s.TemplateID}
		}
		visiting[id] = true
		if err := r.checkSubtask(s.TemplateID, visiting); err != nil {
			return diagnose(domain.KindSubtask, id, err)
		}
		return nil
	}
	if err := r.checkTemplate(s.TemplateID); err != nil {
		return diagnose(domain.KindSubtask, id, err)
	}
	return nil
}

func (r *resolver) checkTemplate(id string) error {
	t, ok := r.tree.Template(id)
	if !ok {
		return Diagnostic{Kind: domain.KindTemplate, ID: id}
	}
	if err := r.checkGroup(t.GroupID); err != nil {
		return diagnose(domain.KindTemplate, id, err)
	}
	return nil
}

func (r *resolver) checkGroup(id string) error {
	g, ok := r.tree.Group(id)
	if !ok {
		return Diagnostic{Kind: domain.KindGroup, ID: id}
	}
	if _, ok := r.tree.Category(g.CategoryID); !ok {
		return Diagnostic{Kind: domain.KindGroup, ID: id, MissingKind: domain.KindCategory, MissingID: g.CategoryID}
	}
	return nil
}

// diagnose blames the record at the bottom of the broken chain in err.
func diagnose(kind domain.Kind, id string, err error) Diagnostic {
	d := Diagnostic{Kind: kind, ID: id}
	var inner Diagnostic
	if !errors.As(err, &inner) {
		return d
	}
	if inner.MissingID == "" {
		d.MissingKind, d.MissingID = inner.Kind, inner.ID
	} else {
		d.MissingKind, d.MissingID = inner.MissingKind, inner.MissingID
	}
	return d
}

// resultSet keeps one item per closure key in first-reached order. An item
// reached both implicitly and explicitly ends up explicit.
type resultSet struct {
	order []domain.ItemKey
	byKey map[domain.ItemKey]*domain.PreviewItem
}

func newResultSet() *resultSet {
	return &resultSet{byKey: make(map[domain.ItemKey]*domain.PreviewItem)}
}

func (rs *resultSet) add(item domain.PreviewItem) {
	key := item.Key()
	if existing, ok := rs.byKey[key]; ok {
		if existing.Kind == item.Kind {
			existing.Implicit = existing.Implicit && item.Implicit
		}
		return
	}
	rs.order = append(rs.order, key)
	stored := item
	rs.byKey[key] = &stored
}

func (rs *resultSet) items() []domain.PreviewItem {
	out := make([]domain.PreviewItem, 0, len(rs.order))
	for _, key := range rs.order {
		out = append(out, *rs.byKey[key])
	}
	return out
}

func subtaskIDsOf(keys []selection.SubtaskKey) []string {
	seen := make(map[string]bool, len(keys))
	var ids []string
	for _, k := range keys {
		if seen[k.SubtaskID] {
			continue
		}
		seen[k.SubtaskID] = true
		ids = append(ids, k.SubtaskID)
	}
	return ids
}

// orderedIDs sorts IDs by their rank position in the tree; IDs the tree
// does not know go last in lexical order.
func orderedIDs(tree Tree, kind domain.Kind, ids []string) []string {
	out := append([]string(nil), ids...)
	sort.SliceStable(out, func(i, j int) bool {
		pi, oki := tree.Position(kind, out[i])
		pj, okj := tree.Position(kind, out[j])
		switch {
		case oki && okj:
			return pi < pj
		case oki != okj:
			return oki
		default:
			return out[i] < out[j]
		}
	})
	return out
}
