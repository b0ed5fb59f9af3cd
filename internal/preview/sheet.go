// Package preview holds the editable rename/budget step between the closure
// and the serialized payload.
package preview

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/alexanderramin/tasktree/internal/contract"
	"github.com/alexanderramin/tasktree/internal/domain"
)

// Field names an editable column of a preview item.
type Field string

const (
	FieldName   Field = "name"
	FieldBudget Field = "budgetedHours"
)

// ParseField accepts the field names used on the wire and in CLI flags.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name":
		return FieldName, nil
	case "budget", "budgetedhours", "hours":
		return FieldBudget, nil
	}
	return "", fmt.Errorf("%w: unknown field %q", domain.ErrInvalidEdit, s)
}

// DerivedName is the target name of an item before any user edit.
func DerivedName(originalName, suffix string) string {
	return strings.TrimSpace(originalName + " " + suffix)
}

// SuffixFor picks the suffix an item of kind receives. Subtasks share the
// template suffix.
func SuffixFor(kind domain.Kind, s contract.Suffixes) string {
	switch kind {
	case domain.KindCategory:
		return s.Category
	case domain.KindGroup:
		return s.Group
	default:
		return s.Template
	}
}

// ApplySuffixes derives target names for a closure and orders it for
// display. It does not modify closure.
func ApplySuffixes(closure []domain.PreviewItem, suffixes contract.Suffixes) []domain.PreviewItem {
	out := make([]domain.PreviewItem, len(closure))
	for i, item := range closure {
		item.Name = DerivedName(item.OriginalName, SuffixFor(item.Kind, suffixes))
		out[i] = item
	}
	sortItems(out)
	return out
}

// sortItems orders root tiers first, then by rank. Equal ranks keep their
// incoming order.
func sortItems(items []domain.PreviewItem) {
	sort.SliceStable(items, func(i, j int) bool {
		li, lj := items[i].Kind.Level(), items[j].Kind.Level()
		if li != lj {
			return li < lj
		}
		return items[i].Rank < items[j].Rank
	})
}

type edits struct {
	name   bool
	budget bool
}

// Sheet is the editable preview of one session. Edited fields are sticky:
// reapplying suffixes, or rebuilding from a new closure, never overwrites
// them. A Sheet is not safe for concurrent use.
type Sheet struct {
	logger   *slog.Logger
	suffixes contract.Suffixes
	items    []domain.PreviewItem
	index    map[domain.ItemKey]int
	edited   map[domain.ItemKey]edits
}

func NewSheet(logger *slog.Logger) *Sheet {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sheet{
		logger: logger,
		index:  make(map[domain.ItemKey]int),
		edited: make(map[domain.ItemKey]edits),
	}
}

// ApplySuffixes (re)derives the sheet from closure. Items still present keep
// their edited fields, and their duplicate flags while the name is unchanged;
// items that left the closure are forgotten. It returns a copy of the resulting rows.
func (s *Sheet) ApplySuffixes(closure []domain.PreviewItem, suffixes contract.Suffixes) []domain.PreviewItem {
	next := ApplySuffixes(closure, suffixes)
	edited := make(map[domain.ItemKey]edits, len(s.edited))
	for i := range next {
		key := next[i].Key()
		pos, ok := s.index[key]
		if !ok {
			continue
		}
		prev := s.items[pos]
		e := s.edited[key]
		if e.name {
			next[i].Name = prev.Name
		}
		// A flag only holds for the name the backend rejected.
		next[i].Duplicate = prev.Duplicate && next[i].Name == prev.Name
		if e.budget {
			next[i].BudgetedHours = prev.BudgetedHours
		}
		if e.name || e.budget {
			edited[key] = e
		}
	}

	s.suffixes = suffixes
	s.items = next
	s.edited = edited
	s.reindex()
	return s.Items()
}

func (s *Sheet) reindex() {
	s.index = make(map[domain.ItemKey]int, len(s.items))
	for i, item := range s.items {
		s.index[item.Key()] = i
	}
}

// Items returns a copy of the rows in display order.
func (s *Sheet) Items() []domain.PreviewItem {
	return append([]domain.PreviewItem(nil), s.items...)
}

func (s *Sheet) Len() int { return len(s.items) }

func (s *Sheet) Suffixes() contract.Suffixes { return s.suffixes }

// Item looks up a row. Template and subtask kinds address the same task
// tier, so either finds an ambiguous ID.
func (s *Sheet) Item(kind domain.Kind, id string) (domain.PreviewItem, bool) {
	pos, ok := s.index[domain.KeyOf(kind, id)]
	if !ok {
		return domain.PreviewItem{}, false
	}
	return s.items[pos], true
}

// Edited reports whether the user changed the given field of an item.
func (s *Sheet) Edited(kind domain.Kind, id string, field Field) bool {
	e := s.edited[domain.KeyOf(kind, id)]
	switch field {
	case FieldName:
		return e.name
	case FieldBudget:
		return e.budget
	}
	return false
}

// UpdateItem replaces one field of one row in place. Names must be non-empty
// after trimming; budgets are non-negative decimal hours. Editing a name
// clears the row's duplicate flag.
func (s *Sheet) UpdateItem(kind domain.Kind, id string, field Field, value string) error {
	key := domain.KeyOf(kind, id)
	pos, ok := s.index[key]
	if !ok {
		return fmt.Errorf("%w: %s %s", domain.ErrUnknownItem, kind, id)
	}
	e := s.edited[key]

	switch field {
	case FieldName:
		name := strings.TrimSpace(value)
		if name == "" {
			return fmt.Errorf("%w: name of %s %s must not be empty", domain.ErrInvalidEdit, kind, id)
		}
		s.items[pos].Name = name
		s.items[pos].Duplicate = false
		e.name = true
	case FieldBudget:
		hours, err := ParseHours(value)
		if err != nil {
			return fmt.Errorf("budget of %s %s: %w", kind, id, err)
		}
		s.items[pos].BudgetedHours = hours
		e.budget = true
	default:
		return fmt.Errorf("%w: unknown field %q", domain.ErrInvalidEdit, field)
	}

	s.edited[key] = e
	return nil
}

// ResetName drops a name edit and restores the derived name.
func (s *Sheet) ResetName(kind domain.Kind, id string) error {
	key := domain.KeyOf(kind, id)
	pos, ok := s.index[key]
	if !ok {
		return fmt.Errorf("%w: %s %s", domain.ErrUnknownItem, kind, id)
	}
	item := &s.items[pos]
	item.Name = DerivedName(item.OriginalName, SuffixFor(item.Kind, s.suffixes))
	item.Duplicate = false

	e := s.edited[key]
	e.name = false
	if e.budget {
		s.edited[key] = e
	} else {
		delete(s.edited, key)
	}
	return nil
}

// MarkDuplicates flags the rows named by a duplicate-name rejection. Flags
// from an earlier rejection are replaced. Nothing else changes. Triples that
// match no row are returned.
func (s *Sheet) MarkDuplicates(dups []contract.Duplicate) []contract.Duplicate {
	for i := range s.items {
		s.items[i].Duplicate = false
	}

	var unmatched []contract.Duplicate
	for _, d := range dups {
		pos, ok := s.lookupDuplicate(d)
		if !ok {
			unmatched = append(unmatched, d)
			s.logger.LogAttrs(context.Background(), slog.LevelWarn, "duplicate_unmatched",
				slog.String("id", d.ID.String()),
				slog.String("kind", d.Kind),
				slog.String("name", d.Name),
			)
			continue
		}
		s.items[pos].Duplicate = true
	}
	return unmatched
}

func (s *Sheet) lookupDuplicate(d contract.Duplicate) (int, bool) {
	kind, err := domain.ParseKind(d.Kind)
	if err != nil {
		return 0, false
	}
	pos, ok := s.index[domain.KeyOf(kind, d.ID.String())]
	return pos, ok
}

// Duplicates returns the rows currently flagged as duplicates.
func (s *Sheet) Duplicates() []domain.PreviewItem {
	var out []domain.PreviewItem
	for _, item := range s.items {
		if item.Duplicate {
			out = append(out, item)
		}
	}
	return out
}

// ParseHours parses a non-negative decimal number of hours.
func ParseHours(value string) (float64, error) {
	hours, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number of hours", domain.ErrInvalidEdit, value)
	}
	if hours < 0 || math.IsNaN(hours) || math.IsInf(hours, 0) {
		return 0, fmt.Errorf("%w: hours must be a non-negative finite number, got %q", domain.ErrInvalidEdit, value)
	}
	return hours, nil
}
