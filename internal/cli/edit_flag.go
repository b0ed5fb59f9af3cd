package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/alexanderramin/tasktree/internal/domain"
	"github.com/alexanderramin/tasktree/internal/preview"
)

// previewEdit is one --rename or --budget value.
type previewEdit struct {
	Kind  domain.Kind
	ID    string
	Value string
}

// editFlag collects repeated "kind:id=value" flags for one preview field.
type editFlag struct {
	field preview.Field
	edits []previewEdit
}

var _ pflag.Value = (*editFlag)(nil)

func newEditFlag(field preview.Field) *editFlag {
	return &editFlag{field: field}
}

func (f *editFlag) String() string {
	parts := make([]string, 0, len(f.edits))
	for _, e := range f.edits {
		parts = append(parts, fmt.Sprintf("%s:%s=%s", e.Kind, e.ID, e.Value))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (f *editFlag) Type() string { return "kind:id=value" }

// Set parses "kind:id=value". Budgets are checked here so a bad number is
// reported before anything is fetched.
func (f *editFlag) Set(raw string) error {
	target, value, ok := strings.Cut(raw, "=")
	if !ok {
		return fmt.Errorf("expected kind:id=value, got %q", raw)
	}
	kindStr, id, ok := strings.Cut(target, ":")
	if !ok || strings.TrimSpace(id) == "" {
		return fmt.Errorf("expected kind:id=value, got %q", raw)
	}
	kind, err := domain.ParseKind(kindStr)
	if err != nil {
		return err
	}
	switch f.field {
	case preview.FieldName:
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: empty name for %s %s", domain.ErrInvalidEdit, kind, id)
		}
	case preview.FieldBudget:
		if _, err := preview.ParseHours(value); err != nil {
			return err
		}
	}
	f.edits = append(f.edits, previewEdit{Kind: kind, ID: strings.TrimSpace(id), Value: value})
	return nil
}

func (f *editFlag) Edits() []previewEdit {
	return f.edits
}
