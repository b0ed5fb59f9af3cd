package selection

import (
	"fmt"
	"strings"
)

// Level names the tree level a selection operation targets.
type Level int

const (
	LevelGroup Level = iota + 1
	LevelTemplate
	LevelSubtask
)

func (l Level) String() string {
	switch l {
	case LevelGroup:
		return "group"
	case LevelTemplate:
		return "template"
	case LevelSubtask:
		return "subtask"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Op is one user selection change.
type Op struct {
	Level      Level
	GroupID    string
	TemplateID string
	SubtaskID  string
	On         bool
}

func GroupOp(groupID string, on bool) Op {
	return Op{Level: LevelGroup, GroupID: groupID, On: on}
}

func TemplateOp(groupID, templateID string, on bool) Op {
	return Op{Level: LevelTemplate, GroupID: groupID, TemplateID: templateID, On: on}
}

func SubtaskOp(groupID, templateID, subtaskID string, on bool) Op {
	return Op{Level: LevelSubtask, GroupID: groupID, TemplateID: templateID, SubtaskID: subtaskID, On: on}
}

// ParseOp parses a slash-separated path: "g", "g/t" or "g/t/s".
func ParseOp(path string, on bool) (Op, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return Op{}, fmt.Errorf("invalid selection path %q: empty segment", path)
		}
	}
	switch len(parts) {
	case 1:
		return GroupOp(parts[0], on), nil
	case 2:
		return TemplateOp(parts[0], parts[1], on), nil
	case 3:
		return SubtaskOp(parts[0], parts[1], parts[2], on), nil
	}
	return Op{}, fmt.Errorf("invalid selection path %q: expected group[/template[/subtask]]", path)
}

// Seed is the initial selection a session opens with. Operations are
// applied groups first, then templates, then subtasks.
type Seed struct {
	Groups    []string
	Templates []TemplateKey
	Subtasks  []SubtaskKey
}

// Ops expands the seed into selection operations.
func (sd Seed) Ops() []Op {
	ops := make([]Op, 0, len(sd.Groups)+len(sd.Templates)+len(sd.Subtasks))
	for _, g := range sd.Groups {
		ops = append(ops, GroupOp(g, true))
	}
	for _, t := range sd.Templates {
		ops = append(ops, TemplateOp(t.GroupID, t.TemplateID, true))
	}
	for _, st := range sd.Subtasks {
		ops = append(ops, SubtaskOp(st.GroupID, st.TemplateID, st.SubtaskID, true))
	}
	return ops
}

// SeedFromOps collects "on" operations into a seed.
func SeedFromOps(ops []Op) Seed {
	var sd Seed
	for _, op := range ops {
		if !op.On {
			continue
		}
		switch op.Level {
		case LevelGroup:
			sd.Groups = append(sd.Groups, op.GroupID)
		case LevelTemplate:
			sd.Templates = append(sd.Templates, TemplateKey{op.GroupID, op.TemplateID})
		case LevelSubtask:
			sd.Subtasks = append(sd.Subtasks, SubtaskKey{op.GroupID, op.TemplateID, op.SubtaskID})
		}
	}
	return sd
}
