package domain

import (
	"fmt"
	"strings"
)

// Kind classifies an item by its role in a closure.
type Kind string

const (
	KindCategory Kind = "category"
	KindGroup    Kind = "group"
	KindTemplate Kind = "template"
	KindSubtask  Kind = "subtask"
)

// Tier is the backend table an ID belongs to. Templates and subtasks share
// the task tier, so the same ID may be presented as either.
type Tier string

const (
	TierCategory Tier = "category"
	TierGroup    Tier = "group"
	TierTask     Tier = "task"
)

// Tier returns the ID space the kind lives in.
func (k Kind) Tier() Tier {
	switch k {
	case KindCategory:
		return TierCategory
	case KindGroup:
		return TierGroup
	default:
		return TierTask
	}
}

// Level orders kinds root first; used for sorting preview output.
func (k Kind) Level() int {
	switch k {
	case KindCategory:
		return 0
	case KindGroup:
		return 1
	case KindTemplate:
		return 2
	case KindSubtask:
		return 3
	default:
		return 4
	}
}

func (k Kind) Valid() bool {
	switch k {
	case KindCategory, KindGroup, KindTemplate, KindSubtask:
		return true
	}
	return false
}

// ParseKind accepts the engine's kind names as well as the backend's
// "story"/"task" vocabulary.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "category", "super", "task_super":
		return KindCategory, nil
	case "group", "task_group":
		return KindGroup, nil
	case "template", "story":
		return KindTemplate, nil
	case "subtask", "task":
		return KindSubtask, nil
	}
	return "", fmt.Errorf("unknown item kind %q", s)
}

type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectPaused   ProjectStatus = "paused"
	ProjectDone     ProjectStatus = "done"
	ProjectArchived ProjectStatus = "archived"
)

// ValidProjectStatuses is the canonical set of accepted project status strings.
var ValidProjectStatuses = map[string]bool{
	"active": true, "paused": true, "done": true, "archived": true,
}
