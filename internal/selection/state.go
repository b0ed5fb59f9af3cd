// Package selection holds the per-level selected-ID sets of one assignment
// session and applies the propagation rules between levels.
package selection

import (
	"sort"

	"github.com/alexanderramin/tasktree/internal/domain"
)

// Tree is the lookup surface the selection rules need.
type Tree interface {
	Group(id string) (domain.Group, bool)
	TemplatesOf(groupID string) []domain.Template
	SubtasksOf(templateID string) []domain.Subtask
	HasTemplate(groupID, templateID string) bool
	HasSubtask(templateID, subtaskID string) bool
}

// TemplateKey addresses a template as listed under a group.
type TemplateKey struct {
	GroupID    string
	TemplateID string
}

// SubtaskKey addresses a subtask as listed under a group's template.
type SubtaskKey struct {
	GroupID    string
	TemplateID string
	SubtaskID  string
}

// TemplateEntry is a selected template with its provenance. Explicit is
// false when the template is only present because one of its subtasks was
// selected.
type TemplateEntry struct {
	TemplateKey
	Explicit bool
}

// State is the mutable selection of one session. All operations are total:
// IDs the tree does not know are treated as already absent.
type State struct {
	tree      Tree
	groups    map[string]struct{}
	templates map[string]map[string]bool // group -> template -> explicit
	subtasks  map[TemplateKey]map[string]struct{}
}

func New(tree Tree) *State {
	return &State{
		tree:      tree,
		groups:    make(map[string]struct{}),
		templates: make(map[string]map[string]bool),
		subtasks:  make(map[TemplateKey]map[string]struct{}),
	}
}

// SelectGroup selects or clears a group. Selecting marks every template of
// the group and every subtask of those templates; clearing removes all
// template and subtask selections rooted at the group.
func (s *State) SelectGroup(groupID string, on bool) {
	if _, ok := s.tree.Group(groupID); !ok {
		return
	}
	if !on {
		delete(s.groups, groupID)
		s.clearGroup(groupID)
		return
	}
	s.groups[groupID] = struct{}{}
	for _, t := range s.tree.TemplatesOf(groupID) {
		s.selectTemplate(groupID, t.ID)
	}
}

// SelectTemplate selects or clears one template of a group. Selecting also
// selects all of its subtasks but never the group itself.
func (s *State) SelectTemplate(groupID, templateID string, on bool) {
	if !s.tree.HasTemplate(groupID, templateID) {
		return
	}
	if !on {
		s.removeTemplate(groupID, templateID)
		delete(s.subtasks, TemplateKey{groupID, templateID})
		return
	}
	s.selectTemplate(groupID, templateID)
}

// SelectSubtask selects or clears one subtask. Selecting promotes the parent
// template into the selection if it was absent; clearing the last subtask of
// a promoted template drops the template again.
func (s *State) SelectSubtask(groupID, templateID, subtaskID string, on bool) {
	if !s.tree.HasTemplate(groupID, templateID) || !s.tree.HasSubtask(templateID, subtaskID) {
		return
	}
	key := TemplateKey{groupID, templateID}
	if !on {
		set, ok := s.subtasks[key]
		if !ok {
			return
		}
		delete(set, subtaskID)
		if len(set) > 0 {
			return
		}
		delete(s.subtasks, key)
		if explicit, ok := s.templates[groupID][templateID]; ok && !explicit {
			s.removeTemplate(groupID, templateID)
		}
		return
	}

	s.addSubtask(key, subtaskID)
	if _, ok := s.templates[groupID][templateID]; !ok {
		s.templateSet(groupID)[templateID] = false
	}
}

// Apply performs a single selection operation.
func (s *State) Apply(op Op) {
	switch op.Level {
	case LevelGroup:
		s.SelectGroup(op.GroupID, op.On)
	case LevelTemplate:
		s.SelectTemplate(op.GroupID, op.TemplateID, op.On)
	case LevelSubtask:
		s.SelectSubtask(op.GroupID, op.TemplateID, op.SubtaskID, op.On)
	}
}

func (s *State) IsGroupSelected(groupID string) bool {
	_, ok := s.groups[groupID]
	return ok
}

// IsTemplateSelected reports presence regardless of provenance.
func (s *State) IsTemplateSelected(groupID, templateID string) bool {
	_, ok := s.templates[groupID][templateID]
	return ok
}

func (s *State) IsTemplateExplicit(groupID, templateID string) bool {
	return s.templates[groupID][templateID]
}

func (s *State) IsSubtaskSelected(groupID, templateID, subtaskID string) bool {
	_, ok := s.subtasks[TemplateKey{groupID, templateID}][subtaskID]
	return ok
}

// Empty reports whether nothing at all is selected.
func (s *State) Empty() bool {
	return len(s.groups) == 0 && len(s.templates) == 0 && len(s.subtasks) == 0
}

// Groups returns the selected group IDs in lexical order.
func (s *State) Groups() []string {
	out := make([]string, 0, len(s.groups))
	for id := range s.groups {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Templates returns the selected templates ordered by group then template ID.
func (s *State) Templates() []TemplateEntry {
	var out []TemplateEntry
	for g, set := range s.templates {
		for t, explicit := range set {
			out = append(out, TemplateEntry{TemplateKey: TemplateKey{g, t}, Explicit: explicit})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GroupID != out[j].GroupID {
			return out[i].GroupID < out[j].GroupID
		}
		return out[i].TemplateID < out[j].TemplateID
	})
	return out
}

// Subtasks returns the selected subtasks ordered by group, template and
// subtask ID.
func (s *State) Subtasks() []SubtaskKey {
	var out []SubtaskKey
	for key, set := range s.subtasks {
		for id := range set {
			out = append(out, SubtaskKey{GroupID: key.GroupID, TemplateID: key.TemplateID, SubtaskID: id})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.GroupID != b.GroupID {
			return a.GroupID < b.GroupID
		}
		if a.TemplateID != b.TemplateID {
			return a.TemplateID < b.TemplateID
		}
		return a.SubtaskID < b.SubtaskID
	})
	return out
}

// Clone returns an independent copy bound to the same tree.
func (s *State) Clone() *State {
	c := New(s.tree)
	for g := range s.groups {
		c.groups[g] = struct{}{}
	}
	for g, set := range s.templates {
		cs := make(map[string]bool, len(set))
		for t, explicit := range set {
			cs[t] = explicit
		}
		c.templates[g] = cs
	}
	for key, set := range s.subtasks {
		cs := make(map[string]struct{}, len(set))
		for id := range set {
			cs[id] = struct{}{}
		}
		c.subtasks[key] = cs
	}
	return c
}

func (s *State) selectTemplate(groupID, templateID string) {
	s.templateSet(groupID)[templateID] = true
	key := TemplateKey{groupID, templateID}
	for _, st := range s.tree.SubtasksOf(templateID) {
		s.addSubtask(key, st.ID)
	}
}

func (s *State) templateSet(groupID string) map[string]bool {
	set, ok := s.templates[groupID]
	if !ok {
		set = make(map[string]bool)
		s.templates[groupID] = set
	}
	return set
}

func (s *State) addSubtask(key TemplateKey, subtaskID string) {
	set, ok := s.subtasks[key]
	if !ok {
		set = make(map[string]struct{})
		s.subtasks[key] = set
	}
	set[subtaskID] = struct{}{}
}

func (s *State) removeTemplate(groupID, templateID string) {
	set, ok := s.templates[groupID]
	if !ok {
		return
	}
	delete(set, templateID)
	if len(set) == 0 {
		delete(s.templates, groupID)
	}
}

func (s *State) clearGroup(groupID string) {
	delete(s.templates, groupID)
	for key := range s.subtasks {
		if key.GroupID == groupID {
			delete(s.subtasks, key)
		}
	}
}
