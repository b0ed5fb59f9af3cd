package domain

// ItemKey identifies an item inside a closure. IDs are unique per tier, not
// globally.
type ItemKey struct {
	Tier Tier
	ID   string
}

// KeyOf builds the closure key for an item of the given kind.
func KeyOf(kind Kind, id string) ItemKey {
	return ItemKey{Tier: kind.Tier(), ID: id}
}

func (k ItemKey) String() string {
	return string(k.Tier) + ":" + k.ID
}

// PreviewItem is one entity of a closure as shown on the rename/budget step.
// Name and BudgetedHours are user-editable; Duplicate is only set after the
// backend reported a name collision.
type PreviewItem struct {
	ID            string
	Kind          Kind
	OriginalName  string
	Name          string
	BudgetedHours float64
	ParentID      string
	Rank          int
	Implicit      bool
	Duplicate     bool
}

func (p PreviewItem) Key() ItemKey {
	return KeyOf(p.Kind, p.ID)
}

// ParentKey returns the key of the declared parent. Categories have none.
func (p PreviewItem) ParentKey() (ItemKey, bool) {
	if p.ParentID == "" {
		return ItemKey{}, false
	}
	switch p.Kind {
	case KindGroup:
		return ItemKey{Tier: TierCategory, ID: p.ParentID}, true
	case KindTemplate:
		return ItemKey{Tier: TierGroup, ID: p.ParentID}, true
	case KindSubtask:
		return ItemKey{Tier: TierTask, ID: p.ParentID}, true
	}
	return ItemKey{}, false
}
