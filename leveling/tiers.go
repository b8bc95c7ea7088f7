package leveling

import (
	"fmt"
	"sort"
)

// Tier grants RoleID to every member at or above Level.
type Tier struct {
	Level  int64
	RoleID string
}

// TierRoleMap is an ordered, strictly increasing level → role table.
type TierRoleMap struct {
	tiers []Tier
	roles map[string]int64
}

// NewTierRoleMap validates and sorts tiers.
func NewTierRoleMap(tiers []Tier) (TierRoleMap, error) {
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })

	roles := make(map[string]int64, len(sorted))
	for i, t := range sorted {
		if t.Level < 0 {
			return TierRoleMap{}, fmt.Errorf("tier level %d is negative", t.Level)
		}
		if t.RoleID == "" {
			return TierRoleMap{}, fmt.Errorf("tier level %d has no role", t.Level)
		}
		if i > 0 && sorted[i-1].Level == t.Level {
			return TierRoleMap{}, fmt.Errorf("tier level %d is defined twice", t.Level)
		}
		if _, dup := roles[t.RoleID]; dup {
			return TierRoleMap{}, fmt.Errorf("role %s is bound to more than one tier", t.RoleID)
		}
		roles[t.RoleID] = t.Level
	}
	return TierRoleMap{tiers: sorted, roles: roles}, nil
}

// Tiers returns a copy of the table in level order.
func (m TierRoleMap) Tiers() []Tier {
	out := make([]Tier, len(m.tiers))
	copy(out, m.tiers)
	return out
}

// Len reports the number of tiers.
func (m TierRoleMap) Len() int { return len(m.tiers) }

// IsTierRole reports whether roleID belongs to any tier.
func (m TierRoleMap) IsTierRole(roleID string) bool {
	_, ok := m.roles[roleID]
	return ok
}

// Target returns the roles a member at level should hold, lowest tier first.
func (m TierRoleMap) Target(level int64) []string {
	var out []string
	for _, t := range m.tiers {
		if t.Level > level {
			break
		}
		out = append(out, t.RoleID)
	}
	return out
}

// All returns every tier role, lowest tier first.
func (m TierRoleMap) All() []string {
	out := make([]string, 0, len(m.tiers))
	for _, t := range m.tiers {
		out = append(out, t.RoleID)
	}
	return out
}

// Held filters current down to tier roles, in tier order.
func (m TierRoleMap) Held(current []string) []string {
	have := make(map[string]struct{}, len(current))
	for _, id := range current {
		have[id] = struct{}{}
	}
	var out []string
	for _, t := range m.tiers {
		if _, ok := have[t.RoleID]; ok {
			out = append(out, t.RoleID)
		}
	}
	return out
}

// Highest returns the highest tier among roleIDs.
func (m TierRoleMap) Highest(roleIDs []string) (Tier, bool) {
	var (
		best  Tier
		found bool
	)
	for _, id := range roleIDs {
		level, ok := m.roles[id]
		if !ok {
			continue
		}
		if !found || level > best.Level {
			best = Tier{Level: level, RoleID: id}
			found = true
		}
	}
	return best, found
}

// Diff is the role change needed to bring a member to a level's target set.
type Diff struct {
	ToAdd    []string
	ToRemove []string
}

// Empty reports whether no mutation is required.
func (d Diff) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0
}

// Diff computes target(level) - held(current) and held(current) - target(level).
// Non-tier roles in current are never touched.
func (m TierRoleMap) Diff(level int64, current []string) Diff {
	held := make(map[string]struct{})
	for _, id := range m.Held(current) {
		held[id] = struct{}{}
	}
	var d Diff
	for _, t := range m.tiers {
		_, has := held[t.RoleID]
		want := t.Level <= level
		switch {
		case want && !has:
			d.ToAdd = append(d.ToAdd, t.RoleID)
		case !want && has:
			d.ToRemove = append(d.ToRemove, t.RoleID)
		}
	}
	return d
}
