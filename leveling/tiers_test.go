package leveling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTiers(t *testing.T) TierRoleMap {
	t.Helper()
	m, err := NewTierRoleMap([]Tier{
		{Level: 10, RoleID: "r10"},
		{Level: 1, RoleID: "r1"},
		{Level: 5, RoleID: "r5"},
	})
	require.NoError(t, err)
	return m
}

func TestNewTierRoleMap_Sorts(t *testing.T) {
	m := testTiers(t)
	assert.Equal(t, []string{"r1", "r5", "r10"}, m.All())
	assert.Equal(t, 3, m.Len())
}

func TestNewTierRoleMap_Rejects(t *testing.T) {
	_, err := NewTierRoleMap([]Tier{{Level: 1, RoleID: "a"}, {Level: 1, RoleID: "b"}})
	assert.Error(t, err)

	_, err = NewTierRoleMap([]Tier{{Level: 1, RoleID: "a"}, {Level: 2, RoleID: "a"}})
	assert.Error(t, err)

	_, err = NewTierRoleMap([]Tier{{Level: 1}})
	assert.Error(t, err)

	_, err = NewTierRoleMap([]Tier{{Level: -1, RoleID: "a"}})
	assert.Error(t, err)
}

func TestTarget(t *testing.T) {
	m := testTiers(t)
	assert.Empty(t, m.Target(0))
	assert.Equal(t, []string{"r1"}, m.Target(4))
	assert.Equal(t, []string{"r1", "r5"}, m.Target(5))
	assert.Equal(t, []string{"r1", "r5", "r10"}, m.Target(99))
}

func TestDiff_PromotionAndDemotion(t *testing.T) {
	m := testTiers(t)

	up := m.Diff(5, []string{"other", "r1"})
	assert.Equal(t, []string{"r5"}, up.ToAdd)
	assert.Empty(t, up.ToRemove)

	down := m.Diff(1, []string{"r1", "r5", "r10", "other"})
	assert.Empty(t, down.ToAdd)
	assert.Equal(t, []string{"r5", "r10"}, down.ToRemove)

	reset := m.Diff(0, []string{"r1", "r5"})
	assert.Equal(t, []string{"r1", "r5"}, reset.ToRemove)
}

func TestDiff_Idempotent(t *testing.T) {
	m := testTiers(t)
	roles := []string{"other"}
	first := m.Diff(7, roles)
	roles = append(roles, first.ToAdd...)
	second := m.Diff(7, roles)
	assert.True(t, second.Empty())
}

func TestHighest(t *testing.T) {
	m := testTiers(t)
	tier, ok := m.Highest([]string{"r1", "x", "r5"})
	require.True(t, ok)
	assert.Equal(t, Tier{Level: 5, RoleID: "r5"}, tier)

	_, ok = m.Highest([]string{"x"})
	assert.False(t, ok)
}
