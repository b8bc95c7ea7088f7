// Package fakes provides in-memory test doubles for the Discord-facing
// interfaces.
package fakes

import (
	"context"
	"slices"
	"sync"

	"github.com/EasterCompany/dex-leveling-service/interfaces"
)

// Member is an in-memory interfaces.Member.
type Member struct {
	Guild string
	User  string
	IsBot bool

	// AddErr and RemoveErr fail the respective call without changing roles.
	AddErr    error
	RemoveErr error

	mu          sync.Mutex
	roles       []string
	addCalls    [][]string
	removeCalls [][]string
}

var _ interfaces.Member = (*Member)(nil)

func NewMember(guildID, userID string, roles ...string) *Member {
	return &Member{Guild: guildID, User: userID, roles: roles}
}

func (m *Member) GuildID() string { return m.Guild }
func (m *Member) UserID() string  { return m.User }
func (m *Member) Bot() bool       { return m.IsBot }

func (m *Member) RoleIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.roles)
}

func (m *Member) AddRoles(_ context.Context, roleIDs []string, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addCalls = append(m.addCalls, slices.Clone(roleIDs))
	if m.AddErr != nil {
		return m.AddErr
	}
	for _, id := range roleIDs {
		if !slices.Contains(m.roles, id) {
			m.roles = append(m.roles, id)
		}
	}
	return nil
}

func (m *Member) RemoveRoles(_ context.Context, roleIDs []string, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeCalls = append(m.removeCalls, slices.Clone(roleIDs))
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	m.roles = slices.DeleteFunc(m.roles, func(id string) bool {
		return slices.Contains(roleIDs, id)
	})
	return nil
}

// AddCalls returns the role batches passed to AddRoles.
func (m *Member) AddCalls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.addCalls)
}

// RemoveCalls returns the role batches passed to RemoveRoles.
func (m *Member) RemoveCalls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.removeCalls)
}
