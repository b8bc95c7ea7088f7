package leaderboard

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	dexlog "github.com/EasterCompany/dex-leveling-service/log"
	"github.com/EasterCompany/dex-leveling-service/metrics"
	"github.com/google/uuid"
)

const customIDPrefix = "leaderboard"

// Button actions.
const (
	ActionPrev = "prev"
	ActionNext = "next"
)

// CustomID encodes a button for pager id.
func CustomID(pagerID, action string) string {
	return customIDPrefix + ":" + pagerID + ":" + action
}

// ParseCustomID decodes a button produced by CustomID.
func ParseCustomID(customID string) (pagerID, action string, ok bool) {
	parts := strings.Split(customID, ":")
	if len(parts) != 3 || parts[0] != customIDPrefix {
		return "", "", false
	}
	if parts[2] != ActionPrev && parts[2] != ActionNext {
		return "", "", false
	}
	return parts[1], parts[2], true
}

type session struct {
	pager *Pager
	timer *time.Timer
}

// Manager owns open pagers and expires them after an idle window.
type Manager struct {
	source   Source
	pageSize int
	idle     time.Duration
	onExpire func(*Pager)
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// NewManager creates a Manager. onExpire runs on the timer goroutine after a
// pager has been disabled for inactivity.
func NewManager(source Source, pageSize int, idle time.Duration, onExpire func(*Pager), m *metrics.Metrics, logger *slog.Logger) *Manager {
	return &Manager{
		source:   source,
		pageSize: pageSize,
		idle:     idle,
		onExpire: onExpire,
		metrics:  m,
		logger:   dexlog.Named(logger, "leaderboard"),
		sessions: make(map[string]*session),
	}
}

// Open starts a pager for ownerID on guildID and renders its first page.
func (m *Manager) Open(ctx context.Context, guildID, ownerID string) (*Pager, Page, error) {
	users, err := m.source.Count(ctx, guildID)
	if err != nil {
		return nil, Page{}, err
	}
	if users == 0 {
		return nil, Page{}, ErrEmpty
	}

	p := NewPager(uuid.NewString(), guildID, ownerID, users, m.pageSize, m.source)
	page, err := p.Render(ctx)
	if err != nil {
		return nil, Page{}, err
	}

	m.mu.Lock()
	m.sessions[p.ID] = &session{
		pager: p,
		timer: time.AfterFunc(m.idle, func() { m.expire(p.ID) }),
	}
	m.mu.Unlock()
	m.metrics.LeaderboardOpened()
	return p, page, nil
}

// Lookup returns an open pager.
func (m *Manager) Lookup(id string) (*Pager, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return s.pager, true
}

// Touch restarts the idle window of an open pager.
func (m *Manager) Touch(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.timer.Reset(m.idle)
	}
}

// Close disables and forgets a pager without calling onExpire.
func (m *Manager) Close(id string) {
	if s := m.remove(id); s != nil {
		s.timer.Stop()
		s.pager.Disable()
	}
}

// Len is the number of open pagers.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown expires every open pager immediately.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id, s := range m.sessions {
		s.timer.Stop()
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.expire(id)
	}
}

func (m *Manager) remove(id string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	delete(m.sessions, id)
	m.metrics.LeaderboardClosed()
	return s
}

func (m *Manager) expire(id string) {
	s := m.remove(id)
	if s == nil {
		return
	}
	s.pager.Disable()
	m.logger.Debug("leaderboard expired", "pager", id, "guild", s.pager.GuildID)
	if m.onExpire != nil {
		m.onExpire(s.pager)
	}
}
