// Package leaderboard pages through a guild's ranking for one requester.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/EasterCompany/dex-leveling-service/store"
)

var (
	ErrNotOwner = errors.New("only the requester can control this leaderboard")
	ErrClosed   = errors.New("leaderboard has expired")
	ErrEmpty    = errors.New("leaderboard is empty")
)

// Source is the read side of the progress store.
type Source interface {
	Top(ctx context.Context, guildID string, page, pageSize int) ([]store.Progress, error)
	Count(ctx context.Context, guildID string) (int64, error)
}

// Entry is one ranked line.
type Entry struct {
	Rank   int
	UserID string
	XP     int64
	Level  int64
}

// Page is a rendered slice of the ranking.
type Page struct {
	Number  int
	Total   int
	Entries []Entry
}

func (p Page) First() bool { return p.Number <= 1 }
func (p Page) Last() bool  { return p.Number >= p.Total }

// TotalPages is ceil(users / pageSize).
func TotalPages(users int64, pageSize int) int {
	if users <= 0 || pageSize <= 0 {
		return 0
	}
	return int((users + int64(pageSize) - 1) / int64(pageSize))
}

// Pager is the state behind one leaderboard message. Only the owner may
// move it, and once disabled it rejects all input.
type Pager struct {
	ID       string
	GuildID  string
	OwnerID  string
	pageSize int
	source   Source

	mu        sync.Mutex
	current   int
	total     int
	closed    bool
	channelID string
	messageID string
}

func NewPager(id, guildID, ownerID string, users int64, pageSize int, source Source) *Pager {
	return &Pager{
		ID:       id,
		GuildID:  guildID,
		OwnerID:  ownerID,
		pageSize: pageSize,
		source:   source,
		current:  1,
		total:    TotalPages(users, pageSize),
	}
}

// Current returns the 1-indexed page and the page count.
func (p *Pager) Current() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.total
}

// Next advances one page; on the last page it re-renders in place.
func (p *Pager) Next(ctx context.Context, actorID string) (Page, error) {
	return p.move(ctx, actorID, 1)
}

// Prev goes back one page; on the first page it re-renders in place.
func (p *Pager) Prev(ctx context.Context, actorID string) (Page, error) {
	return p.move(ctx, actorID, -1)
}

func (p *Pager) move(ctx context.Context, actorID string, step int) (Page, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return Page{}, ErrClosed
	}
	if actorID != p.OwnerID {
		p.mu.Unlock()
		return Page{}, ErrNotOwner
	}
	if next := p.current + step; next >= 1 && next <= p.total {
		p.current = next
	}
	page := p.current
	p.mu.Unlock()

	return p.RenderPage(ctx, page)
}

// Render fetches the current page.
func (p *Pager) Render(ctx context.Context) (Page, error) {
	page, _ := p.Current()
	return p.RenderPage(ctx, page)
}

// RenderPage fetches exactly the given page's slice of the ranking.
func (p *Pager) RenderPage(ctx context.Context, page int) (Page, error) {
	rows, err := p.source.Top(ctx, p.GuildID, page, p.pageSize)
	if err != nil {
		return Page{}, fmt.Errorf("failed to render page %d: %w", page, err)
	}
	_, total := p.Current()
	out := Page{Number: page, Total: total, Entries: make([]Entry, len(rows))}
	start := (page-1)*p.pageSize + 1
	for i, r := range rows {
		out.Entries[i] = Entry{Rank: start + i, UserID: r.UserID, XP: r.XP, Level: r.Level}
	}
	return out, nil
}

// Disable makes the pager terminal.
func (p *Pager) Disable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *Pager) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Bind records the message the pager controls.
func (p *Pager) Bind(channelID, messageID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channelID, p.messageID = channelID, messageID
}

func (p *Pager) Message() (channelID, messageID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channelID, p.messageID
}
