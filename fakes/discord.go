package fakes

import (
	"context"
	"fmt"
	"sync"

	"github.com/EasterCompany/dex-leveling-service/interfaces"
)

// Announcer records announcements.
type Announcer struct {
	Err error

	mu   sync.Mutex
	sent []interfaces.Announcement
}

func (a *Announcer) Announce(_ context.Context, ann interfaces.Announcement) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return a.Err
	}
	a.sent = append(a.sent, ann)
	return nil
}

func (a *Announcer) Sent() []interfaces.Announcement {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]interfaces.Announcement(nil), a.sent...)
}

// Channels is a static interfaces.ChannelLocator.
type Channels struct {
	// Owners maps channel ID to guild ID.
	Owners   map[string]string
	System   map[string]string
	Writable map[string]string
}

func (c *Channels) ChannelGuild(_ context.Context, channelID string) (string, error) {
	return c.Owners[channelID], nil
}

func (c *Channels) SystemChannel(_ context.Context, guildID string) (string, error) {
	return c.System[guildID], nil
}

func (c *Channels) FirstWritableChannel(_ context.Context, guildID string) (string, error) {
	return c.Writable[guildID], nil
}

// Directory serves members from a map keyed by "guild/user".
type Directory struct {
	Members map[string]*Member
	Names   map[string]string
}

func (d *Directory) Add(m *Member) {
	if d.Members == nil {
		d.Members = map[string]*Member{}
	}
	d.Members[m.Guild+"/"+m.User] = m
}

func (d *Directory) Member(_ context.Context, guildID, userID string) (interfaces.Member, error) {
	m, ok := d.Members[guildID+"/"+userID]
	if !ok {
		return nil, fmt.Errorf("member %s not found in %s", userID, guildID)
	}
	return m, nil
}

func (d *Directory) DisplayName(_ context.Context, _, userID string) string {
	if name, ok := d.Names[userID]; ok {
		return name
	}
	return userID
}

// Voice is a fixed interfaces.VoiceSource.
type Voice struct {
	mu       sync.Mutex
	Channels []interfaces.VoiceChannel
	Err      error
	calls    int
}

func (v *Voice) VoiceChannels(context.Context) ([]interfaces.VoiceChannel, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	return v.Channels, v.Err
}

func (v *Voice) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}
