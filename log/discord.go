package log

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/EasterCompany/dex-leveling-service/utils"
	"github.com/bwmarrin/discordgo"
)

const maxMirrorLength = 1900

// Poster is the subset of *discordgo.Session used to mirror log records.
type Poster interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordMirror forwards ERROR records to a Discord channel once attached.
// Records logged before Attach only reach the console.
type DiscordMirror struct {
	mu        sync.RWMutex
	poster    Poster
	channelID string
	level     slog.Level
}

func NewDiscordMirror() *DiscordMirror {
	return &DiscordMirror{level: slog.LevelError}
}

// Attach starts mirroring to channelID. An empty channel disables mirroring.
func (m *DiscordMirror) Attach(p Poster, channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poster = p
	m.channelID = channelID
}

// Detach stops mirroring.
func (m *DiscordMirror) Detach() {
	m.Attach(nil, "")
}

// Wrap returns a handler that delegates to next and mirrors qualifying records.
func (m *DiscordMirror) Wrap(next slog.Handler) slog.Handler {
	return &mirrorHandler{next: next, mirror: m}
}

func (m *DiscordMirror) post(r slog.Record, attrs []slog.Attr, groups []string) {
	m.mu.RLock()
	p, channelID := m.poster, m.channelID
	m.mu.RUnlock()
	if p == nil || channelID == "" {
		return
	}
	// A failed mirror cannot itself be logged without recursion.
	_, _ = p.ChannelMessageSend(channelID, formatRecord(r, attrs, groups))
}

func formatRecord(r slog.Record, attrs []slog.Attr, groups []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s", r.Level, r.Time.Format("2006-01-02 15:04:05"), r.Message)

	prefix := strings.Join(groups, ".")
	write := func(a slog.Attr) bool {
		key := a.Key
		if prefix != "" {
			key = prefix + "." + key
		}
		fmt.Fprintf(&b, "\n%s=%v", key, a.Value.Resolve())
		return true
	}
	for _, a := range attrs {
		write(a)
	}
	r.Attrs(write)

	msg := b.String()
	if chunks := utils.ChunkString(msg, maxMirrorLength); len(chunks) > 1 {
		msg = chunks[0] + "..."
	}
	return "```\n" + msg + "\n```"
}

type mirrorHandler struct {
	next   slog.Handler
	mirror *DiscordMirror
	attrs  []slog.Attr
	groups []string
}

func (h *mirrorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level) || level >= h.mirror.level
}

func (h *mirrorHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if h.next.Enabled(ctx, r.Level) {
		err = h.next.Handle(ctx, r)
	}
	if r.Level >= h.mirror.level {
		h.mirror.post(r, h.attrs, h.groups)
	}
	return err
}

func (h *mirrorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &mirrorHandler{
		next:   h.next.WithAttrs(attrs),
		mirror: h.mirror,
		attrs:  append(append([]slog.Attr{}, h.attrs...), attrs...),
		groups: h.groups,
	}
}

func (h *mirrorHandler) WithGroup(name string) slog.Handler {
	return &mirrorHandler{
		next:   h.next.WithGroup(name),
		mirror: h.mirror,
		attrs:  h.attrs,
		groups: append(append([]string{}, h.groups...), name),
	}
}
