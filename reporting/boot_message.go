// Package reporting posts boot progress and the final status report to the
// log channel.
package reporting

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/EasterCompany/dex-leveling-service/constants"
	dexlog "github.com/EasterCompany/dex-leveling-service/log"
	"github.com/bwmarrin/discordgo"
)

// Poster is the subset of *discordgo.Session the boot message needs.
type Poster interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// BootMessage handles the startup message.
type BootMessage struct {
	poster    Poster
	channelID string
	logger    *slog.Logger

	mu        sync.Mutex
	messageID string
	steps     []string
}

// NewBootMessage creates a new BootMessage. An empty channelID makes every
// call a no-op.
func NewBootMessage(poster Poster, channelID string, logger *slog.Logger) *BootMessage {
	return &BootMessage{poster: poster, channelID: channelID, logger: dexlog.Named(logger, "reporting")}
}

// PostInitialMessage posts the initial startup message.
func (b *BootMessage) PostInitialMessage() {
	if b.channelID == "" {
		return
	}
	msg, err := b.poster.ChannelMessageSend(b.channelID, constants.BootMessageHeader)
	if err != nil {
		b.logger.Warn("failed to post initial boot message", dexlog.Err(err))
		return
	}
	b.mu.Lock()
	b.messageID = msg.ID
	b.mu.Unlock()
}

// Step appends a completed step to the startup message.
func (b *BootMessage) Step(line string) {
	b.mu.Lock()
	b.steps = append(b.steps, line)
	content := constants.BootMessageHeader + "\n" + strings.Join(b.steps, "\n")
	id := b.messageID
	b.mu.Unlock()
	b.edit(id, content)
}

// Finish replaces the startup message with the final report.
func (b *BootMessage) Finish(report string) {
	b.mu.Lock()
	id := b.messageID
	b.mu.Unlock()
	b.edit(id, report)
}

func (b *BootMessage) edit(messageID, content string) {
	if messageID == "" {
		return
	}
	if _, err := b.poster.ChannelMessageEdit(b.channelID, messageID, content); err != nil {
		b.logger.Warn("failed to update boot message", dexlog.Err(err))
	}
}
