package session

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Responder sends command replies and drives leaderboard messages.
type Responder struct {
	api API
}

func NewResponder(api API) *Responder {
	return &Responder{api: api}
}

// Reply posts plain text with mentions suppressed.
func (r *Responder) Reply(ctx context.Context, channelID, content string) error {
	_, err := r.api.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to reply in %s: %w", channelID, err)
	}
	return nil
}

// SendEmbed posts an embed and returns the new message ID.
func (r *Responder) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) (string, error) {
	msg, err := r.api.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:          []*discordgo.MessageEmbed{embed},
		Components:      components,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to send embed in %s: %w", channelID, err)
	}
	if msg == nil {
		return "", nil
	}
	return msg.ID, nil
}

// EditComponents replaces the buttons on an existing message.
func (r *Responder) EditComponents(ctx context.Context, channelID, messageID string, components []discordgo.MessageComponent) error {
	_, err := r.api.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         messageID,
		Channel:    channelID,
		Components: &components,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to edit message %s: %w", messageID, err)
	}
	return nil
}

// UpdateInteraction rewrites the message a component interaction came from.
func (r *Responder) UpdateInteraction(ctx context.Context, i *discordgo.Interaction, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	err := r.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to update interaction %s: %w", i.ID, err)
	}
	return nil
}

// Ephemeral answers an interaction with a message only the actor sees.
func (r *Responder) Ephemeral(ctx context.Context, i *discordgo.Interaction, content string) error {
	err := r.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to respond to interaction %s: %w", i.ID, err)
	}
	return nil
}
