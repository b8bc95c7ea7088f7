package commands

import (
	"github.com/bwmarrin/discordgo"
)

// Authority answers ownership and permission questions about a member.
type Authority interface {
	IsGuildOwner(guildID, userID string) bool
	Permissions(guildID, userID, channelID string) (int64, error)
}

// PermissionChecker gates the admin command group.
type PermissionChecker struct {
	whitelist map[string]struct{}
	authority Authority
}

// NewPermissionChecker creates a new permission checker
func NewPermissionChecker(whitelist []string, authority Authority) *PermissionChecker {
	allowed := make(map[string]struct{}, len(whitelist))
	for _, id := range whitelist {
		allowed[id] = struct{}{}
	}
	return &PermissionChecker{whitelist: allowed, authority: authority}
}

// CanAdminister reports whether userID may adjust levels in guildID.
// Whitelisted users and the guild owner always can; anyone else needs
// Manage Server or Administrator in the invoking channel.
func (pc *PermissionChecker) CanAdminister(guildID, channelID, userID string) bool {
	if _, ok := pc.whitelist[userID]; ok {
		return true
	}
	if guildID == "" {
		return false
	}
	if pc.authority.IsGuildOwner(guildID, userID) {
		return true
	}
	perms, err := pc.authority.Permissions(guildID, userID, channelID)
	if err != nil {
		return false
	}
	return perms&(discordgo.PermissionManageGuild|discordgo.PermissionAdministrator) != 0
}
