// Package interfaces decouples the leveling core from the Discord SDK.
package interfaces

import "context"

// Member is one user's membership in one guild.
type Member interface {
	GuildID() string
	UserID() string
	Bot() bool
	RoleIDs() []string
	// AddRoles and RemoveRoles apply a batch of role changes in one call.
	AddRoles(ctx context.Context, roleIDs []string, reason string) error
	RemoveRoles(ctx context.Context, roleIDs []string, reason string) error
}

// Directory resolves members and display names.
type Directory interface {
	Member(ctx context.Context, guildID, userID string) (Member, error)
	DisplayName(ctx context.Context, guildID, userID string) string
}

// Reachability reports which users share at least one guild with the bot.
type Reachability interface {
	GuildCount() int
	ReachableUsers(ctx context.Context) (map[string]struct{}, error)
}
