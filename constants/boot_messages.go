// Package constants provides constants for the application.
package constants

const (
	ServiceName = "dex-leveling-service"

	BootMessageHeader = "`Dexter Leveling` is starting up..."

	BootStepDiscord = "✅ Discord connection established"
	BootStepStore   = "✅ Progress store connected"
	BootStepLoops   = "✅ Voice, cooldown and prune loops started"
	BootStepStatus  = "✅ Status server listening"
)
