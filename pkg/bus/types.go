package bus

// Platform identifies the chat surface a message came from or goes to.
type Platform string

const (
	PlatformTwitch  Platform = "twitch"
	PlatformDiscord Platform = "discord"
	PlatformWeb     Platform = "web"
	PlatformCLI     Platform = "cli"
)

// InboundMessage is the normalized shape every connector produces.
// Connectors do no gating of their own; the engine decides.
type InboundMessage struct {
	Platform Platform
	// Author is the platform username as displayed, not yet normalized.
	Author  string
	Content string
	// ChatID routes the eventual reply back to the right room/channel.
	ChatID string
	// Forced requests a response regardless of mention detection, e.g.
	// from a direct command. The arbiter still applies self-suppression
	// and the rate ceiling.
	Forced bool
}

// OutboundMessage is a reply routed back to the originating connector.
type OutboundMessage struct {
	Platform Platform
	ChatID   string
	Content  string
}
