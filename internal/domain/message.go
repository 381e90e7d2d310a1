package domain

// Platform identifies the chat platform a message or task belongs to.
type Platform string

const (
	PlatformTelegram Platform = "TELEGRAM"
	PlatformDiscord  Platform = "DISCORD"
)

// String returns the string representation of Platform.
func (p Platform) String() string {
	return string(p)
}

// IsValid checks if the platform is a known value.
func (p Platform) IsValid() bool {
	return p == PlatformTelegram || p == PlatformDiscord
}

// Message is a normalized chat event delivered by a session collaborator.
// Immutable once received.
type Message struct {
	Platform   Platform
	ChannelID  string
	AuthorID   string
	Text       string
	ReceivedAt int64 // Unix timestamp in milliseconds
}
