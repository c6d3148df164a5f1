package automod

import "time"

// Message is a platform-independent view of a guild message create or edit event.
// It carries exactly what rule evaluation and response execution need.
type Message struct {
	ID          uint64
	GuildID     uint64
	Author      Author
	Channel     Channel
	Content     string
	Embeds      []Embed
	Attachments []string
	CreatedAt   time.Time
	// EditedAt is set when the event originates from a message edit.
	EditedAt *time.Time
}

// Timestamp returns the edit time for edited messages and the creation time otherwise.
func (m *Message) Timestamp() time.Time {
	if m.EditedAt != nil {
		return *m.EditedAt
	}
	return m.CreatedAt
}

// Author identifies the user who sent a message.
type Author struct {
	ID          uint64
	Username    string
	DisplayName string
	Roles       []Role
}

// Mention returns the platform mention markup for the author.
func (a Author) Mention() string {
	return "<@" + formatID(a.ID) + ">"
}

// Role is a role held by a message author.
type Role struct {
	ID   uint64
	Name string
}

// Channel identifies the channel a message was sent in.
type Channel struct {
	ID   uint64
	Name string
}

// Mention returns the platform mention markup for the channel.
func (c Channel) Mention() string {
	return "<#" + formatID(c.ID) + ">"
}

// Embed is a rich content block attached to a message.
type Embed struct {
	AuthorName  string
	AuthorURL   string
	Title       string
	Description string
	Fields      []EmbedField
	FooterText  string
}

// EmbedField is a single name/value pair of an embed.
type EmbedField struct {
	Name  string
	Value string
}
