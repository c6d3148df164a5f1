package bot

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/automod"
)

// RoleNamer returns the name of a guild role, or false when it is unknown.
type RoleNamer func(guildID, roleID snowflake.ID) (string, bool)

// ChannelNamer returns the name of a channel, or false when it is unknown.
type ChannelNamer func(channelID snowflake.ID) (string, bool)

// convertMessage builds the engine's view of a guild message.
func convertMessage(guildID snowflake.ID, msg discord.Message, roles RoleNamer, channels ChannelNamer) *automod.Message {
	out := &automod.Message{
		ID:        uint64(msg.ID),
		GuildID:   uint64(guildID),
		Author:    convertAuthor(guildID, msg.Author, msg.Member, roles),
		Channel:   automod.Channel{ID: uint64(msg.ChannelID)},
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
		EditedAt:  msg.EditedTimestamp,
	}

	if name, ok := channels(msg.ChannelID); ok {
		out.Channel.Name = name
	}

	for _, embed := range msg.Embeds {
		out.Embeds = append(out.Embeds, convertEmbed(embed))
	}

	for _, attachment := range msg.Attachments {
		out.Attachments = append(out.Attachments, attachment.Filename)
	}

	return out
}

func convertAuthor(guildID snowflake.ID, user discord.User, member *discord.Member, roles RoleNamer) automod.Author {
	author := automod.Author{
		ID:          uint64(user.ID),
		Username:    user.Username,
		DisplayName: user.EffectiveName(),
	}

	if member == nil {
		return author
	}

	if member.Nick != nil && *member.Nick != "" {
		author.DisplayName = *member.Nick
	}

	for _, roleID := range member.RoleIDs {
		role := automod.Role{ID: uint64(roleID)}
		if name, ok := roles(guildID, roleID); ok {
			role.Name = name
		}
		author.Roles = append(author.Roles, role)
	}

	return author
}

func convertEmbed(embed discord.Embed) automod.Embed {
	out := automod.Embed{
		Title:       embed.Title,
		Description: embed.Description,
	}

	if embed.Author != nil {
		out.AuthorName = embed.Author.Name
		out.AuthorURL = embed.Author.URL
	}

	if embed.Footer != nil {
		out.FooterText = embed.Footer.Text
	}

	for _, field := range embed.Fields {
		out.Fields = append(out.Fields, automod.EmbedField{Name: field.Name, Value: field.Value})
	}

	return out
}
