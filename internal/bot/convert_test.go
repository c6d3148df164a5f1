package bot

import (
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/automod"
	"github.com/stretchr/testify/assert"
)

func TestConvertMessage(t *testing.T) {
	t.Parallel()

	nick := "Nicky"
	global := "Global Name"
	edited := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)

	msg := discord.Message{
		ID:        100,
		ChannelID: 200,
		Content:   "hello",
		Author:    discord.User{ID: 300, Username: "user", GlobalName: &global},
		Member:    &discord.Member{Nick: &nick, RoleIDs: []snowflake.ID{400, 401}},
		Embeds: []discord.Embed{{
			Title:       "title",
			Description: "desc",
			Author:      &discord.EmbedAuthor{Name: "author", URL: "https://example.com"},
			Footer:      &discord.EmbedFooter{Text: "footer"},
			Fields:      []discord.EmbedField{{Name: "field", Value: "value"}},
		}},
		Attachments:     []discord.Attachment{{Filename: "cat.png"}},
		CreatedAt:       time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		EditedTimestamp: &edited,
	}

	roles := func(_, roleID snowflake.ID) (string, bool) {
		if roleID == 400 {
			return "Members", true
		}
		return "", false
	}
	channels := func(snowflake.ID) (string, bool) { return "general", true }

	got := convertMessage(1, msg, roles, channels)

	assert.Equal(t, &automod.Message{
		ID:      100,
		GuildID: 1,
		Author: automod.Author{
			ID:          300,
			Username:    "user",
			DisplayName: "Nicky",
			Roles:       []automod.Role{{ID: 400, Name: "Members"}, {ID: 401}},
		},
		Channel: automod.Channel{ID: 200, Name: "general"},
		Content: "hello",
		Embeds: []automod.Embed{{
			AuthorName:  "author",
			AuthorURL:   "https://example.com",
			Title:       "title",
			Description: "desc",
			Fields:      []automod.EmbedField{{Name: "field", Value: "value"}},
			FooterText:  "footer",
		}},
		Attachments: []string{"cat.png"},
		CreatedAt:   msg.CreatedAt,
		EditedAt:    &edited,
	}, got)
}

func TestConvertAuthorWithoutMember(t *testing.T) {
	t.Parallel()

	global := "Global Name"
	author := convertAuthor(1, discord.User{ID: 5, Username: "user", GlobalName: &global}, nil, nil)

	assert.Equal(t, automod.Author{ID: 5, Username: "user", DisplayName: "Global Name"}, author)
}
