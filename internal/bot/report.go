package bot

import (
	"strconv"

	"github.com/disgoorg/disgo/discord"
	"github.com/robalyx/warden/internal/automod/response"
)

const (
	colorSuccess = 0x2ECC71
	colorFailure = 0xE74C3C
)

// ReportEmbed renders a rule execution report.
func ReportEmbed(r *response.Report) discord.Embed {
	color := colorSuccess
	for _, line := range r.Lines {
		if !line.Success {
			color = colorFailure
			break
		}
	}

	title := "Rule triggered: " + r.RuleLabel
	if r.Edited {
		title += " (edited message)"
	}

	summary := r.Summary()
	if summary == "" {
		summary = "No actions configured."
	}

	excerpt := r.Excerpt
	if excerpt == "" {
		excerpt = "*No text content*"
	}

	return discord.NewEmbedBuilder().
		SetTitle(title).
		SetDescription(summary).
		SetColor(color).
		AddField("Author", r.AuthorLine(), false).
		AddField("Channel", r.ChannelLine(), false).
		AddField("Message", excerpt, false).
		SetFooterText("Message ID " + strconv.FormatUint(r.MessageID, 10)).
		SetTimestamp(r.Timestamp).
		Build()
}
