package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/json"
	"github.com/disgoorg/snowflake/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/robalyx/warden/internal/automod/response"
	"github.com/robalyx/warden/internal/modlog"
	"go.uber.org/zap"
)

// ModlogWriter records notes and warnings.
type ModlogWriter interface {
	Add(ctx context.Context, guildID, userID uint64, kind modlog.Kind, source, text string) (modlog.Entry, error)
}

// Actions performs moderation actions through the Discord REST API.
// Every call is a single attempt.
type Actions struct {
	rest       rest.Rest
	modlog     ModlogWriter
	guildNames *expirable.LRU[uint64, string]
	logger     *zap.Logger
}

var _ response.Actions = (*Actions)(nil)

// NewActions creates an Actions performing calls with the given REST client.
func NewActions(client rest.Rest, store ModlogWriter, logger *zap.Logger) *Actions {
	return &Actions{
		rest:       client,
		modlog:     store,
		guildNames: expirable.NewLRU[uint64, string](rosterCacheSize, nil, rosterCacheTTL),
		logger:     logger.Named("actions"),
	}
}

func (a *Actions) Ban(
	ctx context.Context, guildID uint64, source string, userID uint64, purgeDays int, reason string, notify bool,
) response.ActionResult {
	return a.removal(ctx, guildID, userID, "banned from", reason, notify, func() error {
		return a.rest.AddBan(snowflake.ID(guildID), snowflake.ID(userID),
			time.Duration(purgeDays)*24*time.Hour,
			rest.WithCtx(ctx), rest.WithReason(auditReason(source, reason)))
	})
}

func (a *Actions) Kick(
	ctx context.Context, guildID uint64, source string, userID uint64, reason string, notify bool,
) response.ActionResult {
	return a.removal(ctx, guildID, userID, "kicked from", reason, notify, func() error {
		return a.rest.RemoveMember(snowflake.ID(guildID), snowflake.ID(userID),
			rest.WithCtx(ctx), rest.WithReason(auditReason(source, reason)))
	})
}

// removal notifies the member before removing them, since they can no longer be
// messaged afterwards. A notice for a removal that then fails is retracted.
func (a *Actions) removal(
	ctx context.Context, guildID, userID uint64, what, reason string, notify bool, remove func() error,
) response.ActionResult {
	notification := response.NotificationNone
	if notify {
		notification = a.notify(ctx, guildID, userID, what, reason)
	}

	res := classify(remove())
	res.Notification = notification

	if !res.Success() && notification == response.NotificationSent {
		text := fmt.Sprintf("Please disregard the previous message: you were not %s **%s**.",
			what, a.guildName(ctx, guildID))
		if retract := a.SendDM(ctx, userID, text); !retract.Success() {
			a.logger.Warn("Failed to retract removal notice",
				zap.Uint64("guild_id", guildID),
				zap.Uint64("user_id", userID),
				zap.Error(retract.Error()))
		}
	}

	return res
}

func (a *Actions) SetTimeout(
	ctx context.Context, guildID uint64, source string, userID uint64, duration time.Duration, reason string, notify bool,
) response.ActionResult {
	until := time.Now().Add(duration)

	_, err := a.rest.UpdateMember(snowflake.ID(guildID), snowflake.ID(userID), discord.MemberUpdate{
		CommunicationDisabledUntil: json.NewNullablePtr(until),
	}, rest.WithCtx(ctx), rest.WithReason(auditReason(source, reason)))

	res := classify(err)
	if res.Success() && notify {
		res.Notification = a.notify(ctx, guildID, userID,
			fmt.Sprintf("timed out for %s in", duration), reason)
	}
	return res
}

func (a *Actions) AddNote(ctx context.Context, guildID uint64, source string, userID uint64, text string) response.ActionResult {
	if _, err := a.modlog.Add(ctx, guildID, userID, modlog.KindNote, source, text); err != nil {
		return response.ActionResult{Outcome: response.OutcomeFailed, Err: err}
	}
	return response.ActionResult{Outcome: response.OutcomeSuccess}
}

func (a *Actions) AddWarn(ctx context.Context, guildID uint64, source string, userID uint64, text string) response.ActionResult {
	if _, err := a.modlog.Add(ctx, guildID, userID, modlog.KindWarn, source, text); err != nil {
		return response.ActionResult{Outcome: response.OutcomeFailed, Err: err}
	}

	return response.ActionResult{
		Outcome:      response.OutcomeSuccess,
		Notification: a.notify(ctx, guildID, userID, "warned in", text),
	}
}

func (a *Actions) AddRole(ctx context.Context, guildID, userID, roleID uint64, reason string) response.ActionResult {
	return classify(a.rest.AddMemberRole(snowflake.ID(guildID), snowflake.ID(userID), snowflake.ID(roleID),
		rest.WithCtx(ctx), rest.WithReason(reason)))
}

func (a *Actions) RemoveRole(ctx context.Context, guildID, userID, roleID uint64, reason string) response.ActionResult {
	return classify(a.rest.RemoveMemberRole(snowflake.ID(guildID), snowflake.ID(userID), snowflake.ID(roleID),
		rest.WithCtx(ctx), rest.WithReason(reason)))
}

func (a *Actions) DeleteMessage(ctx context.Context, channelID, messageID uint64, reason string) response.ActionResult {
	return classify(a.rest.DeleteMessage(snowflake.ID(channelID), snowflake.ID(messageID),
		rest.WithCtx(ctx), rest.WithReason(reason)))
}

func (a *Actions) SendChannel(ctx context.Context, channelID uint64, text string) response.ActionResult {
	_, err := a.rest.CreateMessage(snowflake.ID(channelID), plainMessage(text), rest.WithCtx(ctx))
	return classify(err)
}

func (a *Actions) SendDM(ctx context.Context, userID uint64, text string) response.ActionResult {
	channel, err := a.rest.CreateDMChannel(snowflake.ID(userID), rest.WithCtx(ctx))
	if err != nil {
		return classify(err)
	}

	_, err = a.rest.CreateMessage(channel.ID(), plainMessage(text), rest.WithCtx(ctx))
	return classify(err)
}

func (a *Actions) PostReport(ctx context.Context, channelID uint64, report *response.Report) response.ActionResult {
	_, err := a.rest.CreateMessage(snowflake.ID(channelID), discord.NewMessageCreateBuilder().
		AddEmbeds(ReportEmbed(report)).
		SetAllowedMentions(&discord.AllowedMentions{}).
		Build(), rest.WithCtx(ctx))
	return classify(err)
}

// notify tells a member about an action taken against them.
func (a *Actions) notify(ctx context.Context, guildID, userID uint64, what, reason string) response.Notification {
	text := fmt.Sprintf("You have been %s **%s**.", what, a.guildName(ctx, guildID))
	if reason != "" {
		text += "\nReason: " + reason
	}

	res := a.SendDM(ctx, userID, text)
	if !res.Success() {
		a.logger.Debug("Failed to notify member",
			zap.Uint64("guild_id", guildID),
			zap.Uint64("user_id", userID),
			zap.Error(res.Error()))
		return response.NotificationFailed
	}

	return response.NotificationSent
}

func (a *Actions) guildName(ctx context.Context, guildID uint64) string {
	if name, ok := a.guildNames.Get(guildID); ok {
		return name
	}

	guild, err := a.rest.GetGuild(snowflake.ID(guildID), false, rest.WithCtx(ctx))
	if err != nil {
		return "the server"
	}

	a.guildNames.Add(guildID, guild.Name)
	return guild.Name
}

// auditReason formats the audit log reason of an action taken by a rule.
func auditReason(source, reason string) string {
	if reason == "" {
		return "Rule: " + source
	}
	return fmt.Sprintf("Rule: %s: %s", source, reason)
}

func plainMessage(text string) discord.MessageCreate {
	return discord.NewMessageCreateBuilder().
		SetContent(text).
		SetAllowedMentions(&discord.AllowedMentions{}).
		Build()
}
