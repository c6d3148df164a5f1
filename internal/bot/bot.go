package bot

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/automod/engine"
	"github.com/robalyx/warden/internal/guildstate"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// Bot connects the moderation engine to the Discord gateway.
type Bot struct {
	client bot.Client
	states *guildstate.Manager
	engine *engine.Engine
	roster *Roster
	logger *zap.Logger
	watch  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup
}

// New creates a Bot. Guild configurations are reloaded from disk on change when
// watch is set.
func New(token string, states *guildstate.Manager, store ModlogWriter, watch bool, logger *zap.Logger) (*Bot, error) {
	ctx, cancel := context.WithCancel(context.Background())

	b := &Bot{
		states: states,
		logger: logger.Named("bot"),
		watch:  watch,
		ctx:    ctx,
		cancel: cancel,
	}

	client, err := disgo.New(token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentMessageContent,
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds, cache.FlagChannels, cache.FlagRoles),
		),
		bot.WithEventListeners(&events.ListenerAdapter{
			OnGuildReady:         b.handleGuildReady,
			OnGuildJoin:          b.handleGuildJoin,
			OnGuildLeave:         b.handleGuildLeave,
			OnGuildMessageCreate: b.handleMessageCreate,
			OnGuildMessageUpdate: b.handleMessageUpdate,
			OnRoleCreate:         func(e *events.RoleCreate) { b.roster.Invalidate(uint64(e.GuildID)) },
			OnRoleUpdate:         func(e *events.RoleUpdate) { b.roster.Invalidate(uint64(e.GuildID)) },
			OnRoleDelete:         func(e *events.RoleDelete) { b.roster.Invalidate(uint64(e.GuildID)) },
			OnGuildChannelUpdate: func(e *events.GuildChannelUpdate) { b.roster.Invalidate(uint64(e.GuildID)) },
		}),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create discord client: %w", err)
	}

	b.client = client
	b.roster = NewRoster(client.Rest(), logger)
	b.engine = engine.New(states, NewActions(client.Rest(), store, logger), logger)

	return b, nil
}

// Start opens the gateway connection.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot")
	return b.client.OpenGateway(ctx)
}

// Close disconnects from the gateway and waits for in-flight messages to finish.
func (b *Bot) Close(ctx context.Context) {
	b.logger.Info("Closing bot")
	b.client.Close(ctx)
	b.wg.Wait()
	b.cancel()
}

func (b *Bot) handleGuildReady(event *events.GuildReady) {
	b.track(event.GuildID)
}

func (b *Bot) handleGuildJoin(event *events.GuildJoin) {
	b.logger.Info("Joined guild", zap.Uint64("guild_id", uint64(event.GuildID)))
	b.track(event.GuildID)
}

func (b *Bot) handleGuildLeave(event *events.GuildLeave) {
	b.logger.Info("Left guild", zap.Uint64("guild_id", uint64(event.GuildID)))
	b.states.Remove(uint64(event.GuildID))
	b.roster.Invalidate(uint64(event.GuildID))
}

func (b *Bot) track(guildID snowflake.ID) {
	b.wg.Go(func() {
		// Failures are logged by the manager and leave the previous state in place
		_ = b.states.Track(b.ctx, uint64(guildID), b.watch)
	})
}

func (b *Bot) handleMessageCreate(event *events.GuildMessageCreate) {
	b.handleMessage(event.GuildID, event.Message)
}

func (b *Bot) handleMessageUpdate(event *events.GuildMessageUpdate) {
	// Embed unfurls arrive as updates without an edit timestamp
	if event.Message.EditedTimestamp == nil {
		return
	}
	b.handleMessage(event.GuildID, event.Message)
}

func (b *Bot) handleMessage(guildID snowflake.ID, message discord.Message) {
	if message.Author.Bot || message.WebhookID != nil {
		return
	}

	if b.states.GetState(uint64(guildID)) == nil {
		return
	}

	b.wg.Go(func() {
		msg := convertMessage(guildID, message, b.roleName, b.channelName)

		if _, err := b.engine.HandleMessage(b.ctx, msg, b.roster.For(uint64(guildID))); err != nil {
			b.logger.Error("Failed to handle message",
				zap.Uint64("guild_id", msg.GuildID),
				zap.Uint64("message_id", msg.ID),
				zap.Error(err))
		}
	})
}

func (b *Bot) roleName(guildID, roleID snowflake.ID) (string, bool) {
	role, ok := b.client.Caches().Role(guildID, roleID)
	if !ok {
		return "", false
	}
	return role.Name, true
}

func (b *Bot) channelName(channelID snowflake.ID) (string, bool) {
	channel, ok := b.client.Caches().Channel(channelID)
	if !ok {
		return "", false
	}
	return channel.Name(), true
}
