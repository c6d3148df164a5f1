package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/robalyx/warden/internal/automod"
	"github.com/robalyx/warden/internal/automod/entity"
	"github.com/robalyx/warden/internal/automod/response"
	"github.com/robalyx/warden/internal/automod/rule"
	"github.com/robalyx/warden/internal/guildstate"
	"go.uber.org/zap"
)

// StateSource provides the published configuration of a guild.
type StateSource interface {
	GetState(guildID uint64) *guildstate.GuildState
}

// Engine evaluates messages against the rules of their guild.
type Engine struct {
	states   StateSource
	executor *response.Executor
	actions  response.Actions
	logger   *zap.Logger
}

// New creates an Engine.
func New(states StateSource, actions response.Actions, logger *zap.Logger) *Engine {
	return &Engine{
		states:   states,
		executor: response.NewExecutor(actions, logger),
		actions:  actions,
		logger:   logger.Named("engine"),
	}
}

// Outcome summarizes what happened to one message.
type Outcome struct {
	// Matched lists the labels of the moderation rules that ran, in order.
	Matched []string
	// Results holds each matched rule's directive results.
	Results map[string][]response.Result
	// Responder is the label of the responder that replied, if any.
	Responder string
}

// HandleMessage evaluates a new or edited message. Rules run sequentially in
// configuration order and each rule's response completes before the next rule is
// considered. Guilds without a published state are ignored.
func (e *Engine) HandleMessage(ctx context.Context, msg *automod.Message, dir entity.Directory) (outcome Outcome, err error) {
	kind := "create"
	if msg.EditedAt != nil {
		kind = "edit"
	}

	start := time.Now()
	defer func() {
		messageProcessDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	defer func() {
		if r := recover(); r != nil {
			messageErrorCount.WithLabelValues(kind).Inc()
			e.logger.Error("Message evaluation exception",
				zap.Any("panic", r),
				zap.Uint64("guild_id", msg.GuildID),
				zap.Uint64("message_id", msg.ID))
			err = fmt.Errorf("message evaluation panicked: %v", r)
		}
	}()

	state := e.states.GetState(msg.GuildID)
	if state == nil {
		return outcome, nil
	}

	isModerator := state.IsModerator(msg)

	if rules, ok := guildstate.ModuleState[[]*rule.Definition](state, ModerationModuleName); ok {
		outcome.Results = make(map[string][]response.Result)
		for _, def := range rules {
			results, ran := e.runRule(ctx, def, msg, dir, isModerator)
			if !ran {
				continue
			}
			outcome.Matched = append(outcome.Matched, def.Label)
			outcome.Results[def.Label] = results
		}
	}

	if responders, ok := guildstate.ModuleState[[]*Responder](state, ResponderModuleName); ok {
		outcome.Responder = e.respond(ctx, responders, msg, isModerator)
	}

	return outcome, nil
}

// runRule executes one moderation rule if it matches and is not rate limited.
func (e *Engine) runRule(
	ctx context.Context, def *rule.Definition, msg *automod.Message, dir entity.Directory, isModerator bool,
) ([]response.Result, bool) {
	if !def.IsMatch(msg, isModerator) {
		return nil, false
	}

	if !def.Permitted(msg) {
		ruleMatchCount.WithLabelValues(ModerationModuleName, "rate_limited").Inc()
		e.logger.Debug("Rule matched but is rate limited",
			zap.Uint64("guild_id", msg.GuildID),
			zap.String("rule", def.Label),
			zap.Uint64("user_id", msg.Author.ID))
		return nil, false
	}

	ruleMatchCount.WithLabelValues(ModerationModuleName, "executed").Inc()
	e.logger.Info("Rule matched",
		zap.Uint64("guild_id", msg.GuildID),
		zap.String("rule", def.Label),
		zap.Uint64("user_id", msg.Author.ID),
		zap.Uint64("channel_id", msg.Channel.ID),
		zap.Uint64("message_id", msg.ID))

	results := e.executor.Execute(ctx, def, msg, dir)
	for i, res := range results {
		verb := response.ParseDirective(def.Response[i]).Verb
		directiveCount.WithLabelValues(verb.String(), strconv.FormatBool(res.Success)).Inc()
	}

	return results, true
}

// respond sends a reply from the first matching responder. At most one responder
// replies per message.
func (e *Engine) respond(ctx context.Context, responders []*Responder, msg *automod.Message, isModerator bool) string {
	for _, r := range responders {
		if !r.IsMatch(msg, isModerator) {
			continue
		}

		if !r.Permitted(msg) {
			ruleMatchCount.WithLabelValues(ResponderModuleName, "rate_limited").Inc()
			continue
		}

		ruleMatchCount.WithLabelValues(ResponderModuleName, "executed").Inc()

		res := e.actions.SendChannel(context.WithoutCancel(ctx), msg.Channel.ID, r.Pick())
		if !res.Success() {
			e.logger.Warn("Failed to send automatic reply",
				zap.Uint64("guild_id", msg.GuildID),
				zap.String("responder", r.Label),
				zap.Uint64("channel_id", msg.Channel.ID),
				zap.Error(res.Error()))
		}

		return r.Label
	}

	return ""
}
