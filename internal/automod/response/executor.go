package response

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/robalyx/warden/internal/automod"
	"github.com/robalyx/warden/internal/automod/entity"
	"github.com/robalyx/warden/internal/automod/rule"
	"go.uber.org/zap"
)

// MaxTimeoutMinutes is the longest timeout the platform accepts (28 days).
const MaxTimeoutMinutes = 28 * 24 * 60

// Result is the outcome of one directive.
type Result struct {
	Success bool
	// Detail is short, user-facing status text. Empty when there is nothing to add.
	Detail string
}

func succeeded(detail string) Result {
	return Result{Success: true, Detail: detail}
}

func failed(detail string) Result {
	return Result{Success: false, Detail: detail}
}

// handlerFunc executes one directive's parameters within a run.
type handlerFunc func(ctx context.Context, r *run, params string) Result

// run is the state of a single script execution.
type run struct {
	def *rule.Definition
	msg *automod.Message
	dir entity.Directory
}

// Executor interprets rule response scripts.
type Executor struct {
	actions  Actions
	logger   *zap.Logger
	handlers map[Verb]handlerFunc
}

// NewExecutor creates an Executor that performs actions through the given collaborator.
func NewExecutor(actions Actions, logger *zap.Logger) *Executor {
	e := &Executor{
		actions: actions,
		logger:  logger.Named("response"),
	}

	e.handlers = map[Verb]handlerFunc{
		VerbNoOp:    e.noop,
		VerbBan:     e.ban,
		VerbKick:    e.kick,
		VerbDelete:  e.delete,
		VerbRoleAdd: e.roleAdd,
		VerbRoleDel: e.roleDel,
		VerbSay:     e.say,
		VerbNote:    e.note,
		VerbWarn:    e.warn,
		VerbTimeout: e.timeout,
	}

	return e
}

// Execute runs every directive of the rule's response in order and returns one result
// per directive. Failures never stop the script. Once all directives have run, a
// report is posted to the rule's reporting channel if it can be resolved.
//
// Cancellation of ctx is ignored: a script that has started always runs to completion.
func (e *Executor) Execute(ctx context.Context, def *rule.Definition, msg *automod.Message, dir entity.Directory) []Result {
	ctx = context.WithoutCancel(ctx)
	r := &run{def: def, msg: msg, dir: dir}

	directives := make([]Directive, len(def.Response))
	results := make([]Result, len(def.Response))

	for i, line := range def.Response {
		directives[i] = ParseDirective(line)
		results[i] = e.step(ctx, r, directives[i])

		e.logger.Debug("Executed directive",
			zap.Uint64("guild_id", msg.GuildID),
			zap.String("rule", def.Label),
			zap.String("directive", directives[i].Word),
			zap.Bool("success", results[i].Success),
			zap.String("detail", results[i].Detail))
	}

	e.report(ctx, r, directives, results)

	return results
}

// step executes a single directive, converting panics into a failed result.
func (e *Executor) step(ctx context.Context, r *run, d Directive) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("Panic while executing directive",
				zap.Any("panic", p),
				zap.Uint64("guild_id", r.msg.GuildID),
				zap.String("rule", r.def.Label),
				zap.String("directive", d.Word))
			res = failed("internal error")
		}
	}()

	handler, ok := e.handlers[d.Verb]
	if !ok {
		return failed(fmt.Sprintf("%s: %s", automod.ErrUnknownDirective, d.Word))
	}

	return handler(ctx, r, d.Params)
}

// report posts the execution summary to the reporting channel, if any.
func (e *Executor) report(ctx context.Context, r *run, directives []Directive, results []Result) {
	if r.def.ReportingChannel == nil {
		return
	}

	channel, ok := r.def.ReportingChannel.Resolve(ctx, r.dir, true)
	if !ok {
		e.logger.Warn("Reporting channel could not be resolved, skipping report",
			zap.Uint64("guild_id", r.msg.GuildID),
			zap.String("rule", r.def.Label),
			zap.String("channel", r.def.ReportingChannel.String()))
		return
	}

	res := e.actions.PostReport(ctx, channel.ID, NewReport(r.def.Label, directives, results, r.msg))
	if !res.Success() {
		e.logger.Warn("Failed to post report",
			zap.Uint64("guild_id", r.msg.GuildID),
			zap.String("rule", r.def.Label),
			zap.Uint64("channel_id", channel.ID),
			zap.Error(res.Error()))
	}
}

// fromAction converts a collaborator result into a directive result.
func (e *Executor) fromAction(r *run, verb string, res ActionResult) Result {
	if res.Success() {
		if res.Notification == NotificationFailed {
			return succeeded("user could not be notified")
		}
		return succeeded("")
	}

	e.logger.Warn("Moderation action failed",
		zap.Uint64("guild_id", r.msg.GuildID),
		zap.String("rule", r.def.Label),
		zap.String("directive", verb),
		zap.Error(res.Error()))

	switch res.Outcome {
	case OutcomeNotFound:
		return failed("target not found")
	case OutcomeForbidden:
		return failed("missing permissions")
	default:
		return failed("action failed")
	}
}

func (e *Executor) noop(context.Context, *run, string) Result {
	return succeeded("")
}

func (e *Executor) ban(ctx context.Context, r *run, reason string) Result {
	res := e.actions.Ban(ctx, r.msg.GuildID, r.def.Label, r.msg.Author.ID, r.def.BanPurgeDays, reason, r.def.NotifyUser)
	return e.removal(ctx, r, "ban", "banned", res)
}

func (e *Executor) kick(ctx context.Context, r *run, reason string) Result {
	res := e.actions.Kick(ctx, r.msg.GuildID, r.def.Label, r.msg.Author.ID, reason, r.def.NotifyUser)
	return e.removal(ctx, r, "kick", "kicked", res)
}

// removal finishes a ban or kick by announcing it in the triggering channel when configured.
func (e *Executor) removal(ctx context.Context, r *run, verb, past string, res ActionResult) Result {
	result := e.fromAction(r, verb, res)
	if !result.Success || !r.def.NotifyChannel {
		return result
	}

	notice := fmt.Sprintf("%s has been %s.", displayName(r.msg.Author), past)
	if sent := e.actions.SendChannel(ctx, r.msg.Channel.ID, notice); !sent.Success() {
		e.logger.Warn("Failed to announce removal in channel",
			zap.Uint64("guild_id", r.msg.GuildID),
			zap.Uint64("channel_id", r.msg.Channel.ID),
			zap.Error(sent.Error()))
		return succeeded(joinDetail(result.Detail, "channel could not be notified"))
	}

	return result
}

func (e *Executor) delete(ctx context.Context, r *run, _ string) Result {
	res := e.actions.DeleteMessage(ctx, r.msg.Channel.ID, r.msg.ID, "Rule: "+r.def.Label)
	return e.fromAction(r, "delete", res)
}

func (e *Executor) roleAdd(ctx context.Context, r *run, params string) Result {
	return e.role(ctx, r, params, "roleadd", e.actions.AddRole)
}

func (e *Executor) roleDel(ctx context.Context, r *run, params string) Result {
	return e.role(ctx, r, params, "roledel", e.actions.RemoveRole)
}

// role handles "<@user> <&role> [reason]" for both role directives.
func (e *Executor) role(
	ctx context.Context, r *run, params, verb string,
	apply func(ctx context.Context, guildID, userID, roleID uint64, reason string) ActionResult,
) Result {
	userToken, rest := nextToken(params)
	roleToken, reason := nextToken(rest)
	if userToken == "" || roleToken == "" {
		return failed(fmt.Sprintf("usage: %s <@user> <&role> [reason]", verb))
	}

	userID, detail, ok := r.resolveUser(ctx, userToken)
	if !ok {
		return failed(detail)
	}

	roleRef, err := entity.Parse(roleToken)
	if err != nil || roleRef.Type() != entity.TypeRole {
		return failed("invalid role: " + roleToken)
	}
	role, found := roleRef.Resolve(ctx, r.dir, false)
	if !found {
		return failed("role not found: " + roleToken)
	}

	if reason == "" {
		reason = "Rule: " + r.def.Label
	}

	return e.fromAction(r, verb, apply(ctx, r.msg.GuildID, userID, role.ID, reason))
}

// say handles "<target> <text>" where target is a channel or user reference, or one of
// "_"/"#_" for the triggering channel and "@_" for the author's direct messages.
func (e *Executor) say(ctx context.Context, r *run, params string) Result {
	target, text := nextToken(params)
	if target == "" || text == "" {
		return failed("usage: say <#channel|@user|_> <text>")
	}

	var res ActionResult

	switch target {
	case "_", "#_":
		res = e.actions.SendChannel(ctx, r.msg.Channel.ID, text)
	case "@_":
		res = e.actions.SendDM(ctx, r.msg.Author.ID, text)
	default:
		ref, err := entity.Parse(target)
		if err != nil || ref.Type() == entity.TypeRole {
			return failed("invalid target: " + target)
		}
		resolved, found := ref.Resolve(ctx, r.dir, false)
		if !found {
			return failed("target not found: " + target)
		}
		if ref.Type() == entity.TypeUser {
			res = e.actions.SendDM(ctx, resolved.ID, text)
		} else {
			res = e.actions.SendChannel(ctx, resolved.ID, text)
		}
	}

	if !res.Success() && res.Outcome == OutcomeFailed {
		e.logger.Warn("Message delivery failed",
			zap.Uint64("guild_id", r.msg.GuildID),
			zap.String("rule", r.def.Label),
			zap.String("target", target),
			zap.Error(res.Error()))
		return failed("message could not be delivered")
	}

	return e.fromAction(r, "say", res)
}

func (e *Executor) note(ctx context.Context, r *run, text string) Result {
	if text == "" {
		return failed("usage: note <text>")
	}
	res := e.actions.AddNote(ctx, r.msg.GuildID, r.def.Label, r.msg.Author.ID, text)
	return e.fromAction(r, "note", res)
}

func (e *Executor) warn(ctx context.Context, r *run, text string) Result {
	if text == "" {
		return failed("usage: warn <text>")
	}
	res := e.actions.AddWarn(ctx, r.msg.GuildID, r.def.Label, r.msg.Author.ID, text)
	return e.fromAction(r, "warn", res)
}

func (e *Executor) timeout(ctx context.Context, r *run, params string) Result {
	minutesToken, reason := nextToken(params)

	minutes, err := strconv.Atoi(minutesToken)
	if err != nil || minutes <= 0 || minutes > MaxTimeoutMinutes {
		return failed(fmt.Sprintf("usage: timeout <minutes 1-%d> [reason]", MaxTimeoutMinutes))
	}

	res := e.actions.SetTimeout(ctx, r.msg.GuildID, r.def.Label, r.msg.Author.ID,
		time.Duration(minutes)*time.Minute, reason, r.def.NotifyUser)
	return e.fromAction(r, "timeout", res)
}

// resolveUser turns a user token into an id. "_" and "@_" refer to the message author.
func (r *run) resolveUser(ctx context.Context, token string) (uint64, string, bool) {
	if token == "_" || token == "@_" {
		return r.msg.Author.ID, "", true
	}

	ref, err := entity.Parse(token)
	if err != nil || ref.Type() != entity.TypeUser {
		return 0, "invalid user: " + token, false
	}

	user, found := ref.Resolve(ctx, r.dir, false)
	if !found {
		return 0, "user not found: " + token, false
	}

	return user.ID, "", true
}

func displayName(a automod.Author) string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Username
}

func joinDetail(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
