package response

import (
	"context"
	"fmt"
	"time"

	"github.com/robalyx/warden/internal/automod"
)

// Outcome is the result category of a platform action.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeNotFound
	OutcomeForbidden
	OutcomeFailed
)

// Notification describes whether the affected user was told about an action.
type Notification int

const (
	NotificationNone Notification = iota
	NotificationSent
	NotificationFailed
)

// ActionResult is what the moderation collaborator reports for a single call.
type ActionResult struct {
	Outcome      Outcome
	Notification Notification
	// Err is the underlying error for logging. It is never shown to users.
	Err error
}

// Success reports whether the action itself went through.
func (r ActionResult) Success() bool {
	return r.Outcome == OutcomeSuccess
}

// Error maps the result onto the error taxonomy. It returns nil on success.
func (r ActionResult) Error() error {
	switch r.Outcome {
	case OutcomeSuccess:
		return nil
	case OutcomeNotFound:
		return wrapCause(automod.ErrNotFound, r.Err)
	case OutcomeForbidden:
		return wrapCause(automod.ErrForbidden, r.Err)
	default:
		if r.Err != nil {
			return r.Err
		}
		return automod.ErrDeliveryFailed
	}
}

func wrapCause(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// Actions performs moderation actions on the platform. Every call is a single
// best-effort attempt; retries are the implementation's concern, if any.
type Actions interface {
	Ban(ctx context.Context, guildID uint64, source string, userID uint64, purgeDays int, reason string, notify bool) ActionResult
	Kick(ctx context.Context, guildID uint64, source string, userID uint64, reason string, notify bool) ActionResult
	SetTimeout(ctx context.Context, guildID uint64, source string, userID uint64, duration time.Duration, reason string, notify bool) ActionResult
	AddNote(ctx context.Context, guildID uint64, source string, userID uint64, text string) ActionResult
	AddWarn(ctx context.Context, guildID uint64, source string, userID uint64, text string) ActionResult

	AddRole(ctx context.Context, guildID, userID, roleID uint64, reason string) ActionResult
	RemoveRole(ctx context.Context, guildID, userID, roleID uint64, reason string) ActionResult
	DeleteMessage(ctx context.Context, channelID, messageID uint64, reason string) ActionResult

	SendChannel(ctx context.Context, channelID uint64, text string) ActionResult
	SendDM(ctx context.Context, userID uint64, text string) ActionResult
	PostReport(ctx context.Context, channelID uint64, report *Report) ActionResult
}
