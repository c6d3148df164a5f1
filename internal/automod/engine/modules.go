package engine

import (
	"context"

	"github.com/robalyx/warden/internal/automod/rule"
	"github.com/robalyx/warden/internal/guildstate"
)

const (
	// ModerationModuleName is the document key of the moderation rules.
	ModerationModuleName = "RegexModerator"
	// ResponderModuleName is the document key of the automatic responders.
	ResponderModuleName = "AutoResponder"
)

// ModerationModule builds a guild's moderation rules.
type ModerationModule struct{}

func (ModerationModule) Name() string {
	return ModerationModuleName
}

// CreateState returns the guild's []*rule.Definition.
func (ModerationModule) CreateState(_ context.Context, _ uint64, raw any) (any, error) {
	return rule.ParseDefinitions(raw, ModerationModuleName)
}

// ResponderModule builds a guild's automatic responders.
type ResponderModule struct{}

func (ResponderModule) Name() string {
	return ResponderModuleName
}

// CreateState returns the guild's []*Responder.
func (ResponderModule) CreateState(_ context.Context, _ uint64, raw any) (any, error) {
	return ParseResponders(raw, ResponderModuleName)
}

// Modules returns every module in evaluation order.
func Modules() []guildstate.Module {
	return []guildstate.Module{ModerationModule{}, ResponderModule{}}
}
