package guildstate

import (
	"context"
	"time"

	"github.com/robalyx/warden/internal/automod"
	"github.com/robalyx/warden/internal/automod/entity"
)

// Module builds its per-guild state from the module's configuration subsection.
type Module interface {
	// Name is the configuration key of the module, e.g. "RegexModerator".
	Name() string
	// CreateState builds a new opaque state from raw, which is nil when the guild
	// document has no section for the module. Recoverable mistakes must be reported
	// as *automod.ConfigurationError.
	CreateState(ctx context.Context, guildID uint64, raw any) (any, error)
}

// GuildState is an immutable snapshot of one guild's configuration.
type GuildState struct {
	GuildID    uint64
	Moderators entity.List
	Modules    map[string]any
	LoadedAt   time.Time
}

// IsModerator reports whether the message author is on the moderator list.
func (s *GuildState) IsModerator(msg *automod.Message) bool {
	return s.Moderators.Matches(msg, true)
}

// Module returns the state a module built for this guild.
func (s *GuildState) Module(name string) (any, bool) {
	v, ok := s.Modules[name]
	return v, ok
}

// ModuleState returns a module's state as T.
func ModuleState[T any](s *GuildState, name string) (T, bool) {
	var zero T
	if s == nil {
		return zero, false
	}

	v, ok := s.Modules[name]
	if !ok {
		return zero, false
	}

	typed, ok := v.(T)
	return typed, ok
}
