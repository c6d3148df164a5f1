package engine

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/robalyx/warden/internal/automod"
	"github.com/robalyx/warden/internal/automod/ratelimit"
	"github.com/robalyx/warden/internal/automod/rule"
)

// DefaultResponderRateLimit is the per-channel cooldown of a responder, in seconds.
const DefaultResponderRateLimit = 20

// ResponderConfig is the configuration form of an automatic responder.
type ResponderConfig struct {
	Label            string `mapstructure:"Label"`
	rule.MatchConfig `mapstructure:",squash"`
	Reply            []string `mapstructure:"Reply"`
	RateLimit        *int     `mapstructure:"RateLimit"`
}

// Responder replies in channel to messages matching its patterns.
type Responder struct {
	Label string
	rule.Matcher
	Replies []string

	// RateLimit debounces the responder per channel.
	RateLimit *ratelimit.Limiter[uint64]
}

// NewResponder validates a responder configuration.
func NewResponder(cfg ResponderConfig, path string) (*Responder, error) {
	label := strings.TrimSpace(cfg.Label)
	if label == "" {
		return nil, automod.NewConfigurationError(path+".Label", "a label is required", nil)
	}
	path = fmt.Sprintf("%s(%s)", path, label)

	matcher, err := rule.NewMatcher(cfg.MatchConfig, path)
	if err != nil {
		return nil, err
	}

	replies := make([]string, 0, len(cfg.Reply))
	for _, reply := range cfg.Reply {
		if strings.TrimSpace(reply) != "" {
			replies = append(replies, reply)
		}
	}
	if len(replies) == 0 {
		return nil, automod.NewConfigurationError(path+".Reply", "at least one reply is required", nil)
	}

	seconds := DefaultResponderRateLimit
	if cfg.RateLimit != nil {
		seconds = *cfg.RateLimit
	}
	if seconds < 0 {
		return nil, automod.NewConfigurationError(path+".RateLimit", "must not be negative", nil)
	}

	return &Responder{
		Label:     label,
		Matcher:   matcher,
		Replies:   replies,
		RateLimit: ratelimit.NewSeconds[uint64](seconds),
	}, nil
}

// ParseResponders builds every responder in a module configuration value.
func ParseResponders(raw any, path string) ([]*Responder, error) {
	entries, err := rule.Entries(raw, path)
	if err != nil {
		return nil, err
	}

	responders := make([]*Responder, 0, len(entries))
	for i, entry := range entries {
		entryPath := fmt.Sprintf("%s[%d]", path, i)

		var cfg ResponderConfig
		if err := rule.Decode(entry, &cfg, entryPath); err != nil {
			return nil, err
		}

		r, err := NewResponder(cfg, entryPath)
		if err != nil {
			return nil, err
		}
		responders = append(responders, r)
	}

	return responders, nil
}

// Permitted reports whether the responder may reply in the message's channel now.
func (r *Responder) Permitted(msg *automod.Message) bool {
	return r.RateLimit.IsPermitted(msg.Channel.ID)
}

// Pick returns one of the configured replies at random.
func (r *Responder) Pick() string {
	return r.Replies[rand.IntN(len(r.Replies))]
}
