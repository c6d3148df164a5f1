package rule

import (
	"fmt"
	"strings"

	"github.com/robalyx/warden/internal/automod"
	"github.com/robalyx/warden/internal/automod/entity"
	"github.com/robalyx/warden/internal/automod/ratelimit"
)

// MaxBanPurgeDays is the largest number of days of messages a ban may purge.
const MaxBanPurgeDays = 7

// Config is the configuration form of a moderation rule.
type Config struct {
	Label            string    `mapstructure:"Label"`
	MatchConfig      `mapstructure:",squash"`
	ReportingChannel string    `mapstructure:"ReportingChannel"`
	Response         *[]string `mapstructure:"Response"`
	BanPurgeDays     int       `mapstructure:"BanPurgeDays"`
	NotifyChannel    *bool     `mapstructure:"NotifyChannel"`
	NotifyUser       *bool     `mapstructure:"NotifyUser"`
	RateLimit        int       `mapstructure:"RateLimit"`
}

// Definition is a moderation rule as loaded from a guild configuration.
// It is immutable once built and replaced wholesale on the next reload.
type Definition struct {
	Label string
	Matcher

	// ReportingChannel receives a summary after the response runs. Nil when not configured.
	ReportingChannel *entity.Reference
	// Response is the ordered directive script.
	Response []string

	BanPurgeDays  int
	NotifyChannel bool
	NotifyUser    bool

	// RateLimit debounces the rule per message author.
	RateLimit *ratelimit.Limiter[uint64]
}

// NewDefinition validates a rule configuration and builds its Definition.
func NewDefinition(cfg Config, path string) (*Definition, error) {
	label := strings.TrimSpace(cfg.Label)
	if label == "" {
		return nil, automod.NewConfigurationError(path+".Label", "a label is required", nil)
	}
	path = fmt.Sprintf("%s(%s)", path, label)

	matcher, err := NewMatcher(cfg.MatchConfig, path)
	if err != nil {
		return nil, err
	}

	var reporting *entity.Reference
	if strings.TrimSpace(cfg.ReportingChannel) != "" {
		reporting, err = entity.Parse(cfg.ReportingChannel)
		if err != nil {
			return nil, automod.NewConfigurationError(path+".ReportingChannel", "invalid entity reference", err)
		}
		if reporting.Type() != entity.TypeChannel {
			return nil, automod.NewConfigurationError(path+".ReportingChannel", "must reference a channel", nil)
		}
	}

	if cfg.Response == nil {
		return nil, automod.NewConfigurationError(path+".Response", "a response is required", nil)
	}
	response := make([]string, 0, len(*cfg.Response))
	for _, line := range *cfg.Response {
		if line = strings.TrimSpace(line); line != "" {
			response = append(response, line)
		}
	}

	if cfg.BanPurgeDays < 0 || cfg.BanPurgeDays > MaxBanPurgeDays {
		return nil, automod.NewConfigurationError(path+".BanPurgeDays",
			fmt.Sprintf("must be between 0 and %d", MaxBanPurgeDays), nil)
	}

	if cfg.RateLimit < 0 {
		return nil, automod.NewConfigurationError(path+".RateLimit", "must not be negative", nil)
	}

	return &Definition{
		Label:            label,
		Matcher:          matcher,
		ReportingChannel: reporting,
		Response:         response,
		BanPurgeDays:     cfg.BanPurgeDays,
		NotifyChannel:    boolOr(cfg.NotifyChannel, true),
		NotifyUser:       boolOr(cfg.NotifyUser, true),
		RateLimit:        ratelimit.NewSeconds[uint64](cfg.RateLimit),
	}, nil
}

// ParseDefinitions builds every rule in a module configuration value. Labels must be unique.
func ParseDefinitions(raw any, path string) ([]*Definition, error) {
	entries, err := Entries(raw, path)
	if err != nil {
		return nil, err
	}

	defs := make([]*Definition, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))

	for i, entry := range entries {
		entryPath := indexPath(path, i)

		var cfg Config
		if err := Decode(entry, &cfg, entryPath); err != nil {
			return nil, err
		}

		def, err := NewDefinition(cfg, entryPath)
		if err != nil {
			return nil, err
		}

		key := strings.ToLower(def.Label)
		if _, dup := seen[key]; dup {
			return nil, automod.NewConfigurationError(entryPath+".Label",
				fmt.Sprintf("duplicate label %q", def.Label), nil)
		}
		seen[key] = struct{}{}

		defs = append(defs, def)
	}

	return defs, nil
}

// Permitted reports whether the rule may act on a message from this author now.
func (d *Definition) Permitted(msg *automod.Message) bool {
	return d.RateLimit.IsPermitted(msg.Author.ID)
}
