package rule

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/robalyx/warden/internal/automod"
	"github.com/robalyx/warden/internal/automod/entity"
)

// MatchConfig is the configuration form of a Matcher.
type MatchConfig struct {
	Regex               []string `mapstructure:"Regex"`
	ScanEmbeds          bool     `mapstructure:"ScanEmbeds"`
	IgnoreModerators    *bool    `mapstructure:"IgnoreModerators"`
	entity.FilterConfig `mapstructure:",squash"`
}

// NewMatcher builds a Matcher. Moderators are ignored unless configured otherwise.
func NewMatcher(cfg MatchConfig, path string) (Matcher, error) {
	patterns, err := compilePatterns(cfg.Regex, path+".Regex")
	if err != nil {
		return Matcher{}, err
	}

	filter, err := entity.NewFilterList(cfg.FilterConfig, path)
	if err != nil {
		return Matcher{}, err
	}

	return Matcher{
		Patterns:         patterns,
		ScanEmbeds:       cfg.ScanEmbeds,
		IgnoreModerators: boolOr(cfg.IgnoreModerators, true),
		Filter:           filter,
	}, nil
}

// Entries splits a module's configuration value into its individual entries.
// A missing value yields no entries.
func Entries(raw any, path string) ([]any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	case []map[string]any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, nil
	default:
		return nil, automod.NewConfigurationError(path, fmt.Sprintf("expected an array of tables, got %T", raw), nil)
	}
}

// Decode decodes a raw configuration entry into out. Unknown keys are rejected
// so that typos surface as configuration errors instead of silently doing nothing.
func Decode(raw any, out any, path string) error {
	if _, ok := raw.(map[string]any); !ok {
		return automod.NewConfigurationError(path, fmt.Sprintf("expected a table, got %T", raw), nil)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := dec.Decode(raw); err != nil {
		return automod.NewConfigurationError(path, "invalid definition", err)
	}

	return nil
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func indexPath(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}
