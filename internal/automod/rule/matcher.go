package rule

import (
	"regexp"

	"github.com/robalyx/warden/internal/automod"
	"github.com/robalyx/warden/internal/automod/entity"
)

// Matcher holds the match criteria shared by every rule-like module entry.
type Matcher struct {
	Patterns         []*regexp.Regexp
	ScanEmbeds       bool
	IgnoreModerators bool
	Filter           entity.FilterList
}

// IsMatch reports whether the message triggers the matcher. Filtered messages and,
// when IgnoreModerators is set, messages by moderators never match. Patterns are
// tried in order and the first hit wins.
func (m *Matcher) IsMatch(msg *automod.Message, isAuthorModerator bool) bool {
	if m.Filter.IsFiltered(msg) {
		return false
	}
	if isAuthorModerator && m.IgnoreModerators {
		return false
	}

	text := msg.Content
	if m.ScanEmbeds {
		text = FlattenEmbeds(msg.Embeds)
	}

	for _, p := range m.Patterns {
		if p.MatchString(text) {
			return true
		}
	}

	return false
}

// compilePatterns compiles every pattern, reporting the first failure as a configuration error.
func compilePatterns(patterns []string, path string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, automod.NewConfigurationError(path, "at least one pattern is required", nil)
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, automod.NewConfigurationError(indexPath(path, i), "invalid regular expression", err)
		}
		compiled = append(compiled, re)
	}

	return compiled, nil
}
