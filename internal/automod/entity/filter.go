package entity

import (
	"github.com/robalyx/warden/internal/automod"
)

// FilterMode determines how a FilterList treats its main list.
type FilterMode int

const (
	FilterNone FilterMode = iota
	FilterWhitelist
	FilterBlacklist
)

func (m FilterMode) String() string {
	switch m {
	case FilterWhitelist:
		return "whitelist"
	case FilterBlacklist:
		return "blacklist"
	default:
		return "none"
	}
}

// FilterList combines a whitelist or blacklist with a list of exemptions.
type FilterList struct {
	Mode       FilterMode
	Filtered   List
	Exemptions List
}

// FilterConfig is the configuration form of a FilterList. Nil fields are absent keys.
type FilterConfig struct {
	Whitelist *[]string `mapstructure:"Whitelist"`
	Blacklist *[]string `mapstructure:"Blacklist"`
	Exempt    *[]string `mapstructure:"Exempt"`
}

// NewFilterList builds a FilterList from its configuration. Defining both a whitelist
// and a blacklist is a configuration error.
func NewFilterList(cfg FilterConfig, path string) (FilterList, error) {
	var fl FilterList

	if cfg.Whitelist != nil && cfg.Blacklist != nil {
		return fl, automod.NewConfigurationError(path, "cannot define both a whitelist and a blacklist", nil)
	}

	var err error

	switch {
	case cfg.Whitelist != nil:
		fl.Mode = FilterWhitelist
		fl.Filtered, err = ParseList(*cfg.Whitelist, path+".Whitelist")
	case cfg.Blacklist != nil:
		fl.Mode = FilterBlacklist
		fl.Filtered, err = ParseList(*cfg.Blacklist, path+".Blacklist")
	}
	if err != nil {
		return FilterList{}, err
	}

	if cfg.Exempt != nil {
		fl.Exemptions, err = ParseList(*cfg.Exempt, path+".Exempt")
		if err != nil {
			return FilterList{}, err
		}
	}

	return fl, nil
}

// IsFiltered reports whether the message should be ignored under this filter.
func (f *FilterList) IsFiltered(msg *automod.Message) bool {
	switch f.Mode {
	case FilterWhitelist:
		if !f.Filtered.Matches(msg, true) {
			return true
		}
		return f.Exemptions.Matches(msg, true)
	case FilterBlacklist:
		if !f.Filtered.Matches(msg, true) {
			return false
		}
		return !f.Exemptions.Matches(msg, true)
	default:
		return false
	}
}
