package entity

import (
	"fmt"

	"github.com/robalyx/warden/internal/automod"
	"golang.org/x/text/cases"
)

// List is an ordered collection of references. Its length never changes after
// construction; only the cached ids of individual entries do.
type List []*Reference

// ParseList parses each value into a Reference. path is used to locate errors.
func ParseList(values []string, path string) (List, error) {
	list := make(List, 0, len(values))
	for i, v := range values {
		r, err := Parse(v)
		if err != nil {
			return nil, automod.NewConfigurationError(fmt.Sprintf("%s[%d]", path, i), "invalid entity reference", err)
		}
		list = append(list, r)
	}
	return list, nil
}

// Strings returns the configuration form of every entry.
func (l List) Strings() []string {
	out := make([]string, len(l))
	for i, r := range l {
		out[i] = r.String()
	}
	return out
}

// Matches reports whether the message author, channel or any of the author's roles
// is referenced by the list. Entries are checked in order and the first hit wins.
// If cacheIDs is set, entries matched by name have their id filled in.
//
// Once an entry's name comparison fails, later entries of the same type are not
// considered. Entries of other types are still checked.
func (l List) Matches(msg *automod.Message, cacheIDs bool) bool {
	var stopped [3]bool

	for _, r := range l {
		if int(r.typ) >= len(stopped) || stopped[r.typ] {
			continue
		}

		var (
			id       uint64
			matched  bool
			compared bool
		)

		switch r.typ {
		case TypeUser:
			id, matched, compared = matchOne(r, msg.Author.ID, msg.Author.Username, msg.Author.DisplayName)
		case TypeChannel:
			id, matched, compared = matchOne(r, msg.Channel.ID, msg.Channel.Name)
		case TypeRole:
			id, matched, compared = matchRoles(r, msg.Author.Roles)
		}

		if matched {
			if cacheIDs {
				r.cacheID(id)
			}
			return true
		}
		if compared {
			stopped[r.typ] = true
		}
	}

	return false
}

// matchOne checks a reference against a single entity. compared reports whether a
// name comparison took place and failed.
func matchOne(r *Reference, id uint64, names ...string) (uint64, bool, bool) {
	if refID, ok := r.ID(); ok && refID == id {
		return id, true, false
	}
	if r.name == "" {
		return 0, false, false
	}
	for _, name := range names {
		if name != "" && EqualName(r.name, name) {
			return id, true, false
		}
	}
	return 0, false, true
}

// matchRoles checks a role reference against every role the author holds.
func matchRoles(r *Reference, roles []automod.Role) (uint64, bool, bool) {
	if refID, ok := r.ID(); ok {
		for _, role := range roles {
			if role.ID == refID {
				return role.ID, true, false
			}
		}
	}
	if r.name == "" {
		return 0, false, false
	}
	for _, role := range roles {
		if EqualName(r.name, role.Name) {
			return role.ID, true, false
		}
	}
	return 0, false, true
}

// EqualName compares entity names case-insensitively using full Unicode case folding.
func EqualName(a, b string) bool {
	// Casers are stateful and must not be shared between goroutines
	fold := cases.Fold()
	return fold.String(a) == fold.String(b)
}
