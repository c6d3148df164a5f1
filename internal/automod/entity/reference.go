package entity

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/robalyx/warden/internal/automod"
)

// Type is the kind of entity a Reference points to.
type Type int

const (
	TypeRole Type = iota
	TypeChannel
	TypeUser
)

// Prefix returns the configuration prefix character for the type.
func (t Type) Prefix() byte {
	switch t {
	case TypeRole:
		return '&'
	case TypeChannel:
		return '#'
	case TypeUser:
		return '@'
	default:
		return '?'
	}
}

func (t Type) String() string {
	switch t {
	case TypeRole:
		return "role"
	case TypeChannel:
		return "channel"
	case TypeUser:
		return "user"
	default:
		return "unknown"
	}
}

// typeForPrefix maps a configuration prefix to its entity type.
func typeForPrefix(prefix byte) (Type, bool) {
	switch prefix {
	case '&':
		return TypeRole, true
	case '#':
		return TypeChannel, true
	case '@':
		return TypeUser, true
	default:
		return 0, false
	}
}

// Entity is a resolved role, channel or user.
type Entity struct {
	Type Type
	ID   uint64
	Name string
}

// Directory resolves entities within a single guild.
// Name lookups must be case-insensitive.
type Directory interface {
	LookupID(ctx context.Context, t Type, id uint64) (Entity, bool)
	LookupName(ctx context.Context, t Type, name string) (Entity, bool)
}

// Reference is a typed name-and/or-id descriptor parsed from configuration,
// such as "&Moderators", "#1234" or "@1234::someone".
//
// The id may be filled in once by a name-based resolution and is never
// overwritten afterwards. Concurrent first resolutions are harmless since the
// id of a given name is stable.
type Reference struct {
	typ  Type
	id   atomic.Pointer[uint64]
	name string
}

// NewReference creates a reference from its parts. A zero-length name is treated as absent.
func NewReference(t Type, id *uint64, name string) *Reference {
	r := &Reference{typ: t, name: name}
	if id != nil {
		v := *id
		r.id.Store(&v)
	}
	return r
}

// Parse parses a reference of the form <prefix><body>, where the prefix is one of
// '&' (role), '#' (channel) or '@' (user) and the body is <id>, <name> or <id>::<name>.
func Parse(s string) (*Reference, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty entity reference", automod.ErrInvalidFormat)
	}

	t, ok := typeForPrefix(s[0])
	if !ok {
		return nil, fmt.Errorf("%w: unrecognized entity prefix in %q", automod.ErrInvalidFormat, s)
	}

	body := s[1:]
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: entity reference %q has no name or id", automod.ErrInvalidFormat, s)
	}

	r := &Reference{typ: t}

	head, tail, found := strings.Cut(body, "::")
	if found {
		if id, err := strconv.ParseUint(head, 10, 64); err == nil {
			r.id.Store(&id)
			r.name = tail
			return r, nil
		}
	} else if id, err := strconv.ParseUint(body, 10, 64); err == nil {
		r.id.Store(&id)
		return r, nil
	}

	// Anything that does not start with a numeric id is a literal name
	r.name = body
	return r, nil
}

// MustParse is like Parse but panics on error. It is intended for tests and constants.
func MustParse(s string) *Reference {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Type returns the entity type.
func (r *Reference) Type() Type {
	return r.typ
}

// ID returns the id, if known.
func (r *Reference) ID() (uint64, bool) {
	if p := r.id.Load(); p != nil {
		return *p, true
	}
	return 0, false
}

// Name returns the configured name, or an empty string.
func (r *Reference) Name() string {
	return r.name
}

// String serializes the reference back into its configuration form.
func (r *Reference) String() string {
	var sb strings.Builder
	sb.WriteByte(r.typ.Prefix())

	id, hasID := r.ID()
	if hasID {
		sb.WriteString(strconv.FormatUint(id, 10))
	}
	if r.name != "" {
		if hasID {
			sb.WriteString("::")
		}
		sb.WriteString(r.name)
	}

	return sb.String()
}

// cacheID stores id if no id is known yet. The first stored id wins.
func (r *Reference) cacheID(id uint64) {
	r.id.CompareAndSwap(nil, &id)
}

// Resolve looks the reference up in the directory. Lookup by id is attempted first;
// on a miss, the name is looked up case-insensitively. If updateMissingID is set,
// an entity found by name has its id cached on the reference.
func (r *Reference) Resolve(ctx context.Context, dir Directory, updateMissingID bool) (Entity, bool) {
	if id, ok := r.ID(); ok {
		if e, found := dir.LookupID(ctx, r.typ, id); found {
			return e, true
		}
	}

	if r.name == "" {
		return Entity{}, false
	}

	e, found := dir.LookupName(ctx, r.typ, r.name)
	if !found {
		return Entity{}, false
	}

	if updateMissingID {
		r.cacheID(e.ID)
	}

	return e, true
}
