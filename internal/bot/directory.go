package bot

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/robalyx/warden/internal/automod/entity"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

const (
	rosterCacheSize = 4096
	rosterCacheTTL  = 5 * time.Minute
	memberSearchMax = 100
)

// rosterKey identifies one cached lookup.
type rosterKey struct {
	guildID uint64
	typ     entity.Type
	id      uint64
	name    string
}

// Roster resolves guild roles, channels and members through the REST API,
// caching results for a short time.
type Roster struct {
	rest   rest.Rest
	cache  *expirable.LRU[rosterKey, entity.Entity]
	logger *zap.Logger
}

// NewRoster creates a Roster backed by the given REST client.
func NewRoster(client rest.Rest, logger *zap.Logger) *Roster {
	return &Roster{
		rest:   client,
		cache:  expirable.NewLRU[rosterKey, entity.Entity](rosterCacheSize, nil, rosterCacheTTL),
		logger: logger.Named("roster"),
	}
}

// For returns the entity directory of one guild.
func (r *Roster) For(guildID uint64) entity.Directory {
	return &guildDirectory{roster: r, guildID: guildID}
}

// Invalidate drops every cached entry of a guild.
func (r *Roster) Invalidate(guildID uint64) {
	for _, key := range r.cache.Keys() {
		if key.guildID == guildID {
			r.cache.Remove(key)
		}
	}
}

type guildDirectory struct {
	roster  *Roster
	guildID uint64
}

func (d *guildDirectory) LookupID(ctx context.Context, t entity.Type, id uint64) (entity.Entity, bool) {
	key := rosterKey{guildID: d.guildID, typ: t, id: id}
	if e, ok := d.roster.cache.Get(key); ok {
		return e, true
	}

	e, ok := d.roster.fetchID(ctx, d.guildID, t, id)
	if ok {
		d.roster.cache.Add(key, e)
	}
	return e, ok
}

func (d *guildDirectory) LookupName(ctx context.Context, t entity.Type, name string) (entity.Entity, bool) {
	key := rosterKey{guildID: d.guildID, typ: t, name: cases.Fold().String(name)}
	if e, ok := d.roster.cache.Get(key); ok {
		return e, true
	}

	e, ok := d.roster.fetchName(ctx, d.guildID, t, name)
	if ok {
		d.roster.cache.Add(key, e)
	}
	return e, ok
}

func (r *Roster) fetchID(ctx context.Context, guildID uint64, t entity.Type, id uint64) (entity.Entity, bool) {
	opt := rest.WithCtx(ctx)

	switch t {
	case entity.TypeRole:
		roles, err := r.rest.GetRoles(snowflake.ID(guildID), opt)
		if err != nil {
			r.logFetchError(guildID, t, err)
			return entity.Entity{}, false
		}
		for _, role := range roles {
			if uint64(role.ID) == id {
				return entity.Entity{Type: t, ID: id, Name: role.Name}, true
			}
		}

	case entity.TypeChannel:
		channel, err := r.rest.GetChannel(snowflake.ID(id), opt)
		if err != nil {
			r.logFetchError(guildID, t, err)
			return entity.Entity{}, false
		}
		gc, ok := channel.(discord.GuildChannel)
		if !ok || uint64(gc.GuildID()) != guildID {
			return entity.Entity{}, false
		}
		return entity.Entity{Type: t, ID: id, Name: gc.Name()}, true

	case entity.TypeUser:
		member, err := r.rest.GetMember(snowflake.ID(guildID), snowflake.ID(id), opt)
		if err != nil {
			r.logFetchError(guildID, t, err)
			return entity.Entity{}, false
		}
		return entity.Entity{Type: t, ID: id, Name: member.User.Username}, true
	}

	return entity.Entity{}, false
}

func (r *Roster) fetchName(ctx context.Context, guildID uint64, t entity.Type, name string) (entity.Entity, bool) {
	opt := rest.WithCtx(ctx)

	switch t {
	case entity.TypeRole:
		roles, err := r.rest.GetRoles(snowflake.ID(guildID), opt)
		if err != nil {
			r.logFetchError(guildID, t, err)
			return entity.Entity{}, false
		}
		for _, role := range roles {
			if entity.EqualName(role.Name, name) {
				return entity.Entity{Type: t, ID: uint64(role.ID), Name: role.Name}, true
			}
		}

	case entity.TypeChannel:
		channels, err := r.rest.GetGuildChannels(snowflake.ID(guildID), opt)
		if err != nil {
			r.logFetchError(guildID, t, err)
			return entity.Entity{}, false
		}
		for _, channel := range channels {
			if entity.EqualName(channel.Name(), name) {
				return entity.Entity{Type: t, ID: uint64(channel.ID()), Name: channel.Name()}, true
			}
		}

	case entity.TypeUser:
		members, err := r.rest.SearchMembers(snowflake.ID(guildID), name, memberSearchMax, opt)
		if err != nil {
			r.logFetchError(guildID, t, err)
			return entity.Entity{}, false
		}
		for _, member := range members {
			if memberHasName(member, name) {
				return entity.Entity{Type: t, ID: uint64(member.User.ID), Name: member.User.Username}, true
			}
		}
	}

	return entity.Entity{}, false
}

func (r *Roster) logFetchError(guildID uint64, t entity.Type, err error) {
	r.logger.Debug("Roster lookup failed",
		zap.Uint64("guild_id", guildID),
		zap.String("type", t.String()),
		zap.Error(err))
}

// memberHasName reports whether any of the member's names equals name.
func memberHasName(member discord.Member, name string) bool {
	if entity.EqualName(member.User.Username, name) {
		return true
	}
	if member.User.GlobalName != nil && entity.EqualName(*member.User.GlobalName, name) {
		return true
	}
	return member.Nick != nil && entity.EqualName(*member.Nick, name)
}
