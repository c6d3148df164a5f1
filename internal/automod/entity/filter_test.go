package entity_test

import (
	"testing"

	"github.com/robalyx/warden/internal/automod"
	"github.com/robalyx/warden/internal/automod/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage() *automod.Message {
	return &automod.Message{
		ID:      1,
		GuildID: 100,
		Author: automod.Author{
			ID:          200,
			Username:    "spammer",
			DisplayName: "Spam King",
			Roles: []automod.Role{
				{ID: 300, Name: "Member"},
				{ID: 301, Name: "Trusted"},
			},
		},
		Channel: automod.Channel{ID: 400, Name: "general"},
		Content: "hello",
	}
}

func mustList(t *testing.T, values ...string) entity.List {
	t.Helper()
	l, err := entity.ParseList(values, "test")
	require.NoError(t, err)
	return l
}

func TestListMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []string
		want   bool
	}{
		{name: "empty", values: nil, want: false},
		{name: "author by id", values: []string{"@200"}, want: true},
		{name: "author by username", values: []string{"@SPAMMER"}, want: true},
		{name: "author by display name", values: []string{"@spam king"}, want: true},
		{name: "channel by id", values: []string{"#400"}, want: true},
		{name: "channel by name", values: []string{"#General"}, want: true},
		{name: "role by id", values: []string{"&301"}, want: true},
		{name: "role by name", values: []string{"&trusted"}, want: true},
		{name: "no match", values: []string{"@201", "#401", "&302"}, want: false},
		{name: "id miss then later id hit", values: []string{"#401", "#400"}, want: true},
		{name: "other type continues after name miss", values: []string{"#random", "&Member"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, mustList(t, tt.values...).Matches(testMessage(), false))
		})
	}
}

// A failed name comparison ends the scan for that entity type: a later entry of the
// same type is not consulted even if it would match.
func TestListMatchesStopsAfterSameTypeNameMiss(t *testing.T) {
	t.Parallel()

	msg := testMessage()

	assert.False(t, mustList(t, "#random", "#general").Matches(msg, false))
	assert.False(t, mustList(t, "&Admins", "&Trusted").Matches(msg, false))
	assert.False(t, mustList(t, "@someoneelse", "@200").Matches(msg, false))

	// Order matters: the matching entry first still hits
	assert.True(t, mustList(t, "#general", "#random").Matches(msg, false))
}

func TestListMatchesCachesIDs(t *testing.T) {
	t.Parallel()

	l := mustList(t, "&Trusted")
	require.True(t, l.Matches(testMessage(), true))

	id, ok := l[0].ID()
	assert.True(t, ok)
	assert.Equal(t, uint64(301), id)

	noCache := mustList(t, "#general")
	require.True(t, noCache.Matches(testMessage(), false))
	_, ok = noCache[0].ID()
	assert.False(t, ok)
}

func TestParseListError(t *testing.T) {
	t.Parallel()

	_, err := entity.ParseList([]string{"#ok", "bad"}, "Rule.Whitelist")
	require.Error(t, err)
	assert.True(t, automod.IsConfigurationError(err))
	assert.ErrorIs(t, err, automod.ErrInvalidFormat)
	assert.Contains(t, err.Error(), "Rule.Whitelist[1]")
}

func strs(v ...string) *[]string {
	return &v
}

func TestNewFilterList(t *testing.T) {
	t.Parallel()

	t.Run("both lists rejected", func(t *testing.T) {
		t.Parallel()
		_, err := entity.NewFilterList(entity.FilterConfig{
			Whitelist: strs("#a"),
			Blacklist: strs("#b"),
		}, "rule")
		require.Error(t, err)
		assert.True(t, automod.IsConfigurationError(err))
	})

	t.Run("modes", func(t *testing.T) {
		t.Parallel()

		fl, err := entity.NewFilterList(entity.FilterConfig{}, "rule")
		require.NoError(t, err)
		assert.Equal(t, entity.FilterNone, fl.Mode)

		fl, err = entity.NewFilterList(entity.FilterConfig{Whitelist: strs("#a"), Exempt: strs("@b")}, "rule")
		require.NoError(t, err)
		assert.Equal(t, entity.FilterWhitelist, fl.Mode)
		assert.Len(t, fl.Filtered, 1)
		assert.Len(t, fl.Exemptions, 1)

		fl, err = entity.NewFilterList(entity.FilterConfig{Blacklist: strs()}, "rule")
		require.NoError(t, err)
		assert.Equal(t, entity.FilterBlacklist, fl.Mode)
	})

	t.Run("bad exemption", func(t *testing.T) {
		t.Parallel()
		_, err := entity.NewFilterList(entity.FilterConfig{Exempt: strs("nope")}, "rule")
		require.Error(t, err)
	})
}

func TestIsFiltered(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mode       entity.FilterMode
		filtered   []string
		exemptions []string
		want       bool
	}{
		{name: "none is never filtered", mode: entity.FilterNone, filtered: []string{"#general"}, want: false},
		{name: "none ignores exemptions", mode: entity.FilterNone, exemptions: []string{"#general"}, want: false},
		{name: "whitelist not listed", mode: entity.FilterWhitelist, filtered: []string{"#other"}, want: true},
		{name: "whitelist not listed but exempt", mode: entity.FilterWhitelist, filtered: []string{"#other"}, exemptions: []string{"@200"}, want: true},
		{name: "whitelist listed", mode: entity.FilterWhitelist, filtered: []string{"#general"}, want: false},
		{name: "whitelist listed and exempt", mode: entity.FilterWhitelist, filtered: []string{"#general"}, exemptions: []string{"&Trusted"}, want: true},
		{name: "blacklist not listed", mode: entity.FilterBlacklist, filtered: []string{"#other"}, want: false},
		{name: "blacklist listed", mode: entity.FilterBlacklist, filtered: []string{"#general"}, want: true},
		{name: "blacklist listed and exempt", mode: entity.FilterBlacklist, filtered: []string{"#general"}, exemptions: []string{"&Trusted"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fl := entity.FilterList{
				Mode:       tt.mode,
				Filtered:   mustList(t, tt.filtered...),
				Exemptions: mustList(t, tt.exemptions...),
			}
			assert.Equal(t, tt.want, fl.IsFiltered(testMessage()))
		})
	}
}
