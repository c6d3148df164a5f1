package bot

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/warden/internal/automod/entity"
	"github.com/robalyx/warden/internal/automod/response"
	"github.com/robalyx/warden/internal/modlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRest implements the parts of rest.Rest the package uses.
type fakeRest struct {
	rest.Rest

	mu       sync.Mutex
	calls    []string
	errs     map[string]error
	roles    []discord.Role
	members  []discord.Member
	messages []discord.MessageCreate
	update   *discord.MemberUpdate
	purge    time.Duration
}

func newFakeRest() *fakeRest {
	return &fakeRest{errs: make(map[string]error)}
}

func (f *fakeRest) call(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.errs[name]
}

func (f *fakeRest) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeRest) AddBan(_, _ snowflake.ID, purge time.Duration, _ ...rest.RequestOpt) error {
	f.purge = purge
	return f.call("AddBan")
}

func (f *fakeRest) RemoveMember(_, _ snowflake.ID, _ ...rest.RequestOpt) error {
	return f.call("RemoveMember")
}

func (f *fakeRest) UpdateMember(_, _ snowflake.ID, update discord.MemberUpdate, _ ...rest.RequestOpt) (*discord.Member, error) {
	f.update = &update
	return &discord.Member{}, f.call("UpdateMember")
}

func (f *fakeRest) AddMemberRole(_, _, _ snowflake.ID, _ ...rest.RequestOpt) error {
	return f.call("AddMemberRole")
}

func (f *fakeRest) RemoveMemberRole(_, _, _ snowflake.ID, _ ...rest.RequestOpt) error {
	return f.call("RemoveMemberRole")
}

func (f *fakeRest) DeleteMessage(_, _ snowflake.ID, _ ...rest.RequestOpt) error {
	return f.call("DeleteMessage")
}

func (f *fakeRest) CreateMessage(_ snowflake.ID, msg discord.MessageCreate, _ ...rest.RequestOpt) (*discord.Message, error) {
	if err := f.call("CreateMessage"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.messages = append(f.messages, msg)
	f.mu.Unlock()
	return &discord.Message{}, nil
}

func (f *fakeRest) CreateDMChannel(_ snowflake.ID, _ ...rest.RequestOpt) (*discord.DMChannel, error) {
	if err := f.call("CreateDMChannel"); err != nil {
		return nil, err
	}
	return &discord.DMChannel{}, nil
}

func (f *fakeRest) GetGuild(_ snowflake.ID, _ bool, _ ...rest.RequestOpt) (*discord.RestGuild, error) {
	if err := f.call("GetGuild"); err != nil {
		return nil, err
	}
	return &discord.RestGuild{Guild: discord.Guild{Name: "Test Guild"}}, nil
}

func (f *fakeRest) GetRoles(_ snowflake.ID, _ ...rest.RequestOpt) ([]discord.Role, error) {
	return f.roles, f.call("GetRoles")
}

func (f *fakeRest) GetMember(_, userID snowflake.ID, _ ...rest.RequestOpt) (*discord.Member, error) {
	if err := f.call("GetMember"); err != nil {
		return nil, err
	}
	for _, m := range f.members {
		if m.User.ID == userID {
			return &m, nil
		}
	}
	return nil, restError(http.StatusNotFound)
}

func (f *fakeRest) SearchMembers(_ snowflake.ID, _ string, _ int, _ ...rest.RequestOpt) ([]discord.Member, error) {
	return f.members, f.call("SearchMembers")
}

// fakeModlog records added entries.
type fakeModlog struct {
	entries []modlog.Entry
	err     error
}

func (f *fakeModlog) Add(_ context.Context, guildID, userID uint64, kind modlog.Kind, source, text string) (modlog.Entry, error) {
	if f.err != nil {
		return modlog.Entry{}, f.err
	}
	e := modlog.Entry{GuildID: guildID, UserID: userID, Kind: kind, Source: source, Text: text}
	f.entries = append(f.entries, e)
	return e, nil
}

func restError(status int) error {
	return &rest.Error{Response: &http.Response{StatusCode: status}}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want response.Outcome
	}{
		{name: "nil", err: nil, want: response.OutcomeSuccess},
		{name: "not found", err: restError(http.StatusNotFound), want: response.OutcomeNotFound},
		{name: "forbidden", err: restError(http.StatusForbidden), want: response.OutcomeForbidden},
		{name: "server error", err: restError(http.StatusInternalServerError), want: response.OutcomeFailed},
		{name: "transport error", err: errors.New("connection reset"), want: response.OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := classify(tt.err)
			assert.Equal(t, tt.want, res.Outcome)
			assert.Equal(t, tt.err, res.Err)
		})
	}
}

func TestActionsBan(t *testing.T) {
	t.Parallel()

	fake := newFakeRest()
	actions := NewActions(fake, &fakeModlog{}, zap.NewNop())

	res := actions.Ban(context.Background(), 1, "no-spam", 2, 3, "spam", true)

	assert.True(t, res.Success())
	assert.Equal(t, response.NotificationSent, res.Notification)
	assert.Equal(t, 72*time.Hour, fake.purge)
	assert.Equal(t, []string{"GetGuild", "CreateDMChannel", "CreateMessage", "AddBan"}, fake.calls)
	require.Len(t, fake.messages, 1)
	assert.Equal(t, "You have been banned from **Test Guild**.\nReason: spam", fake.messages[0].Content)
}

func TestActionsKickForbiddenWithFailedNotification(t *testing.T) {
	t.Parallel()

	fake := newFakeRest()
	fake.errs["CreateDMChannel"] = restError(http.StatusForbidden)
	fake.errs["RemoveMember"] = restError(http.StatusForbidden)
	actions := NewActions(fake, &fakeModlog{}, zap.NewNop())

	res := actions.Kick(context.Background(), 1, "rule", 2, "", true)

	assert.Equal(t, response.OutcomeForbidden, res.Outcome)
	assert.Equal(t, response.NotificationFailed, res.Notification)
}

func TestActionsBanFailureRetractsNotice(t *testing.T) {
	t.Parallel()

	fake := newFakeRest()
	fake.errs["AddBan"] = restError(http.StatusForbidden)
	actions := NewActions(fake, &fakeModlog{}, zap.NewNop())

	res := actions.Ban(context.Background(), 1, "no-spam", 2, 0, "spam", true)

	assert.Equal(t, response.OutcomeForbidden, res.Outcome)
	assert.Equal(t, response.NotificationSent, res.Notification)
	require.Len(t, fake.messages, 2)
	assert.Equal(t, "You have been banned from **Test Guild**.\nReason: spam", fake.messages[0].Content)
	assert.Equal(t, "Please disregard the previous message: you were not banned from **Test Guild**.",
		fake.messages[1].Content)
}

func TestActionsTimeout(t *testing.T) {
	t.Parallel()

	fake := newFakeRest()
	actions := NewActions(fake, &fakeModlog{}, zap.NewNop())

	res := actions.SetTimeout(context.Background(), 1, "rule", 2, 10*time.Minute, "cool off", false)

	assert.True(t, res.Success())
	assert.Equal(t, response.NotificationNone, res.Notification)
	require.NotNil(t, fake.update)
	require.NotNil(t, fake.update.CommunicationDisabledUntil)
	assert.Zero(t, fake.callCount("CreateDMChannel"))
}

func TestActionsModlog(t *testing.T) {
	t.Parallel()

	fake := newFakeRest()
	store := &fakeModlog{}
	actions := NewActions(fake, store, zap.NewNop())
	ctx := context.Background()

	note := actions.AddNote(ctx, 1, "rule", 2, "noted")
	assert.True(t, note.Success())
	assert.Equal(t, response.NotificationNone, note.Notification)

	warn := actions.AddWarn(ctx, 1, "rule", 2, "stop")
	assert.True(t, warn.Success())
	assert.Equal(t, response.NotificationSent, warn.Notification)

	require.Len(t, store.entries, 2)
	assert.Equal(t, modlog.KindNote, store.entries[0].Kind)
	assert.Equal(t, modlog.KindWarn, store.entries[1].Kind)
	assert.Equal(t, "stop", store.entries[1].Text)

	// The guild name is cached after the first notification
	actions.AddWarn(ctx, 1, "rule", 2, "again")
	assert.Equal(t, 1, fake.callCount("GetGuild"))

	store.err = errors.New("disk full")
	failed := actions.AddNote(ctx, 1, "rule", 2, "lost")
	assert.Equal(t, response.OutcomeFailed, failed.Outcome)
}

func TestActionsPostReport(t *testing.T) {
	t.Parallel()

	fake := newFakeRest()
	actions := NewActions(fake, &fakeModlog{}, zap.NewNop())

	report := &response.Report{
		RuleLabel: "no-spam",
		Lines: []response.ReportLine{
			{Word: "delete", Success: true},
			{Word: "ban", Success: false, Detail: "missing permissions"},
		},
		Excerpt:   "buy spam",
		MessageID: 99,
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	res := actions.PostReport(context.Background(), 5, report)
	require.True(t, res.Success())
	require.Len(t, fake.messages, 1)
	require.Len(t, fake.messages[0].Embeds, 1)

	embed := fake.messages[0].Embeds[0]
	assert.Equal(t, "Rule triggered: no-spam", embed.Title)
	assert.Equal(t, "✅ `delete`\n❌ `ban`: missing permissions", embed.Description)
	assert.Equal(t, colorFailure, embed.Color)
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "buy spam", embed.Fields[2].Value)
}

func TestRosterLookups(t *testing.T) {
	t.Parallel()

	nick := "Mod Squad Leader"
	fake := newFakeRest()
	fake.roles = []discord.Role{{ID: 10, Name: "Moderators"}, {ID: 11, Name: "Straße"}}
	fake.members = []discord.Member{
		{User: discord.User{ID: 20, Username: "alice"}, Nick: &nick},
	}

	dir := NewRoster(fake, zap.NewNop()).For(1)
	ctx := context.Background()

	role, ok := dir.LookupName(ctx, entity.TypeRole, "MODERATORS")
	require.True(t, ok)
	assert.Equal(t, entity.Entity{Type: entity.TypeRole, ID: 10, Name: "Moderators"}, role)

	role, ok = dir.LookupName(ctx, entity.TypeRole, "STRASSE")
	require.True(t, ok)
	assert.Equal(t, uint64(11), role.ID)

	role, ok = dir.LookupID(ctx, entity.TypeRole, 11)
	require.True(t, ok)
	assert.Equal(t, "Straße", role.Name)

	_, ok = dir.LookupID(ctx, entity.TypeRole, 12)
	assert.False(t, ok)

	user, ok := dir.LookupName(ctx, entity.TypeUser, "mod squad leader")
	require.True(t, ok)
	assert.Equal(t, uint64(20), user.ID)

	user, ok = dir.LookupID(ctx, entity.TypeUser, 20)
	require.True(t, ok)
	assert.Equal(t, "alice", user.Name)

	_, ok = dir.LookupID(ctx, entity.TypeUser, 21)
	assert.False(t, ok)
}

func TestRosterCaches(t *testing.T) {
	t.Parallel()

	fake := newFakeRest()
	fake.roles = []discord.Role{{ID: 10, Name: "Moderators"}}
	roster := NewRoster(fake, zap.NewNop())
	dir := roster.For(1)
	ctx := context.Background()

	for range 3 {
		_, ok := dir.LookupName(ctx, entity.TypeRole, "moderators")
		require.True(t, ok)
	}
	assert.Equal(t, 1, fake.callCount("GetRoles"))

	roster.Invalidate(1)
	_, ok := dir.LookupName(ctx, entity.TypeRole, "Moderators")
	require.True(t, ok)
	assert.Equal(t, 2, fake.callCount("GetRoles"))

	// Failed lookups are not cached
	fake.errs["GetRoles"] = restError(http.StatusInternalServerError)
	_, ok = dir.LookupName(ctx, entity.TypeRole, "other")
	assert.False(t, ok)
	_, ok = dir.LookupName(ctx, entity.TypeRole, "other")
	assert.False(t, ok)
	assert.Equal(t, 4, fake.callCount("GetRoles"))
}
