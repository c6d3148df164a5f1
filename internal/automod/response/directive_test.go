package response_test

import (
	"strings"
	"testing"

	"github.com/robalyx/warden/internal/automod/response"
	"github.com/stretchr/testify/assert"
)

func TestParseDirective(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want response.Directive
	}{
		{line: "delete", want: response.Directive{Word: "delete", Verb: response.VerbDelete}},
		{line: "  BAN   test reason ", want: response.Directive{Word: "BAN", Verb: response.VerbBan, Params: "test reason"}},
		{line: "say\t#general  hi  there", want: response.Directive{Word: "say", Verb: response.VerbSay, Params: "#general  hi  there"}},
		{line: "mute 5", want: response.Directive{Word: "mute", Verb: response.VerbTimeout, Params: "5"}},
		{line: "RoleRemove @_ &x", want: response.Directive{Word: "RoleRemove", Verb: response.VerbRoleDel, Params: "@_ &x"}},
		{line: "// ban later", want: response.Directive{Word: "//", Verb: response.VerbNoOp, Params: "ban later"}},
		{line: "#comment", want: response.Directive{Word: "#comment", Verb: response.VerbNoOp}},
		{line: "explode now", want: response.Directive{Word: "explode", Verb: response.VerbUnknown, Params: "now"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, response.ParseDirective(tt.line))
		})
	}
}

func TestVerbString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "timeout", response.ParseVerb("MUTE").String())
	assert.Equal(t, "nop", response.ParseVerb("comment").String())
	assert.Equal(t, "unknown", response.ParseVerb("fly").String())
}

func TestExcerpt(t *testing.T) {
	t.Parallel()

	short, truncated := response.Excerpt("hello")
	assert.Equal(t, "hello", short)
	assert.False(t, truncated)

	empty, truncated := response.Excerpt("   ")
	assert.Equal(t, response.EmptyContentNotice, empty)
	assert.False(t, truncated)

	exact := strings.Repeat("é", response.MaxExcerptLength)
	got, truncated := response.Excerpt(exact)
	assert.Equal(t, exact, got)
	assert.False(t, truncated)

	long := strings.Repeat("é", response.MaxExcerptLength+1)
	got, truncated = response.Excerpt(long)
	assert.True(t, truncated)
	assert.Equal(t, strings.Repeat("é", response.MaxExcerptLength)+"\n"+response.TruncationNotice, got)
}
