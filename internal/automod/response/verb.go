package response

import "strings"

// Verb identifies the action a directive performs.
type Verb int

const (
	// VerbUnknown is any unrecognized verb. Executing it yields a failed result.
	VerbUnknown Verb = iota
	// VerbNoOp does nothing. Used for comments and placeholders.
	VerbNoOp
	// VerbBan bans the message author.
	VerbBan
	// VerbKick removes the message author from the guild.
	VerbKick
	// VerbDelete deletes the triggering message.
	VerbDelete
	// VerbRoleAdd assigns a role to a user.
	VerbRoleAdd
	// VerbRoleDel removes a role from a user.
	VerbRoleDel
	// VerbSay sends a message to a channel or user.
	VerbSay
	// VerbNote records a moderator note on the author.
	VerbNote
	// VerbWarn records a warning on the author and notifies them.
	VerbWarn
	// VerbTimeout prevents the author from communicating for a number of minutes.
	VerbTimeout
)

// verbNames maps every accepted spelling to its verb. Lookups are case-insensitive.
var verbNames = map[string]Verb{
	"nop":        VerbNoOp,
	"noop":       VerbNoOp,
	"comment":    VerbNoOp,
	"ban":        VerbBan,
	"kick":       VerbKick,
	"delete":     VerbDelete,
	"del":        VerbDelete,
	"remove":     VerbDelete,
	"roleadd":    VerbRoleAdd,
	"addrole":    VerbRoleAdd,
	"roledel":    VerbRoleDel,
	"delrole":    VerbRoleDel,
	"roleremove": VerbRoleDel,
	"say":        VerbSay,
	"send":       VerbSay,
	"reply":      VerbSay,
	"note":       VerbNote,
	"warn":       VerbWarn,
	"timeout":    VerbTimeout,
	"mute":       VerbTimeout,
}

// ParseVerb returns the verb for a directive word, or VerbUnknown.
func ParseVerb(word string) Verb {
	if isComment(word) {
		return VerbNoOp
	}
	if v, ok := verbNames[strings.ToLower(word)]; ok {
		return v
	}
	return VerbUnknown
}

func isComment(word string) bool {
	return strings.HasPrefix(word, "#") || strings.HasPrefix(word, "//")
}

func (v Verb) String() string {
	switch v {
	case VerbNoOp:
		return "nop"
	case VerbBan:
		return "ban"
	case VerbKick:
		return "kick"
	case VerbDelete:
		return "delete"
	case VerbRoleAdd:
		return "roleadd"
	case VerbRoleDel:
		return "roledel"
	case VerbSay:
		return "say"
	case VerbNote:
		return "note"
	case VerbWarn:
		return "warn"
	case VerbTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}
