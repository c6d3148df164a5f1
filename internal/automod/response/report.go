package response

import (
	"fmt"
	"strings"
	"time"

	"github.com/robalyx/warden/internal/automod"
)

const (
	// MaxExcerptLength is the number of characters of the triggering message kept in a report.
	MaxExcerptLength = 500
	// TruncationNotice is appended to excerpts that were cut short.
	TruncationNotice = "(message truncated)"
	// EmptyContentNotice replaces the excerpt of messages without text.
	EmptyContentNotice = "(no text content)"
)

// Report summarizes one rule execution for the guild's reporting channel.
type Report struct {
	RuleLabel string
	Lines     []ReportLine
	Excerpt   string
	Truncated bool
	Author    automod.Author
	Channel   automod.Channel
	MessageID uint64
	Timestamp time.Time
	Edited    bool
}

// ReportLine is the outcome of one directive.
type ReportLine struct {
	Word    string
	Success bool
	Detail  string
}

// NewReport builds a report from a script's directives and their results, which must
// be of equal length and in the same order.
func NewReport(label string, directives []Directive, results []Result, msg *automod.Message) *Report {
	lines := make([]ReportLine, len(results))
	for i, res := range results {
		lines[i] = ReportLine{
			Word:    directives[i].Word,
			Success: res.Success,
			Detail:  res.Detail,
		}
	}

	excerpt, truncated := Excerpt(msg.Content)

	return &Report{
		RuleLabel: label,
		Lines:     lines,
		Excerpt:   excerpt,
		Truncated: truncated,
		Author:    msg.Author,
		Channel:   msg.Channel,
		MessageID: msg.ID,
		Timestamp: msg.Timestamp(),
		Edited:    msg.EditedAt != nil,
	}
}

// Excerpt shortens message content to MaxExcerptLength characters, appending the
// truncation notice when anything was cut.
func Excerpt(content string) (string, bool) {
	if strings.TrimSpace(content) == "" {
		return EmptyContentNotice, false
	}

	runes := []rune(content)
	if len(runes) <= MaxExcerptLength {
		return content, false
	}

	return string(runes[:MaxExcerptLength]) + "\n" + TruncationNotice, true
}

// Summary renders the directive outcomes, one line per directive.
func (r *Report) Summary() string {
	var sb strings.Builder
	for i, line := range r.Lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line.String())
	}
	return sb.String()
}

// String renders a single outcome line.
func (l ReportLine) String() string {
	indicator := "✅"
	if !l.Success {
		indicator = "❌"
	}
	if l.Detail == "" {
		return fmt.Sprintf("%s `%s`", indicator, l.Word)
	}
	return fmt.Sprintf("%s `%s`: %s", indicator, l.Word, l.Detail)
}

// AuthorLine identifies the message author for the report.
func (r *Report) AuthorLine() string {
	name := r.Author.Username
	if r.Author.DisplayName != "" && r.Author.DisplayName != r.Author.Username {
		name = fmt.Sprintf("%s (%s)", r.Author.DisplayName, r.Author.Username)
	}
	return fmt.Sprintf("%s %s `%d`", r.Author.Mention(), name, r.Author.ID)
}

// ChannelLine identifies the channel for the report.
func (r *Report) ChannelLine() string {
	return fmt.Sprintf("%s #%s `%d`", r.Channel.Mention(), r.Channel.Name, r.Channel.ID)
}
