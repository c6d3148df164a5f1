package rule

import (
	"strings"

	"github.com/robalyx/warden/internal/automod"
)

// FlattenEmbeds renders the text parts of rich content blocks as one string,
// one part per line: author name and link, title, description, every field
// name and value, and the footer text. Empty parts are skipped.
func FlattenEmbeds(embeds []automod.Embed) string {
	var sb strings.Builder

	line := func(s string) {
		if s == "" {
			return
		}
		sb.WriteString(s)
		sb.WriteByte('\n')
	}

	for _, e := range embeds {
		line(e.AuthorName)
		line(e.AuthorURL)
		line(e.Title)
		line(e.Description)
		for _, f := range e.Fields {
			line(f.Name)
			line(f.Value)
		}
		line(e.FooterText)
	}

	return strings.TrimSuffix(sb.String(), "\n")
}
