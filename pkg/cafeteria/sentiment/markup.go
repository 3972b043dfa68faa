package sentiment

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// StripMarkup returns the visible text of a comment submitted through a rich
// text field. Entities are decoded and script/style content is dropped.
// Text without '<' or '&' passes through unchanged. Plain comments must not
// go through it, since a stray '<' opens a tag.
func StripMarkup(comment string) string {
	if !strings.ContainsAny(comment, "<&") {
		return comment
	}

	z := html.NewTokenizer(strings.NewReader(comment))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return strings.Join(strings.Fields(b.String()), " ")
			}
			return comment
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				skip++
			case "br", "p", "div", "li":
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				if skip > 0 {
					skip--
				}
			case "p", "div", "li":
				b.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}
