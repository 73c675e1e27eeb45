package nina

import (
	"strings"
	"time"
)

// StripHTML flattens the HTML fragments the API embeds in descriptions.
// Closing paragraphs become newlines and anchors keep their target as
// "text: url"; every other tag is dropped.
func StripHTML(s string) string {
	var b strings.Builder
	var href string
	anchorStart := -1

	for i := 0; i < len(s); i++ {
		if s[i] != '<' {
			b.WriteByte(s[i])
			continue
		}
		end := strings.IndexByte(s[i:], '>')
		if end < 0 {
			break
		}
		tag := s[i+1 : i+end]
		i += end

		switch {
		case tag == "/p" || tag == "br" || tag == "br/":
			b.WriteByte('\n')
		case strings.HasPrefix(tag, "a "):
			href = extractHref(tag)
			anchorStart = b.Len()
		case tag == "/a":
			// a link without visible text carries no information
			if href != "" && b.Len() > anchorStart {
				b.WriteString(": " + href)
			}
			href = ""
			anchorStart = -1
		}
	}
	return b.String()
}

func extractHref(tag string) string {
	idx := strings.Index(tag, `href="`)
	if idx < 0 {
		return ""
	}
	rest := tag[idx+len(`href="`):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return rest[:end]
}

// translateTime rewrites the API's ISO timestamps into a readable form.
// Unparseable input passes through untouched.
func translateTime(ts string) string {
	if ts == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04")
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func warningURL(id, headline string) string {
	return "https://warnung.bund.de/meldung/" + id + "/" + strings.ReplaceAll(headline, " ", "_")
}
