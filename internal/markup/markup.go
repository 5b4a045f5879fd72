package markup

import (
	"strings"
)

// StoryToHTML renders generated story text for the result page.
// Blank lines separate paragraphs, single newlines become <br>, and
// markdown headers, rules, bold and italic are converted. All other HTML
// is escaped.
func StoryToHTML(story string) string {
	story = strings.TrimSpace(strings.ReplaceAll(story, "\r\n", "\n"))
	if story == "" {
		return ""
	}

	var b strings.Builder
	var para []string
	flush := func() {
		if len(para) == 0 {
			return
		}
		b.WriteString(`<p class="story-text">`)
		for i, line := range para {
			if i > 0 {
				b.WriteString("<br>")
			}
			b.WriteString(processInline(line))
		}
		b.WriteString("</p>")
		para = para[:0]
	}

	for _, line := range strings.Split(escapeHTML(story), "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if html, ok := blockLine(line); ok {
			flush()
			b.WriteString(html)
			continue
		}
		para = append(para, line)
	}
	flush()
	return b.String()
}
