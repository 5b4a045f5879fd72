package markup

import (
	"regexp"
	"strings"
)

var (
	hrRegex      = regexp.MustCompile(`^(?:---+|\*\*\*+|___+)\s*$`)
	headerRegex  = regexp.MustCompile(`^(#{1,4}) (.+)$`)
	boldRegex    = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	boldRegex2   = regexp.MustCompile(`__([^_]+)__`)
	italicRegex  = regexp.MustCompile(`\*([^*\n]+)\*`)
	italicRegex2 = regexp.MustCompile(`(^|[\s(])_([^_\n]+)_`)
	strikeRegex  = regexp.MustCompile(`~~([^~]+)~~`)
)

// InlineToHTML converts inline markdown (bold, italic, strikethrough) in a
// single line of text. HTML in the input is escaped first.
func InlineToHTML(text string) string {
	if text == "" {
		return text
	}
	return processInline(escapeHTML(text))
}

// processInline expects already-escaped input.
func processInline(text string) string {
	result := strings.TrimSpace(text)
	result = boldRegex.ReplaceAllString(result, "<b>$1</b>")
	result = boldRegex2.ReplaceAllString(result, "<b>$1</b>")
	result = italicRegex.ReplaceAllStringFunc(result, func(match string) string {
		content := italicRegex.FindStringSubmatch(match)[1]
		if strings.TrimSpace(content) == "" {
			return match
		}
		return "<i>" + content + "</i>"
	})
	// Underscore italics only at word starts so snake_case names survive.
	result = italicRegex2.ReplaceAllStringFunc(result, func(match string) string {
		sub := italicRegex2.FindStringSubmatch(match)
		if strings.TrimSpace(sub[2]) == "" {
			return match
		}
		return sub[1] + "<i>" + sub[2] + "</i>"
	})
	result = strikeRegex.ReplaceAllString(result, "<s>$1</s>")
	return result
}

// blockLine converts an escaped line that forms a block of its own (header or
// rule). ok is false for ordinary prose.
func blockLine(line string) (html string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if hrRegex.MatchString(trimmed) {
		return "<hr>", true
	}
	if m := headerRegex.FindStringSubmatch(trimmed); m != nil {
		// Story headings sit below the page's own h1/h2.
		level := len(m[1]) + 2
		if level > 6 {
			level = 6
		}
		tag := "h" + string(rune('0'+level))
		return "<" + tag + ">" + processInline(m[2]) + "</" + tag + ">", true
	}
	return "", false
}

func escapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	text = strings.ReplaceAll(text, "\"", "&quot;")
	return text
}
