package fetch

import (
	"html"
	"strings"
)

// blockTags are elements whose boundaries become paragraph breaks.
var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "br": true, "tr": true, "blockquote": true,
}

// skippedTags are elements whose content never contributes text.
var skippedTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "head": true,
	"nav": true, "footer": true, "svg": true,
}

// StripHTML reduces markup to its readable text. Script, style, and
// navigation content is dropped; block element boundaries become
// paragraph breaks; entities are unescaped.
func StripHTML(markup string) string {
	var b strings.Builder
	skipDepth := 0

	for i := 0; i < len(markup); {
		if markup[i] != '<' {
			end := strings.IndexByte(markup[i:], '<')
			if end < 0 {
				end = len(markup) - i
			}
			if skipDepth == 0 {
				b.WriteString(markup[i : i+end])
			}
			i += end
			continue
		}

		gt := strings.IndexByte(markup[i:], '>')
		if gt < 0 {
			break
		}
		tag := markup[i+1 : i+gt]
		i += gt + 1

		name, closing := tagName(tag)
		switch {
		case skippedTags[name] && !closing:
			if !strings.HasSuffix(tag, "/") {
				skipDepth++
			}
		case skippedTags[name] && closing:
			if skipDepth > 0 {
				skipDepth--
			}
		case blockTags[name] && skipDepth == 0:
			b.WriteString("\n\n")
		}
	}

	return collapseWhitespace(html.UnescapeString(b.String()))
}

func tagName(tag string) (name string, closing bool) {
	tag = strings.TrimSpace(tag)
	if strings.HasPrefix(tag, "/") {
		closing = true
		tag = tag[1:]
	}
	if idx := strings.IndexAny(tag, " \t\r\n/"); idx >= 0 {
		tag = tag[:idx]
	}
	return strings.ToLower(tag), closing
}

// collapseWhitespace normalizes runs of blank lines to one paragraph
// break and trims each line.
func collapseWhitespace(text string) string {
	var paragraphs []string
	for _, block := range strings.Split(text, "\n\n") {
		words := strings.Fields(block)
		if len(words) == 0 {
			continue
		}
		paragraphs = append(paragraphs, strings.Join(words, " "))
	}
	return strings.Join(paragraphs, "\n\n")
}
