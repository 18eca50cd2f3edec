package storygen

import (
	"fmt"
	"strings"

	"fabler/internal/pipeline"
	"fabler/internal/queue"
)

const storySystemPrompt = `You are a narrative writer for short narrated videos.
Respond in exactly two sections:

Outline:
<a short beat-by-beat outline>

Script:
<the full narration script, one paragraph per visual scene, paragraphs separated by blank lines>`

const episodeSystemPrompt = `You are a podcast writer who serializes source material into episodes.
Respond with JSON only, in the shape:
{"episodes":[{"index":1,"title":"...","script":"..."}]}
Each script is the full spoken text for that episode.`

func storyUserPrompt(req pipeline.StoryRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a %s story", orAny(req.Genre))
	if req.Tone != "" {
		fmt.Fprintf(&b, " with a %s tone", req.Tone)
	}
	if req.TargetWords > 0 {
		fmt.Fprintf(&b, ", roughly %d words", req.TargetWords)
	}
	b.WriteString(", based on the following material:\n\n")
	b.WriteString(req.Source)
	return b.String()
}

func episodeUserPrompt(req pipeline.EpisodeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Serialize the following material into exactly %d podcast episodes", req.EpisodeCount)
	if req.Genre != "" {
		fmt.Fprintf(&b, " in the %s genre", req.Genre)
	}
	if req.Tone != "" {
		fmt.Fprintf(&b, " with a %s tone", req.Tone)
	}
	if req.TargetWords > 0 {
		fmt.Fprintf(&b, ", roughly %d words per episode", req.TargetWords)
	}
	b.WriteString(":\n\n")
	b.WriteString(req.Source)
	return b.String()
}

func orAny(genre string) string {
	if strings.TrimSpace(genre) == "" {
		return "short"
	}
	return genre
}

// ParseStory splits model output into outline and script sections. The
// parse is best effort: output without section headers becomes a script
// with an empty outline rather than an error.
func ParseStory(content string) queue.StoryArtifact {
	text := strings.ReplaceAll(content, "\r\n", "\n")

	outlineIdx := findHeader(text, "Outline:")
	scriptIdx := findHeader(text, "Script:")

	if scriptIdx < 0 {
		return queue.StoryArtifact{Script: strings.TrimSpace(text)}
	}

	script := strings.TrimSpace(text[scriptIdx+len("Script:"):])
	outline := ""
	if outlineIdx >= 0 && outlineIdx < scriptIdx {
		outline = strings.TrimSpace(text[outlineIdx+len("Outline:") : scriptIdx])
	}
	return queue.StoryArtifact{Outline: outline, Script: script}
}

// findHeader locates a section header at the start of a line.
func findHeader(text, header string) int {
	if strings.HasPrefix(text, header) {
		return 0
	}
	idx := strings.Index(text, "\n"+header)
	if idx < 0 {
		return -1
	}
	return idx + 1
}
