package pipeline

import (
	"fmt"
	"strings"

	"fabler/internal/queue"
)

// outputName builds the library filename for a job's primary output.
func outputName(job *queue.Job, ext string) string {
	slug := slugify(job.Title)
	if slug == "" {
		slug = string(job.Kind)
	}
	return fmt.Sprintf("%04d-%s.%s", job.ID, slug, ext)
}

// episodeName builds the library filename for one podcast episode.
func episodeName(job *queue.Job, index int, ext string) string {
	slug := slugify(job.Title)
	if slug == "" {
		slug = string(job.Kind)
	}
	return fmt.Sprintf("%04d-%s-episode-%02d.%s", job.ID, slug, index, ext)
}

// slugify lowers the title into a filesystem-safe hyphenated token.
func slugify(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
