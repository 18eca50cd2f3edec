package main

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"fabler/internal/queue"
)

func statusLabel(status queue.Status) string {
	label := strings.ReplaceAll(string(status), "_", " ")
	return cases.Title(language.Und).String(label)
}
