package util

import "strings"

// ComposeMessage merges the typed text with the staged-attachment note. The
// backend only ever sees attachment names inside this prose; no structured
// metadata crosses the chat call.
func ComposeMessage(text string, filenames []string) string {
	if len(filenames) == 0 {
		return text
	}
	note := "User added " + strings.Join(filenames, ", ")
	if text == "" {
		return note
	}
	return text + "\n\n" + note
}
