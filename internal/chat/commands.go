package chat

import (
	"slices"
	"strings"
)

var (
	exitWords  = []string{"q", "quit", "exit", "cikis", "çıkış"}
	resetWords = []string{"reset", "sil", "temizle"}
)

func normalize(line string) string {
	return strings.ToLower(strings.TrimSpace(line))
}

// IsExit reports whether line ends the conversation.
func IsExit(line string) bool {
	return slices.Contains(exitWords, normalize(line))
}

// IsReset reports whether line clears the conversation history.
func IsReset(line string) bool {
	return slices.Contains(resetWords, normalize(line))
}
