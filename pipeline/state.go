package pipeline

import (
	"strings"

	"github.com/mrsingh-rishi/live-captions/model"
)

// State is a snapshot of one caption pipeline.
type State struct {
	Listening   bool                      `json:"listening"`
	Translating bool                      `json:"translating"`
	Status      model.Status              `json:"status"`
	Message     string                    `json:"message"`
	Buffer      string                    `json:"-"`
	Interim     string                    `json:"-"`
	Capturing   string                    `json:"capturing"`
	History     []model.TranslationRecord `json:"history"`
}

// capturing is the live preview: finalized text not yet translated followed by
// the provisional tail of the current utterance.
func capturing(buffer, interim string) string {
	return appendFragment(buffer, interim)
}

// appendFragment joins a finalized fragment onto the buffer, separating the
// two with a single space unless one side already provides whitespace.
func appendFragment(buffer, fragment string) string {
	if fragment == "" {
		return buffer
	}
	if buffer == "" || endsWithSpace(buffer) || startsWithSpace(fragment) {
		return buffer + fragment
	}
	return buffer + " " + fragment
}

func endsWithSpace(s string) bool {
	return s != "" && strings.TrimRight(s, " \t\n") != s
}

func startsWithSpace(s string) bool {
	return s != "" && strings.TrimLeft(s, " \t\n") != s
}
