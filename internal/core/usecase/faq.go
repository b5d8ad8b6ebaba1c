package usecase

import (
	"strings"

	"github.com/kirillkom/booking-assistant/internal/core/domain"
)

// FAQ answers static questions by keyword match. Answering never changes
// the conversation step.
type FAQ struct {
	entries []domain.FAQEntry
}

func NewFAQ(entries []domain.FAQEntry) *FAQ {
	return &FAQ{entries: entries}
}

func (f *FAQ) Match(utterance string) (string, bool) {
	lower := strings.ToLower(utterance)
	for _, entry := range f.entries {
		for _, keyword := range entry.Keywords {
			if keyword != "" && strings.Contains(lower, strings.ToLower(keyword)) {
				return entry.Answer, true
			}
		}
	}
	return "", false
}
