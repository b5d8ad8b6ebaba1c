package nlu

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kirillkom/booking-assistant/internal/core/domain"
)

// Extractor turns a raw utterance plus the conversation position into a
// detected intent and normalized slot updates. It is pure and never fails:
// total non-understanding comes back as IntentUnknown with no slot changes.
type Extractor struct {
	services    []string
	faqKeywords []string
	now         func() time.Time
}

// Result carries the detected intent, normalized slot values, and the slots
// whose candidate text was present but malformed. Malformed candidates are
// never stored; the dialogue asks for clarification instead.
type Result struct {
	Intent    domain.Intent
	Slots     domain.SlotMap
	Malformed []domain.Slot
}

var (
	timezonePattern = regexp.MustCompile(`\b[A-Z][A-Za-z]+/[A-Z][A-Za-z_]+\b`)
	notesPattern    = regexp.MustCompile(`(?i)\bnotes?:\s*(.+)$`)
	namePattern     = regexp.MustCompile(`(?i)\b(?:i'?m|i am|my name is|this is|name is|it'?s|for)\s+([A-Za-z][A-Za-z'\-]*(?:\s+[A-Z][A-Za-z'\-]*)?)`)
	weekdayPattern  = regexp.MustCompile(`\b(?:next\s+)?(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)
	relativePattern = regexp.MustCompile(`\b(today|tomorrow)\b`)
)

var cancelPhrases = []string{
	"cancel my", "cancel the", "cancel it", "cancel that", "cancel appointment",
	"never mind", "nevermind", "forget it", "call it off",
}

var reschedulePhrases = []string{
	"reschedule", "move my appointment", "move my booking", "move it",
	"push it back", "change my appointment",
}

var confirmPhrases = []string{
	"yes", "yep", "yeah", "confirm", "confirmed", "correct", "sounds good",
	"that works", "book it", "go ahead", "sure", "perfect",
}

var nameStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "my": true, "me": true,
	"that": true, "this": true, "it": true, "sure": true, "now": true,
	"today": true, "tomorrow": true,
}

func NewExtractor(services []domain.ServiceOffering, faq []domain.FAQEntry, now func() time.Time) *Extractor {
	if now == nil {
		now = time.Now
	}
	names := make([]string, 0, len(services))
	for _, s := range services {
		names = append(names, strings.ToLower(s.Name))
	}
	// Longest name first so "beard trim" wins over "trim".
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	keywords := make([]string, 0)
	for _, entry := range faq {
		for _, kw := range entry.Keywords {
			keywords = append(keywords, strings.ToLower(kw))
		}
	}

	return &Extractor{services: names, faqKeywords: keywords, now: now}
}

func (e *Extractor) Extract(utterance string, state domain.AgentState) Result {
	res := Result{Slots: domain.SlotMap{}}
	text := strings.TrimSpace(utterance)
	if text == "" {
		res.Intent = domain.IntentUnknown
		return res
	}
	lower := strings.ToLower(text)

	e.extractSlots(text, lower, &res)

	switch {
	case containsAny(lower, cancelPhrases) || lower == "cancel":
		res.Intent = domain.IntentCancel
	case containsAny(lower, reschedulePhrases):
		res.Intent = domain.IntentReschedule
	case state.Step == domain.StepConfirming && isConfirmation(lower):
		res.Intent = domain.IntentConfirm
	case len(res.Slots) > 0 || len(res.Malformed) > 0:
		res.Intent = domain.IntentBook
	case containsAny(lower, e.faqKeywords):
		res.Intent = domain.IntentFAQ
	default:
		res.Intent = domain.IntentUnknown
	}
	return res
}

func (e *Extractor) extractSlots(text, lower string, res *Result) {
	if m := emailPattern.FindString(text); m != "" {
		if email, ok := NormalizeEmail(m); ok {
			res.Slots[domain.SlotEmail] = email
		} else {
			res.Malformed = append(res.Malformed, domain.SlotEmail)
		}
	}

	masked := lower
	if raw, candidate := findDateCandidate(lower); candidate {
		if date, ok := NormalizeDate(raw, e.now()); ok {
			res.Slots[domain.SlotDate] = date
		} else {
			res.Malformed = append(res.Malformed, domain.SlotDate)
		}
		// Dates are digit runs too; mask them before the phone scan.
		masked = strings.Replace(masked, raw, strings.Repeat(" ", len(raw)), 1)
	}

	if m := clockPattern.FindString(lower); m != "" {
		if clock, ok := NormalizeTime(m); ok {
			res.Slots[domain.SlotTime] = clock
		} else {
			res.Malformed = append(res.Malformed, domain.SlotTime)
		}
		masked = strings.Replace(masked, m, strings.Repeat(" ", len(m)), 1)
	} else if m := meridiemPattern.FindString(lower); m != "" {
		if clock, ok := NormalizeTime(m); ok {
			res.Slots[domain.SlotTime] = clock
		} else {
			res.Malformed = append(res.Malformed, domain.SlotTime)
		}
		masked = strings.Replace(masked, m, strings.Repeat(" ", len(m)), 1)
	}

	if m := phonePattern.FindString(masked); m != "" {
		if phone, ok := NormalizePhone(m); ok {
			res.Slots[domain.SlotPhone] = phone
		} else {
			res.Malformed = append(res.Malformed, domain.SlotPhone)
		}
	}

	for _, service := range e.services {
		if strings.Contains(lower, service) {
			res.Slots[domain.SlotService] = service
			break
		}
	}

	if m := timezonePattern.FindString(text); m != "" {
		// Opaque identifier, passed through as-is.
		res.Slots[domain.SlotTimezone] = m
	}

	if m := notesPattern.FindStringSubmatch(text); m != nil {
		res.Slots[domain.SlotNotes] = strings.TrimSpace(m[1])
	}

	if name := e.extractName(text); name != "" {
		res.Slots[domain.SlotName] = name
	}
}

// findDateCandidate returns the first date-looking fragment of the
// utterance, matched against the lower-cased text.
func findDateCandidate(lower string) (string, bool) {
	for _, p := range []*regexp.Regexp{isoDatePattern, monthDayPattern, dayMonthPattern, relativePattern, weekdayPattern, slashDatePattern} {
		if m := p.FindString(lower); m != "" {
			return m, true
		}
	}
	return "", false
}

func (e *Extractor) extractName(text string) string {
	for _, m := range namePattern.FindAllStringSubmatch(text, -1) {
		candidate := strings.Trim(m[1], " ,.!?")
		first := strings.ToLower(strings.Fields(candidate)[0])
		if nameStopwords[first] {
			continue
		}
		if e.isServiceWord(first) {
			continue
		}
		return candidate
	}
	return ""
}

func (e *Extractor) isServiceWord(word string) bool {
	for _, service := range e.services {
		if strings.Contains(service, word) {
			return true
		}
	}
	return false
}

func isConfirmation(lower string) bool {
	trimmed := strings.Trim(lower, " ,.!")
	for _, phrase := range confirmPhrases {
		if trimmed == phrase || strings.HasPrefix(trimmed, phrase+" ") || strings.HasPrefix(trimmed, phrase+",") {
			return true
		}
	}
	return false
}

func containsAny(lower string, phrases []string) bool {
	for _, phrase := range phrases {
		if phrase != "" && strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
