// Package crisis screens user text for high-risk phrases.
package crisis

import "strings"

// Severity labels a crisis phrase. All severities currently trigger the same
// safety response.
type Severity string

const (
	SeverityHigh Severity = "high"
)

// DefaultMessage is returned to the user when a crisis phrase is found.
const DefaultMessage = "I'm really detecting some serious distress in your words. " +
	"Please know that you are not alone. If you are in immediate danger, " +
	"please call a local emergency number or a suicide prevention hotline immediately. " +
	"Your safety is the most important thing right now."

// Phrase is one row of the crisis table.
type Phrase struct {
	Text     string
	Severity Severity
}

// Result is the outcome of a crisis check. Message is empty unless Crisis is set.
type Result struct {
	Crisis   bool
	Message  string
	Phrase   string
	Severity Severity
}

// DefaultPhrases returns the built-in crisis table.
func DefaultPhrases() []Phrase {
	texts := []string{
		"suicide", "kill myself", "end my life", "want to die",
		"hurt myself", "cutting myself", "no reason to live",
		"better off dead", "feel like dying",
	}
	phrases := make([]Phrase, len(texts))
	for i, t := range texts {
		phrases[i] = Phrase{Text: t, Severity: SeverityHigh}
	}
	return phrases
}

// Screener matches text against a fixed phrase table. It is immutable after
// construction and safe for concurrent use.
type Screener struct {
	phrases []Phrase
	message string
}

// NewScreener builds a screener. Phrases are lower-cased; blank phrases are
// dropped so they can never match everything. An empty message selects
// DefaultMessage.
func NewScreener(phrases []Phrase, message string) *Screener {
	if message == "" {
		message = DefaultMessage
	}
	table := make([]Phrase, 0, len(phrases))
	for _, p := range phrases {
		text := strings.ToLower(strings.TrimSpace(p.Text))
		if text == "" {
			continue
		}
		if p.Severity == "" {
			p.Severity = SeverityHigh
		}
		table = append(table, Phrase{Text: text, Severity: p.Severity})
	}
	return &Screener{phrases: table, message: message}
}

// Check reports whether text contains any crisis phrase, ignoring case.
// The first matching phrase wins.
func (s *Screener) Check(text string) Result {
	if text == "" {
		return Result{}
	}
	lower := strings.ToLower(text)
	for _, p := range s.phrases {
		if strings.Contains(lower, p.Text) {
			return Result{Crisis: true, Message: s.message, Phrase: p.Text, Severity: p.Severity}
		}
	}
	return Result{}
}

// Phrases returns a copy of the active table.
func (s *Screener) Phrases() []Phrase {
	out := make([]Phrase, len(s.phrases))
	copy(out, s.phrases)
	return out
}

// Message is the safety response returned on a match.
func (s *Screener) Message() string {
	return s.message
}
