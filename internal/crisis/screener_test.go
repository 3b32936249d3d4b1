package crisis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckDetectsPhrasesInAnyCase(t *testing.T) {
	s := NewScreener(DefaultPhrases(), "")

	for _, p := range DefaultPhrases() {
		for _, text := range []string{
			"lately I " + p.Text + " all the time",
			strings.ToUpper("I " + p.Text),
			"..." + strings.ToUpper(p.Text[:1]) + p.Text[1:] + "...",
		} {
			res := s.Check(text)
			assert.True(t, res.Crisis, text)
			assert.Equal(t, DefaultMessage, res.Message)
			assert.Equal(t, SeverityHigh, res.Severity)
		}
	}
}

func TestCheckScenarioEndMyLife(t *testing.T) {
	res := NewScreener(DefaultPhrases(), "").Check("I want to end my life")
	assert.True(t, res.Crisis)
	assert.Equal(t, DefaultMessage, res.Message)
}

func TestCheckNoMatch(t *testing.T) {
	s := NewScreener(DefaultPhrases(), "")
	for _, text := range []string{"", "I had a great day", "I am so angry at my boss", "die hard is a movie"} {
		res := s.Check(text)
		assert.False(t, res.Crisis, text)
		assert.Empty(t, res.Message)
	}
}

func TestCheckOverlappingPhrases(t *testing.T) {
	s := NewScreener([]Phrase{{Text: "die"}, {Text: "want to die"}}, "help")
	res := s.Check("I want to die")
	assert.True(t, res.Crisis)
	assert.Equal(t, "help", res.Message)
	assert.Equal(t, "die", res.Phrase)
}

func TestNewScreenerDropsBlankPhrases(t *testing.T) {
	s := NewScreener([]Phrase{{Text: "  "}, {Text: "Hopeless", Severity: "medium"}}, "")
	assert.Len(t, s.Phrases(), 1)
	assert.False(t, s.Check("anything at all").Crisis)

	res := s.Check("feeling HOPELESS")
	assert.True(t, res.Crisis)
	assert.Equal(t, Severity("medium"), res.Severity)
}

func TestCheckIsDeterministic(t *testing.T) {
	s := NewScreener(DefaultPhrases(), "")
	first := s.Check("better off dead")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.Check("better off dead"))
	}
}

func TestCustomMessage(t *testing.T) {
	s := NewScreener([]Phrase{{Text: "give up"}}, "Call 988.")
	assert.Equal(t, "Call 988.", s.Message())

	res := s.Check("I just want to give up")
	assert.True(t, res.Crisis)
	assert.Equal(t, "Call 988.", res.Message)
	assert.Equal(t, SeverityHigh, res.Severity)

	assert.Equal(t, DefaultMessage, NewScreener(nil, "").Message())
}
