// Package support maps negative emotions to coping-strategy suggestions.
package support

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Fallback is returned for labels that have no recommendation.
const Fallback = "Remember to take deep breaths and stay hydrated."

// Table maps an emotion label to its suggestions.
type Table map[string][]string

// DefaultTriggers are the labels that produce a recommendation.
var DefaultTriggers = []string{"sadness", "fear", "anger"}

// DefaultTable returns the built-in coping strategies.
func DefaultTable() Table {
	return Table{
		"sadness": {
			"It’s okay to feel sad. Maybe try writing down your thoughts in a journal?",
			"Have you considered taking a short walk outside? Sometimes fresh air helps.",
			"Listen to some comforting music or a favorite song.",
			"Reach out to a close friend just to say hi.",
		},
		"fear": {
			"Try a deep breathing exercise: Inhale for 4 seconds, hold for 7, exhale for 8.",
			"Focus on the present moment. Name 5 things you can see around you.",
			"Grounding technique: Hold an ice cube or wash your hands with cold water.",
			"Write down what is worrying you, then cross out the things you cannot control.",
		},
		"anger": {
			"Take a step back and count to 10 slowly.",
			"Physical movement can help release tension. Maybe do some stretching?",
			"Write a letter to the source of your anger, but don't send it.",
			"Listen to high-energy music to let the emotions out safely.",
		},
		"joy": {
			"It's great to hear you're feeling good! Hold onto this feeling.",
			"Share your happiness with someone you care about!",
			"Take a moment to write down what made you happy today.",
		},
		"love": {
			"That sounds wonderful. Connection is so important.",
			"Cherish these moments.",
		},
		"surprise": {
			"Unexpected things can be overwhelming. Take a moment to process it.",
			"Is it a good surprise or a shocking one? Give yourself time.",
		},
	}
}

// Rand is the randomness the selector draws from.
type Rand interface {
	IntN(n int) int
}

// NewRand returns a seeded source. A zero seed is replaced by the current time.
func NewRand(seed int64) Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))
}

// Selector picks one suggestion at random for trigger labels. It holds no
// history, so consecutive calls may repeat a suggestion.
type Selector struct {
	table    Table
	triggers map[string]struct{}

	mu  sync.Mutex
	rnd Rand
}

// NewSelector copies table and triggers; entries with no suggestions are
// ignored.
func NewSelector(table Table, triggers []string, rnd Rand) *Selector {
	t := make(Table, len(table))
	for label, items := range table {
		if len(items) == 0 {
			continue
		}
		t[label] = append([]string(nil), items...)
	}
	trig := make(map[string]struct{}, len(triggers))
	for _, l := range triggers {
		trig[l] = struct{}{}
	}
	return &Selector{table: t, triggers: trig, rnd: rnd}
}

// Triggers reports whether label produces a recommendation.
func (s *Selector) Triggers(label string) bool {
	if _, ok := s.triggers[label]; !ok {
		return false
	}
	_, ok := s.table[label]
	return ok
}

// Recommend returns a random suggestion for a trigger label, or Fallback.
func (s *Selector) Recommend(label string) string {
	if !s.Triggers(label) {
		return Fallback
	}
	items := s.table[label]

	s.mu.Lock()
	i := s.rnd.IntN(len(items))
	s.mu.Unlock()

	return items[i]
}

// Suggestions returns the configured list for label, or nil.
func (s *Selector) Suggestions(label string) []string {
	return append([]string(nil), s.table[label]...)
}
