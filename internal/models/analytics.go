package models

import "time"

// EmotionCount is the number of classified turns with one label.
type EmotionCount struct {
	Emotion           string  `db:"emotion" json:"emotion"`
	Count             int     `db:"count" json:"count"`
	AverageConfidence float64 `db:"average_confidence" json:"average_confidence"`
}

// EmotionSummary aggregates a user's turns since a point in time.
// Emotions is ordered by count, most frequent first.
type EmotionSummary struct {
	Since           time.Time      `json:"since"`
	TotalMessages   int            `json:"total_messages"`
	CrisisMessages  int            `json:"crisis_messages"`
	DominantEmotion string         `json:"dominant_emotion,omitempty"`
	Emotions        []EmotionCount `json:"emotions"`
}
