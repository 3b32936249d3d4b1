package models

import "time"

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Message is one exchange turn stored in the 'messages' table.
// Analysis fields are only set on non-crisis user messages.
type Message struct {
	ID                int64     `db:"id" json:"id"`
	UserID            int64     `db:"user_id" json:"user_id"`
	Sender            string    `db:"sender" json:"sender"`
	Content           string    `db:"content" json:"content"`
	Timestamp         time.Time `db:"timestamp" json:"timestamp"`
	DetectedEmotion   *string   `db:"detected_emotion" json:"detected_emotion"`
	EmotionConfidence *float64  `db:"emotion_confidence" json:"emotion_confidence"`
	IsCrisis          bool      `db:"is_crisis" json:"is_crisis"`
}

// EmotionLog is a standalone record of one classified emotion event.
type EmotionLog struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	Emotion    string    `db:"emotion" json:"emotion"`
	Confidence float64   `db:"confidence" json:"confidence"`
	Timestamp  time.Time `db:"timestamp" json:"timestamp"`
}

// Turn groups the records produced by a single chat request. They are
// committed together or not at all.
type Turn struct {
	UserMessage *Message
	EmotionLog  *EmotionLog
	BotMessage  *Message
}
