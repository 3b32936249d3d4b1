package models

// ChatResult is the composite response returned for one user message.
type ChatResult struct {
	BotResponse       string  `json:"bot_response"`
	DetectedEmotion   string  `json:"detected_emotion"`
	EmotionConfidence float64 `json:"emotion_confidence"`
	Recommendation    *string `json:"recommendation"`
	IsCrisis          bool    `json:"is_crisis"`
}
