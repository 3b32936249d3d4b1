package repository

import (
	"context"
	"fmt"

	"companion/internal/crypto"
	"companion/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ChatRepository stores chat turns and emotion logs per user.
type ChatRepository interface {
	// SaveTurn inserts every record of the turn in a single transaction and
	// fills in their IDs.
	SaveTurn(ctx context.Context, turn *models.Turn) error
	// RecentMessages returns up to limit messages, newest first.
	RecentMessages(ctx context.Context, userID int64, limit int) ([]models.Message, error)
	// RecentEmotionLogs returns up to limit emotion logs, newest first.
	RecentEmotionLogs(ctx context.Context, userID int64, limit int) ([]models.EmotionLog, error)
}

type chatRepository struct {
	db     *sqlx.DB
	cipher crypto.ContentCipher
	logger *zap.Logger
}

func NewChatRepository(db *sqlx.DB, cipher crypto.ContentCipher, logger *zap.Logger) ChatRepository {
	return &chatRepository{db: db, cipher: cipher, logger: logger}
}

func (r *chatRepository) SaveTurn(ctx context.Context, turn *models.Turn) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, msg := range []*models.Message{turn.UserMessage, turn.BotMessage} {
		if msg == nil {
			continue
		}
		if err := r.insertMessage(ctx, tx, msg); err != nil {
			return err
		}
	}

	if log := turn.EmotionLog; log != nil {
		query := tx.Rebind(`INSERT INTO emotion_logs (user_id, emotion, confidence, timestamp) VALUES (?, ?, ?, ?) RETURNING id`)
		if err := tx.QueryRowxContext(ctx, query, log.UserID, log.Emotion, log.Confidence, log.Timestamp).Scan(&log.ID); err != nil {
			return fmt.Errorf("failed to save emotion log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit turn: %w", err)
	}
	return nil
}

func (r *chatRepository) insertMessage(ctx context.Context, tx *sqlx.Tx, msg *models.Message) error {
	content, err := r.cipher.Seal(msg.Content)
	if err != nil {
		return fmt.Errorf("failed to seal message content: %w", err)
	}

	query := tx.Rebind(`INSERT INTO messages (user_id, sender, content, timestamp, detected_emotion, emotion_confidence, is_crisis)
	          VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err = tx.QueryRowxContext(ctx, query, msg.UserID, msg.Sender, content, msg.Timestamp,
		msg.DetectedEmotion, msg.EmotionConfidence, msg.IsCrisis).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("failed to save %s message: %w", msg.Sender, err)
	}
	return nil
}

func (r *chatRepository) RecentMessages(ctx context.Context, userID int64, limit int) ([]models.Message, error) {
	var messages []models.Message
	query := r.db.Rebind(`SELECT id, user_id, sender, content, timestamp, detected_emotion, emotion_confidence, is_crisis
	          FROM messages WHERE user_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`)
	if err := r.db.SelectContext(ctx, &messages, query, userID, limit); err != nil {
		return nil, err
	}

	for i := range messages {
		content, err := r.cipher.Open(messages[i].Content)
		if err != nil {
			r.logger.Error("Failed to open message content", zap.Int64("message_id", messages[i].ID), zap.Error(err))
			return nil, fmt.Errorf("failed to open message %d: %w", messages[i].ID, err)
		}
		messages[i].Content = content
	}
	return messages, nil
}

func (r *chatRepository) RecentEmotionLogs(ctx context.Context, userID int64, limit int) ([]models.EmotionLog, error) {
	var logs []models.EmotionLog
	query := r.db.Rebind(`SELECT id, user_id, emotion, confidence, timestamp
	          FROM emotion_logs WHERE user_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`)
	if err := r.db.SelectContext(ctx, &logs, query, userID, limit); err != nil {
		return nil, err
	}
	return logs, nil
}
