package repository

import (
	"context"
	"fmt"
	"time"

	"companion/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// AnalyticsRepository aggregates a user's stored turns.
type AnalyticsRepository interface {
	EmotionSummary(ctx context.Context, userID int64, since time.Time) (*models.EmotionSummary, error)
}

type analyticsRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewAnalyticsRepository(db *sqlx.DB, logger *zap.Logger) AnalyticsRepository {
	return &analyticsRepository{db: db, logger: logger}
}

func (r *analyticsRepository) EmotionSummary(ctx context.Context, userID int64, since time.Time) (*models.EmotionSummary, error) {
	summary := &models.EmotionSummary{
		Since:    since,
		Emotions: []models.EmotionCount{},
	}

	query := r.db.Rebind(`SELECT COUNT(*) AS total,
	                 COALESCE(SUM(CASE WHEN is_crisis THEN 1 ELSE 0 END), 0) AS crisis
	          FROM messages WHERE user_id = ? AND sender = ? AND timestamp >= ?`)
	var counts struct {
		Total  int `db:"total"`
		Crisis int `db:"crisis"`
	}
	if err := r.db.GetContext(ctx, &counts, query, userID, models.SenderUser, since); err != nil {
		r.logger.Error("Failed to count messages", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	summary.TotalMessages = counts.Total
	summary.CrisisMessages = counts.Crisis

	query = r.db.Rebind(`SELECT emotion, COUNT(*) AS count, AVG(confidence) AS average_confidence
	          FROM emotion_logs WHERE user_id = ? AND timestamp >= ?
	          GROUP BY emotion ORDER BY count DESC, emotion ASC`)
	if err := r.db.SelectContext(ctx, &summary.Emotions, query, userID, since); err != nil {
		r.logger.Error("Failed to aggregate emotions", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to aggregate emotions: %w", err)
	}

	if len(summary.Emotions) > 0 {
		summary.DominantEmotion = summary.Emotions[0].Emotion
	}
	return summary, nil
}
