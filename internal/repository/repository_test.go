package repository

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"companion/internal/crypto"
	"companion/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	logger := zap.NewNop()
	db, err := NewDB("sqlite", ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, MigrateDB(db, logger))
	return db
}

func createUser(t *testing.T, repo AuthRepository, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, PasswordHash: "hash"}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	return u
}

func ptr[T any](v T) *T { return &v }

func TestAuthRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewAuthRepository(db, zap.NewNop())
	ctx := context.Background()

	u := createUser(t, repo, "alice")
	assert.NotZero(t, u.ID)

	got, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	got, err = repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = repo.GetUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.CreateUser(ctx, &models.User{Username: "alice", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestMigrateDBIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, MigrateDB(db, zap.NewNop()))
}

func TestSaveTurnAndRecent(t *testing.T) {
	db := newTestDB(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	cipher, err := crypto.NewContentCipher(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)

	users := NewAuthRepository(db, zap.NewNop())
	repo := NewChatRepository(db, cipher, zap.NewNop())
	ctx := context.Background()

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		turn := &models.Turn{
			UserMessage: &models.Message{UserID: alice.ID, Sender: models.SenderUser, Content: "hello", Timestamp: ts,
				DetectedEmotion: ptr("joy"), EmotionConfidence: ptr(0.9)},
			EmotionLog: &models.EmotionLog{UserID: alice.ID, Emotion: "joy", Confidence: 0.9, Timestamp: ts},
			BotMessage: &models.Message{UserID: alice.ID, Sender: models.SenderBot, Content: "hi there", Timestamp: ts.Add(time.Second)},
		}
		require.NoError(t, repo.SaveTurn(ctx, turn))
		assert.NotZero(t, turn.UserMessage.ID)
		assert.NotZero(t, turn.BotMessage.ID)
		assert.NotZero(t, turn.EmotionLog.ID)
	}

	msgs, err := repo.RecentMessages(ctx, alice.ID, 4)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, models.SenderBot, msgs[0].Sender)
	assert.Equal(t, "hi there", msgs[0].Content)
	assert.Equal(t, "hello", msgs[1].Content)
	require.NotNil(t, msgs[1].DetectedEmotion)
	assert.Equal(t, "joy", *msgs[1].DetectedEmotion)
	assert.Nil(t, msgs[0].DetectedEmotion)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].Timestamp.After(msgs[i-1].Timestamp))
	}

	var stored string
	require.NoError(t, db.Get(&stored, `SELECT content FROM messages WHERE id = ?`, msgs[0].ID))
	assert.NotEqual(t, "hi there", stored)

	logs, err := repo.RecentEmotionLogs(ctx, alice.ID, 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.True(t, logs[0].Timestamp.After(logs[1].Timestamp))

	none, err := repo.RecentMessages(ctx, bob.ID, 50)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSaveTurnCrisisWithoutEmotion(t *testing.T) {
	db := newTestDB(t)
	cipher, _ := crypto.NewContentCipher("")
	repo := NewChatRepository(db, cipher, zap.NewNop())
	u := createUser(t, NewAuthRepository(db, zap.NewNop()), "carol")
	now := time.Now().UTC()

	err := repo.SaveTurn(context.Background(), &models.Turn{
		UserMessage: &models.Message{UserID: u.ID, Sender: models.SenderUser, Content: "help", Timestamp: now, IsCrisis: true},
		BotMessage:  &models.Message{UserID: u.ID, Sender: models.SenderBot, Content: "call someone", Timestamp: now},
	})
	require.NoError(t, err)

	msgs, err := repo.RecentMessages(context.Background(), u.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	logs, err := repo.RecentEmotionLogs(context.Background(), u.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestSaveTurnRollsBack(t *testing.T) {
	db := newTestDB(t)
	cipher, _ := crypto.NewContentCipher("")
	repo := NewChatRepository(db, cipher, zap.NewNop())
	u := createUser(t, NewAuthRepository(db, zap.NewNop()), "dave")
	now := time.Now().UTC()

	err := repo.SaveTurn(context.Background(), &models.Turn{
		UserMessage: &models.Message{UserID: u.ID, Sender: models.SenderUser, Content: "hi", Timestamp: now},
		BotMessage:  &models.Message{UserID: u.ID, Sender: "robot", Content: "hi", Timestamp: now},
	})
	require.Error(t, err)

	msgs, err := repo.RecentMessages(context.Background(), u.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestEmotionSummary(t *testing.T) {
	db := newTestDB(t)
	cipher, _ := crypto.NewContentCipher("")
	repo := NewChatRepository(db, cipher, zap.NewNop())
	analytics := NewAnalyticsRepository(db, zap.NewNop())
	users := NewAuthRepository(db, zap.NewNop())
	u := createUser(t, users, "erin")
	other := createUser(t, users, "frank")
	ctx := context.Background()

	base := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	save := func(userID int64, label string, conf float64, at time.Time) {
		t.Helper()
		require.NoError(t, repo.SaveTurn(ctx, &models.Turn{
			UserMessage: &models.Message{UserID: userID, Sender: models.SenderUser, Content: "x", Timestamp: at,
				DetectedEmotion: ptr(label), EmotionConfidence: ptr(conf)},
			EmotionLog: &models.EmotionLog{UserID: userID, Emotion: label, Confidence: conf, Timestamp: at},
			BotMessage: &models.Message{UserID: userID, Sender: models.SenderBot, Content: "y", Timestamp: at},
		}))
	}

	save(u.ID, "sadness", 0.8, base.Add(-48*time.Hour)) // outside the window
	save(u.ID, "sadness", 0.6, base.Add(time.Hour))
	save(u.ID, "sadness", 0.8, base.Add(2*time.Hour))
	save(u.ID, "joy", 0.9, base.Add(3*time.Hour))
	save(other.ID, "anger", 0.9, base.Add(time.Hour))
	require.NoError(t, repo.SaveTurn(ctx, &models.Turn{
		UserMessage: &models.Message{UserID: u.ID, Sender: models.SenderUser, Content: "z", Timestamp: base.Add(4 * time.Hour), IsCrisis: true},
		BotMessage:  &models.Message{UserID: u.ID, Sender: models.SenderBot, Content: "help", Timestamp: base.Add(4 * time.Hour)},
	}))

	summary, err := analytics.EmotionSummary(ctx, u.ID, base)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.TotalMessages)
	assert.Equal(t, 1, summary.CrisisMessages)
	assert.Equal(t, "sadness", summary.DominantEmotion)
	require.Len(t, summary.Emotions, 2)
	assert.Equal(t, 2, summary.Emotions[0].Count)
	assert.InDelta(t, 0.7, summary.Emotions[0].AverageConfidence, 1e-9)
	assert.Equal(t, "joy", summary.Emotions[1].Emotion)

	empty, err := analytics.EmotionSummary(ctx, u.ID, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, empty.TotalMessages)
	assert.Empty(t, empty.Emotions)
	assert.Empty(t, empty.DominantEmotion)
}
