// Package pipeline runs one chat turn through the analyzers and persists it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"companion/internal/crisis"
	"companion/internal/emotion"
	"companion/internal/metrics"
	"companion/internal/models"
	"companion/internal/repository"
	"companion/internal/telegram_bot"

	"go.uber.org/zap"
)

// ErrAnalyzer wraps failures of the external model backends.
var ErrAnalyzer = errors.New("analyzer failed")

const (
	// CrisisLabel is reported as the emotion of a crisis turn. It is never
	// stored on the message.
	CrisisLabel          = "crisis"
	CrisisRecommendation = "Please seek professional help immediately."

	alertTimeout = 10 * time.Second
)

// Screener is the crisis check.
type Screener interface {
	Check(text string) crisis.Result
}

// Recommender picks coping strategies.
type Recommender interface {
	Triggers(label string) bool
	Recommend(label string) string
}

// Generator produces bot replies.
type Generator interface {
	Generate(ctx context.Context, text string) (string, error)
}

// Alerter is told about committed crisis turns.
type Alerter interface {
	NotifyCrisis(ctx context.Context, alert telegram_bot.CrisisAlert) error
}

// User identifies the author of a turn.
type User struct {
	ID       int64
	Username string
}

// Pipeline holds the analyzers. It is built once and shared by all requests.
type Pipeline struct {
	screener    Screener
	classifier  emotion.Classifier
	recommender Recommender
	generator   Generator
	repo        repository.ChatRepository
	alerter     Alerter
	metrics     *metrics.Metrics
	now         func() time.Time
	logger      *zap.Logger

	alerts sync.WaitGroup
}

// Deps lists the collaborators of a Pipeline. Alerter and Metrics are optional.
type Deps struct {
	Screener    Screener
	Classifier  emotion.Classifier
	Recommender Recommender
	Generator   Generator
	Repo        repository.ChatRepository
	Alerter     Alerter
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

func New(d Deps) *Pipeline {
	return &Pipeline{
		screener:    d.Screener,
		classifier:  d.Classifier,
		recommender: d.Recommender,
		generator:   d.Generator,
		repo:        d.Repo,
		alerter:     d.Alerter,
		metrics:     d.Metrics,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      d.Logger,
	}
}

// Process handles one user message. Stages run in a fixed order and any
// failure aborts the turn before anything is stored.
func (p *Pipeline) Process(ctx context.Context, user User, text string) (*models.ChatResult, error) {
	start := time.Now()
	check := p.screener.Check(text)
	p.metrics.ObserveStage("crisis", start)

	userMsg := &models.Message{
		UserID:    user.ID,
		Sender:    models.SenderUser,
		Content:   text,
		Timestamp: p.now(),
		IsCrisis:  check.Crisis,
	}

	if check.Crisis {
		return p.handleCrisis(ctx, user, userMsg, check)
	}

	start = time.Now()
	emo, err := p.classifier.Classify(ctx, text)
	p.metrics.ObserveStage("emotion", start)
	if err != nil {
		p.metrics.CountTurn("error")
		return nil, fmt.Errorf("%w: %w", ErrAnalyzer, err)
	}
	p.metrics.ObserveEmotion(string(emo.Label), emo.Confidence)

	label := string(emo.Label)
	confidence := emo.Confidence
	userMsg.DetectedEmotion = &label
	userMsg.EmotionConfidence = &confidence

	emotionLog := &models.EmotionLog{
		UserID:     user.ID,
		Emotion:    label,
		Confidence: confidence,
		Timestamp:  userMsg.Timestamp,
	}

	var recommendation *string
	if p.recommender.Triggers(label) {
		r := p.recommender.Recommend(label)
		recommendation = &r
	}

	start = time.Now()
	reply, err := p.generator.Generate(ctx, text)
	p.metrics.ObserveStage("reply", start)
	if err != nil {
		p.metrics.CountTurn("error")
		return nil, fmt.Errorf("%w: %w", ErrAnalyzer, err)
	}

	turn := &models.Turn{
		UserMessage: userMsg,
		EmotionLog:  emotionLog,
		BotMessage:  &models.Message{UserID: user.ID, Sender: models.SenderBot, Content: reply, Timestamp: p.now()},
	}

	start = time.Now()
	err = p.repo.SaveTurn(ctx, turn)
	p.metrics.ObserveStage("persist", start)
	if err != nil {
		p.metrics.CountTurn("error")
		return nil, fmt.Errorf("failed to save turn: %w", err)
	}

	p.metrics.CountTurn("ok")
	p.logger.Debug("Turn processed",
		zap.Int64("user_id", user.ID),
		zap.String("emotion", label),
		zap.Float64("confidence", confidence),
		zap.Bool("recommended", recommendation != nil))

	return &models.ChatResult{
		BotResponse:       reply,
		DetectedEmotion:   label,
		EmotionConfidence: confidence,
		Recommendation:    recommendation,
		IsCrisis:          false,
	}, nil
}

func (p *Pipeline) handleCrisis(ctx context.Context, user User, userMsg *models.Message, check crisis.Result) (*models.ChatResult, error) {
	turn := &models.Turn{
		UserMessage: userMsg,
		BotMessage:  &models.Message{UserID: user.ID, Sender: models.SenderBot, Content: check.Message, Timestamp: p.now()},
	}

	start := time.Now()
	err := p.repo.SaveTurn(ctx, turn)
	p.metrics.ObserveStage("persist", start)
	if err != nil {
		p.metrics.CountTurn("error")
		return nil, fmt.Errorf("failed to save crisis turn: %w", err)
	}

	p.metrics.CountTurn("crisis")
	p.logger.Warn("Crisis language detected",
		zap.Int64("user_id", user.ID),
		zap.String("severity", string(check.Severity)),
		zap.Int64("message_id", userMsg.ID))

	if p.alerter != nil {
		alert := telegram_bot.CrisisAlert{
			UserID:    user.ID,
			Username:  user.Username,
			Severity:  string(check.Severity),
			MessageID: userMsg.ID,
			At:        userMsg.Timestamp,
		}
		p.alerts.Add(1)
		go p.sendAlert(context.WithoutCancel(ctx), alert)
	}

	recommendation := CrisisRecommendation
	return &models.ChatResult{
		BotResponse:       check.Message,
		DetectedEmotion:   CrisisLabel,
		EmotionConfidence: 1.0,
		Recommendation:    &recommendation,
		IsCrisis:          true,
	}, nil
}

// sendAlert runs off the request goroutine so a slow alert channel never
// delays the helpline response.
func (p *Pipeline) sendAlert(ctx context.Context, alert telegram_bot.CrisisAlert) {
	defer p.alerts.Done()
	ctx, cancel := context.WithTimeout(ctx, alertTimeout)
	defer cancel()
	if err := p.alerter.NotifyCrisis(ctx, alert); err != nil {
		p.logger.Error("Failed to send crisis alert", zap.Int64("user_id", alert.UserID), zap.Error(err))
	}
}

// Wait blocks until crisis alerts already in flight have finished.
func (p *Pipeline) Wait() {
	p.alerts.Wait()
}
