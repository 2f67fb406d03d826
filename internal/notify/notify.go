// Package notify forwards operational events (friend requests, startup,
// shutdown) to the bot's operator.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sony/gobreaker"
)

const (
	queueSize   = 32
	sendTimeout = 10 * time.Second

	defaultAttempts   = 3
	defaultRetryDelay = 500 * time.Millisecond
	breakerFailures   = 5
	breakerCooldown   = time.Minute
)

// Notifier accepts events without blocking the caller.
type Notifier interface {
	Notify(text string)
	Run(ctx context.Context) error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Notify(string) {}

// Run blocks until ctx is done.
func (Noop) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// Sender is the part of the Telegram client the notifier uses.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Telegram sends events to one Telegram chat. Notify only queues; Run
// delivers. Failed sends are retried with backoff, and a run of consecutive
// failures opens a circuit breaker that drops events until it cools down.
type Telegram struct {
	sender  Sender
	chatID  int64
	log     *slog.Logger
	queue   chan string
	breaker *gobreaker.CircuitBreaker

	attempts   uint
	retryDelay time.Duration
}

// Option tunes a Telegram notifier.
type Option func(*Telegram)

// WithRetry sets how many times a send is attempted and the initial backoff
// between attempts.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(t *Telegram) {
		if attempts > 0 {
			t.attempts = attempts
		}
		t.retryDelay = delay
	}
}

// NewTelegram creates a Telegram bot client for token. No request is made
// until the first event is delivered.
func NewTelegram(token string, chatID int64, logger *slog.Logger, opts ...Option) (*Telegram, error) {
	if token == "" {
		return nil, errors.New("telegram bot token cannot be empty")
	}

	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return NewTelegramWithSender(b, chatID, logger, opts...), nil
}

// NewTelegramWithSender wraps an existing sender.
func NewTelegramWithSender(sender Sender, chatID int64, logger *slog.Logger, opts ...Option) *Telegram {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Telegram{
		sender:     sender,
		chatID:     chatID,
		log:        logger.With("component", "notify_telegram"),
		queue:      make(chan string, queueSize),
		attempts:   defaultAttempts,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "telegram",
		MaxRequests: 1,
		Timeout:     breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			t.log.Info("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return t
}

// Notify queues text. When the queue is full the event is dropped.
func (t *Telegram) Notify(text string) {
	select {
	case t.queue <- text:
	default:
		t.log.Warn("Notification queue full, dropping event")
	}
}

// Run delivers queued events until ctx is done. Events still queued at that
// point are sent before returning. Cancelling ctx never aborts a delivery:
// each attempt is bounded by the send timeout instead.
func (t *Telegram) Run(ctx context.Context) error {
	t.log.Info("Notifier started", "chat_id", t.chatID)
	deliverCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			t.flush(deliverCtx)
			t.log.Info("Notifier stopped")
			return nil
		case text := <-t.queue:
			t.send(deliverCtx, text)
		}
	}
}

func (t *Telegram) flush(ctx context.Context) {
	for {
		select {
		case text := <-t.queue:
			t.send(ctx, text)
		default:
			return
		}
	}
}

func (t *Telegram) send(ctx context.Context, text string) {
	params := &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   text,
	}

	err := retry.Do(
		func() error {
			_, err := t.breaker.Execute(func() (any, error) {
				sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
				defer cancel()
				return t.sender.SendMessage(sendCtx, params)
			})
			return err
		},
		retry.Context(ctx),
		retry.Attempts(t.attempts),
		retry.Delay(t.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests)
		}),
		retry.OnRetry(func(n uint, err error) {
			t.log.Debug("Notification send failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		t.log.Error("Failed to send notification", "error", err, "chat_id", t.chatID)
	}
}
