package notify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/MikeMC777/ecom-checkout/internal/events"
	"github.com/MikeMC777/ecom-checkout/internal/user"
)

type Directory interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
}

type WorkerConfig struct {
	MaxAttempts int
	// Backoff is multiplied by the attempt number between retries.
	Backoff     time.Duration
	PollTimeout time.Duration
}

type Worker struct {
	q      Queue
	users  Directory
	sender Sender
	events events.Publisher
	cfg    WorkerConfig
	log    *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewWorker(q Queue, users Directory, sender Sender, pub events.Publisher, cfg WorkerConfig, log *zap.Logger) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Second
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Worker{q: q, users: users, sender: sender, events: pub, cfg: cfg, log: log, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("notification worker started", zap.Int("max_attempts", w.cfg.MaxAttempts))
	for {
		j, err := w.q.Pop(ctx, w.cfg.PollTimeout)
		switch {
		case ctx.Err() != nil:
			w.log.Info("notification worker stopped")
			return nil
		case errors.Is(err, ErrEmpty):
			continue
		case err != nil:
			w.log.Error("notification queue pop", zap.Error(err))
			if w.sleep(ctx, time.Second) != nil {
				return nil
			}
			continue
		}
		w.Handle(ctx, j)
	}
}

// Handle delivers one job. It never returns an error: exhausted jobs are logged and dropped.
func (w *Worker) Handle(ctx context.Context, j Job) {
	log := w.log.With(zap.String("job_id", j.ID), zap.String("kind", string(j.Kind)), zap.String("order_id", j.OrderID))

	if err := w.publish(ctx, j); err != nil {
		log.Warn("order event publish failed", zap.Error(err))
	}

	var lastErr error
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		lastErr = w.deliver(ctx, j)
		if lastErr == nil {
			log.Info("notification sent", zap.Int("attempt", attempt))
			return
		}
		if errors.Is(lastErr, user.ErrNotFound) {
			break
		}
		log.Warn("notification attempt failed", zap.Int("attempt", attempt), zap.Error(lastErr))
		if attempt < w.cfg.MaxAttempts {
			if w.sleep(ctx, w.cfg.Backoff*time.Duration(attempt)) != nil {
				break
			}
		}
	}
	log.Error("notification dropped", zap.Error(lastErr))
}

func (w *Worker) deliver(ctx context.Context, j Job) error {
	u, err := w.users.GetUser(ctx, j.UserID)
	if err != nil {
		return err
	}
	m := Render(j, u.Name)
	m.To = u.Email
	return w.sender.Send(ctx, m)
}

func (w *Worker) publish(ctx context.Context, j Job) error {
	typ := events.TypeOrderStatusChanged
	if j.Kind == KindOrderPlaced {
		typ = events.TypeOrderPlaced
	}
	return w.events.Publish(ctx, events.Event{
		Type:           typ,
		OrderID:        j.OrderID,
		OrderNumber:    j.OrderNumber,
		UserID:         j.UserID,
		Status:         j.Status,
		PreviousStatus: j.PreviousStatus,
		Total:          j.Total,
		OccurredAt:     j.EnqueuedAt,
	})
}
