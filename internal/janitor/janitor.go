// Package janitor removes chart messages once they are older than their TTL.
package janitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ailabhub/tres-guard/internal/metrics"
	"github.com/ailabhub/tres-guard/internal/store"
)

type MessageDeleter interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

type Janitor struct {
	logger  *slog.Logger
	store   store.Store
	deleter MessageDeleter
	period  time.Duration
	ttl     time.Duration
	now     func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(logger *slog.Logger, s store.Store, deleter MessageDeleter, period, ttl time.Duration) *Janitor {
	return &Janitor{
		logger:   logger,
		store:    s,
		deleter:  deleter,
		period:   period,
		ttl:      ttl,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start runs the sweep every period, the first one a full period after the
// call, until Stop is called or ctx is done.
func (j *Janitor) Start(ctx context.Context) {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ticker := time.NewTicker(j.period)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				j.Sweep(ctx, j.now())
			case <-ctx.Done():
				return
			case <-j.stopChan:
				return
			}
		}
	}()
	j.logger.Info("Janitor started", "period", j.period, "ttl", j.ttl)
}

// Stop waits for an in-flight sweep to finish.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.stopChan)
	})
	j.wg.Wait()
}

// Sweep deletes every tracked message older than the TTL and forgets it
// whether or not the delete succeeded. It returns how many entries expired.
func (j *Janitor) Sweep(ctx context.Context, now time.Time) int {
	msgs, err := j.store.EphemeralMessages(ctx)
	if err != nil {
		j.logger.Error("Failed to list chart messages", "error", err)
		return 0
	}

	expired := 0
	for _, msg := range msgs {
		if msg.Age(now) <= j.ttl {
			continue
		}
		expired++
		if err := j.deleter.DeleteMessage(ctx, msg.ChatID, msg.MessageID); err != nil {
			j.logger.Debug("Failed to delete chart message", "error", err, "chatID", msg.ChatID, "messageID", msg.MessageID)
		}
		if err := j.store.ForgetEphemeral(ctx, msg.ChatID, msg.MessageID); err != nil {
			j.logger.Error("Failed to forget chart message", "error", err, "chatID", msg.ChatID, "messageID", msg.MessageID)
		}
	}

	if expired > 0 {
		metrics.EphemeralExpired.Add(float64(expired))
		j.logger.Info("Expired chart messages", "count", expired, "tracked", len(msgs))
	}
	return expired
}
