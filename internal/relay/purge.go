package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tuanvumaihuynh/product-tracker/internal/config"
	"github.com/tuanvumaihuynh/product-tracker/internal/repository"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Purger periodically deletes relayed outbox messages older than the retention.
type Purger struct {
	cfg           config.Relay
	logger        *slog.Logger
	outboxMsgRepo repository.OutboxMsgRepository
	sched         *cron.Cron
	now           func() time.Time
}

func NewPurger(cfg config.Relay, logger *slog.Logger, outboxMsgRepo repository.OutboxMsgRepository) *Purger {
	return &Purger{
		cfg:           cfg,
		logger:        logger.With(slog.String("service", "outbox_purger")),
		outboxMsgRepo: outboxMsgRepo,
		sched:         cron.New(cron.WithParser(cronParser)),
		now:           time.Now,
	}
}

// Run schedules the purge job and returns a function that stops it and
// waits for a running job to finish.
func (p *Purger) Run(ctx context.Context) (CleanupFunc, error) {
	if _, err := p.sched.AddFunc(p.cfg.PurgeSchedule, func() {
		if _, err := p.purge(ctx); err != nil {
			p.logger.ErrorContext(ctx, "error purging outbox msgs", slog.Any("error", err))
		}
	}); err != nil {
		return nil, fmt.Errorf("add purge job %q: %w", p.cfg.PurgeSchedule, err)
	}

	p.sched.Start()

	return func() {
		stopCtx := p.sched.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(5 * time.Second):
		}
	}, nil
}

func (p *Purger) purge(ctx context.Context) (int64, error) {
	purged, err := p.outboxMsgRepo.PurgeProcessedOutboxMsgs(ctx, repository.PurgeProcessedOutboxMsgsParams{
		ProcessedBefore: p.now().Add(-p.cfg.PurgeRetention),
	})
	if err != nil {
		return 0, fmt.Errorf("purge processed outbox msgs: %w", err)
	}

	if purged > 0 {
		p.logger.InfoContext(ctx, "purged outbox msgs", slog.Int64("count", purged))
	}

	return purged, nil
}
