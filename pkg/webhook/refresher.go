package webhook

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"relaygo/pkg/logger"
)

// Refresher re-registers the webhook on a cron schedule.
type Refresher struct {
	manager *Manager
	spec    string

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

func NewRefresher(manager *Manager, spec string) *Refresher {
	return &Refresher{manager: manager, spec: spec}
}

func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New()
	if _, err := c.AddFunc(r.spec, func() {
		res := r.manager.Reset(runCtx)
		if !res.OK {
			logger.WarnCF("webhook", "Scheduled webhook refresh failed", map[string]interface{}{
				logger.FieldError: res.Error,
			})
		}
	}); err != nil {
		cancel()
		return fmt.Errorf("invalid refresh schedule %q: %w", r.spec, err)
	}
	c.Start()
	r.cron = c
	r.cancel = cancel

	logger.InfoCF("webhook", "Webhook refresh scheduled", map[string]interface{}{
		"schedule": r.spec,
	})
	return nil
}

// Stop halts the schedule and waits for a running refresh to return.
func (r *Refresher) Stop() {
	r.mu.Lock()
	c, cancel := r.cron, r.cancel
	r.cron, r.cancel = nil, nil
	r.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
}
