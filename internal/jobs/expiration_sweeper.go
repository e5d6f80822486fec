package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"trueque-market/internal/models"
	"trueque-market/internal/services"
)

// ExpirationSweeper expires stale pending proposals and reminds parties of
// proposals close to their deadline. Expiry uses the same guarded transition
// as every other closure, so a sweep racing a concurrent accept loses cleanly.
type ExpirationSweeper struct {
	tradeService *services.TradeService
	notifier     services.NotificationSink
	interval     time.Duration
	batchSize    int
	stopChan     chan struct{}
}

// NewExpirationSweeper creates a new expiration sweeper job
func NewExpirationSweeper(tradeService *services.TradeService, notifier services.NotificationSink, interval time.Duration) *ExpirationSweeper {
	return &ExpirationSweeper{
		tradeService: tradeService,
		notifier:     notifier,
		interval:     interval,
		batchSize:    100,
		stopChan:     make(chan struct{}),
	}
}

// Start begins the sweep loop
func (es *ExpirationSweeper) Start() {
	log.Printf("[ExpirationSweeper] Starting expiration sweep job (interval: %v)", es.interval)

	ticker := time.NewTicker(es.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			es.Sweep(context.Background())
		case <-es.stopChan:
			log.Println("[ExpirationSweeper] Stopping expiration sweep job")
			return
		}
	}
}

// Stop stops the sweep loop
func (es *ExpirationSweeper) Stop() {
	close(es.stopChan)
}

// Sweep runs one pass: expire overdue proposals, then send one-time reminders
// for proposals entering the warning window. Per-proposal failures are logged
// and skipped so one bad row never stalls the batch.
func (es *ExpirationSweeper) Sweep(ctx context.Context) {
	es.expireOverdue(ctx)
	es.warnExpiring(ctx)
}

func (es *ExpirationSweeper) expireOverdue(ctx context.Context) {
	trades, err := es.tradeService.ListOverdue(ctx, es.batchSize)
	if err != nil {
		log.Printf("[ExpirationSweeper] Error fetching overdue proposals: %v", err)
		return
	}
	if len(trades) == 0 {
		return
	}

	log.Printf("[ExpirationSweeper] Expiring %d overdue proposals", len(trades))

	expiredCount := 0
	for _, trade := range trades {
		if err := es.tradeService.ExpireTrade(ctx, trade.ID); err != nil {
			// Lost a race against accept/reject/cancel; the proposal is no
			// longer pending and needs nothing from us.
			log.Printf("[ExpirationSweeper] Skipping trade %s: %v", trade.ID, err)
			continue
		}
		expiredCount++
	}

	if expiredCount > 0 {
		log.Printf("[ExpirationSweeper] Expired %d proposals", expiredCount)
	}
}

func (es *ExpirationSweeper) warnExpiring(ctx context.Context) {
	trades, err := es.tradeService.ListExpiringSoon(ctx, es.batchSize)
	if err != nil {
		log.Printf("[ExpirationSweeper] Error fetching expiring proposals: %v", err)
		return
	}

	for _, trade := range trades {
		body := fmt.Sprintf("Proposal %s expires soon. Accept or reject it before the deadline.", trade.ID)
		es.notifier.Send(ctx, trade.ReceiverID, "Proposal expiring soon", body,
			models.NotificationTradeExpiring, &trade.ID)
		es.notifier.Send(ctx, trade.ProposerID, "Proposal expiring soon", body,
			models.NotificationTradeExpiring, &trade.ID)

		if err := es.tradeService.MarkWarned(ctx, trade.ID); err != nil {
			log.Printf("[ExpirationSweeper] Error marking trade %s warned: %v", trade.ID, err)
		}
	}
}
