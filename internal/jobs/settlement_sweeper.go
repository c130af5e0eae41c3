package jobs

import (
	"context"
	"log"
	"time"

	"forecast-market/internal/services"
)

// SettlementSweeper periodically invokes the settlement scan and the oracle
// sweep. It carries no state of its own: every invocation reads everything
// it needs from the database, so an external cron hitting the trigger
// endpoints instead (or as well) is always safe.
type SettlementSweeper struct {
	settlement *services.SettlementService
	interval   time.Duration
	stopChan   chan struct{}
}

// NewSettlementSweeper creates a new settlement sweeper job
func NewSettlementSweeper(settlement *services.SettlementService, interval time.Duration) *SettlementSweeper {
	return &SettlementSweeper{
		settlement: settlement,
		interval:   interval,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the sweep loop
func (sw *SettlementSweeper) Start() {
	log.Printf("[SettlementSweeper] Starting settlement sweep job (interval: %v)", sw.interval)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sw.sweep()
		case <-sw.stopChan:
			log.Println("[SettlementSweeper] Stopping settlement sweep job")
			return
		}
	}
}

// Stop stops the sweep loop
func (sw *SettlementSweeper) Stop() {
	close(sw.stopChan)
}

func (sw *SettlementSweeper) sweep() {
	ctx := context.Background()
	now := time.Now()

	summary := sw.settlement.ScanAndAdvance(ctx, now)
	if summary.Checked > 0 {
		log.Printf("[SettlementSweeper] Scan: checked=%d settled=%d failed=%d",
			summary.Checked, summary.Settled, summary.Failed)
	}

	oracleSummary := sw.settlement.OracleSweep(ctx, now)
	if oracleSummary.Checked > 0 {
		log.Printf("[SettlementSweeper] Oracle sweep: checked=%d settled=%d failed=%d",
			oracleSummary.Checked, oracleSummary.Settled, oracleSummary.Failed)
	}
}
