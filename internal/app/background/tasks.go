package background

import (
	"context"
	"log"
	"time"

	"github.com/hashora/settlement-service/internal/config"
	"github.com/hashora/settlement-service/internal/domain"
	"github.com/hashora/settlement-service/internal/ratelimit"
	"github.com/hashora/settlement-service/internal/usecase"
)

type BackgroundTasks struct {
	SettlementUsecase  usecase.SettlementUsecase
	FulfillmentUsecase usecase.FulfillmentUsecase
	OrderRepo          domain.OrderRepository
	Limiter            *ratelimit.Limiter

	PollInterval        time.Duration
	ExpirySweepInterval time.Duration
	RemediationInterval time.Duration
	RPCTimeout          time.Duration

	// haltedOrders holds orders whose last verification failed for a
	// non-retryable reason; polling them again cannot change the answer, so
	// they wait for an administrative decision. Only the poller goroutine
	// touches this map.
	haltedOrders map[string]domain.FailureReason
}

func NewBackgroundTasks(
	settlementUC usecase.SettlementUsecase,
	fulfillmentUC usecase.FulfillmentUsecase,
	orderRepo domain.OrderRepository,
	limiter *ratelimit.Limiter,
	cfg config.Settlement) *BackgroundTasks {

	return &BackgroundTasks{
		SettlementUsecase:   settlementUC,
		FulfillmentUsecase:  fulfillmentUC,
		OrderRepo:           orderRepo,
		Limiter:             limiter,
		PollInterval:        cfg.PollInterval,
		ExpirySweepInterval: cfg.ExpirySweepInterval,
		RemediationInterval: cfg.RemediationInterval,
		RPCTimeout:          cfg.RPCTimeout,
		haltedOrders:        make(map[string]domain.FailureReason),
	}
}

func (bt *BackgroundTasks) StartAll(ctx context.Context) {
	go bt.startExpirySweep(ctx)
	go bt.startConfirmationPolling(ctx)
	go bt.startFulfillmentRemediation(ctx)
	go bt.startLimiterSweep(ctx)
}

func (bt *BackgroundTasks) startExpirySweep(ctx context.Context) {
	ticker := time.NewTicker(bt.ExpirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := bt.SettlementUsecase.ExpireOrders(ctx); err != nil {
				log.Printf("Expiry sweep error: %v\n", err)
			}
		}
	}
}

// startConfirmationPolling drives verification for orders whose payers
// already submitted a transaction. Handler-triggered verification covers the
// interactive path; this loop covers payers who walk away after paying.
func (bt *BackgroundTasks) startConfirmationPolling(ctx context.Context) {
	ticker := time.NewTicker(bt.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bt.pollAwaitingOrders(ctx)
		}
	}
}

func (bt *BackgroundTasks) pollAwaitingOrders(ctx context.Context) {
	orders, err := bt.OrderRepo.FindAwaitingConfirmation(100)
	if err != nil {
		log.Printf("Confirmation poll query error: %v\n", err)
		return
	}

	for _, order := range orders {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if _, halted := bt.haltedOrders[order.ID]; halted {
			continue
		}

		verifyCtx, cancel := context.WithTimeout(ctx, bt.RPCTimeout)
		out, err := bt.SettlementUsecase.Verify(verifyCtx, order.ID)
		cancel()
		if err != nil {
			log.Printf("Confirmation poll error for order %s: %v\n", order.ID, err)
			continue
		}
		if out.FailureReason != "" && !out.FailureReason.Retryable() {
			bt.haltedOrders[order.ID] = out.FailureReason
			log.Printf("Order %s halted after %s, needs manual review\n", order.ID, out.FailureReason)
		}
	}
}

func (bt *BackgroundTasks) startFulfillmentRemediation(ctx context.Context) {
	ticker := time.NewTicker(bt.RemediationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := bt.FulfillmentUsecase.RetryPending(ctx); err != nil {
				log.Printf("Fulfillment remediation error: %v\n", err)
			}
		}
	}
}

func (bt *BackgroundTasks) startLimiterSweep(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bt.Limiter.Sweep()
		}
	}
}
