package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashora/settlement-service/internal/domain"
	"github.com/hashora/settlement-service/internal/infrastructure/kafka"
	"github.com/hashora/settlement-service/internal/infrastructure/metrics"
	"github.com/jaevor/go-nanoid"
)

// maxRemediationAttempts caps automatic replays of a failed fulfillment;
// beyond it the task stays queued for manual reconciliation.
const maxRemediationAttempts = 10

// FulfillmentUsecase runs the ordered side effects of a confirmed payment:
// purchase receipt, miner unit, hashrate allocation, wallet running total,
// settlement event. Steps are replay-safe, and a failure never reverses the
// CONFIRMED status.
type FulfillmentUsecase interface {
	FulfillOrder(order *domain.PaymentOrder) error
	RetryPending(ctx context.Context) error
}

type DefaultFulfillmentUsecase struct {
	FulfillmentRepo domain.FulfillmentRepository
	WalletRepo      domain.WalletRepository
	OrderRepo       domain.OrderRepository
	Publisher       domain.PublisherPort
	Topic           string
	Metrics         *metrics.SettlementMetrics
}

func NewDefaultFulfillmentUsecase(
	fulfillmentRepo domain.FulfillmentRepository,
	walletRepo domain.WalletRepository,
	orderRepo domain.OrderRepository,
	publisher domain.PublisherPort,
	topic string,
	m *metrics.SettlementMetrics) *DefaultFulfillmentUsecase {

	return &DefaultFulfillmentUsecase{
		FulfillmentRepo: fulfillmentRepo,
		WalletRepo:      walletRepo,
		OrderRepo:       orderRepo,
		Publisher:       publisher,
		Topic:           topic,
		Metrics:         m,
	}
}

func (uc *DefaultFulfillmentUsecase) FulfillOrder(order *domain.PaymentOrder) error {
	return uc.run(order, true)
}

func (uc *DefaultFulfillmentUsecase) run(order *domain.PaymentOrder, enqueueOnFailure bool) error {
	pkg, err := uc.FulfillmentRepo.GetPackageByID(order.PackageID)
	if err != nil {
		return uc.fail(order, domain.StepPurchase, err, enqueueOnFailure)
	}

	idGenerator, err := nanoid.Standard(15)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	purchase := &domain.Purchase{
		ID:        idGenerator(),
		OrderID:   order.ID,
		UserID:    order.UserID,
		PackageID: order.PackageID,
		Amount:    order.AmountReceived,
		CreatedAt: now,
	}
	if err := uc.FulfillmentRepo.CreatePurchase(purchase); err != nil {
		return uc.fail(order, domain.StepPurchase, err, enqueueOnFailure)
	}
	// A replay may have hit an existing row; downstream records hang off the
	// canonical purchase ID.
	if existing, err := uc.FulfillmentRepo.GetPurchaseByOrderID(order.ID); err == nil {
		purchase = existing
	}

	unit := &domain.MinerUnit{
		ID:          idGenerator(),
		PurchaseID:  purchase.ID,
		UserID:      order.UserID,
		PackageID:   order.PackageID,
		Active:      true,
		ActivatedAt: now,
	}
	if err := uc.FulfillmentRepo.CreateMinerUnit(unit); err != nil {
		return uc.fail(order, domain.StepMinerUnit, err, enqueueOnFailure)
	}

	allocation := &domain.HashrateAllocation{
		ID:         idGenerator(),
		PurchaseID: purchase.ID,
		UserID:     order.UserID,
		Hashrate:   pkg.Hashrate,
		CreatedAt:  now,
	}
	if err := uc.FulfillmentRepo.CreateAllocation(allocation); err != nil {
		return uc.fail(order, domain.StepAllocation, err, enqueueOnFailure)
	}

	if err := uc.WalletRepo.AddReceived(order.DepositAddress, order.AmountReceived); err != nil {
		return uc.fail(order, domain.StepWalletTotal, err, enqueueOnFailure)
	}

	go func(event kafka.SettlementEvent) {
		if err := kafka.PublishSettlement(uc.Publisher, uc.Topic, event); err != nil {
			slog.Error("failed to publish settlement event", "order_id", event.OrderID, "error", err.Error())
		}
	}(kafka.SettlementEvent{
		OrderID:        order.ID,
		UserID:         order.UserID,
		PackageID:      order.PackageID,
		Chain:          string(order.Chain),
		AmountReceived: order.AmountReceived.String(),
		Hashrate:       pkg.Hashrate.String(),
		ConfirmedAt:    now.Unix(),
	})

	return nil
}

func (uc *DefaultFulfillmentUsecase) fail(order *domain.PaymentOrder, step string, cause error, enqueue bool) error {
	slog.Error("fulfillment step failed",
		"order_id", order.ID,
		"step", step,
		"error", cause.Error())
	if uc.Metrics != nil {
		uc.Metrics.RecordFulfillmentFailure(step)
	}

	if enqueue {
		task := &domain.FulfillmentTask{
			ID:        uuid.New().String(),
			OrderID:   order.ID,
			Step:      step,
			LastError: cause.Error(),
			Attempts:  1,
			CreatedAt: time.Now().UTC(),
		}
		if err := uc.FulfillmentRepo.EnqueueTask(task); err != nil {
			slog.Error("failed to enqueue remediation task", "order_id", order.ID, "error", err.Error())
		}
	}

	return fmt.Errorf("fulfillment step %s: %w", step, cause)
}

// RetryPending replays queued fulfillment sequences for confirmed orders.
// Create steps are conflict-safe, so a replay picks up where the original
// run stopped.
func (uc *DefaultFulfillmentUsecase) RetryPending(ctx context.Context) error {
	tasks, err := uc.FulfillmentRepo.PendingTasks(50)
	if err != nil {
		return err
	}

	for _, task := range tasks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if task.Attempts >= maxRemediationAttempts {
			slog.Error("fulfillment task exceeded retry budget, manual reconciliation required",
				"task_id", task.ID, "order_id", task.OrderID, "step", task.Step)
			continue
		}

		order, err := uc.OrderRepo.GetOrderByID(task.OrderID)
		if err != nil {
			slog.Error("remediation order lookup failed", "order_id", task.OrderID, "error", err.Error())
			continue
		}
		if order.Status != domain.StatusConfirmed {
			// Tasks only exist for confirmed orders; anything else is stale.
			_ = uc.FulfillmentRepo.ResolveTask(task.ID, time.Now().UTC())
			continue
		}

		if err := uc.run(order, false); err != nil {
			if bumpErr := uc.FulfillmentRepo.BumpTask(task.ID, err.Error()); bumpErr != nil {
				slog.Error("failed to bump remediation task", "task_id", task.ID, "error", bumpErr.Error())
			}
			continue
		}

		if err := uc.FulfillmentRepo.ResolveTask(task.ID, time.Now().UTC()); err != nil {
			slog.Error("failed to resolve remediation task", "task_id", task.ID, "error", err.Error())
		}
		slog.Info("fulfillment remediated", "order_id", order.ID, "task_id", task.ID)
	}

	return nil
}
