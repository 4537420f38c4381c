package usecase

import (
	"context"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashora/settlement-service/internal/domain"
	"github.com/hashora/settlement-service/internal/infrastructure/chain"
	"github.com/hashora/settlement-service/internal/infrastructure/metrics"
	orderdto "github.com/hashora/settlement-service/internal/usecase/dto/order"
)

type SettlementUsecase interface {
	CreateOrder(input *orderdto.CreateOrderInput) (*orderdto.OrderOutput, error)
	GetOrderByID(orderID string) (*orderdto.OrderOutput, error)
	GetOrdersByUserID(userID string, page, limit int64) ([]*orderdto.OrderOutput, int64, error)
	SubmitTransaction(orderID, txRef string) error
	Verify(ctx context.Context, orderID string) (*orderdto.VerifyOutput, error)
	ExpireOrders(ctx context.Context) error
}

type DefaultSettlementUsecase struct {
	OrderRepo   domain.OrderRepository
	WalletRepo  domain.WalletRepository
	Directory   domain.UserDirectory
	Adapters    chain.Adapters
	Fulfillment FulfillmentUsecase
	Metrics     *metrics.SettlementMetrics

	DefaultTTL                time.Duration
	AllowLegacySenderFallback bool
}

func NewDefaultSettlementUsecase(
	orderRepo domain.OrderRepository,
	walletRepo domain.WalletRepository,
	directory domain.UserDirectory,
	adapters chain.Adapters,
	fulfillment FulfillmentUsecase,
	m *metrics.SettlementMetrics,
	defaultTTL time.Duration,
	allowLegacySenderFallback bool) *DefaultSettlementUsecase {

	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Minute
	}
	return &DefaultSettlementUsecase{
		OrderRepo:                 orderRepo,
		WalletRepo:                walletRepo,
		Directory:                 directory,
		Adapters:                  adapters,
		Fulfillment:               fulfillment,
		Metrics:                   m,
		DefaultTTL:                defaultTTL,
		AllowLegacySenderFallback: allowLegacySenderFallback,
	}
}

// CreateOrder binds the payer identity at creation time: the registered
// wallet address is read once here and stored on the order. Later profile
// changes never affect which address must pay.
func (uc *DefaultSettlementUsecase) CreateOrder(input *orderdto.CreateOrderInput) (*orderdto.OrderOutput, error) {
	if _, err := uc.Adapters.ForChain(input.Chain); err != nil {
		return nil, err
	}

	wallet, err := uc.WalletRepo.GetWalletByAddress(input.DepositAddress)
	if err != nil {
		return nil, err
	}

	senderExpected, err := uc.Directory.RegisteredWalletAddress(input.UserID, input.Chain)
	if err != nil {
		return nil, domain.ErrSenderUnresolved
	}

	now := time.Now().UTC()
	expiresAt := input.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(uc.DefaultTTL)
	}

	order := &domain.PaymentOrder{
		ID:             uuid.New().String(),
		UserID:         input.UserID,
		PackageID:      input.PackageID,
		Chain:          input.Chain,
		DepositAddress: wallet.Address,
		AmountExpected: input.AmountExpected,
		Status:         domain.StatusPending,
		SenderExpected: senderExpected,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      expiresAt,
	}
	if err := uc.OrderRepo.CreateOrder(order); err != nil {
		return nil, err
	}

	slog.Info("payment order created",
		"order_id", order.ID,
		"chain", order.Chain,
		"amount_expected", order.AmountExpected.String())

	return &orderdto.OrderOutput{Order: *order}, nil
}

func (uc *DefaultSettlementUsecase) GetOrderByID(orderID string) (*orderdto.OrderOutput, error) {
	order, err := uc.OrderRepo.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}
	return &orderdto.OrderOutput{Order: *order}, nil
}

func (uc *DefaultSettlementUsecase) GetOrdersByUserID(userID string, page, limit int64) ([]*orderdto.OrderOutput, int64, error) {
	orders, total, err := uc.OrderRepo.GetOrdersByUserID(userID, page, limit)
	if err != nil {
		return nil, 0, err
	}
	outputs := make([]*orderdto.OrderOutput, len(orders))
	for i, order := range orders {
		outputs[i] = &orderdto.OrderOutput{Order: *order}
	}
	return outputs, total, nil
}

// SubmitTransaction records the payer's transaction reference. Resubmitting
// the same reference is a no-op; swapping in a different one while the first
// is under review is rejected.
func (uc *DefaultSettlementUsecase) SubmitTransaction(orderID, txRef string) error {
	txRef = strings.TrimSpace(txRef)
	if txRef == "" {
		return domain.ErrMissingTransaction
	}

	order, err := uc.OrderRepo.GetOrderByID(orderID)
	if err != nil {
		return err
	}

	switch order.Status {
	case domain.StatusPending:
	case domain.StatusAwaitingConfirmation:
		if order.TxRef == txRef {
			return nil
		}
		return domain.ErrInvalidStateTransition
	default:
		return domain.ErrInvalidStateTransition
	}

	return uc.OrderRepo.AttachTxRef(orderID, txRef)
}

func (uc *DefaultSettlementUsecase) Verify(ctx context.Context, orderID string) (*orderdto.VerifyOutput, error) {
	order, err := uc.OrderRepo.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}

	// Idempotent short-circuit: callers may retry a confirmed order freely.
	if order.Status == domain.StatusConfirmed {
		return confirmedOutput(order), nil
	}
	if order.Status != domain.StatusAwaitingConfirmation {
		return nil, domain.ErrInvalidStateTransition
	}
	if order.TxRef == "" {
		return nil, domain.ErrMissingTransaction
	}

	adapter, err := uc.Adapters.ForChain(order.Chain)
	if err != nil {
		return nil, err
	}

	outcome := uc.runAdapter(ctx, adapter, order)

	if !outcome.Verified {
		attempts, err := uc.OrderRepo.IncrementConfirmationAttempts(orderID)
		if err != nil {
			slog.Error("failed to bump confirmation attempts", "order_id", orderID, "error", err.Error())
			attempts = order.ConfirmationAttempts + 1
		}
		// A miss is not terminal: chain finality is asynchronous, only expiry
		// or an administrative action fails an order.
		return &orderdto.VerifyOutput{
			OrderID:              order.ID,
			Status:               order.Status,
			FailureReason:        outcome.FailureReason,
			Detail:               outcome.Detail,
			ConfirmationAttempts: attempts,
		}, nil
	}

	now := time.Now().UTC()
	won, err := uc.OrderRepo.ConfirmOrder(orderID, outcome.AmountReceived, now)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent verifier performed the terminal write first.
		fresh, err := uc.OrderRepo.GetOrderByID(orderID)
		if err != nil {
			return nil, err
		}
		if fresh.Status == domain.StatusConfirmed {
			return confirmedOutput(fresh), nil
		}
		return nil, domain.ErrInvalidStateTransition
	}

	order.Status = domain.StatusConfirmed
	order.AmountReceived = outcome.AmountReceived
	order.ConfirmedAt = &now

	if uc.Metrics != nil {
		uc.Metrics.RecordConfirmed(string(order.Chain), outcome.AmountReceived.InexactFloat64())
	}
	slog.Info("payment confirmed",
		"order_id", order.ID,
		"chain", order.Chain,
		"amount_received", outcome.AmountReceived.String())

	// Bookkeeping failures never reverse a confirmed payment; the sequencer
	// queues them for remediation and we only log here.
	if err := uc.Fulfillment.FulfillOrder(order); err != nil {
		log.Printf("fulfillment incomplete for confirmed order %s: %v", order.ID, err)
	}

	return confirmedOutput(order), nil
}

func (uc *DefaultSettlementUsecase) runAdapter(ctx context.Context, adapter domain.ChainAdapter, order *domain.PaymentOrder) domain.VerificationOutcome {
	senderExpected := order.SenderExpected
	if senderExpected == "" && uc.AllowLegacySenderFallback {
		// Pre-snapshot orders only: reading the mutable profile here relaxes
		// the sender-binding invariant, hence the warning.
		addr, err := uc.Directory.RegisteredWalletAddress(order.UserID, order.Chain)
		if err != nil {
			slog.Warn("legacy sender lookup failed", "order_id", order.ID, "error", err.Error())
		} else {
			slog.Warn("order predates sender snapshot, falling back to current registered address",
				"order_id", order.ID, "user_id", order.UserID)
			senderExpected = addr
		}
	}

	start := time.Now()
	outcome, err := adapter.VerifyTransfer(ctx, domain.TransferQuery{
		TxRef:          order.TxRef,
		Recipient:      order.DepositAddress,
		AmountExpected: order.AmountExpected,
		SenderExpected: senderExpected,
	})
	elapsed := time.Since(start).Seconds()
	if err != nil {
		// Provider faults are infrastructure noise, not payment truth: keep
		// the detail in the logs, hand the caller a generic transient reason.
		slog.Error("chain provider error", "order_id", order.ID, "chain", order.Chain, "error", err.Error())
		outcome = domain.Unverified(domain.ReasonProviderError, "verification temporarily unavailable")
	}

	if uc.Metrics != nil {
		result := "unverified"
		if outcome.Verified {
			result = "verified"
		} else if outcome.FailureReason != "" {
			result = strings.ToLower(string(outcome.FailureReason))
		}
		uc.Metrics.RecordVerification(string(order.Chain), result, elapsed)
	}
	return outcome
}

// ExpireOrders moves PENDING orders past their deadline to EXPIRED. Orders
// awaiting confirmation are left alone: a submitted transaction may still
// finalize.
func (uc *DefaultSettlementUsecase) ExpireOrders(ctx context.Context) error {
	orders, err := uc.OrderRepo.FindExpiredOrders()
	if err != nil {
		return err
	}

	for _, order := range orders {
		won, err := uc.OrderRepo.ExpireOrder(order.ID)
		if err != nil {
			log.Printf("Failed to expire order %s: %v\n", order.ID, err)
			continue
		}
		if !won {
			// The order left PENDING between the sweep's read and this write;
			// a submitted or even confirmed payment must not be expired.
			continue
		}
		slog.Info("order expired", "order_id", order.ID)
	}

	return nil
}

func confirmedOutput(order *domain.PaymentOrder) *orderdto.VerifyOutput {
	return &orderdto.VerifyOutput{
		OrderID:              order.ID,
		Status:               order.Status,
		Verified:             true,
		AmountReceived:       order.AmountReceived.String(),
		ConfirmationAttempts: order.ConfirmationAttempts,
	}
}
