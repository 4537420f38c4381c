package orderdto

import (
	"github.com/hashora/settlement-service/internal/domain"
)

type OrderOutput struct {
	Order domain.PaymentOrder
}

// VerifyOutput mirrors the adapter outcome plus the order bookkeeping the
// caller needs to drive its retry loop.
type VerifyOutput struct {
	OrderID              string
	Status               domain.OrderStatus
	Verified             bool
	AmountReceived       string
	FailureReason        domain.FailureReason
	Detail               string
	ConfirmationAttempts int32
}
