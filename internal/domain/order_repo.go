package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderRepository interface {
	CreateOrder(order *PaymentOrder) error
	GetOrderByID(orderID string) (*PaymentOrder, error)
	GetOrdersByUserID(userID string, page, limit int64) ([]*PaymentOrder, int64, error)

	// AttachTxRef records the submitted transaction reference and moves the
	// order to AWAITING_CONFIRMATION in one update.
	AttachTxRef(orderID, txRef string) error

	// IncrementConfirmationAttempts bumps the counter atomically and returns
	// the stored value, so concurrent verifiers never undercount and each
	// reports a distinct count.
	IncrementConfirmationAttempts(orderID string) (int32, error)

	// ConfirmOrder performs the terminal write guarded by the prior status:
	// UPDATE ... WHERE id = ? AND status = AWAITING_CONFIRMATION. It returns
	// false when the guard matched no row, meaning a concurrent verifier won
	// the race and the caller should re-read the order.
	ConfirmOrder(orderID string, amountReceived decimal.Decimal, confirmedAt time.Time) (bool, error)

	// ExpireOrder moves a PENDING order to EXPIRED under the same prior-status
	// guard as ConfirmOrder. False means the order left PENDING between the
	// sweep's read and this write, and must not be touched.
	ExpireOrder(orderID string) (bool, error)

	// UpdateOrderStatus is the administrative override; it carries no status
	// guard and must never back an automated transition.
	UpdateOrderStatus(orderID string, newStatus OrderStatus) error
	FindExpiredOrders() ([]*PaymentOrder, error)
	FindAwaitingConfirmation(limit int) ([]*PaymentOrder, error)
}
