package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending              OrderStatus = "PENDING"
	StatusAwaitingConfirmation OrderStatus = "AWAITING_CONFIRMATION"
	StatusConfirmed            OrderStatus = "CONFIRMED"
	StatusFailed               OrderStatus = "FAILED"
	StatusExpired              OrderStatus = "EXPIRED"
)

// IsTerminal reports whether no further transition is permitted.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusFailed || s == StatusExpired
}

type Chain string

const (
	ChainSolana Chain = "SOLANA"
	ChainEVM    Chain = "EVM"
	ChainTron   Chain = "TRON"
)

// PaymentOrder is the expected-payment record reconciled against the chain.
//
// SenderExpected is a snapshot of the payer's registered wallet address taken
// at order creation. It is written exactly once and never refreshed from the
// user profile afterwards: a payer who swaps their registered address after
// creating an order must still pay from the address bound here.
type PaymentOrder struct {
	ID                   string
	UserID               string
	PackageID            string
	Chain                Chain
	DepositAddress       string
	AmountExpected       decimal.Decimal
	AmountReceived       decimal.Decimal
	Status               OrderStatus
	TxRef                string
	SenderExpected       string
	ConfirmationAttempts int32
	CreatedAt            time.Time
	UpdatedAt            time.Time
	ExpiresAt            time.Time
	ConfirmedAt          *time.Time
}
