package domain

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

type FailureReason string

const (
	ReasonTransactionNotFound FailureReason = "TRANSACTION_NOT_FOUND"
	ReasonNotFinalized        FailureReason = "NOT_FINALIZED"
	ReasonExecutionFailed     FailureReason = "EXECUTION_FAILED"
	ReasonSenderMismatch      FailureReason = "SENDER_MISMATCH"
	ReasonAmountInsufficient  FailureReason = "AMOUNT_INSUFFICIENT"
	ReasonNoMatchingTransfer  FailureReason = "NO_MATCHING_TRANSFER"
	ReasonProviderError       FailureReason = "PROVIDER_ERROR"
)

// Retryable reports whether the same txRef may legitimately verify later.
func (r FailureReason) Retryable() bool {
	switch r {
	case ReasonTransactionNotFound, ReasonNotFinalized, ReasonProviderError:
		return true
	}
	return false
}

// VerificationOutcome is the adapter's answer for a single transaction
// reference. It is a value, not an error: "not found yet" is an ordinary
// unverified outcome.
type VerificationOutcome struct {
	Verified       bool
	AmountReceived decimal.Decimal
	SenderAddress  string
	FailureReason  FailureReason
	Detail         string
}

func Unverified(reason FailureReason, detail string) VerificationOutcome {
	return VerificationOutcome{FailureReason: reason, Detail: detail}
}

// TransferQuery carries everything an adapter needs to resolve a submitted
// transaction against the expected payment.
type TransferQuery struct {
	TxRef          string
	Recipient      string
	AmountExpected decimal.Decimal
	// SenderExpected is empty for orders that predate sender snapshots;
	// adapters then skip the binding check.
	SenderExpected string
}

// ChainAdapter verifies a transfer on one chain. Implementations return an
// error only for infrastructure faults (bad config, malformed provider
// response); every expected condition, including "transaction not found",
// is expressed through the outcome.
type ChainAdapter interface {
	Chain() Chain
	VerifyTransfer(ctx context.Context, q TransferQuery) (VerificationOutcome, error)
}

// amountTolerance is the share of the expected amount still accepted as a
// full payment, absorbing rounding and fee differences across chains.
var amountTolerance = decimal.RequireFromString("0.99")

func AmountWithinTolerance(expected, received decimal.Decimal) bool {
	return received.GreaterThanOrEqual(expected.Mul(amountTolerance))
}

func Shortfall(expected, received decimal.Decimal) decimal.Decimal {
	return expected.Sub(received)
}

// SenderMatches applies the sender-binding policy shared by all adapters.
// An empty expected or observed address cannot mismatch.
func SenderMatches(expected, observed string) bool {
	if expected == "" || observed == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(expected), strings.TrimSpace(observed))
}

// TruncateAddress shortens an address for mismatch reporting without leaking
// the full value into caller-facing messages.
func TruncateAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
