package chain

import (
	"fmt"

	"github.com/hashora/settlement-service/internal/domain"
	"github.com/shopspring/decimal"
)

// settleAmount turns a resolved transfer total into the final outcome. The
// sender-binding check has already passed by the time this runs: identity
// correctness is never traded against amount correctness.
func settleAmount(q domain.TransferQuery, sender string, received decimal.Decimal) domain.VerificationOutcome {
	if received.LessThanOrEqual(decimal.Zero) {
		return domain.VerificationOutcome{
			SenderAddress: sender,
			FailureReason: domain.ReasonNoMatchingTransfer,
			Detail:        fmt.Sprintf("no transfer to %s in transaction", domain.TruncateAddress(q.Recipient)),
		}
	}
	if !domain.AmountWithinTolerance(q.AmountExpected, received) {
		return domain.VerificationOutcome{
			SenderAddress:  sender,
			AmountReceived: received,
			FailureReason:  domain.ReasonAmountInsufficient,
			Detail: fmt.Sprintf("received %s of expected %s, short by %s",
				received.String(), q.AmountExpected.String(), domain.Shortfall(q.AmountExpected, received).String()),
		}
	}
	return domain.VerificationOutcome{
		Verified:       true,
		SenderAddress:  sender,
		AmountReceived: received,
	}
}
