package orderdto

import (
	"time"

	"github.com/hashora/settlement-service/internal/domain"
	"github.com/shopspring/decimal"
)

type CreateOrderInput struct {
	UserID         string
	PackageID      string
	Chain          domain.Chain
	DepositAddress string
	AmountExpected decimal.Decimal
	// ExpiresAt is optional; zero means "apply the default TTL".
	ExpiresAt time.Time
}
