package models

import (
	"time"

	"github.com/hashora/settlement-service/internal/domain"
	"github.com/shopspring/decimal"
)

type OrderModel struct {
	ID                   string             `gorm:"primaryKey;type:uuid"`
	UserID               string             `gorm:"type:uuid;index"`
	PackageID            string             `gorm:"type:uuid"`
	Chain                domain.Chain       `gorm:"index"`
	DepositAddress       string             `gorm:"index"`
	AmountExpected       decimal.Decimal    `gorm:"type:decimal(36,18)"`
	AmountReceived       decimal.Decimal    `gorm:"type:decimal(36,18)"`
	Status               domain.OrderStatus `gorm:"index:idx_status_expires"`
	TxRef                string             `gorm:"index"`
	SenderExpected       string
	ConfirmationAttempts int32
	ExpiresAt            time.Time `gorm:"index:idx_status_expires"`
	ConfirmedAt          *time.Time
	CreatedAt            time.Time `gorm:"index:idx_created_at"`
	UpdatedAt            time.Time
}

func (OrderModel) TableName() string {
	return "payment_orders"
}
