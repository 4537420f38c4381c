package models

import (
	"time"

	"github.com/hashora/settlement-service/internal/domain"
	"github.com/shopspring/decimal"
)

type PurchaseModel struct {
	ID        string          `gorm:"primaryKey"`
	OrderID   string          `gorm:"type:uuid;uniqueIndex"`
	UserID    string          `gorm:"type:uuid;index"`
	PackageID string          `gorm:"type:uuid"`
	Amount    decimal.Decimal `gorm:"type:decimal(36,18)"`
	CreatedAt time.Time
}

func (PurchaseModel) TableName() string {
	return "purchases"
}

type MinerUnitModel struct {
	ID          string `gorm:"primaryKey"`
	PurchaseID  string `gorm:"uniqueIndex"`
	UserID      string `gorm:"type:uuid;index"`
	PackageID   string `gorm:"type:uuid"`
	Active      bool
	ActivatedAt time.Time
}

func (MinerUnitModel) TableName() string {
	return "miner_units"
}

type HashrateAllocationModel struct {
	ID         string          `gorm:"primaryKey"`
	PurchaseID string          `gorm:"uniqueIndex"`
	UserID     string          `gorm:"type:uuid;index"`
	Hashrate   decimal.Decimal `gorm:"type:decimal(36,18)"`
	CreatedAt  time.Time
}

func (HashrateAllocationModel) TableName() string {
	return "hashrate_allocations"
}

type MiningPackageModel struct {
	ID       string          `gorm:"primaryKey;type:uuid"`
	Name     string
	Price    decimal.Decimal `gorm:"type:decimal(36,18)"`
	Hashrate decimal.Decimal `gorm:"type:decimal(36,18)"`
}

func (MiningPackageModel) TableName() string {
	return "mining_packages"
}

type DepositWalletModel struct {
	Address       string          `gorm:"primaryKey"`
	Chain         domain.Chain    `gorm:"index"`
	TotalReceived decimal.Decimal `gorm:"type:decimal(36,18)"`
	UpdatedAt     time.Time
}

func (DepositWalletModel) TableName() string {
	return "deposit_wallets"
}

type FulfillmentTaskModel struct {
	ID         string `gorm:"primaryKey"`
	OrderID    string `gorm:"type:uuid;index"`
	Step       string
	LastError  string
	Attempts   int32
	CreatedAt  time.Time
	ResolvedAt *time.Time `gorm:"index"`
}

func (FulfillmentTaskModel) TableName() string {
	return "fulfillment_tasks"
}
