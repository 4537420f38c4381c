package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fulfillment step identifiers, in execution order.
const (
	StepPurchase    = "purchase"
	StepMinerUnit   = "miner_unit"
	StepAllocation  = "allocation"
	StepWalletTotal = "wallet_total"
)

type Purchase struct {
	ID        string
	OrderID   string
	UserID    string
	PackageID string
	Amount    decimal.Decimal
	CreatedAt time.Time
}

type MinerUnit struct {
	ID          string
	PurchaseID  string
	UserID      string
	PackageID   string
	Active      bool
	ActivatedAt time.Time
}

type HashrateAllocation struct {
	ID         string
	PurchaseID string
	UserID     string
	Hashrate   decimal.Decimal
	CreatedAt  time.Time
}

type MiningPackage struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Hashrate decimal.Decimal
}

type DepositWallet struct {
	Address       string
	Chain         Chain
	TotalReceived decimal.Decimal
}

// FulfillmentTask is a remediation queue entry: a confirmed order whose
// bookkeeping sequence failed at Step. The payment itself is never reversed.
type FulfillmentTask struct {
	ID         string
	OrderID    string
	Step       string
	LastError  string
	Attempts   int32
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

type FulfillmentRepository interface {
	// Create* calls are idempotent per order/purchase so that a remediation
	// retry can replay the whole sequence safely.
	CreatePurchase(p *Purchase) error
	CreateMinerUnit(u *MinerUnit) error
	CreateAllocation(a *HashrateAllocation) error
	GetPurchaseByOrderID(orderID string) (*Purchase, error)
	GetPackageByID(packageID string) (*MiningPackage, error)

	EnqueueTask(t *FulfillmentTask) error
	PendingTasks(limit int) ([]*FulfillmentTask, error)
	ResolveTask(taskID string, resolvedAt time.Time) error
	BumpTask(taskID, lastError string) error
}

type WalletRepository interface {
	GetWalletByAddress(address string) (*DepositWallet, error)
	// AddReceived increments the wallet running total atomically; confirmations
	// for different orders may land on the same wallet concurrently.
	AddReceived(address string, amount decimal.Decimal) error
}
