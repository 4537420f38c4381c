package repository

import (
	"errors"
	"time"

	"github.com/hashora/settlement-service/internal/domain"
	"github.com/hashora/settlement-service/internal/infrastructure/postgres/mappers"
	"github.com/hashora/settlement-service/internal/infrastructure/postgres/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DefaultOrderRepository struct {
	DB *gorm.DB
}

func NewDefaultOrderRepository(db *gorm.DB) *DefaultOrderRepository {
	return &DefaultOrderRepository{DB: db}
}

func (r *DefaultOrderRepository) CreateOrder(order *domain.PaymentOrder) error {
	orderModel := mappers.ToGORMOrder(order)
	if err := r.DB.Create(orderModel).Error; err != nil {
		return err
	}
	return nil
}

func (r *DefaultOrderRepository) GetOrderByID(orderID string) (*domain.PaymentOrder, error) {
	var order models.OrderModel
	if err := r.DB.First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}

	return mappers.ToDomainOrder(&order), nil
}

func (r *DefaultOrderRepository) GetOrdersByUserID(userID string, page, limit int64) ([]*domain.PaymentOrder, int64, error) {
	var orderModels []models.OrderModel
	var total int64

	baseQuery := r.DB.Model(&models.OrderModel{}).Where("user_id = ?", userID)
	if err := baseQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	offset := (page - 1) * limit
	if err := baseQuery.
		Order("created_at DESC").
		Offset(int(offset)).
		Limit(int(limit)).
		Find(&orderModels).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]*domain.PaymentOrder, len(orderModels))
	for i, orderModel := range orderModels {
		orders[i] = mappers.ToDomainOrder(&orderModel)
	}

	return orders, total, nil
}

func (r *DefaultOrderRepository) AttachTxRef(orderID, txRef string) error {
	result := r.DB.Model(&models.OrderModel{}).
		Where("id = ? AND status IN (?)", orderID, []domain.OrderStatus{domain.StatusPending, domain.StatusAwaitingConfirmation}).
		Updates(map[string]any{
			"tx_ref": txRef,
			"status": domain.StatusAwaitingConfirmation,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrInvalidStateTransition
	}
	return nil
}

func (r *DefaultOrderRepository) IncrementConfirmationAttempts(orderID string) (int32, error) {
	var model models.OrderModel
	result := r.DB.Model(&model).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "confirmation_attempts"}}}).
		Where("id = ?", orderID).
		UpdateColumn("confirmation_attempts", gorm.Expr("confirmation_attempts + 1"))
	if result.Error != nil {
		return 0, result.Error
	}
	return model.ConfirmationAttempts, nil
}

// ConfirmOrder is the single terminal write of the verification flow. The
// status guard makes it exactly-once: of two racing verifiers only one
// matches a row, the other re-reads and hits the idempotent short-circuit.
func (r *DefaultOrderRepository) ConfirmOrder(orderID string, amountReceived decimal.Decimal, confirmedAt time.Time) (bool, error) {
	result := r.DB.Model(&models.OrderModel{}).
		Where("id = ? AND status = ?", orderID, domain.StatusAwaitingConfirmation).
		Updates(map[string]any{
			"status":          domain.StatusConfirmed,
			"amount_received": amountReceived,
			"confirmed_at":    confirmedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ExpireOrder carries the same prior-status guard as ConfirmOrder: the row
// only moves when it is still PENDING, so a payer submitting a transaction
// between the sweep's read and this write keeps the order alive.
func (r *DefaultOrderRepository) ExpireOrder(orderID string) (bool, error) {
	result := r.DB.Model(&models.OrderModel{}).
		Where("id = ? AND status = ?", orderID, domain.StatusPending).
		Update("status", domain.StatusExpired)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *DefaultOrderRepository) UpdateOrderStatus(orderID string, newStatus domain.OrderStatus) error {
	updatedOrderModel := models.OrderModel{
		ID:     orderID,
		Status: newStatus,
	}

	if err := r.DB.Updates(&updatedOrderModel).Error; err != nil {
		return err
	}

	return nil
}

// FindExpiredOrders returns PENDING orders past their deadline. Orders
// already AWAITING_CONFIRMATION are excluded: a real transaction may still
// be pending finality and only an administrative override expires those.
func (r *DefaultOrderRepository) FindExpiredOrders() ([]*domain.PaymentOrder, error) {
	var orderModels []models.OrderModel
	if err := r.DB.
		Where("status = ?", domain.StatusPending).
		Where("expires_at < ?", time.Now()).
		Find(&orderModels).Error; err != nil {
		return nil, err
	}

	orders := make([]*domain.PaymentOrder, len(orderModels))
	for i, orderModel := range orderModels {
		orders[i] = mappers.ToDomainOrder(&orderModel)
	}

	return orders, nil
}

func (r *DefaultOrderRepository) FindAwaitingConfirmation(limit int) ([]*domain.PaymentOrder, error) {
	var orderModels []models.OrderModel
	if limit <= 0 {
		limit = 100
	}
	if err := r.DB.
		Where("status = ? AND tx_ref <> ''", domain.StatusAwaitingConfirmation).
		Order("created_at ASC").
		Limit(limit).
		Find(&orderModels).Error; err != nil {
		return nil, err
	}

	orders := make([]*domain.PaymentOrder, len(orderModels))
	for i, orderModel := range orderModels {
		orders[i] = mappers.ToDomainOrder(&orderModel)
	}

	return orders, nil
}
