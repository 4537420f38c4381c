package repository

import (
	"errors"
	"time"

	"github.com/hashora/settlement-service/internal/domain"
	"github.com/hashora/settlement-service/internal/infrastructure/postgres/mappers"
	"github.com/hashora/settlement-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DefaultFulfillmentRepository struct {
	DB *gorm.DB
}

func NewDefaultFulfillmentRepository(db *gorm.DB) *DefaultFulfillmentRepository {
	return &DefaultFulfillmentRepository{DB: db}
}

// Unique indexes on order_id / purchase_id plus DoNothing make every Create
// replayable by the remediation loop.
func (r *DefaultFulfillmentRepository) CreatePurchase(p *domain.Purchase) error {
	model := models.PurchaseModel{
		ID:        p.ID,
		OrderID:   p.OrderID,
		UserID:    p.UserID,
		PackageID: p.PackageID,
		Amount:    p.Amount,
		CreatedAt: p.CreatedAt,
	}
	return r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&model).Error
}

func (r *DefaultFulfillmentRepository) CreateMinerUnit(u *domain.MinerUnit) error {
	model := models.MinerUnitModel{
		ID:          u.ID,
		PurchaseID:  u.PurchaseID,
		UserID:      u.UserID,
		PackageID:   u.PackageID,
		Active:      u.Active,
		ActivatedAt: u.ActivatedAt,
	}
	return r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&model).Error
}

func (r *DefaultFulfillmentRepository) CreateAllocation(a *domain.HashrateAllocation) error {
	model := models.HashrateAllocationModel{
		ID:         a.ID,
		PurchaseID: a.PurchaseID,
		UserID:     a.UserID,
		Hashrate:   a.Hashrate,
		CreatedAt:  a.CreatedAt,
	}
	return r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&model).Error
}

func (r *DefaultFulfillmentRepository) GetPurchaseByOrderID(orderID string) (*domain.Purchase, error) {
	var model models.PurchaseModel
	if err := r.DB.First(&model, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return mappers.ToDomainPurchase(&model), nil
}

func (r *DefaultFulfillmentRepository) GetPackageByID(packageID string) (*domain.MiningPackage, error) {
	var model models.MiningPackageModel
	if err := r.DB.First(&model, "id = ?", packageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPackageNotFound
		}
		return nil, err
	}
	return mappers.ToDomainPackage(&model), nil
}

func (r *DefaultFulfillmentRepository) EnqueueTask(t *domain.FulfillmentTask) error {
	model := models.FulfillmentTaskModel{
		ID:        t.ID,
		OrderID:   t.OrderID,
		Step:      t.Step,
		LastError: t.LastError,
		Attempts:  t.Attempts,
		CreatedAt: t.CreatedAt,
	}
	return r.DB.Create(&model).Error
}

func (r *DefaultFulfillmentRepository) PendingTasks(limit int) ([]*domain.FulfillmentTask, error) {
	var taskModels []models.FulfillmentTaskModel
	if limit <= 0 {
		limit = 50
	}
	if err := r.DB.
		Where("resolved_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&taskModels).Error; err != nil {
		return nil, err
	}

	tasks := make([]*domain.FulfillmentTask, len(taskModels))
	for i, taskModel := range taskModels {
		tasks[i] = mappers.ToDomainTask(&taskModel)
	}
	return tasks, nil
}

func (r *DefaultFulfillmentRepository) ResolveTask(taskID string, resolvedAt time.Time) error {
	return r.DB.Model(&models.FulfillmentTaskModel{}).
		Where("id = ?", taskID).
		Update("resolved_at", resolvedAt).Error
}

func (r *DefaultFulfillmentRepository) BumpTask(taskID, lastError string) error {
	return r.DB.Model(&models.FulfillmentTaskModel{}).
		Where("id = ?", taskID).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": lastError,
		}).Error
}
