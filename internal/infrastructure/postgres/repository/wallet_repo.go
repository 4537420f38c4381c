package repository

import (
	"errors"

	"github.com/hashora/settlement-service/internal/domain"
	"github.com/hashora/settlement-service/internal/infrastructure/postgres/mappers"
	"github.com/hashora/settlement-service/internal/infrastructure/postgres/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DefaultWalletRepository struct {
	DB *gorm.DB
}

func NewDefaultWalletRepository(db *gorm.DB) *DefaultWalletRepository {
	return &DefaultWalletRepository{DB: db}
}

func (r *DefaultWalletRepository) GetWalletByAddress(address string) (*domain.DepositWallet, error) {
	var model models.DepositWalletModel
	if err := r.DB.First(&model, "address = ?", address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	return mappers.ToDomainWallet(&model), nil
}

// AddReceived increments in SQL rather than read-modify-write: confirmations
// for different orders on the same wallet must not lose updates.
func (r *DefaultWalletRepository) AddReceived(address string, amount decimal.Decimal) error {
	result := r.DB.Model(&models.DepositWalletModel{}).
		Where("address = ?", address).
		UpdateColumn("total_received", gorm.Expr("total_received + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrWalletNotFound
	}
	return nil
}
