package mappers

import (
	"github.com/hashora/settlement-service/internal/domain"
	"github.com/hashora/settlement-service/internal/infrastructure/postgres/models"
)

func ToDomainPurchase(model *models.PurchaseModel) *domain.Purchase {
	return &domain.Purchase{
		ID:        model.ID,
		OrderID:   model.OrderID,
		UserID:    model.UserID,
		PackageID: model.PackageID,
		Amount:    model.Amount,
		CreatedAt: model.CreatedAt,
	}
}

func ToDomainPackage(model *models.MiningPackageModel) *domain.MiningPackage {
	return &domain.MiningPackage{
		ID:       model.ID,
		Name:     model.Name,
		Price:    model.Price,
		Hashrate: model.Hashrate,
	}
}

func ToDomainWallet(model *models.DepositWalletModel) *domain.DepositWallet {
	return &domain.DepositWallet{
		Address:       model.Address,
		Chain:         model.Chain,
		TotalReceived: model.TotalReceived,
	}
}

func ToDomainTask(model *models.FulfillmentTaskModel) *domain.FulfillmentTask {
	return &domain.FulfillmentTask{
		ID:         model.ID,
		OrderID:    model.OrderID,
		Step:       model.Step,
		LastError:  model.LastError,
		Attempts:   model.Attempts,
		CreatedAt:  model.CreatedAt,
		ResolvedAt: model.ResolvedAt,
	}
}
