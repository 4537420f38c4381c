package mappers

import (
	"github.com/hashora/settlement-service/internal/domain"
	"github.com/hashora/settlement-service/internal/infrastructure/postgres/models"
)

func ToDomainOrder(model *models.OrderModel) *domain.PaymentOrder {
	return &domain.PaymentOrder{
		ID:                   model.ID,
		UserID:               model.UserID,
		PackageID:            model.PackageID,
		Chain:                model.Chain,
		DepositAddress:       model.DepositAddress,
		AmountExpected:       model.AmountExpected,
		AmountReceived:       model.AmountReceived,
		Status:               model.Status,
		TxRef:                model.TxRef,
		SenderExpected:       model.SenderExpected,
		ConfirmationAttempts: model.ConfirmationAttempts,
		ExpiresAt:            model.ExpiresAt,
		ConfirmedAt:          model.ConfirmedAt,
		CreatedAt:            model.CreatedAt,
		UpdatedAt:            model.UpdatedAt,
	}
}

func ToGORMOrder(order *domain.PaymentOrder) *models.OrderModel {
	return &models.OrderModel{
		ID:                   order.ID,
		UserID:               order.UserID,
		PackageID:            order.PackageID,
		Chain:                order.Chain,
		DepositAddress:       order.DepositAddress,
		AmountExpected:       order.AmountExpected,
		AmountReceived:       order.AmountReceived,
		Status:               order.Status,
		TxRef:                order.TxRef,
		SenderExpected:       order.SenderExpected,
		ConfirmationAttempts: order.ConfirmationAttempts,
		ExpiresAt:            order.ExpiresAt,
		ConfirmedAt:          order.ConfirmedAt,
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
	}
}
