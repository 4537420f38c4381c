package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hashora/settlement-service/internal/domain"
	"github.com/hashora/settlement-service/internal/usecase"
	orderdto "github.com/hashora/settlement-service/internal/usecase/dto/order"
	"github.com/shopspring/decimal"
)

type OrderHandler struct {
	Settlement usecase.SettlementUsecase
}

func NewOrderHandler(settlement usecase.SettlementUsecase) *OrderHandler {
	return &OrderHandler{Settlement: settlement}
}

type createOrderRequest struct {
	UserID         string `json:"userId"`
	PackageID      string `json:"packageId"`
	Chain          string `json:"chain"`
	DepositAddress string `json:"depositAddress"`
	AmountExpected string `json:"amountExpected"`
	ExpiresAt      string `json:"expiresAt,omitempty"`
}

type submitTransactionRequest struct {
	TxRef string `json:"txRef"`
}

type orderResponse struct {
	OrderID              string `json:"orderId"`
	UserID               string `json:"userId"`
	PackageID            string `json:"packageId"`
	Chain                string `json:"chain"`
	DepositAddress       string `json:"depositAddress"`
	AmountExpected       string `json:"amountExpected"`
	AmountReceived       string `json:"amountReceived,omitempty"`
	Status               string `json:"status"`
	TxRef                string `json:"txRef,omitempty"`
	ConfirmationAttempts int32  `json:"confirmationAttempts"`
	CreatedAt            string `json:"createdAt"`
	ExpiresAt            string `json:"expiresAt"`
	ConfirmedAt          string `json:"confirmedAt,omitempty"`
}

type verifyResponse struct {
	OrderID              string `json:"orderId"`
	Status               string `json:"status"`
	Verified             bool   `json:"verified"`
	AmountReceived       string `json:"amountReceived,omitempty"`
	FailureReason        string `json:"failureReason,omitempty"`
	Detail               string `json:"detail,omitempty"`
	ConfirmationAttempts int32  `json:"confirmationAttempts"`
}

type listOrdersResponse struct {
	Orders []orderResponse `json:"orders"`
	Total  int64           `json:"total"`
	Page   int64           `json:"page"`
	Limit  int64           `json:"limit"`
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.UserID == "" || req.PackageID == "" || req.DepositAddress == "" {
		writeError(w, http.StatusBadRequest, "userId, packageId and depositAddress are required")
		return
	}

	amount, err := decimal.NewFromString(req.AmountExpected)
	if err != nil || !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amountExpected must be a positive decimal string")
		return
	}

	input := &orderdto.CreateOrderInput{
		UserID:         req.UserID,
		PackageID:      req.PackageID,
		Chain:          domain.Chain(req.Chain),
		DepositAddress: req.DepositAddress,
		AmountExpected: amount,
	}
	if req.ExpiresAt != "" {
		expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "expiresAt must be RFC3339")
			return
		}
		input.ExpiresAt = expiresAt
	}

	output, err := h.Settlement.CreateOrder(input)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(&output.Order))
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	output, err := h.Settlement.GetOrderByID(orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(&output.Order))
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId query parameter is required")
		return
	}
	page := queryInt64(r, "page", 1)
	limit := queryInt64(r, "limit", 20)
	if limit > 100 {
		limit = 100
	}

	outputs, total, err := h.Settlement.GetOrdersByUserID(userID, page, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := listOrdersResponse{
		Orders: make([]orderResponse, len(outputs)),
		Total:  total,
		Page:   page,
		Limit:  limit,
	}
	for i, output := range outputs {
		resp.Orders[i] = toOrderResponse(&output.Order)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) SubmitTransaction(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req submitTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	if err := h.Settlement.SubmitTransaction(orderID, req.TxRef); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (h *OrderHandler) VerifyOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	output, err := h.Settlement.Verify(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{
		OrderID:              output.OrderID,
		Status:               string(output.Status),
		Verified:             output.Verified,
		AmountReceived:       output.AmountReceived,
		FailureReason:        string(output.FailureReason),
		Detail:               output.Detail,
		ConfirmationAttempts: output.ConfirmationAttempts,
	})
}

func toOrderResponse(order *domain.PaymentOrder) orderResponse {
	resp := orderResponse{
		OrderID:              order.ID,
		UserID:               order.UserID,
		PackageID:            order.PackageID,
		Chain:                string(order.Chain),
		DepositAddress:       order.DepositAddress,
		AmountExpected:       order.AmountExpected.String(),
		Status:               string(order.Status),
		TxRef:                order.TxRef,
		ConfirmationAttempts: order.ConfirmationAttempts,
		CreatedAt:            order.CreatedAt.Format(time.RFC3339),
		ExpiresAt:            order.ExpiresAt.Format(time.RFC3339),
	}
	if !order.AmountReceived.IsZero() {
		resp.AmountReceived = order.AmountReceived.String()
	}
	if order.ConfirmedAt != nil {
		resp.ConfirmedAt = order.ConfirmedAt.Format(time.RFC3339)
	}
	return resp
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrWalletNotFound),
		errors.Is(err, domain.ErrPackageNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidStateTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrMissingTransaction):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrUnsupportedChain):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrSenderUnresolved):
		writeError(w, http.StatusPreconditionFailed, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func queryInt64(r *http.Request, name string, fallback int64) int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
