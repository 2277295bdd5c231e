package v1

import (
	"errors"
	"net/http"

	"shipwise-backend/internal/domain"
	"shipwise-backend/internal/usecase"
	"shipwise-backend/pkg/logger"
	"shipwise-backend/pkg/utils"

	"github.com/shopspring/decimal"
)

// InternalHandler serves service-to-service calls from the storefront. It is
// mounted behind the shared internal token.
type InternalHandler struct {
	shipments *usecase.ShipmentUsecase
	wallet    *usecase.WalletUsecase
}

func NewInternalHandler(shipments *usecase.ShipmentUsecase, wallet *usecase.WalletUsecase) *InternalHandler {
	return &InternalHandler{shipments: shipments, wallet: wallet}
}

// OrderEvent is the HTTP twin of the Kafka consumer. Carrier failures are
// recorded on the order, so they are reported in the body rather than as an
// error status.
func (h *InternalHandler) OrderEvent(w http.ResponseWriter, r *http.Request) {
	var change domain.OrderStatusChange
	if err := utils.ReadJSON(w, r, &change); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if change.OrderID == "" || !change.After.IsKnown() {
		utils.WriteError(w, http.StatusBadRequest, "orderId and a known after status are required")
		return
	}

	err := h.shipments.OnStatusChange(r.Context(), change)
	var carrierErr *domain.CarrierError
	switch {
	case err == nil:
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "processed"})
	case errors.As(err, &carrierErr):
		utils.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "failed",
			"error":  domain.FailureMessage(err),
		})
	default:
		writeUsecaseError(w, r, err)
	}
}

type creditReq struct {
	UserID    string          `json:"userId"`
	Amount    decimal.Decimal `json:"amount"`
	Detail    string          `json:"detail"`
	Reference string          `json:"reference"`
}

// CreditWallet records a confirmed recharge payment.
func (h *InternalHandler) CreditWallet(w http.ResponseWriter, r *http.Request) {
	var req creditReq
	if err := utils.ReadJSON(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.UserID == "" {
		utils.WriteError(w, http.StatusBadRequest, "userId is required")
		return
	}

	res, err := h.wallet.Credit(r.Context(), req.UserID, req.Amount, req.Detail, req.Reference)
	if errors.Is(err, domain.ErrDuplicateTransaction) {
		logger.WithContext(r.Context()).Info().Str("reference", req.Reference).Msg("Recharge already applied")
		balance, berr := h.wallet.Balance(r.Context(), req.UserID)
		if berr != nil {
			writeUsecaseError(w, r, berr)
			return
		}
		utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"balance": balance, "duplicate": true})
		return
	}
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, res)
}
