package v1

import (
	"net/http"

	"shipwise-backend/internal/delivery/http/middleware"
	"shipwise-backend/internal/usecase"
	"shipwise-backend/pkg/utils"

	"github.com/shopspring/decimal"
)

type RemittanceHandler struct {
	remittances *usecase.RemittanceUsecase
}

func NewRemittanceHandler(remittances *usecase.RemittanceUsecase) *RemittanceHandler {
	return &RemittanceHandler{remittances: remittances}
}

// List returns the caller's COD remittances. Admins may pass ?userId to look
// at another merchant, or leave it empty to see everyone.
func (h *RemittanceHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	userID := user.ID
	if user.IsAdmin() {
		userID = r.URL.Query().Get("userId")
	}

	page, limit := pageParams(r)
	items, pagination, err := h.remittances.ListByUser(r.Context(), userID, r.URL.Query().Get("status"), page, limit)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"data":       items,
		"pagination": pagination,
	})
}

type remitReq struct {
	TransferedAmount decimal.Decimal `json:"transferedAmount"`
	Deduction        decimal.Decimal `json:"deduction"`
	Remark           string          `json:"remark"`
}

// MarkRemitted is admin only.
func (h *RemittanceHandler) MarkRemitted(w http.ResponseWriter, r *http.Request) {
	var req remitReq
	if err := utils.ReadJSON(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	rem, err := h.remittances.MarkRemitted(r.Context(), r.PathValue("orderId"), req.TransferedAmount, req.Deduction, req.Remark)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, rem)
}
