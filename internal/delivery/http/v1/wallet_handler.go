package v1

import (
	"net/http"

	"shipwise-backend/internal/delivery/http/middleware"
	"shipwise-backend/internal/usecase"
	"shipwise-backend/pkg/utils"
)

type WalletHandler struct {
	wallet *usecase.WalletUsecase
}

func NewWalletHandler(wallet *usecase.WalletUsecase) *WalletHandler {
	return &WalletHandler{wallet: wallet}
}

func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	balance, err := h.wallet.Balance(r.Context(), user.ID)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"balance": balance})
}

func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	page, limit := pageParams(r)
	txs, pagination, err := h.wallet.Transactions(r.Context(), user.ID, page, limit)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"data":       txs,
		"pagination": pagination,
	})
}

// pageParams reads ?page and ?limit; the usecases clamp bad values.
func pageParams(r *http.Request) (page, limit int) {
	q := r.URL.Query()
	return utils.ParseInt(q.Get("page"), 1), utils.ParseInt(q.Get("limit"), 20)
}
