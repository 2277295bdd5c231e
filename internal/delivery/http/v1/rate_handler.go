package v1

import (
	"context"
	"net/http"

	"shipwise-backend/internal/domain"
	"shipwise-backend/internal/usecase"
	"shipwise-backend/pkg/utils"
)

type RateHandler struct {
	rates *usecase.RateUsecase
}

func NewRateHandler(rates *usecase.RateUsecase) *RateHandler {
	return &RateHandler{rates: rates}
}

func (h *RateHandler) GetRates(w http.ResponseWriter, r *http.Request) {
	h.quote(w, r, h.rates.GetRates)
}

func (h *RateHandler) GetRatesB2B(w http.ResponseWriter, r *http.Request) {
	h.quote(w, r, h.rates.GetRatesB2B)
}

type quoteFunc func(ctx context.Context, req domain.QuoteRequest) ([]usecase.RateOption, error)

func (h *RateHandler) quote(w http.ResponseWriter, r *http.Request, fn quoteFunc) {
	var req domain.QuoteRequest
	if err := utils.ReadJSON(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	options, err := fn(r.Context(), req)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"rates": options})
}
