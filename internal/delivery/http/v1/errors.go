package v1

import (
	"errors"
	"net/http"

	"shipwise-backend/internal/domain"
	"shipwise-backend/pkg/logger"
	"shipwise-backend/pkg/utils"
)

// writeUsecaseError maps domain and carrier errors onto HTTP statuses. Carrier
// failures only ever expose the extracted message, never the raw payload.
func writeUsecaseError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrWarehouseNotFound),
		errors.Is(err, domain.ErrRemittanceNotFound):
		utils.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnknownCourier),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidQuoteRequest),
		errors.Is(err, domain.ErrInvalidWarehouse):
		utils.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrCourierNotQuoted),
		errors.Is(err, domain.ErrChargesMissing):
		utils.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		utils.WriteError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, domain.ErrStatusConflict),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrBookingInProgress),
		errors.Is(err, domain.ErrNotBooked),
		errors.Is(err, domain.ErrWarehouseExists),
		errors.Is(err, domain.ErrRemittanceNotPayable),
		errors.Is(err, domain.ErrDuplicateTransaction):
		utils.WriteError(w, http.StatusConflict, err.Error())
	case domain.IsRejection(err):
		utils.WriteError(w, http.StatusUnprocessableEntity, domain.FailureMessage(err))
	case domain.IsRetryable(err), domain.IsAuthError(err):
		logger.WithContext(r.Context()).Warn().Err(err).Msg("Carrier call failed")
		utils.WriteError(w, http.StatusBadGateway, "carrier unavailable, try again later")
	case domain.IsConfigurationError(err):
		logger.WithContext(r.Context()).Error().Err(err).Msg("Carrier misconfigured")
		utils.WriteError(w, http.StatusServiceUnavailable, "carrier not configured")
	default:
		logger.WithContext(r.Context()).Error().Err(err).Msg("Request failed")
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
