package v1

import (
	"errors"
	"net/http"
	"time"

	"shipwise-backend/internal/delivery/http/middleware"
	"shipwise-backend/internal/domain"
	"shipwise-backend/internal/usecase"
	"shipwise-backend/pkg/logger"
	"shipwise-backend/pkg/utils"
)

type ShipmentHandler struct {
	shipments *usecase.ShipmentUsecase
}

func NewShipmentHandler(shipments *usecase.ShipmentUsecase) *ShipmentHandler {
	return &ShipmentHandler{shipments: shipments}
}

// ownedOrder loads the order in the path and checks the caller may act on it.
// Admins can act on any order. Orders of other users read as not found.
func (h *ShipmentHandler) ownedOrder(w http.ResponseWriter, r *http.Request) (*domain.Order, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	order, err := h.shipments.Order(r.Context(), r.PathValue("id"))
	if err != nil {
		writeUsecaseError(w, r, err)
		return nil, false
	}
	if order.UserID != user.ID && !user.IsAdmin() {
		utils.WriteError(w, http.StatusNotFound, domain.ErrOrderNotFound.Error())
		return nil, false
	}
	return order, true
}

// shipReq carries only the courier; charges are re-quoted server side.
type shipReq struct {
	CourierID int `json:"courierId"`
}

func (h *ShipmentHandler) Ship(w http.ResponseWriter, r *http.Request) {
	order, ok := h.ownedOrder(w, r)
	if !ok {
		return
	}
	var req shipReq
	if err := utils.ReadJSON(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.CourierID <= 0 {
		utils.WriteError(w, http.StatusBadRequest, "courierId is required")
		return
	}

	shipped, err := h.shipments.Ship(r.Context(), order.ID, req.CourierID)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, shipped)
}

type pickupReq struct {
	PickupAt *time.Time `json:"pickupAt"`
}

func (h *ShipmentHandler) SchedulePickup(w http.ResponseWriter, r *http.Request) {
	order, ok := h.ownedOrder(w, r)
	if !ok {
		return
	}
	var req pickupReq
	if r.ContentLength != 0 {
		if err := utils.ReadJSON(w, r, &req); err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
	}
	var at time.Time
	if req.PickupAt != nil {
		at = *req.PickupAt
	}

	pickup, err := h.shipments.SchedulePickup(r.Context(), order.ID, at)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, pickup)
}

func (h *ShipmentHandler) GenerateLabel(w http.ResponseWriter, r *http.Request) {
	order, ok := h.ownedOrder(w, r)
	if !ok {
		return
	}
	label, err := h.shipments.GenerateLabel(r.Context(), order.ID)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	status := http.StatusOK
	if label.Pending {
		status = http.StatusAccepted
	}
	utils.WriteJSON(w, status, label)
}

func (h *ShipmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	order, ok := h.ownedOrder(w, r)
	if !ok {
		return
	}
	res, err := h.shipments.Cancel(r.Context(), order.ID)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, res)
}

func (h *ShipmentHandler) History(w http.ResponseWriter, r *http.Request) {
	order, ok := h.ownedOrder(w, r)
	if !ok {
		return
	}
	history, err := h.shipments.History(r.Context(), order.ID)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"history": history})
}

// Track is public: anyone holding an AWB or LRN may see its progress.
func (h *ShipmentHandler) Track(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("ref")
	if ref == "" {
		utils.WriteError(w, http.StatusBadRequest, "tracking reference is required")
		return
	}
	view, err := h.shipments.Track(r.Context(), ref)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			utils.WriteError(w, http.StatusNotFound, "shipment not found")
			return
		}
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, view)
}

// FreightLabelWebhook receives label-ready callbacks. Unknown or failed jobs
// are acknowledged so the carrier stops retrying; only storage failures ask
// for a redelivery.
func (h *ShipmentHandler) FreightLabelWebhook(w http.ResponseWriter, r *http.Request) {
	var hook domain.LabelWebhook
	if err := utils.ReadJSON(w, r, &hook); err != nil {
		logger.WithContext(r.Context()).Warn().Err(err).Msg("Malformed label webhook")
		utils.WriteError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.shipments.HandleFreightLabelWebhook(r.Context(), hook); err != nil {
		logger.WithContext(r.Context()).Error().Err(err).Str("lrn", hook.LRN).Msg("Label webhook failed")
		utils.WriteError(w, http.StatusInternalServerError, "label not stored")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
