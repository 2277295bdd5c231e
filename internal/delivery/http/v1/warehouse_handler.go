package v1

import (
	"net/http"

	"shipwise-backend/internal/delivery/http/middleware"
	"shipwise-backend/internal/domain"
	"shipwise-backend/internal/usecase"
	"shipwise-backend/pkg/utils"
)

type WarehouseHandler struct {
	warehouses *usecase.WarehouseUsecase
}

func NewWarehouseHandler(warehouses *usecase.WarehouseUsecase) *WarehouseHandler {
	return &WarehouseHandler{warehouses: warehouses}
}

type createWarehouseReq struct {
	Name        string `json:"name"`
	ContactName string `json:"contactName"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
	Country     string `json:"country"`
	GSTIN       string `json:"gstin"`
}

// Create stores the warehouse and answers before carrier registration
// finishes; the outcome shows up under registrations on a later read.
func (h *WarehouseHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req createWarehouseReq
	if err := utils.ReadJSON(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	wh := &domain.Warehouse{
		UserID:      user.ID,
		Name:        req.Name,
		ContactName: req.ContactName,
		Phone:       req.Phone,
		Email:       req.Email,
		Address:     req.Address,
		City:        req.City,
		State:       req.State,
		Pincode:     req.Pincode,
		Country:     req.Country,
		GSTIN:       req.GSTIN,
	}
	if err := h.warehouses.Create(r.Context(), wh); err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, wh)
}

func (h *WarehouseHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	wh, err := h.warehouses.GetByName(r.Context(), r.PathValue("name"))
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	if wh.UserID != user.ID && !user.IsAdmin() {
		utils.WriteError(w, http.StatusNotFound, domain.ErrWarehouseNotFound.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, wh)
}
