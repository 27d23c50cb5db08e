package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"panchayat/db"
	"panchayat/models"
)

type worksRequest struct {
	NitDetailsID         int             `json:"nitDetailsId"`
	SerialNumber         int             `json:"serialNumber"`
	Name                 string          `json:"name"`
	EstimateAmount       decimal.Decimal `json:"estimateAmount"`
	EarnestMoneyFee      decimal.Decimal `json:"earnestMoneyFee"`
	ApprovedActionPlanID int             `json:"approvedActionPlanId"`
}

func validateWorksRequest(req *worksRequest) error {
	if req.NitDetailsID <= 0 {
		return errors.New("nitDetailsId must be positive")
	}
	if req.SerialNumber <= 0 {
		return errors.New("serialNumber must be positive")
	}
	if len(req.Name) > 500 {
		return errors.New("name max length 500")
	}
	if !req.EstimateAmount.IsPositive() {
		return errors.New("estimateAmount must be positive")
	}
	if req.EarnestMoneyFee.IsNegative() {
		return errors.New("earnestMoneyFee must not be negative")
	}
	if req.ApprovedActionPlanID <= 0 {
		return errors.New("approvedActionPlanId must be positive")
	}
	return nil
}

// CreateWorksHandler обрабатывает POST /api/works/new
func (h *Handler) CreateWorksHandler(w http.ResponseWriter, r *http.Request) {
	var req worksRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validateWorksRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.Store.GetNit(r.Context(), req.NitDetailsID); err != nil {
		h.storeError(w, r, err, "NIT not found", "get NIT")
		return
	}

	// новая работа всегда открыта для предложений
	works := models.WorksDetail{
		SerialNumber:         req.SerialNumber,
		Name:                 req.Name,
		EstimateAmount:       req.EstimateAmount,
		EarnestMoneyFee:      req.EarnestMoneyFee,
		WorkStatus:           models.WorkYetToStart,
		TenderStatus:         models.TenderOpen,
		NitDetailsID:         req.NitDetailsID,
		ApprovedActionPlanID: req.ApprovedActionPlanID,
	}
	if err := h.Store.CreateWorksDetail(r.Context(), &works); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			writeError(w, http.StatusConflict, "Work with this serial number already exists in the NIT")
			return
		}
		h.storeError(w, r, err, "Work not found", "create work")
		return
	}
	writeJSON(w, http.StatusOK, works)
}

func (h *Handler) GetWorksHandler(w http.ResponseWriter, r *http.Request) {
	worksID, ok := pathID(r, "worksId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid worksId")
		return
	}

	works, err := h.Store.GetWorksDetail(r.Context(), worksID)
	if err != nil {
		h.storeError(w, r, err, "Work not found", "get work")
		return
	}
	writeJSON(w, http.StatusOK, works)
}

// ListWorksHandler - GET /api/works?nitId=...; без nitId возвращает работы всех NIT
func (h *Handler) ListWorksHandler(w http.ResponseWriter, r *http.Request) {
	params := parsePaginationParams(r)

	nitID := 0
	if s := r.URL.Query().Get("nitId"); s != "" {
		id, err := strconv.Atoi(s)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid nitId")
			return
		}
		nitID = id
	}

	works, err := h.Store.ListWorks(r.Context(), nitID, params.Limit, params.Offset)
	if err != nil {
		h.storeError(w, r, err, "Work not found", "get works")
		return
	}
	writeJSON(w, http.StatusOK, works)
}
