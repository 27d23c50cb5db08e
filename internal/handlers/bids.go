package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"

	"panchayat/db"
	"panchayat/models"
)

func validateAgency(a *models.AgencyDetails) error {
	if a.Name == "" || len(a.Name) > 200 {
		return errors.New("name is required and max length 200")
	}
	if a.Email != "" {
		if _, err := mail.ParseAddress(a.Email); err != nil {
			return errors.New("invalid email")
		}
	}
	if len(a.ContactNumber) > 20 {
		return errors.New("contactNumber max length 20")
	}
	if a.Gstin != "" && len(a.Gstin) != 15 {
		return errors.New("gstin must be 15 characters")
	}
	if a.Pan != "" && len(a.Pan) != 10 {
		return errors.New("pan must be 10 characters")
	}
	return nil
}

// CreateAgencyHandler обрабатывает POST /api/agencies/new
func (h *Handler) CreateAgencyHandler(w http.ResponseWriter, r *http.Request) {
	var agency models.AgencyDetails
	if err := readJSON(w, r, &agency); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	agency.Name = strings.TrimSpace(agency.Name)
	agency.Email = strings.TrimSpace(agency.Email)
	agency.Gstin = strings.ToUpper(strings.TrimSpace(agency.Gstin))
	agency.Pan = strings.ToUpper(strings.TrimSpace(agency.Pan))

	if err := validateAgency(&agency); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Store.CreateAgency(r.Context(), &agency); err != nil {
		h.storeError(w, r, err, "Agency not found", "create agency")
		return
	}
	writeJSON(w, http.StatusOK, agency)
}

func (h *Handler) GetAgencyHandler(w http.ResponseWriter, r *http.Request) {
	agencyID, ok := pathID(r, "agencyId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid agencyId")
		return
	}

	agency, err := h.Store.GetAgency(r.Context(), agencyID)
	if err != nil {
		h.storeError(w, r, err, "Agency not found", "get agency")
		return
	}
	writeJSON(w, http.StatusOK, agency)
}

type bidRequest struct {
	WorksDetailID int             `json:"worksDetailId"`
	AgencyID      int             `json:"agencyId"`
	BiddingAmount decimal.Decimal `json:"biddingAmount"`
}

// CreateBidHandler обрабатывает POST /api/bids/new; предложения принимаются только по открытым работам
func (h *Handler) CreateBidHandler(w http.ResponseWriter, r *http.Request) {
	var req bidRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.WorksDetailID <= 0 || req.AgencyID <= 0 {
		writeError(w, http.StatusBadRequest, "worksDetailId and agencyId must be positive")
		return
	}
	if !req.BiddingAmount.IsPositive() {
		writeError(w, http.StatusBadRequest, "biddingAmount must be positive")
		return
	}

	works, err := h.Store.GetWorksDetail(r.Context(), req.WorksDetailID)
	if err != nil {
		h.storeError(w, r, err, "Work not found", "get work")
		return
	}
	if works.TenderStatus != models.TenderOpen {
		writeError(w, http.StatusConflict, "Work is not open for bidding")
		return
	}
	if _, err := h.Store.GetAgency(r.Context(), req.AgencyID); err != nil {
		h.storeError(w, r, err, "Agency not found", "get agency")
		return
	}

	bid := models.Bidagency{
		WorksDetailID: req.WorksDetailID,
		AgencyID:      req.AgencyID,
		BiddingAmount: req.BiddingAmount,
	}
	if err := h.Store.CreateBid(r.Context(), &bid); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			writeError(w, http.StatusConflict, "Agency already bid for this work")
			return
		}
		h.storeError(w, r, err, "Bid not found", "create bid")
		return
	}
	writeJSON(w, http.StatusOK, bid)
}

// GetBidsForWorkHandler - предложения по работе, самое низкое первым
func (h *Handler) GetBidsForWorkHandler(w http.ResponseWriter, r *http.Request) {
	worksID, ok := pathID(r, "worksId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid worksId")
		return
	}

	if _, err := h.Store.GetWorksDetail(r.Context(), worksID); err != nil {
		h.storeError(w, r, err, "Work not found", "get work")
		return
	}
	bids, err := h.Store.ListBidsForWork(r.Context(), worksID)
	if err != nil {
		h.storeError(w, r, err, "Work not found", "get bids")
		return
	}
	writeJSON(w, http.StatusOK, bids)
}
