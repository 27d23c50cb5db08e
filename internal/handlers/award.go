package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"panchayat/db"
	"panchayat/internal/award"
	"panchayat/internal/document"
	"panchayat/internal/report"
)

type awardRequest struct {
	WorkOrderMemoNumber string `json:"workOrderMemoNumber"`
	WorkOrderMemoDate   string `json:"workOrderMemoDate"`
	AcceptedBidID       int    `json:"acceptedBidId"`
}

func awardStatus(k award.Kind) int {
	switch k {
	case award.KindSuccess:
		return http.StatusOK
	case award.KindValidation:
		return http.StatusBadRequest
	case award.KindNotFound:
		return http.StatusNotFound
	case award.KindConflict:
		return http.StatusConflict
	case award.KindPartial:
		return http.StatusAccepted
	default:
		return http.StatusInternalServerError
	}
}

// FinalizeAwardHandler - POST /api/works/{worksId}/award
func (h *Handler) FinalizeAwardHandler(w http.ResponseWriter, r *http.Request) {
	worksID, ok := pathID(r, "worksId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid worksId")
		return
	}

	var req awardRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	awardReq := award.Request{
		WorkOrderMemoNumber: req.WorkOrderMemoNumber,
		WorksDetailID:       worksID,
		AcceptedBidID:       req.AcceptedBidID,
	}
	// пустая дата отсеивается проверкой обязательных полей
	if s := strings.TrimSpace(req.WorkOrderMemoDate); s != "" {
		date, err := parseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid workOrderMemoDate")
			return
		}
		awardReq.WorkOrderMemoDate = date
	}

	res := h.Awards.Finalize(r.Context(), awardReq)
	writeJSON(w, awardStatus(res.Kind), res)
}

// EnsureAgreementHandler - POST /api/works/{worksId}/agreement, повторный шаг договора
func (h *Handler) EnsureAgreementHandler(w http.ResponseWriter, r *http.Request) {
	worksID, ok := pathID(r, "worksId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid worksId")
		return
	}

	agr, err := h.Awards.EnsureAgreement(r.Context(), worksID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Work has not been awarded")
			return
		}
		if errors.Is(err, award.ErrAgreementConflict) {
			writeError(w, http.StatusConflict, award.MsgAgreementTaken)
			return
		}
		h.log.Error("ensure agreement", zap.Int("works_detail_id", worksID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create agreement")
		return
	}
	writeJSON(w, http.StatusOK, agr)
}

// WorkOrderPDFHandler - GET /api/works/{worksId}/workorder.pdf
func (h *Handler) WorkOrderPDFHandler(w http.ResponseWriter, r *http.Request) {
	worksID, ok := pathID(r, "worksId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid worksId")
		return
	}

	rec, err := h.Store.GetAwardByWorks(r.Context(), worksID)
	if err != nil {
		h.storeError(w, r, err, "Work has not been awarded", "get award")
		return
	}
	contact, err := h.Store.GetBidContact(r.Context(), rec.WorkOrder.BidAgencyID)
	if err != nil {
		h.storeError(w, r, err, "Bidder not found", "get bidder")
		return
	}
	nit, err := h.Store.GetNit(r.Context(), rec.Works.NitDetailsID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		h.storeError(w, r, err, "NIT not found", "get NIT")
		return
	}

	number := award.AgreementNumber(rec.AOC.WorkOrderMemoDate, rec.AOC.WorkOrderMemoNumber, rec.Works.SerialNumber)
	var buf bytes.Buffer
	if err := document.Render(award.WorkOrderDocument(rec, number, nit, contact), &buf); err != nil {
		h.log.Error("render work order", zap.Int("works_detail_id", worksID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to render work order")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"workorder-%d.pdf\"", worksID))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ExportWorkOrdersHandler - GET /api/workorders/export, реестр нарядов в xlsx
func (h *Handler) ExportWorkOrdersHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Store.ListWorkOrderRegister(r.Context())
	if err != nil {
		h.storeError(w, r, err, "No work orders", "get work order register")
		return
	}

	f, err := report.WorkOrderRegister(rows)
	if err != nil {
		h.log.Error("build work order register", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to export work orders")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", report.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", "attachment; filename=\"work-orders.xlsx\"")
	if err := f.Write(w); err != nil {
		h.log.Error("write work order register", zap.Error(err))
	}
}
