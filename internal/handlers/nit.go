package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"panchayat/models"
)

type PaginationParams struct {
	Limit  int
	Offset int
}

// parsePaginationParams парсит limit и offset из query, с дефолтами и ограничениями
func parsePaginationParams(r *http.Request) PaginationParams {
	var params PaginationParams
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	params.Limit = 5 // дефолт
	params.Offset = 0

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 50 {
			params.Limit = l
		}
	}
	if offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			params.Offset = o
		}
	}
	return params
}

// nitRequest: все поля указатели, чтобы PATCH менял только переданное
type nitRequest struct {
	MemoNumber               *string `json:"memoNumber"`
	MemoDate                 *string `json:"memoDate"`
	PublishingDate           *string `json:"publishingDate"`
	BidSubmissionClosingDate *string `json:"bidSubmissionClosingDate"`
	BidOpeningDate           *string `json:"bidOpeningDate"`
	ValidityDays             *int    `json:"validityDays"`
	IsSupply                 *bool   `json:"isSupply"`
}

func (req *nitRequest) apply(n *models.NitDetails) error {
	if req.MemoNumber != nil {
		n.MemoNumber = strings.TrimSpace(*req.MemoNumber)
	}
	dates := []struct {
		field string
		src   *string
		dst   *time.Time
	}{
		{"memoDate", req.MemoDate, &n.MemoDate},
		{"publishingDate", req.PublishingDate, &n.PublishingDate},
		{"bidSubmissionClosingDate", req.BidSubmissionClosingDate, &n.BidSubmissionClosingDate},
		{"bidOpeningDate", req.BidOpeningDate, &n.BidOpeningDate},
	}
	for _, d := range dates {
		if d.src == nil {
			continue
		}
		t, err := parseDate(*d.src)
		if err != nil {
			return errors.New("invalid " + d.field)
		}
		*d.dst = t
	}
	if req.ValidityDays != nil {
		n.ValidityDays = *req.ValidityDays
	}
	if req.IsSupply != nil {
		n.IsSupply = *req.IsSupply
	}
	return nil
}

func validateNit(n *models.NitDetails) error {
	if n.MemoNumber == "" || len(n.MemoNumber) > 50 {
		return errors.New("memoNumber is required and max length 50")
	}
	if n.MemoDate.IsZero() || n.PublishingDate.IsZero() || n.BidSubmissionClosingDate.IsZero() || n.BidOpeningDate.IsZero() {
		return errors.New("memoDate, publishingDate, bidSubmissionClosingDate and bidOpeningDate are required")
	}
	if n.BidSubmissionClosingDate.Before(n.PublishingDate) {
		return errors.New("bidSubmissionClosingDate must not be before publishingDate")
	}
	if n.BidOpeningDate.Before(n.BidSubmissionClosingDate) {
		return errors.New("bidOpeningDate must not be before bidSubmissionClosingDate")
	}
	if n.ValidityDays <= 0 {
		return errors.New("validityDays must be positive")
	}
	return nil
}

// CreateNitHandler обрабатывает POST /api/nit/new
func (h *Handler) CreateNitHandler(w http.ResponseWriter, r *http.Request) {
	var req nitRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	nit := models.NitDetails{ValidityDays: 90}
	if err := req.apply(&nit); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateNit(&nit); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Store.CreateNit(r.Context(), &nit); err != nil {
		h.storeError(w, r, err, "NIT not found", "create NIT")
		return
	}
	writeJSON(w, http.StatusOK, nit)
}

// ListNitsHandler возвращает NIT, новые сначала
func (h *Handler) ListNitsHandler(w http.ResponseWriter, r *http.Request) {
	params := parsePaginationParams(r)

	nits, err := h.Store.ListNits(r.Context(), params.Limit, params.Offset)
	if err != nil {
		h.storeError(w, r, err, "NIT not found", "get NITs")
		return
	}
	writeJSON(w, http.StatusOK, nits)
}

func (h *Handler) GetNitHandler(w http.ResponseWriter, r *http.Request) {
	nitID, ok := pathID(r, "nitId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid nitId")
		return
	}

	nit, err := h.Store.GetNit(r.Context(), nitID)
	if err != nil {
		h.storeError(w, r, err, "NIT not found", "get NIT")
		return
	}
	writeJSON(w, http.StatusOK, nit)
}

// EditNitHandler - PATCH /api/nit/{nitId}/edit, меняет только переданные поля
func (h *Handler) EditNitHandler(w http.ResponseWriter, r *http.Request) {
	nitID, ok := pathID(r, "nitId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid nitId")
		return
	}

	var req nitRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	nit, err := h.Store.GetNit(r.Context(), nitID)
	if err != nil {
		h.storeError(w, r, err, "NIT not found", "get NIT")
		return
	}
	if err := req.apply(nit); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateNit(nit); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Store.UpdateNit(r.Context(), nit); err != nil {
		h.storeError(w, r, err, "NIT not found", "update NIT")
		return
	}
	writeJSON(w, http.StatusOK, nit)
}
