package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"panchayat/db"
	"panchayat/internal/award"
	"panchayat/internal/config"
	"panchayat/models"
)

const maxBodyBytes = 1048576

// AwardService - оформление присуждения и повторный шаг договора
type AwardService interface {
	Finalize(ctx context.Context, req award.Request) award.Result
	EnsureAgreement(ctx context.Context, worksDetailID int) (*models.Agreement, error)
}

// Handler оборачивает хранилище и сервис присуждения для HTTP
type Handler struct {
	Store  StorageInterface
	Awards AwardService
	menu   []config.MenuItem
	log    *zap.Logger
}

// NewHandler создает новый Handler; menu передаётся только для чтения
func NewHandler(store StorageInterface, awards AwardService, menu []config.MenuItem, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Store: store, Awards: awards, menu: menu, log: log.Named("http")}
}

// PingHandler отвечает "ok" для проверки сервера
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// MenuHandler отдаёт пункты навигации из конфигурации
func (h *Handler) MenuHandler(w http.ResponseWriter, r *http.Request) {
	menu := h.menu
	if menu == nil {
		menu = []config.MenuItem{}
	}
	writeJSON(w, http.StatusOK, menu)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// readJSON читает тело запроса с ограничением размера
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return errors.New("Failed to read request body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errors.New("Invalid JSON format")
	}
	return nil
}

// storeError переводит ошибку хранилища в HTTP-ответ
func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, err error, notFound, op string) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, db.ErrDuplicate):
		writeError(w, http.StatusConflict, "Record already exists")
	default:
		h.log.Error(op, zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to "+op)
	}
}

func pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseDate принимает YYYY-MM-DD или RFC3339
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
