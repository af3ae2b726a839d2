package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

// maxPunchBody bounds a single punch or a full sync batch.
const maxPunchBody = 1 << 20

type ClockHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	GetLast(w http.ResponseWriter, r *http.Request)
	GetStatus(w http.ResponseWriter, r *http.Request)
	ListMine(w http.ResponseWriter, r *http.Request)
	ListByUser(w http.ResponseWriter, r *http.Request)
	Sync(w http.ResponseWriter, r *http.Request)
}

type clockHandlerImpl struct {
	punchService clock.PunchService
	now          func() time.Time
}

func NewClockHandler(punchService clock.PunchService) ClockHandler {
	return &clockHandlerImpl{
		punchService: punchService,
		now:          time.Now,
	}
}

// Register implements ClockHandler.
func (h *clockHandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	var req clock.PunchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPunchBody)).Decode(&req); err != nil {
		slog.Error("Failed to decode punch request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.punchService.RegisterPunch(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Punch registered successfully", result)
}

// GetLast implements ClockHandler.
func (h *clockHandlerImpl) GetLast(w http.ResponseWriter, r *http.Request) {
	result, err := h.punchService.GetLastPunch(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// GetStatus implements ClockHandler.
func (h *clockHandlerImpl) GetStatus(w http.ResponseWriter, r *http.Request) {
	result, err := h.punchService.GetStatus(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ListMine implements ClockHandler.
func (h *clockHandlerImpl) ListMine(w http.ResponseWriter, r *http.Request) {
	days := 0
	if d := r.URL.Query().Get("days"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed < 1 {
			response.HandleError(w, validator.ValidationErrors{{
				Field:   "days",
				Message: "days must be a positive integer",
			}})
			return
		}
		days = parsed
	}

	result, err := h.punchService.ListMyPunches(r.Context(), days)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, &response.Meta{TotalCount: result.TotalCount})
}

// ListByUser implements ClockHandler.
func (h *clockHandlerImpl) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	dateRange, err := clock.ParseDateRange(
		r.URL.Query().Get("start_date"),
		r.URL.Query().Get("end_date"),
		clock.DefaultUserPunchesDays,
		h.now(),
	)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.punchService.ListUserPunches(r.Context(), userID, dateRange)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, &response.Meta{TotalCount: result.TotalCount})
}

// Sync implements ClockHandler.
func (h *clockHandlerImpl) Sync(w http.ResponseWriter, r *http.Request) {
	var req clock.SyncRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPunchBody)).Decode(&req); err != nil {
		slog.Error("Failed to decode sync request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.punchService.SyncOffline(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Offline punches processed", result)
}
