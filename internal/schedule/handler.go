package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/EquipoUptamca/EquipoUptamca-Proyecto-Clinica/pkg/logging"
)

type scheduler interface {
	ListWeeklyTemplate(ctx context.Context, doctorID int64) (WeeklyTemplate, error)
	AddWorkingHours(ctx context.Context, doctorID int64, day DayOfWeek, iv Interval) (WorkingHoursEntry, error)
	UpdateWorkingHours(ctx context.Context, id int64, day DayOfWeek, iv Interval) (WorkingHoursEntry, error)
	DeleteWorkingHours(ctx context.Context, id int64) error
	DeleteAllWorkingHours(ctx context.Context, doctorID int64) (DeleteAllResult, error)
	GetAvailableSlotIntervals(ctx context.Context, doctorID int64, date time.Time, durationMinutes int) ([]Interval, error)
	CheckAppointmentFits(ctx context.Context, doctorID int64, date time.Time, iv Interval) (FitResult, error)
	CheckRescheduleFits(ctx context.Context, appointmentID, doctorID int64, date time.Time, iv Interval) (FitResult, error)
	CopySchedule(ctx context.Context, op CopyOperation) (CopyResult, error)
}

// Handler exposes the scheduling service over JSON.
type Handler struct {
	service         scheduler
	logger          *logging.Logger
	defaultDuration int
}

func NewHandler(service scheduler, defaultDuration int, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if defaultDuration <= 0 {
		defaultDuration = 30
	}
	return &Handler{service: service, logger: logger, defaultDuration: defaultDuration}
}

// RegisterRoutes mounts the scheduling endpoints. Expected under /api.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/doctors/{doctorID}", func(r chi.Router) {
		r.Get("/working-hours", h.listWorkingHours)
		r.Post("/working-hours", h.addWorkingHours)
		r.Delete("/working-hours", h.deleteAllWorkingHours)
		r.Get("/slots", h.getSlots)
		r.Post("/fit-check", h.checkFit)
	})
	r.Post("/working-hours/copy", h.copySchedule)
	r.Put("/working-hours/{entryID}", h.updateWorkingHours)
	r.Delete("/working-hours/{entryID}", h.deleteWorkingHours)
}

type workingHoursRequest struct {
	Day   DayOfWeek `json:"day"`
	Start string    `json:"start"`
	End   string    `json:"end"`
}

func (req workingHoursRequest) interval() (Interval, error) {
	if !req.Day.Valid() {
		return Interval{}, ErrInvalidDay
	}
	return ParseInterval(req.Start, req.End)
}

type dayView struct {
	Name    string              `json:"name"`
	Entries []WorkingHoursEntry `json:"entries"`
}

type weeklyView struct {
	DoctorID int64              `json:"doctor_id"`
	Days     map[string]dayView `json:"days"`
}

func newWeeklyView(tpl WeeklyTemplate) weeklyView {
	view := weeklyView{DoctorID: tpl.DoctorID, Days: make(map[string]dayView, 7)}
	for _, d := range Days() {
		entries := tpl.Day(d)
		if entries == nil {
			entries = []WorkingHoursEntry{}
		}
		view.Days[strconv.Itoa(int(d))] = dayView{Name: d.DisplayName(), Entries: entries}
	}
	return view
}

func (h *Handler) listWorkingHours(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := h.idParam(w, r, "doctorID")
	if !ok {
		return
	}
	tpl, err := h.service.ListWeeklyTemplate(r.Context(), doctorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newWeeklyView(tpl))
}

func (h *Handler) addWorkingHours(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := h.idParam(w, r, "doctorID")
	if !ok {
		return
	}
	var req workingHoursRequest
	if !decodeBody(w, r, &req) {
		return
	}
	iv, err := req.interval()
	if err != nil {
		h.writeError(w, err)
		return
	}
	entry, err := h.service.AddWorkingHours(r.Context(), doctorID, req.Day, iv)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *Handler) updateWorkingHours(w http.ResponseWriter, r *http.Request) {
	entryID, ok := h.idParam(w, r, "entryID")
	if !ok {
		return
	}
	var req workingHoursRequest
	if !decodeBody(w, r, &req) {
		return
	}
	iv, err := req.interval()
	if err != nil {
		h.writeError(w, err)
		return
	}
	entry, err := h.service.UpdateWorkingHours(r.Context(), entryID, req.Day, iv)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) deleteWorkingHours(w http.ResponseWriter, r *http.Request) {
	entryID, ok := h.idParam(w, r, "entryID")
	if !ok {
		return
	}
	if err := h.service.DeleteWorkingHours(r.Context(), entryID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteAllWorkingHours(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := h.idParam(w, r, "doctorID")
	if !ok {
		return
	}
	result, err := h.service.DeleteAllWorkingHours(r.Context(), doctorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type slotsResponse struct {
	DoctorID        int64      `json:"doctor_id"`
	Date            string     `json:"date"`
	DurationMinutes int        `json:"duration_minutes"`
	Slots           []Interval `json:"slots"`
}

func (h *Handler) getSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := h.idParam(w, r, "doctorID")
	if !ok {
		return
	}
	date, err := time.Parse(time.DateOnly, r.URL.Query().Get("date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		return
	}
	duration := h.defaultDuration
	if raw := r.URL.Query().Get("duration"); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "duration must be an integer"})
			return
		}
	}
	slots, err := h.service.GetAvailableSlotIntervals(r.Context(), doctorID, date, duration)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slotsResponse{
		DoctorID:        doctorID,
		Date:            date.Format(time.DateOnly),
		DurationMinutes: duration,
		Slots:           slots,
	})
}

type fitCheckRequest struct {
	Date                 string `json:"date"`
	Start                string `json:"start"`
	End                  string `json:"end,omitempty"`
	DurationMinutes      int    `json:"duration_minutes,omitempty"`
	ExcludeAppointmentID int64  `json:"exclude_appointment_id,omitempty"`
}

func (req fitCheckRequest) interval() (Interval, error) {
	if req.End != "" {
		return ParseInterval(req.Start, req.End)
	}
	start, err := ParseTimeOfDay(req.Start)
	if err != nil {
		return Interval{}, err
	}
	return IntervalFrom(start, req.DurationMinutes)
}

func (h *Handler) checkFit(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := h.idParam(w, r, "doctorID")
	if !ok {
		return
	}
	var req fitCheckRequest
	if !decodeBody(w, r, &req) {
		return
	}
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		return
	}
	iv, err := req.interval()
	if err != nil {
		h.writeError(w, err)
		return
	}

	var result FitResult
	if req.ExcludeAppointmentID != 0 {
		result, err = h.service.CheckRescheduleFits(r.Context(), req.ExcludeAppointmentID, doctorID, date, iv)
	} else {
		result, err = h.service.CheckAppointmentFits(r.Context(), doctorID, date, iv)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) copySchedule(w http.ResponseWriter, r *http.Request) {
	var op CopyOperation
	if !decodeBody(w, r, &op) {
		return
	}
	result, err := h.service.CopySchedule(r.Context(), op)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case IsValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrOverlap):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("schedule handler: request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
