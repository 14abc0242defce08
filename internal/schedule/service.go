package schedule

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/EquipoUptamca/EquipoUptamca-Proyecto-Clinica/internal/observability/metrics"
	"github.com/EquipoUptamca/EquipoUptamca-Proyecto-Clinica/pkg/logging"
)

var scheduleTracer = otel.Tracer("clinic.internal.schedule")

// Service is the entry point for every scheduling operation.
type Service struct {
	repo    Repository
	store   *TemplateStore
	checker *ConflictChecker
	slots   *SlotGenerator
	bulk    *BulkOperations
	cache   SlotCache
	metrics *metrics.SchedulingMetrics
	logger  *logging.Logger
	tracer  trace.Tracer
}

// ServiceOption configures optional collaborators.
type ServiceOption func(*Service)

// WithSlotCache caches the working-hours blocks read by slot generation until
// the doctor's template changes. Appointments are always read fresh.
func WithSlotCache(cache SlotCache) ServiceOption {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithMetrics(m *metrics.SchedulingMetrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// NewService wires the template store, conflict checker, slot generator and
// bulk operations over the given collaborators.
func NewService(repo Repository, appointments AppointmentSource, logger *logging.Logger, opts ...ServiceOption) *Service {
	if repo == nil {
		panic("schedule: repository required")
	}
	if appointments == nil {
		panic("schedule: appointment source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	store := NewTemplateStore(repo)
	checker := NewConflictChecker(repo, appointments)
	s := &Service{
		repo:    repo,
		store:   store,
		checker: checker,
		slots:   NewSlotGenerator(repo, checker),
		bulk:    NewBulkOperations(repo, store),
		logger:  logger.Component("schedule"),
		tracer:  scheduleTracer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.cache != nil {
		s.slots = NewSlotGenerator(&cachedDayEntries{
			hours:   repo,
			cache:   s.cache,
			metrics: s.metrics,
			logger:  s.logger,
		}, checker)
	}
	return s
}

// ListWeeklyTemplate returns the doctor's template ordered by day and start.
func (s *Service) ListWeeklyTemplate(ctx context.Context, doctorID int64) (tpl WeeklyTemplate, err error) {
	ctx, span, started := s.begin(ctx, "list_weekly_template", attribute.Int64("clinic.doctor_id", doctorID))
	defer func() { s.finish(span, "list_weekly_template", started, err) }()

	if err = s.ensureDoctor(ctx, doctorID); err != nil {
		return WeeklyTemplate{}, err
	}
	return s.store.ListForDoctor(ctx, doctorID)
}

// AddWorkingHours adds a block to the doctor's template.
func (s *Service) AddWorkingHours(ctx context.Context, doctorID int64, day DayOfWeek, iv Interval) (entry WorkingHoursEntry, err error) {
	ctx, span, started := s.begin(ctx, "add_working_hours",
		attribute.Int64("clinic.doctor_id", doctorID),
		attribute.Int("schedule.day", int(day)),
		attribute.String("schedule.interval", iv.String()),
	)
	defer func() { s.finish(span, "add_working_hours", started, err) }()

	entry, err = s.store.AddEntry(ctx, doctorID, day, iv)
	if err != nil {
		s.logger.Warn("working hours rejected", "doctor_id", doctorID, "day", int(day), "interval", iv.String(), "error", err)
		return WorkingHoursEntry{}, err
	}
	s.invalidate(ctx, doctorID)
	s.logger.Info("working hours added", "doctor_id", doctorID, "entry_id", entry.ID, "day", int(day), "interval", iv.String())
	return entry, nil
}

// UpdateWorkingHours replaces an entry's day and interval.
func (s *Service) UpdateWorkingHours(ctx context.Context, id int64, day DayOfWeek, iv Interval) (entry WorkingHoursEntry, err error) {
	ctx, span, started := s.begin(ctx, "update_working_hours",
		attribute.Int64("schedule.entry_id", id),
		attribute.Int("schedule.day", int(day)),
		attribute.String("schedule.interval", iv.String()),
	)
	defer func() { s.finish(span, "update_working_hours", started, err) }()

	entry, err = s.store.UpdateEntry(ctx, id, day, iv)
	if err != nil {
		s.logger.Warn("working hours update rejected", "entry_id", id, "error", err)
		return WorkingHoursEntry{}, err
	}
	s.invalidate(ctx, entry.DoctorID)
	s.logger.Info("working hours updated", "doctor_id", entry.DoctorID, "entry_id", id, "day", int(day), "interval", iv.String())
	return entry, nil
}

// DeleteWorkingHours removes one entry. Unknown ids yield ErrEntryNotFound.
func (s *Service) DeleteWorkingHours(ctx context.Context, id int64) (err error) {
	ctx, span, started := s.begin(ctx, "delete_working_hours", attribute.Int64("schedule.entry_id", id))
	defer func() { s.finish(span, "delete_working_hours", started, err) }()

	removed, ok, err := s.store.RemoveEntry(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrEntryNotFound, id)
	}
	s.invalidate(ctx, removed.DoctorID)
	s.logger.Info("working hours deleted", "doctor_id", removed.DoctorID, "entry_id", id)
	return nil
}

// DeleteAllWorkingHours clears the doctor's template. Zero deletions is success.
func (s *Service) DeleteAllWorkingHours(ctx context.Context, doctorID int64) (result DeleteAllResult, err error) {
	ctx, span, started := s.begin(ctx, "delete_all_working_hours", attribute.Int64("clinic.doctor_id", doctorID))
	defer func() { s.finish(span, "delete_all_working_hours", started, err) }()

	n, err := s.store.RemoveAllForDoctor(ctx, doctorID)
	if err != nil {
		return DeleteAllResult{}, err
	}
	span.SetAttributes(attribute.Int("schedule.deleted", n))
	if n > 0 {
		s.invalidate(ctx, doctorID)
	}
	s.logger.Info("working hours cleared", "doctor_id", doctorID, "deleted", n)
	return DeleteAllResult{Deleted: n}, nil
}

// GetAvailableSlots returns the bookable start times for the date.
func (s *Service) GetAvailableSlots(ctx context.Context, doctorID int64, date time.Time, durationMinutes int) ([]TimeOfDay, error) {
	slots, err := s.GetAvailableSlotIntervals(ctx, doctorID, date, durationMinutes)
	if err != nil {
		return nil, err
	}
	starts := make([]TimeOfDay, len(slots))
	for i, slot := range slots {
		starts[i] = slot.Start
	}
	return starts, nil
}

// GetAvailableSlotIntervals returns the bookable slots with their end times.
func (s *Service) GetAvailableSlotIntervals(ctx context.Context, doctorID int64, date time.Time, durationMinutes int) (slots []Interval, err error) {
	ctx, span, started := s.begin(ctx, "get_available_slots",
		attribute.Int64("clinic.doctor_id", doctorID),
		attribute.String("schedule.date", date.Format(time.DateOnly)),
		attribute.Int("schedule.duration_minutes", durationMinutes),
	)
	defer func() { s.finish(span, "get_available_slots", started, err) }()

	req := SlotRequest{DoctorID: doctorID, Date: date, DurationMinutes: durationMinutes}
	if err = req.validate(); err != nil {
		return nil, err
	}
	if err = s.ensureDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	slots, err = s.slots.GenerateIntervals(ctx, req)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveSlots(strconv.Itoa(durationMinutes), len(slots))
	span.SetAttributes(attribute.Int("schedule.slots", len(slots)))
	return slots, nil
}

// CheckAppointmentFits is the authoritative check run right before a booking is persisted.
func (s *Service) CheckAppointmentFits(ctx context.Context, doctorID int64, date time.Time, iv Interval) (FitResult, error) {
	return s.checkFits(ctx, "check_appointment_fits", doctorID, date, iv)
}

// CheckRescheduleFits checks a new time for an existing appointment, ignoring
// the appointment's current booking.
func (s *Service) CheckRescheduleFits(ctx context.Context, appointmentID, doctorID int64, date time.Time, iv Interval) (FitResult, error) {
	return s.checkFits(ctx, "check_reschedule_fits", doctorID, date, iv, ExcludingAppointment(appointmentID))
}

func (s *Service) checkFits(ctx context.Context, op string, doctorID int64, date time.Time, iv Interval, opts ...FitOption) (result FitResult, err error) {
	ctx, span, started := s.begin(ctx, op,
		attribute.Int64("clinic.doctor_id", doctorID),
		attribute.String("schedule.date", date.Format(time.DateOnly)),
		attribute.String("schedule.interval", iv.String()),
	)
	defer func() { s.finish(span, op, started, err) }()

	if err = iv.Validate(); err != nil {
		return FitResult{}, err
	}
	if err = s.ensureDoctor(ctx, doctorID); err != nil {
		return FitResult{}, err
	}
	result, err = s.checker.CheckFits(ctx, doctorID, date, iv, opts...)
	if err != nil {
		return FitResult{}, err
	}
	span.SetAttributes(attribute.String("schedule.fit_reason", string(result.Reason)))
	return result, nil
}

// CopySchedule copies the source doctor's template onto the target.
func (s *Service) CopySchedule(ctx context.Context, op CopyOperation) (result CopyResult, err error) {
	ctx, span, started := s.begin(ctx, "copy_schedule",
		attribute.Int64("schedule.source_doctor_id", op.SourceDoctorID),
		attribute.Int64("schedule.target_doctor_id", op.TargetDoctorID),
		attribute.Bool("schedule.overwrite", op.Overwrite),
	)
	defer func() { s.finish(span, "copy_schedule", started, err) }()

	result, err = s.bulk.CopySchedule(ctx, op)
	if result.Copied > 0 || (err == nil && op.Overwrite) {
		s.invalidate(ctx, op.TargetDoctorID)
	}
	s.metrics.ObserveCopy(op.Overwrite, result.Copied, result.Skipped)
	span.SetAttributes(attribute.Int("schedule.copied", result.Copied), attribute.Int("schedule.skipped", result.Skipped))
	if err != nil {
		s.logger.Warn("schedule copy failed", "source_doctor_id", op.SourceDoctorID, "target_doctor_id", op.TargetDoctorID,
			"overwrite", op.Overwrite, "copied", result.Copied, "error", err)
		return result, err
	}
	s.logger.Info("schedule copied", "source_doctor_id", op.SourceDoctorID, "target_doctor_id", op.TargetDoctorID,
		"overwrite", op.Overwrite, "copied", result.Copied, "skipped", result.Skipped)
	return result, nil
}

func (s *Service) ensureDoctor(ctx context.Context, doctorID int64) error {
	exists, err := s.repo.DoctorExists(ctx, doctorID)
	if err != nil {
		return fmt.Errorf("schedule: load doctor: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %d", ErrDoctorNotFound, doctorID)
	}
	return nil
}

// invalidate drops cached slots after a committed write. Failures are logged;
// the outbox deliverer retries the invalidation.
func (s *Service) invalidate(ctx context.Context, doctorID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateDoctor(ctx, doctorID); err != nil {
		s.logger.Warn("slot cache invalidation failed", "doctor_id", doctorID, "error", err)
	}
}

func (s *Service) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	ctx, span := s.tracer.Start(ctx, "schedule."+op)
	span.SetAttributes(attrs...)
	return ctx, span, time.Now()
}

func (s *Service) finish(span trace.Span, op string, started time.Time, err error) {
	outcome := Outcome(err)
	s.metrics.ObserveOperation(op, outcome, time.Since(started).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.End()
}

// Outcome classifies an operation error for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsValidationError(err):
		return "invalid"
	case errors.Is(err, ErrOverlap):
		return "overlap"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
