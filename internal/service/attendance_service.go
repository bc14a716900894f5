package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushq/attendance-api/internal/models"
	appErrors "github.com/campushq/attendance-api/pkg/errors"
)

type attendanceRepository interface {
	UpsertBatch(ctx context.Context, records []models.Attendance) ([]models.Attendance, error)
	FindByID(ctx context.Context, id string) (*models.Attendance, error)
	Update(ctx context.Context, id string, status *models.AttendanceStatus, remarks *string) (*models.Attendance, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// MarkEntry is one student's line in a batch mark payload. A blank or
// malformed student id makes the entry skippable, never fatal.
type MarkEntry struct {
	StudentID string  `json:"student_id"`
	Status    string  `json:"status"`
	Remarks   *string `json:"remarks"`
}

// MarkBatchRequest describes a whole-class marking payload for one day.
type MarkBatchRequest struct {
	ClassID string      `json:"class_id" validate:"required"`
	Date    string      `json:"date" validate:"required"`
	Entries []MarkEntry `json:"attendance" validate:"required,min=1"`
}

// UpdateAttendanceRequest is a partial update of a single ledger row.
type UpdateAttendanceRequest struct {
	Status  *string `json:"status" validate:"omitempty,attendance_status"`
	Remarks *string `json:"remarks"`
}

// AttendanceService owns the ledger: idempotent batch marking keyed by
// (class, student, day) plus scoped reads and row-level edits.
type AttendanceService struct {
	repo      attendanceRepository
	classes   classReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, classes classReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AttendanceService{repo: repo, classes: classes, cache: cache, metrics: metrics, validator: validate, logger: logger}
	svc.validator.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(strings.ToLower(fl.Field().String())).Valid()
	})
	return svc
}

// MarkBatch upserts one record per valid entry, all keyed by the same
// normalized day. Marking the same batch twice lands on the same rows with
// the same ids. Entries with a missing or malformed student id, or an
// unknown status, are logged and skipped; one bad entry never aborts the
// batch.
func (s *AttendanceService) MarkBatch(ctx context.Context, req MarkBatchRequest, actorID string, role models.UserRole) ([]models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "class id, date and attendance entries are required")
	}
	day, err := parseDay(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}

	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrForbidden
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if !CanManageClass(role, actorID, class) {
		return nil, appErrors.ErrForbidden
	}

	records := make([]models.Attendance, 0, len(req.Entries))
	students := make([]string, 0, len(req.Entries))
	skipped := 0
	for _, entry := range req.Entries {
		studentID := strings.TrimSpace(entry.StudentID)
		if _, err := uuid.Parse(studentID); err != nil {
			s.logger.Warn("skipping attendance entry with invalid student id",
				zap.String("class_id", req.ClassID), zap.String("student_id", entry.StudentID))
			skipped++
			continue
		}
		status := models.StatusAbsent
		if entry.Status != "" {
			status = models.AttendanceStatus(strings.ToLower(entry.Status))
			if !status.Valid() {
				s.logger.Warn("skipping attendance entry with unknown status",
					zap.String("student_id", studentID), zap.String("status", entry.Status))
				skipped++
				continue
			}
		}
		records = append(records, models.Attendance{
			ClassID:   req.ClassID,
			StudentID: studentID,
			Date:      day,
			Status:    status,
			Remarks:   entry.Remarks,
			MarkedBy:  actorID,
		})
		students = append(students, studentID)
	}

	stored, err := s.repo.UpsertBatch(ctx, records)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}

	if s.metrics != nil {
		s.metrics.RecordMarkOutcome("marked", len(stored))
		s.metrics.RecordMarkOutcome("skipped", skipped)
	}
	s.invalidateStats(ctx, req.ClassID, students)

	if stored == nil {
		stored = []models.Attendance{}
	}
	return stored, nil
}

// UpdateRecord partially updates status and remarks of one ledger row.
func (s *AttendanceService) UpdateRecord(ctx context.Context, id string, req UpdateAttendanceRequest, actorID string, role models.UserRole) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	record, err := s.authorizeRecord(ctx, id, actorID, role)
	if err != nil {
		return nil, err
	}

	var status *models.AttendanceStatus
	if req.Status != nil {
		st := models.AttendanceStatus(strings.ToLower(*req.Status))
		status = &st
	}
	stored, err := s.repo.Update(ctx, id, status, req.Remarks)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance")
	}
	s.invalidateStats(ctx, record.ClassID, []string{record.StudentID})
	return stored, nil
}

// DeleteRecord removes one ledger row.
func (s *AttendanceService) DeleteRecord(ctx context.Context, id string, actorID string, role models.UserRole) error {
	record, err := s.authorizeRecord(ctx, id, actorID, role)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attendance")
	}
	s.invalidateStats(ctx, record.ClassID, []string{record.StudentID})
	return nil
}

// GetByClassAndDate returns every record of a class falling on the given
// calendar day, whatever time-of-day its stored timestamp carries.
func (s *AttendanceService) GetByClassAndDate(ctx context.Context, classID, date string) ([]models.AttendanceRecord, error) {
	day, err := parseDay(date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	next := day.Add(24 * time.Hour)
	records, err := s.repo.List(ctx, models.AttendanceFilter{ClassID: classID, DateFrom: &day, DateTo: &next})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	return records, nil
}

// GetByStudent returns a student's full history, newest first. Students may
// only query themselves; staff may query anyone.
func (s *AttendanceService) GetByStudent(ctx context.Context, studentID, actorID string, role models.UserRole) ([]models.AttendanceRecord, error) {
	if !CanViewStudentRecord(role, actorID, studentID) {
		return nil, appErrors.ErrForbidden
	}
	if _, err := uuid.Parse(studentID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid student id format")
	}
	records, err := s.repo.List(ctx, models.AttendanceFilter{StudentID: studentID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	return records, nil
}

// GetByStudentRange filters a student's history by an optional class and an
// optional inclusive day range.
func (s *AttendanceService) GetByStudentRange(ctx context.Context, studentID, startDate, endDate, classID, actorID string, role models.UserRole) ([]models.AttendanceRecord, error) {
	if !CanViewStudentRecord(role, actorID, studentID) {
		return nil, appErrors.ErrForbidden
	}
	if _, err := uuid.Parse(studentID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid student id format")
	}
	filter := models.AttendanceFilter{StudentID: studentID}
	if classID != "" {
		if _, err := uuid.Parse(classID); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid class id format")
		}
		filter.ClassID = classID
	}
	if startDate != "" && endDate != "" {
		from, err := parseDay(startDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date, expected YYYY-MM-DD")
		}
		to, err := parseDay(endDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end date, expected YYYY-MM-DD")
		}
		end := to.Add(24 * time.Hour)
		filter.DateFrom = &from
		filter.DateTo = &end
	}
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	return records, nil
}

func (s *AttendanceService) authorizeRecord(ctx context.Context, id, actorID string, role models.UserRole) (*models.Attendance, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	class, err := s.classes.FindByID(ctx, record.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrForbidden
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if !CanManageClass(role, actorID, class) {
		return nil, appErrors.ErrForbidden
	}
	return record, nil
}

func (s *AttendanceService) invalidateStats(ctx context.Context, classID string, studentIDs []string) {
	if !s.cache.Enabled() {
		return
	}
	s.cache.Invalidate(ctx, "summary:class:"+classID)
	for _, id := range studentIDs {
		s.cache.Invalidate(ctx, "stats:student:"+id)
	}
}

// parseDay accepts a calendar day or a full timestamp and truncates it to
// the start of its UTC day, the granularity of the ledger's uniqueness key.
func parseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var parsed time.Time
	var err error
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"} {
		parsed, err = time.Parse(layout, raw)
		if err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, err
	}
	parsed = parsed.UTC()
	return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
}
