package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushq/attendance-api/internal/models"
	appErrors "github.com/campushq/attendance-api/pkg/errors"
)

type statsLedger interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

// StatsService serves derived statistics. All numbers are computed from the
// ledger on demand; Redis only holds short-lived copies of derived results.
type StatsService struct {
	ledger  statsLedger
	classes classReader
	cache   *CacheService
	logger  *zap.Logger
}

// NewStatsService constructs the stats service.
func NewStatsService(ledger statsLedger, classes classReader, cache *CacheService, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{ledger: ledger, classes: classes, cache: cache, logger: logger}
}

// StudentStats returns overall and per-class tallies for one student.
func (s *StatsService) StudentStats(ctx context.Context, studentID, actorID string, role models.UserRole) (*models.StudentStats, error) {
	if !CanViewStudentRecord(role, actorID, studentID) {
		return nil, appErrors.ErrForbidden
	}
	if _, err := uuid.Parse(studentID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid student id format")
	}

	cacheKey := "stats:student:" + studentID
	var cached models.StudentStats
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	records, err := s.ledger.List(ctx, models.AttendanceFilter{StudentID: studentID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	stats := &models.StudentStats{
		AttendanceStats: ComputeStats(records),
		ClassStats:      ComputeClassWiseStats(records),
	}
	if err := s.cache.Set(ctx, cacheKey, stats, 0); err != nil {
		s.logger.Debug("stats cache write failed", zap.String("student_id", studentID), zap.Error(err))
	}
	return stats, nil
}

// ClassSummary builds the faculty-facing roster summary, optionally bounded
// to an inclusive day range. TotalDays is only reported when a range was
// given.
func (s *StatsService) ClassSummary(ctx context.Context, classID, startDate, endDate, actorID string, role models.UserRole) (*models.ClassSummary, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if !role.Staff() {
		return nil, appErrors.ErrForbidden
	}

	filter := models.AttendanceFilter{ClassID: classID}
	var totalDays *int
	ranged := startDate != "" && endDate != ""
	if ranged {
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
		days := int(to.Sub(from)/(24*time.Hour)) + 1
		totalDays = &days
	}

	cacheKey := "summary:class:" + classID
	if !ranged {
		var cached models.ClassSummary
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}

	records, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	summary := &models.ClassSummary{
		Class:     *class,
		Summary:   ComputeStudentWiseSummary(records),
		TotalDays: totalDays,
	}
	if !ranged {
		if err := s.cache.Set(ctx, cacheKey, summary, 0); err != nil {
			s.logger.Debug("summary cache write failed", zap.String("class_id", classID), zap.Error(err))
		}
	}
	return summary, nil
}
