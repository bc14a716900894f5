package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushq/attendance-api/internal/models"
	"github.com/campushq/attendance-api/pkg/database"
	appErrors "github.com/campushq/attendance-api/pkg/errors"
)

type classRepository interface {
	Create(ctx context.Context, class *models.Class) error
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ListByFaculty(ctx context.Context, facultyID string) ([]models.Class, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Class, error)
	AddStudent(ctx context.Context, classID, studentID string) error
	RemoveStudent(ctx context.Context, classID, studentID string) error
	HasStudent(ctx context.Context, classID, studentID string) (bool, error)
	Roster(ctx context.Context, classID string) ([]models.UserRef, error)
	RostersByClassIDs(ctx context.Context, classIDs []string) (map[string][]models.UserRef, error)
	DeleteCascade(ctx context.Context, classID string) error
}

type userDirectory interface {
	FindRefsByIDs(ctx context.Context, ids []string) ([]models.UserRef, error)
	ListStudents(ctx context.Context) ([]models.UserRef, error)
}

// CreateClassRequest describes the class creation payload.
type CreateClassRequest struct {
	Name     string           `json:"name" validate:"required"`
	Code     string           `json:"code" validate:"required"`
	Schedule *models.Schedule `json:"schedule"`
}

// ClassService owns the class registry: creation, rosters and cascade
// deletion. Ownership checks run before every mutation.
type ClassService struct {
	repo      classRepository
	users     userDirectory
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs the class service.
func NewClassService(repo classRepository, users userDirectory, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, users: users, cache: cache, validator: validate, logger: logger}
}

// Create registers a class for the acting faculty member. The code is
// trimmed and upper-cased before the uniqueness check.
func (s *ClassService) Create(ctx context.Context, facultyID string, req CreateClassRequest) (*models.ClassDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name and code are required")
	}

	name := strings.TrimSpace(req.Name)
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if name == "" || code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name and code cannot be empty")
	}
	if len(code) < 2 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class code must be at least 2 characters")
	}

	class := &models.Class{Name: name, Code: code, FacultyID: facultyID}
	if req.Schedule != nil {
		if req.Schedule.Day != "" {
			day := req.Schedule.Day
			class.ScheduleDay = &day
		}
		if req.Schedule.Time != "" {
			at := req.Schedule.Time
			class.ScheduleTime = &at
		}
	}

	if err := s.repo.Create(ctx, class); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "class code already exists, please use a different code")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}

	s.logger.Info("class created", zap.String("class_id", class.ID), zap.String("code", class.Code))
	return s.detail(ctx, class)
}

// Enroll adds a student to the roster. Already-enrolled students are a
// no-op; either way the returned roster is re-read from storage after the
// write so the append is durably visible before we answer.
func (s *ClassService) Enroll(ctx context.Context, classID, studentID, actorID string, role models.UserRole) (*models.ClassDetail, error) {
	if _, err := uuid.Parse(studentID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid student id format")
	}
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if !CanManageClass(role, actorID, class) {
		return nil, appErrors.ErrForbidden
	}

	if err := s.repo.AddStudent(ctx, classID, studentID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	enrolled, err := s.repo.HasStudent(ctx, classID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify enrollment")
	}
	if !enrolled {
		s.logger.Error("enrollment not visible after write", zap.String("class_id", classID), zap.String("student_id", studentID))
		return nil, appErrors.Clone(appErrors.ErrInternal, "enrollment was not persisted")
	}

	return s.detail(ctx, class)
}

// Unenroll removes a student from the roster; absent students are a no-op.
func (s *ClassService) Unenroll(ctx context.Context, classID, studentID, actorID string, role models.UserRole) error {
	if _, err := uuid.Parse(studentID); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid student id format")
	}
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return err
	}
	if !CanManageClass(role, actorID, class) {
		return appErrors.ErrForbidden
	}
	if err := s.repo.RemoveStudent(ctx, classID, studentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unenroll student")
	}
	return nil
}

// Delete removes a class and cascades over its attendance rows. No orphaned
// ledger rows may survive the class.
func (s *ClassService) Delete(ctx context.Context, classID, actorID string, role models.UserRole) error {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return err
	}
	if !CanManageClass(role, actorID, class) {
		return appErrors.ErrForbidden
	}
	if err := s.repo.DeleteCascade(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	if s.cache.Enabled() {
		s.cache.Invalidate(ctx, "stats:student:*")
		s.cache.Invalidate(ctx, "summary:class:"+classID)
	}
	s.logger.Info("class deleted", zap.String("class_id", classID))
	return nil
}

// ListForFaculty returns the acting faculty member's classes with rosters.
func (s *ClassService) ListForFaculty(ctx context.Context, facultyID string, role models.UserRole) ([]models.ClassDetail, error) {
	if role != models.RoleFaculty {
		return nil, appErrors.ErrForbidden
	}
	classes, err := s.repo.ListByFaculty(ctx, facultyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return s.details(ctx, classes)
}

// ListForStudent returns the classes whose roster contains the student.
func (s *ClassService) ListForStudent(ctx context.Context, studentID, actorID string, role models.UserRole) ([]models.ClassDetail, error) {
	if !CanViewStudentRecord(role, actorID, studentID) {
		return nil, appErrors.ErrForbidden
	}
	if _, err := uuid.Parse(studentID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid student id format")
	}
	classes, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return s.details(ctx, classes)
}

// Roster returns the enrolled students, visible to the owning faculty
// member and to enrolled students.
func (s *ClassService) Roster(ctx context.Context, classID, actorID string, role models.UserRole) ([]models.UserRef, error) {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	roster, err := s.repo.Roster(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	if !CanViewClassRoster(role, actorID, class, roster) {
		return nil, appErrors.ErrForbidden
	}
	return roster, nil
}

// ListStudents returns the student directory for faculty enrollment pickers.
func (s *ClassService) ListStudents(ctx context.Context, role models.UserRole) ([]models.UserRef, error) {
	if role != models.RoleFaculty {
		return nil, appErrors.ErrForbidden
	}
	students, err := s.users.ListStudents(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

func (s *ClassService) loadClass(ctx context.Context, classID string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

func (s *ClassService) detail(ctx context.Context, class *models.Class) (*models.ClassDetail, error) {
	details, err := s.details(ctx, []models.Class{*class})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

func (s *ClassService) details(ctx context.Context, classes []models.Class) ([]models.ClassDetail, error) {
	details := make([]models.ClassDetail, len(classes))
	if len(classes) == 0 {
		return details, nil
	}

	classIDs := make([]string, len(classes))
	facultySet := make(map[string]struct{}, len(classes))
	for i, class := range classes {
		classIDs[i] = class.ID
		facultySet[class.FacultyID] = struct{}{}
	}

	rosters, err := s.repo.RostersByClassIDs(ctx, classIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rosters")
	}

	facultyIDs := make([]string, 0, len(facultySet))
	for id := range facultySet {
		facultyIDs = append(facultyIDs, id)
	}
	refs, err := s.users.FindRefsByIDs(ctx, facultyIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	facultyByID := make(map[string]models.UserRef, len(refs))
	for _, ref := range refs {
		facultyByID[ref.ID] = ref
	}

	for i, class := range classes {
		roster := rosters[class.ID]
		if roster == nil {
			roster = []models.UserRef{}
		}
		details[i] = models.ClassDetail{Class: class, Students: roster}
		if ref, ok := facultyByID[class.FacultyID]; ok {
			refCopy := ref
			details[i].Faculty = &refCopy
		}
	}
	return details, nil
}
