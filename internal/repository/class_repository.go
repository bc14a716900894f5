package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campushq/attendance-api/internal/models"
)

// ClassRepository manages persistence for classes and their rosters.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// Create inserts a class. A duplicate code surfaces as a unique violation
// from the classes_code_key constraint.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	if class.CreatedAt.IsZero() {
		class.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO classes (id, name, code, faculty_id, schedule_day, schedule_time, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, class.ID, class.Name, class.Code, class.FacultyID, class.ScheduleDay, class.ScheduleTime, class.CreatedAt); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// FindByID returns a class record by ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, code, faculty_id, schedule_day, schedule_time, created_at FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// ListByFaculty returns classes owned by the given faculty member.
func (r *ClassRepository) ListByFaculty(ctx context.Context, facultyID string) ([]models.Class, error) {
	const query = `SELECT id, name, code, faculty_id, schedule_day, schedule_time, created_at
FROM classes WHERE faculty_id = $1 ORDER BY created_at DESC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, facultyID); err != nil {
		return nil, fmt.Errorf("list classes by faculty: %w", err)
	}
	return classes, nil
}

// ListByStudent returns classes whose roster contains the student. Membership
// is a single containment join on the class_students table.
func (r *ClassRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Class, error) {
	const query = `SELECT c.id, c.name, c.code, c.faculty_id, c.schedule_day, c.schedule_time, c.created_at
FROM classes c
JOIN class_students cs ON cs.class_id = c.id
WHERE cs.student_id = $1
ORDER BY c.created_at DESC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, studentID); err != nil {
		return nil, fmt.Errorf("list classes by student: %w", err)
	}
	return classes, nil
}

// AddStudent enrolls a student. The composite primary key makes the insert
// an atomic add-to-set: re-enrolling an existing member is a no-op.
func (r *ClassRepository) AddStudent(ctx context.Context, classID, studentID string) error {
	const query = `INSERT INTO class_students (class_id, student_id, added_at)
VALUES ($1, $2, $3)
ON CONFLICT (class_id, student_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, classID, studentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("add student to class: %w", err)
	}
	return nil
}

// RemoveStudent takes a student off the roster; absent members are a no-op.
func (r *ClassRepository) RemoveStudent(ctx context.Context, classID, studentID string) error {
	const query = `DELETE FROM class_students WHERE class_id = $1 AND student_id = $2`
	if _, err := r.db.ExecContext(ctx, query, classID, studentID); err != nil {
		return fmt.Errorf("remove student from class: %w", err)
	}
	return nil
}

// HasStudent reports roster membership against persisted state.
func (r *ClassRepository) HasStudent(ctx context.Context, classID, studentID string) (bool, error) {
	const query = `SELECT 1 FROM class_students WHERE class_id = $1 AND student_id = $2`
	var one int
	err := r.db.GetContext(ctx, &one, query, classID, studentID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check roster membership: %w", err)
	}
	return true, nil
}

// Roster returns the enrolled students of a class.
func (r *ClassRepository) Roster(ctx context.Context, classID string) ([]models.UserRef, error) {
	const query = `SELECT u.id, u.name, u.email
FROM class_students cs
JOIN users u ON u.id = cs.student_id
WHERE cs.class_id = $1
ORDER BY u.name`
	var students []models.UserRef
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	return students, nil
}

// rosterRow pairs a roster entry with its class for multi-class loads.
type rosterRow struct {
	ClassID string `db:"class_id"`
	models.UserRef
}

// RostersByClassIDs loads rosters for many classes in one query.
func (r *ClassRepository) RostersByClassIDs(ctx context.Context, classIDs []string) (map[string][]models.UserRef, error) {
	rosters := make(map[string][]models.UserRef, len(classIDs))
	if len(classIDs) == 0 {
		return rosters, nil
	}
	const query = `SELECT cs.class_id, u.id, u.name, u.email
FROM class_students cs
JOIN users u ON u.id = cs.student_id
WHERE cs.class_id = ANY($1)
ORDER BY u.name`
	var rows []rosterRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(classIDs)); err != nil {
		return nil, fmt.Errorf("load rosters: %w", err)
	}
	for _, row := range rows {
		rosters[row.ClassID] = append(rosters[row.ClassID], row.UserRef)
	}
	return rosters, nil
}

// DeleteCascade removes a class together with its roster and every
// attendance row referencing it, in one transaction. Either the whole
// cascade lands or none of it does.
func (r *ClassRepository) DeleteCascade(ctx context.Context, classID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin class delete: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance WHERE class_id = $1`, classID); err != nil {
		return fmt.Errorf("delete class attendance: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM class_students WHERE class_id = $1`, classID); err != nil {
		return fmt.Errorf("delete class roster: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, classID)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit class delete: %w", err)
	}
	committed = true
	return nil
}
