package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/attendance-api/internal/models"
)

// AttendanceRepository handles persistence for the attendance ledger.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = `id, class_id, student_id, date, status, remarks, marked_by, created_at, updated_at`

// Upsert inserts or updates a record keyed by (class_id, student_id, date).
// On conflict the stored row keeps its id and takes the new status, remarks
// and marker, so repeated marks are idempotent. The unique constraint, not a
// read-check, closes the duplicate-row race.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error) {
	return upsertAttendance(ctx, r.db, record)
}

// UpsertBatch applies a batch of upserts in a single transaction and returns
// the stored rows in input order.
func (r *AttendanceRepository) UpsertBatch(ctx context.Context, records []models.Attendance) ([]models.Attendance, error) {
	if len(records) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin attendance batch: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	stored := make([]models.Attendance, 0, len(records))
	for i := range records {
		row, err := upsertAttendance(ctx, tx, &records[i])
		if err != nil {
			return nil, err
		}
		stored = append(stored, *row)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit attendance batch: %w", err)
	}
	committed = true
	return stored, nil
}

type sqlxGetter interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func upsertAttendance(ctx context.Context, q sqlxGetter, record *models.Attendance) (*models.Attendance, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	query := `INSERT INTO attendance (` + attendanceColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (class_id, student_id, date)
DO UPDATE SET status = EXCLUDED.status, remarks = EXCLUDED.remarks, marked_by = EXCLUDED.marked_by, updated_at = EXCLUDED.updated_at
RETURNING ` + attendanceColumns
	var stored models.Attendance
	if err := q.GetContext(ctx, &stored, query, record.ID, record.ClassID, record.StudentID, record.Date, record.Status, record.Remarks, record.MarkedBy, record.CreatedAt, record.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &stored, nil
}

// FindByID returns an attendance row by ID.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE id = $1`
	var record models.Attendance
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// Update applies a partial update: nil fields keep their stored value.
func (r *AttendanceRepository) Update(ctx context.Context, id string, status *models.AttendanceStatus, remarks *string) (*models.Attendance, error) {
	query := `UPDATE attendance
SET status = COALESCE($2, status), remarks = COALESCE($3, remarks), updated_at = $4
WHERE id = $1
RETURNING ` + attendanceColumns
	var stored models.Attendance
	if err := r.db.GetContext(ctx, &stored, query, id, status, remarks, time.Now().UTC()); err != nil {
		return nil, err
	}
	return &stored, nil
}

// Delete removes a single attendance row.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns populated ledger rows matching the filter, newest first.
// DateFrom is inclusive and DateTo exclusive, so callers pass midnight
// bounds and time-of-day noise in storage cannot drop rows.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("a.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("a.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("a.date < $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	query := fmt.Sprintf(`SELECT a.id, a.class_id, a.student_id, a.date, a.status, a.remarks, a.marked_by, a.created_at, a.updated_at,
s.name AS student_name, s.email AS student_email, c.name AS class_name, c.code AS class_code, m.name AS marked_by_name
FROM attendance a
JOIN users s ON s.id = a.student_id
LEFT JOIN classes c ON c.id = a.class_id
LEFT JOIN users m ON m.id = a.marked_by
WHERE %s
ORDER BY a.date DESC`, strings.Join(where, " AND "))

	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return rows, nil
}

// CountByClass reports how many ledger rows still reference a class.
func (r *AttendanceRepository) CountByClass(ctx context.Context, classID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM attendance WHERE class_id = $1`, classID); err != nil {
		return 0, fmt.Errorf("count attendance: %w", err)
	}
	return total, nil
}
