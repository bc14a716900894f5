package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/attendance-api/internal/models"
	appErrors "github.com/campushq/attendance-api/pkg/errors"
)

const (
	testClassID    = "5f0f7a2e-0000-4000-8000-000000000001"
	testFacultyID  = "5f0f7a2e-0000-4000-8000-000000000002"
	testStudentID  = "5f0f7a2e-0000-4000-8000-000000000003"
	testStudentID2 = "5f0f7a2e-0000-4000-8000-000000000004"
)

// fakeLedger stores records keyed by (class, student, day) so repeated
// upserts land on the same row, mirroring the unique index.
type fakeLedger struct {
	rows       map[string]*models.Attendance
	nextID     int
	listCalls  []models.AttendanceFilter
	listResult []models.AttendanceRecord
	listErr    error
	deleted    []string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: make(map[string]*models.Attendance)}
}

func ledgerKey(classID, studentID string, day time.Time) string {
	return fmt.Sprintf("%s|%s|%s", classID, studentID, day.Format("2006-01-02"))
}

func (f *fakeLedger) UpsertBatch(ctx context.Context, records []models.Attendance) ([]models.Attendance, error) {
	out := make([]models.Attendance, 0, len(records))
	for _, rec := range records {
		key := ledgerKey(rec.ClassID, rec.StudentID, rec.Date)
		existing, ok := f.rows[key]
		if ok {
			existing.Status = rec.Status
			existing.Remarks = rec.Remarks
			existing.MarkedBy = rec.MarkedBy
			out = append(out, *existing)
			continue
		}
		f.nextID++
		stored := rec
		stored.ID = fmt.Sprintf("row-%d", f.nextID)
		f.rows[key] = &stored
		out = append(out, stored)
	}
	return out, nil
}

func (f *fakeLedger) FindByID(ctx context.Context, id string) (*models.Attendance, error) {
	for _, rec := range f.rows {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLedger) Update(ctx context.Context, id string, status *models.AttendanceStatus, remarks *string) (*models.Attendance, error) {
	rec, err := f.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if status != nil {
		rec.Status = *status
	}
	if remarks != nil {
		rec.Remarks = remarks
	}
	return rec, nil
}

func (f *fakeLedger) Delete(ctx context.Context, id string) error {
	if _, err := f.FindByID(context.Background(), id); err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeLedger) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	f.listCalls = append(f.listCalls, filter)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listResult, nil
}

type fakeClassReader struct {
	classes map[string]*models.Class
}

func (f *fakeClassReader) FindByID(ctx context.Context, id string) (*models.Class, error) {
	class, ok := f.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return class, nil
}

func newAttendanceFixture() (*AttendanceService, *fakeLedger) {
	ledger := newFakeLedger()
	classes := &fakeClassReader{classes: map[string]*models.Class{
		testClassID: {ID: testClassID, Name: "Algebra", Code: "MATH101", FacultyID: testFacultyID},
	}}
	svc := NewAttendanceService(ledger, classes, nil, nil, nil, nil)
	return svc, ledger
}

func TestMarkBatchIsIdempotent(t *testing.T) {
	svc, ledger := newAttendanceFixture()

	req := MarkBatchRequest{
		ClassID: testClassID,
		Date:    "2026-03-02",
		Entries: []MarkEntry{{StudentID: testStudentID, Status: "present"}},
	}

	first, err := svc.MarkBatch(context.Background(), req, testFacultyID, models.RoleFaculty)
	require.NoError(t, err)
	require.Len(t, first, 1)

	req.Entries[0].Status = "late"
	second, err := svc.MarkBatch(context.Background(), req, testFacultyID, models.RoleFaculty)
	require.NoError(t, err)
	require.Len(t, second, 1)

	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, models.StatusLate, second[0].Status)
	assert.Len(t, ledger.rows, 1)
}

func TestMarkBatchSkipsInvalidEntries(t *testing.T) {
	svc, ledger := newAttendanceFixture()

	req := MarkBatchRequest{
		ClassID: testClassID,
		Date:    "2026-03-02",
		Entries: []MarkEntry{
			{StudentID: testStudentID, Status: "present"},
			{StudentID: "not-a-uuid", Status: "present"},
			{StudentID: testStudentID2, Status: "banana"},
		},
	}

	stored, err := svc.MarkBatch(context.Background(), req, testFacultyID, models.RoleFaculty)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
	assert.Equal(t, testStudentID, stored[0].StudentID)
	assert.Len(t, ledger.rows, 1)
}

func TestMarkBatchDefaultsStatusToAbsent(t *testing.T) {
	svc, _ := newAttendanceFixture()

	req := MarkBatchRequest{
		ClassID: testClassID,
		Date:    "2026-03-02",
		Entries: []MarkEntry{{StudentID: testStudentID}},
	}

	stored, err := svc.MarkBatch(context.Background(), req, testFacultyID, models.RoleFaculty)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.StatusAbsent, stored[0].Status)
}

func TestMarkBatchNormalizesTimestampsToSameDay(t *testing.T) {
	svc, ledger := newAttendanceFixture()

	morning := MarkBatchRequest{
		ClassID: testClassID,
		Date:    "2026-03-02T08:30:00Z",
		Entries: []MarkEntry{{StudentID: testStudentID, Status: "present"}},
	}
	evening := MarkBatchRequest{
		ClassID: testClassID,
		Date:    "2026-03-02T19:45:00Z",
		Entries: []MarkEntry{{StudentID: testStudentID, Status: "late"}},
	}

	first, err := svc.MarkBatch(context.Background(), morning, testFacultyID, models.RoleFaculty)
	require.NoError(t, err)
	second, err := svc.MarkBatch(context.Background(), evening, testFacultyID, models.RoleFaculty)
	require.NoError(t, err)

	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Len(t, ledger.rows, 1)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), first[0].Date)
}

func TestMarkBatchRejectsNonOwner(t *testing.T) {
	svc, _ := newAttendanceFixture()

	req := MarkBatchRequest{
		ClassID: testClassID,
		Date:    "2026-03-02",
		Entries: []MarkEntry{{StudentID: testStudentID, Status: "present"}},
	}

	otherFaculty := "5f0f7a2e-0000-4000-8000-00000000000f"
	_, err := svc.MarkBatch(context.Background(), req, otherFaculty, models.RoleFaculty)
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	_, err = svc.MarkBatch(context.Background(), req, testStudentID, models.RoleStudent)
	require.Error(t, err)
}

func TestMarkBatchMissingClassIsForbidden(t *testing.T) {
	svc, _ := newAttendanceFixture()

	req := MarkBatchRequest{
		ClassID: "5f0f7a2e-0000-4000-8000-0000000000aa",
		Date:    "2026-03-02",
		Entries: []MarkEntry{{StudentID: testStudentID, Status: "present"}},
	}

	_, err := svc.MarkBatch(context.Background(), req, testFacultyID, models.RoleFaculty)
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestMarkBatchInvalidDate(t *testing.T) {
	svc, _ := newAttendanceFixture()

	req := MarkBatchRequest{
		ClassID: testClassID,
		Date:    "03/02/2026",
		Entries: []MarkEntry{{StudentID: testStudentID, Status: "present"}},
	}

	_, err := svc.MarkBatch(context.Background(), req, testFacultyID, models.RoleFaculty)
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestUpdateRecordNotFound(t *testing.T) {
	svc, _ := newAttendanceFixture()

	status := "present"
	_, err := svc.UpdateRecord(context.Background(), "missing", UpdateAttendanceRequest{Status: &status}, testFacultyID, models.RoleFaculty)
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestUpdateRecordRequiresOwnership(t *testing.T) {
	svc, ledger := newAttendanceFixture()

	req := MarkBatchRequest{
		ClassID: testClassID,
		Date:    "2026-03-02",
		Entries: []MarkEntry{{StudentID: testStudentID, Status: "present"}},
	}
	stored, err := svc.MarkBatch(context.Background(), req, testFacultyID, models.RoleFaculty)
	require.NoError(t, err)

	status := "late"
	otherFaculty := "5f0f7a2e-0000-4000-8000-00000000000f"
	_, err = svc.UpdateRecord(context.Background(), stored[0].ID, UpdateAttendanceRequest{Status: &status}, otherFaculty, models.RoleFaculty)
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	updated, err := svc.UpdateRecord(context.Background(), stored[0].ID, UpdateAttendanceRequest{Status: &status}, testFacultyID, models.RoleFaculty)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLate, updated.Status)
	assert.Empty(t, ledger.deleted)
}

func TestDeleteRecord(t *testing.T) {
	svc, ledger := newAttendanceFixture()

	req := MarkBatchRequest{
		ClassID: testClassID,
		Date:    "2026-03-02",
		Entries: []MarkEntry{{StudentID: testStudentID, Status: "present"}},
	}
	stored, err := svc.MarkBatch(context.Background(), req, testFacultyID, models.RoleFaculty)
	require.NoError(t, err)

	err = svc.DeleteRecord(context.Background(), stored[0].ID, testFacultyID, models.RoleFaculty)
	require.NoError(t, err)
	assert.Equal(t, []string{stored[0].ID}, ledger.deleted)
}

func TestGetByClassAndDateUsesDayWindow(t *testing.T) {
	svc, ledger := newAttendanceFixture()

	_, err := svc.GetByClassAndDate(context.Background(), testClassID, "2026-03-02")
	require.NoError(t, err)

	require.Len(t, ledger.listCalls, 1)
	filter := ledger.listCalls[0]
	assert.Equal(t, testClassID, filter.ClassID)
	require.NotNil(t, filter.DateFrom)
	require.NotNil(t, filter.DateTo)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), *filter.DateFrom)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), *filter.DateTo)
}

func TestGetByStudentPolicy(t *testing.T) {
	svc, _ := newAttendanceFixture()

	_, err := svc.GetByStudent(context.Background(), testStudentID, testStudentID2, models.RoleStudent)
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	_, err = svc.GetByStudent(context.Background(), testStudentID, testStudentID, models.RoleStudent)
	require.NoError(t, err)

	_, err = svc.GetByStudent(context.Background(), testStudentID, testFacultyID, models.RoleFaculty)
	require.NoError(t, err)
}

func TestGetByStudentRangeInclusiveEnd(t *testing.T) {
	svc, ledger := newAttendanceFixture()

	_, err := svc.GetByStudentRange(context.Background(), testStudentID, "2026-03-01", "2026-03-05", testClassID, testFacultyID, models.RoleFaculty)
	require.NoError(t, err)

	require.Len(t, ledger.listCalls, 1)
	filter := ledger.listCalls[0]
	assert.Equal(t, testStudentID, filter.StudentID)
	assert.Equal(t, testClassID, filter.ClassID)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *filter.DateFrom)
	assert.Equal(t, time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC), *filter.DateTo)
}

func TestParseDay(t *testing.T) {
	day, err := parseDay("2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), day)

	day, err = parseDay("2026-03-02T23:59:59+07:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), day)

	day, err = parseDay("2026-03-02T10:00:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), day)

	_, err = parseDay("yesterday")
	require.Error(t, err)
}
