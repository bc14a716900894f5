package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
	StatusLate    AttendanceStatus = "late"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	default:
		return false
	}
}

// Attendance is one student's record for a class on a calendar day.
// (class_id, student_id, date) is unique; date is stored at UTC midnight.
type Attendance struct {
	ID        string           `db:"id" json:"id"`
	ClassID   string           `db:"class_id" json:"class_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Remarks   *string          `db:"remarks" json:"remarks,omitempty"`
	MarkedBy  string           `db:"marked_by" json:"marked_by"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceRecord extends a row with student, class and marker metadata.
type AttendanceRecord struct {
	Attendance
	StudentName  string  `db:"student_name" json:"student_name"`
	StudentEmail string  `db:"student_email" json:"student_email"`
	ClassName    *string `db:"class_name" json:"class_name,omitempty"`
	ClassCode    *string `db:"class_code" json:"class_code,omitempty"`
	MarkedByName *string `db:"marked_by_name" json:"marked_by_name,omitempty"`
}

// AttendanceFilter scopes ledger queries.
type AttendanceFilter struct {
	ClassID   string
	StudentID string
	DateFrom  *time.Time
	DateTo    *time.Time
}

// AttendanceStats aggregates a record set. Late counts toward the
// attendance percentage; it is only tracked separately.
type AttendanceStats struct {
	Total      int     `json:"total"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Late       int     `json:"late"`
	Percentage float64 `json:"percentage"`
}

// ClassTally is a per-class breakdown without a percentage.
type ClassTally struct {
	Total   int `json:"total"`
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
}

// StudentStats is the student-facing stats payload.
type StudentStats struct {
	AttendanceStats
	ClassStats map[string]*ClassTally `json:"class_stats"`
}

// StudentSummaryRow is one roster line in a faculty-facing class summary.
type StudentSummaryRow struct {
	Student    UserRef `json:"student"`
	Total      int     `json:"total"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Late       int     `json:"late"`
	Percentage float64 `json:"percentage"`
}

// ClassSummary is the response for the class summary endpoint.
type ClassSummary struct {
	Class     Class               `json:"class"`
	Summary   []StudentSummaryRow `json:"summary"`
	TotalDays *int                `json:"total_days"`
}
