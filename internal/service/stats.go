package service

import (
	"math"

	"github.com/campushq/attendance-api/internal/models"
)

// Aggregation over ledger rows. These are pure functions: statistics are
// always derived from the current record set, never persisted.

// ComputeStats tallies a record set. Late marks count toward the attendance
// percentage; lateness is tracked separately but not penalized in the rate.
// The percentage is rounded to two decimals.
func ComputeStats(records []models.AttendanceRecord) models.AttendanceStats {
	stats := models.AttendanceStats{Total: len(records)}
	for _, rec := range records {
		switch rec.Status {
		case models.StatusPresent:
			stats.Present++
		case models.StatusAbsent:
			stats.Absent++
		case models.StatusLate:
			stats.Late++
		}
	}
	if stats.Total > 0 {
		stats.Percentage = round2(float64(stats.Present+stats.Late) / float64(stats.Total) * 100)
	}
	return stats
}

// ComputeClassWiseStats groups records by class before tallying.
func ComputeClassWiseStats(records []models.AttendanceRecord) map[string]*models.ClassTally {
	tallies := make(map[string]*models.ClassTally)
	for _, rec := range records {
		tally, ok := tallies[rec.ClassID]
		if !ok {
			tally = &models.ClassTally{}
			tallies[rec.ClassID] = tally
		}
		tally.Total++
		switch rec.Status {
		case models.StatusPresent:
			tally.Present++
		case models.StatusAbsent:
			tally.Absent++
		case models.StatusLate:
			tally.Late++
		}
	}
	return tallies
}

// ComputeStudentWiseSummary builds per-student roster summaries for a class.
// The percentage here rounds to one decimal, not two: the faculty summary
// view has always reported coarser precision than student-facing stats.
func ComputeStudentWiseSummary(records []models.AttendanceRecord) []models.StudentSummaryRow {
	index := make(map[string]int)
	rows := make([]models.StudentSummaryRow, 0)
	for _, rec := range records {
		i, ok := index[rec.StudentID]
		if !ok {
			i = len(rows)
			index[rec.StudentID] = i
			rows = append(rows, models.StudentSummaryRow{
				Student: models.UserRef{ID: rec.StudentID, Name: rec.StudentName, Email: rec.StudentEmail},
			})
		}
		rows[i].Total++
		switch rec.Status {
		case models.StatusPresent:
			rows[i].Present++
		case models.StatusAbsent:
			rows[i].Absent++
		case models.StatusLate:
			rows[i].Late++
		}
	}
	for i := range rows {
		if rows[i].Total > 0 {
			rows[i].Percentage = round1(float64(rows[i].Present+rows[i].Late) / float64(rows[i].Total) * 100)
		}
	}
	return rows
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
