package service

import (
	"github.com/campushq/attendance-api/internal/models"
)

// Access policy predicates. Every registry and ledger mutation, and every
// sensitive read, is gated through one of these before touching storage.
// A false result surfaces to the caller as a forbidden error, never as a
// silently filtered response.

// CanManageClass permits only the owning faculty member to mutate a class,
// its roster or its ledger rows.
func CanManageClass(role models.UserRole, userID string, class *models.Class) bool {
	if class == nil {
		return false
	}
	return role == models.RoleFaculty && userID == class.FacultyID
}

// CanViewStudentRecord permits staff to read any student's records and
// students to read only their own.
func CanViewStudentRecord(role models.UserRole, userID, targetStudentID string) bool {
	if role.Staff() {
		return true
	}
	return role == models.RoleStudent && userID == targetStudentID
}

// CanViewClassRoster permits the owning faculty member and enrolled students.
func CanViewClassRoster(role models.UserRole, userID string, class *models.Class, roster []models.UserRef) bool {
	if CanManageClass(role, userID, class) {
		return true
	}
	if role != models.RoleStudent {
		return role == models.RoleAdmin
	}
	for _, s := range roster {
		if s.ID == userID {
			return true
		}
	}
	return false
}
