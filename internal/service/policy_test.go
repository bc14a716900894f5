package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campushq/attendance-api/internal/models"
)

func TestCanManageClass(t *testing.T) {
	class := &models.Class{ID: "c1", FacultyID: "f1"}

	assert.True(t, CanManageClass(models.RoleFaculty, "f1", class))
	assert.False(t, CanManageClass(models.RoleFaculty, "f2", class))
	assert.False(t, CanManageClass(models.RoleAdmin, "f1", class))
	assert.False(t, CanManageClass(models.RoleStudent, "f1", class))
	assert.False(t, CanManageClass(models.RoleFaculty, "f1", nil))
}

func TestCanViewStudentRecord(t *testing.T) {
	assert.True(t, CanViewStudentRecord(models.RoleStudent, "s1", "s1"))
	assert.False(t, CanViewStudentRecord(models.RoleStudent, "s1", "s2"))
	assert.True(t, CanViewStudentRecord(models.RoleFaculty, "f1", "s2"))
	assert.True(t, CanViewStudentRecord(models.RoleAdmin, "a1", "s2"))
}

func TestCanViewClassRoster(t *testing.T) {
	class := &models.Class{ID: "c1", FacultyID: "f1"}
	roster := []models.UserRef{{ID: "s1"}, {ID: "s2"}}

	assert.True(t, CanViewClassRoster(models.RoleFaculty, "f1", class, roster))
	assert.False(t, CanViewClassRoster(models.RoleFaculty, "f2", class, roster))
	assert.True(t, CanViewClassRoster(models.RoleStudent, "s1", class, roster))
	assert.False(t, CanViewClassRoster(models.RoleStudent, "s3", class, roster))
	assert.True(t, CanViewClassRoster(models.RoleAdmin, "a1", class, roster))
}
