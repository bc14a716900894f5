package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushq/attendance-api/internal/service"
	appErrors "github.com/campushq/attendance-api/pkg/errors"
	"github.com/campushq/attendance-api/pkg/response"
)

// ClassHandler exposes class registry endpoints.
type ClassHandler struct {
	service *service.ClassService
}

// NewClassHandler constructs a class handler.
func NewClassHandler(svc *service.ClassService) *ClassHandler {
	return &ClassHandler{service: svc}
}

// List godoc
// @Summary List the acting faculty member's classes
// @Tags Classes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	classes, err := h.service.ListForFaculty(c.Request.Context(), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes)
}

// Create godoc
// @Summary Create a class
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body service.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Router /attendance/classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	var req service.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	class, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

type enrollRequest struct {
	StudentID string `json:"student_id"`
}

// Enroll godoc
// @Summary Add a student to the roster
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body enrollRequest true "Student id"
// @Success 200 {object} response.Envelope
// @Router /attendance/classes/{id}/students [post]
func (h *ClassHandler) Enroll(c *gin.Context) {
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "student id is required"))
		return
	}
	claims := claimsFromContext(c)
	class, err := h.service.Enroll(c.Request.Context(), c.Param("id"), req.StudentID, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class)
}

// Unenroll godoc
// @Summary Remove a student from the roster
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Param sid path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/classes/{id}/students/{sid} [delete]
func (h *ClassHandler) Unenroll(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.Unenroll(c.Request.Context(), c.Param("id"), c.Param("sid"), claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "student removed from class"})
}

// Delete godoc
// @Summary Delete a class and its attendance records
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/classes/{id} [delete]
func (h *ClassHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "class deleted"})
}

// Roster godoc
// @Summary List students enrolled in a class
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/classes/{id}/students [get]
func (h *ClassHandler) Roster(c *gin.Context) {
	claims := claimsFromContext(c)
	students, err := h.service.Roster(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students)
}

// Students godoc
// @Summary List all student accounts
// @Tags Classes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/students [get]
func (h *ClassHandler) Students(c *gin.Context) {
	claims := claimsFromContext(c)
	students, err := h.service.ListStudents(c.Request.Context(), claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students)
}

// StudentClasses godoc
// @Summary List classes a student is enrolled in
// @Tags Classes
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/student/{id}/classes [get]
func (h *ClassHandler) StudentClasses(c *gin.Context) {
	claims := claimsFromContext(c)
	classes, err := h.service.ListForStudent(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes)
}
