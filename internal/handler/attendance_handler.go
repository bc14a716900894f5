package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushq/attendance-api/internal/service"
	appErrors "github.com/campushq/attendance-api/pkg/errors"
	"github.com/campushq/attendance-api/pkg/response"
)

// AttendanceHandler exposes the attendance ledger endpoints.
type AttendanceHandler struct {
	service *service.AttendanceService
	stats   *service.StatsService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(svc *service.AttendanceService, stats *service.StatsService) *AttendanceHandler {
	return &AttendanceHandler{service: svc, stats: stats}
}

// Mark godoc
// @Summary Mark attendance for a class on a date
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.MarkBatchRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/mark [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req service.MarkBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	records, err := h.service.MarkBatch(c.Request.Context(), req, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "attendance marked", "attendance": records})
}

// ByClassAndDate godoc
// @Summary Attendance for a class on a calendar day
// @Tags Attendance
// @Produce json
// @Param id path string true "Class ID"
// @Param date path string true "Day (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/class/{id}/date/{date} [get]
func (h *AttendanceHandler) ByClassAndDate(c *gin.Context) {
	records, err := h.service.GetByClassAndDate(c.Request.Context(), c.Param("id"), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records)
}

// ByStudent godoc
// @Summary A student's attendance history
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/student/{id} [get]
func (h *AttendanceHandler) ByStudent(c *gin.Context) {
	claims := claimsFromContext(c)
	records, err := h.service.GetByStudent(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records)
}

// ByStudentRange godoc
// @Summary A student's attendance within a date range
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Param startDate query string false "Range start (YYYY-MM-DD)"
// @Param endDate query string false "Range end (YYYY-MM-DD)"
// @Param classId query string false "Restrict to one class"
// @Success 200 {object} response.Envelope
// @Router /attendance/student/{id}/range [get]
func (h *AttendanceHandler) ByStudentRange(c *gin.Context) {
	claims := claimsFromContext(c)
	records, err := h.service.GetByStudentRange(c.Request.Context(), c.Param("id"),
		c.Query("startDate"), c.Query("endDate"), c.Query("classId"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records)
}

// StudentStats godoc
// @Summary Overall and per-class statistics for a student
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/student/{id}/stats [get]
func (h *AttendanceHandler) StudentStats(c *gin.Context) {
	claims := claimsFromContext(c)
	stats, err := h.stats.StudentStats(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// ClassSummary godoc
// @Summary Per-student attendance summary for a class
// @Tags Attendance
// @Produce json
// @Param id path string true "Class ID"
// @Param startDate query string false "Range start (YYYY-MM-DD)"
// @Param endDate query string false "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/classes/{id}/summary [get]
func (h *AttendanceHandler) ClassSummary(c *gin.Context) {
	claims := claimsFromContext(c)
	summary, err := h.stats.ClassSummary(c.Request.Context(), c.Param("id"),
		c.Query("startDate"), c.Query("endDate"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// Update godoc
// @Summary Update one attendance record
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Attendance ID"
// @Param payload body service.UpdateAttendanceRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /attendance/attendance/{id} [put]
func (h *AttendanceHandler) Update(c *gin.Context) {
	var req service.UpdateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	record, err := h.service.UpdateRecord(c.Request.Context(), c.Param("id"), req, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// Delete godoc
// @Summary Delete one attendance record
// @Tags Attendance
// @Produce json
// @Param id path string true "Attendance ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.DeleteRecord(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "attendance record deleted"})
}
