package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-ops/proctor-api/internal/dto"
	"github.com/campus-ops/proctor-api/internal/service"
	appErrors "github.com/campus-ops/proctor-api/pkg/errors"
	"github.com/campus-ops/proctor-api/pkg/response"
)

// AssignmentHandler exposes the staff-facing assignment endpoints: running
// the assignment pass, swapping proctors, cancelling an exam's assignments
// and reading rosters.
type AssignmentHandler struct {
	assignments *service.AssignmentService
	responses   *service.ResponseService
	rosters     *service.RosterService
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(assignments *service.AssignmentService, responses *service.ResponseService, rosters *service.RosterService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments, responses: responses, rosters: rosters}
}

// Assign godoc
// @Summary Assign proctors to an exam
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.AssignProctorsRequest true "Assignment request"
// @Success 201 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Assign(c *gin.Context) {
	var req dto.AssignProctorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.AssignedBy = claims.UserID
	}

	result, err := h.assignments.AssignProctors(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Swap godoc
// @Summary Swap a proctor on an exam
// @Tags Assignments
// @Accept json
// @Produce json
// @Param examId path string true "Exam ID"
// @Param payload body dto.SwapRequest true "Swap request"
// @Success 200 {object} response.Envelope
// @Router /exams/{examId}/swap [post]
func (h *AssignmentHandler) Swap(c *gin.Context) {
	var req dto.SwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ExamID = c.Param("examId")
	if claims := claimsFromContext(c); claims != nil {
		req.RequestedBy = claims.UserID
	}

	result, err := h.responses.Swap(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Cancel godoc
// @Summary Cancel all assignments for an exam
// @Tags Assignments
// @Produce json
// @Param examId path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{examId}/assignments [delete]
func (h *AssignmentHandler) Cancel(c *gin.Context) {
	result, err := h.responses.CancelForExam(c.Request.Context(), c.Param("examId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Roster godoc
// @Summary Get the proctoring roster for an exam
// @Tags Assignments
// @Produce json
// @Param examId path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{examId}/roster [get]
func (h *AssignmentHandler) Roster(c *gin.Context) {
	roster, err := h.rosters.GetExamRoster(c.Request.Context(), c.Param("examId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// Export godoc
// @Summary Export the proctoring roster
// @Tags Assignments
// @Produce text/csv
// @Produce application/pdf
// @Param examId path string true "Exam ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} byte
// @Router /exams/{examId}/roster/export [get]
func (h *AssignmentHandler) Export(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	payload, contentType, err := h.rosters.ExportExamRoster(c.Request.Context(), c.Param("examId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=roster."+string(format))
	c.Data(http.StatusOK, contentType, payload)
}
