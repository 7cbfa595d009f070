package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-ops/proctor-api/internal/dto"
	"github.com/campus-ops/proctor-api/internal/service"
	appErrors "github.com/campus-ops/proctor-api/pkg/errors"
	"github.com/campus-ops/proctor-api/pkg/response"
)

// ResponseHandler exposes the assistant-facing endpoints: answering an
// assignment and listing one's own assignments.
type ResponseHandler struct {
	responses *service.ResponseService
	rosters   *service.RosterService
}

// NewResponseHandler constructs the handler.
func NewResponseHandler(responses *service.ResponseService, rosters *service.RosterService) *ResponseHandler {
	return &ResponseHandler{responses: responses, rosters: rosters}
}

// Respond godoc
// @Summary Accept or reject a proctoring assignment
// @Tags Responses
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body dto.RespondRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/response [post]
func (h *ResponseHandler) Respond(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	assignment, err := h.responses.Respond(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// MyAssignments godoc
// @Summary List the assistant's proctoring assignments
// @Tags Responses
// @Produce json
// @Param assistantId path string true "Assistant ID"
// @Success 200 {object} response.Envelope
// @Router /assistants/{assistantId}/assignments [get]
func (h *ResponseHandler) MyAssignments(c *gin.Context) {
	assignments, err := h.rosters.ListAssistantAssignments(c.Request.Context(), c.Param("assistantId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}
