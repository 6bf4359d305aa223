package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bulletin-api/internal/models"
	"github.com/noah-isme/bulletin-api/internal/service"
	"github.com/noah-isme/bulletin-api/pkg/response"
)

type submissionOperations interface {
	List(ctx context.Context, ownerID string, req service.SubmissionListRequest) ([]models.Submission, *models.Pagination, error)
	Create(ctx context.Context, req models.CreateSubmissionRequest) (*models.Submission, error)
	Approve(ctx context.Context, session models.EditorSession, id string, req models.ReviewSubmissionRequest) (*models.ReviewResult, error)
	Reject(ctx context.Context, ownerID, id string, req models.ReviewSubmissionRequest) (*models.ReviewResult, error)
	ApproveGroup(ctx context.Context, session models.EditorSession, req models.ApproveGroupRequest) (*models.BatchApprovalResult, error)
}

type submissionExporter interface {
	SubmissionsCSV(ctx context.Context, ownerID string, req service.SubmissionListRequest) (*service.ExportFile, error)
}

// SubmissionHandler serves announcement submissions.
type SubmissionHandler struct {
	submissions submissionOperations
	exports     submissionExporter
}

// NewSubmissionHandler constructs a submission handler.
func NewSubmissionHandler(submissions submissionOperations, exports submissionExporter) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions, exports: exports}
}

// Create godoc
// @Summary Submit announcement
// @Description Public intake form for announcement requests
// @Tags Submissions
// @Accept json
// @Produce json
// @Param payload body models.CreateSubmissionRequest true "Submission"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /submissions [post]
func (h *SubmissionHandler) Create(c *gin.Context) {
	var req models.CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid submission payload"))
		return
	}
	submission, err := h.submissions.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"id": submission.ID, "status": submission.Status})
}

// List godoc
// @Summary List submissions
// @Tags Submissions
// @Produce json
// @Param status query string false "pending, approved or rejected"
// @Param audience query string false "Audience"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	owner, err := ownerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.SubmissionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, bindError(err, "invalid query parameters"))
		return
	}
	items, pagination, err := h.submissions.List(c.Request.Context(), owner, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Export godoc
// @Summary Export submissions
// @Tags Submissions
// @Produce text/csv
// @Param status query string false "pending, approved or rejected"
// @Param audience query string false "Audience"
// @Success 200 {file} binary
// @Router /submissions/export [get]
func (h *SubmissionHandler) Export(c *gin.Context) {
	owner, err := ownerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.SubmissionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, bindError(err, "invalid query parameters"))
		return
	}
	file, err := h.exports.SubmissionsCSV(c.Request.Context(), owner, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// Approve godoc
// @Summary Approve submission
// @Description Approve a pending submission and add it to the working bulletin
// @Tags Submissions
// @Accept json
// @Produce json
// @Param X-Client-ID header string true "Editor client id"
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /submissions/{id}/approve [post]
func (h *SubmissionHandler) Approve(c *gin.Context) {
	session, err := editorSession(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	req, ok := reviewRequest(c)
	if !ok {
		return
	}
	result, err := h.submissions.Approve(c.Request.Context(), session, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reject godoc
// @Summary Reject submission
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submissions/{id}/reject [post]
func (h *SubmissionHandler) Reject(c *gin.Context) {
	owner, err := ownerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	req, ok := reviewRequest(c)
	if !ok {
		return
	}
	result, err := h.submissions.Reject(c.Request.Context(), owner, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ApproveGroup godoc
// @Summary Approve an audience group
// @Description Approve every pending submission of one audience and add them as one announcement
// @Tags Submissions
// @Accept json
// @Produce json
// @Param X-Client-ID header string true "Editor client id"
// @Param payload body models.ApproveGroupRequest true "Group"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submissions/approve-group [post]
func (h *SubmissionHandler) ApproveGroup(c *gin.Context) {
	session, err := editorSession(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.ApproveGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid approval payload"))
		return
	}
	result, err := h.submissions.ApproveGroup(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// reviewRequest binds optional reviewer notes. An empty body is allowed.
func reviewRequest(c *gin.Context) (models.ReviewSubmissionRequest, bool) {
	var req models.ReviewSubmissionRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid review payload"))
		return req, false
	}
	return req, true
}
