package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bulletin-api/internal/models"
	"github.com/noah-isme/bulletin-api/internal/service"
	appErrors "github.com/noah-isme/bulletin-api/pkg/errors"
)

type submissionStub struct {
	listReq   service.SubmissionListRequest
	created   models.CreateSubmissionRequest
	session   models.EditorSession
	review    models.ReviewSubmissionRequest
	group     models.ApproveGroupRequest
	createErr error
}

func (s *submissionStub) List(ctx context.Context, ownerID string, req service.SubmissionListRequest) ([]models.Submission, *models.Pagination, error) {
	s.listReq = req
	return []models.Submission{{ID: "s1", OwnerID: ownerID}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (s *submissionStub) Create(ctx context.Context, req models.CreateSubmissionRequest) (*models.Submission, error) {
	s.created = req
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.Submission{ID: "s9", Status: models.SubmissionPending, SubmitterEmail: req.SubmitterEmail}, nil
}

func (s *submissionStub) Approve(ctx context.Context, session models.EditorSession, id string, req models.ReviewSubmissionRequest) (*models.ReviewResult, error) {
	s.session = session
	s.review = req
	return &models.ReviewResult{Submission: models.Submission{ID: id, Status: models.SubmissionApproved}, Appended: true}, nil
}

func (s *submissionStub) Reject(ctx context.Context, ownerID, id string, req models.ReviewSubmissionRequest) (*models.ReviewResult, error) {
	s.review = req
	return &models.ReviewResult{Submission: models.Submission{ID: id, Status: models.SubmissionRejected}}, nil
}

func (s *submissionStub) ApproveGroup(ctx context.Context, session models.EditorSession, req models.ApproveGroupRequest) (*models.BatchApprovalResult, error) {
	s.session = session
	s.group = req
	return &models.BatchApprovalResult{Audience: models.AnnouncementAudience(req.Audience), Approved: []string{"s1"}, Failed: []models.BatchFailure{}}, nil
}

type csvStub struct{}

func (csvStub) SubmissionsCSV(ctx context.Context, ownerID string, req service.SubmissionListRequest) (*service.ExportFile, error) {
	return &service.ExportFile{Filename: "submissions.csv", ContentType: "text/csv", Data: []byte("Submitted At\n")}, nil
}

func TestSubmissionCreateHidesSubmitterDetails(t *testing.T) {
	stub := &submissionStub{}
	h := NewSubmissionHandler(stub, csvStub{})
	body := models.CreateSubmissionRequest{ProfileSlug: "smith-ward", Title: "Potluck", Content: "Bring a dish", SubmitterName: "Ana", SubmitterEmail: "ana@example.org"}

	c, w := editorContext(http.MethodPost, "/submissions", body, nil, "")
	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Potluck", stub.created.Title)
	assert.NotContains(t, w.Body.String(), "ana@example.org")
	assert.Contains(t, w.Body.String(), `"status":"pending"`)

	stub.createErr = appErrors.Clone(appErrors.ErrNotFound, "profile not found")
	c, w = editorContext(http.MethodPost, "/submissions", body, nil, "")
	h.Create(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmissionListBindsQuery(t *testing.T) {
	stub := &submissionStub{}
	c, w := editorContext(http.MethodGet, "/api/v1/submissions?status=pending&audience=youth&page=2&page_size=5", nil, ownerClaims, "")
	NewSubmissionHandler(stub, csvStub{}).List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.SubmissionListRequest{Status: "pending", Audience: "youth", Page: 2, PageSize: 5}, stub.listReq)
	assert.Contains(t, w.Body.String(), `"pagination":{"page":1,"page_size":20,"total_count":1}`)
}

func TestSubmissionApproveUsesEditorSession(t *testing.T) {
	stub := &submissionStub{}
	h := NewSubmissionHandler(stub, csvStub{})

	c, w := editorContext(http.MethodPost, "/api/v1/submissions/s1/approve", nil, ownerClaims, "")
	c.AddParam("id", "s1")
	h.Approve(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = editorContext(http.MethodPost, "/api/v1/submissions/s1/approve", nil, ownerClaims, testClientID)
	c.AddParam("id", "s1")
	h.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testClientID, stub.session.ClientID)
	assert.Equal(t, "owner-1", stub.session.OwnerID)

	c, w = editorContext(http.MethodPost, "/api/v1/submissions/s1/reject", models.ReviewSubmissionRequest{Notes: "duplicate"}, ownerClaims, "")
	c.AddParam("id", "s1")
	h.Reject(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "duplicate", stub.review.Notes)

	c, w = editorContext(http.MethodPost, "/api/v1/submissions/approve-group", models.ApproveGroupRequest{Audience: "youth"}, ownerClaims, testClientID)
	h.ApproveGroup(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "youth", stub.group.Audience)
}

func TestSubmissionExportDownload(t *testing.T) {
	c, w := editorContext(http.MethodGet, "/api/v1/submissions/export", nil, ownerClaims, "")
	NewSubmissionHandler(&submissionStub{}, csvStub{}).Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "submissions.csv")
}
