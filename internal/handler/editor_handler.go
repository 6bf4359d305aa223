package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bulletin-api/internal/models"
	"github.com/noah-isme/bulletin-api/pkg/response"
)

type editorOperations interface {
	Load(ctx context.Context, session models.EditorSession) (*models.LoadResult, error)
	UpdateDraft(ctx context.Context, session models.EditorSession, doc models.BulletinDocument, remoteID string) (*models.DraftRecord, error)
	DiscardDraft(ctx context.Context, session models.EditorSession) error
	Save(ctx context.Context, session models.EditorSession, req models.SaveRequest) (*models.SaveResult, error)
	SyncOffline(ctx context.Context, session models.EditorSession) (*models.SyncResult, error)
	ListOffline(ctx context.Context, session models.EditorSession) ([]models.OfflineBulletin, error)
	ConsolidateAnnouncements(ctx context.Context, session models.EditorSession) (*models.DraftRecord, error)
	Defaults(ctx context.Context, session models.EditorSession) (models.FieldDefaults, error)
	SaveDefaults(ctx context.Context, session models.EditorSession, defaults models.FieldDefaults) (models.FieldDefaults, error)
	Terminology(ctx context.Context, session models.EditorSession) (models.Terminology, error)
	SetTerminology(ctx context.Context, session models.EditorSession, key models.TerminologyKey) (models.Terminology, error)
}

type updateDraftRequest struct {
	Document models.BulletinDocument `json:"document"`
	RemoteID string                  `json:"remote_id"`
}

type terminologyRequest struct {
	Key string `json:"key" binding:"required"`
}

// EditorHandler exposes the bulletin editor workflow.
type EditorHandler struct {
	editor editorOperations
}

// NewEditorHandler constructs an editor handler.
func NewEditorHandler(editor editorOperations) *EditorHandler {
	return &EditorHandler{editor: editor}
}

// Document godoc
// @Summary Load editor document
// @Description Resolve the starting document: local draft, active template, remote bulletin, then blank
// @Tags Editor
// @Produce json
// @Param X-Client-ID header string true "Editor client id"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /editor/document [get]
func (h *EditorHandler) Document(c *gin.Context) {
	session, err := editorSession(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.editor.Load(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// UpdateDraft godoc
// @Summary Store draft
// @Description Mirror the working document into the client's local draft
// @Tags Editor
// @Accept json
// @Produce json
// @Param X-Client-ID header string true "Editor client id"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /editor/draft [put]
func (h *EditorHandler) UpdateDraft(c *gin.Context) {
	session, err := editorSession(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req updateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid draft payload"))
		return
	}
	draft, err := h.editor.UpdateDraft(c.Request.Context(), session, req.Document, req.RemoteID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// DiscardDraft godoc
// @Summary Discard draft
// @Tags Editor
// @Param X-Client-ID header string true "Editor client id"
// @Success 204
// @Router /editor/draft [delete]
func (h *EditorHandler) DiscardDraft(c *gin.Context) {
	session, err := editorSession(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.editor.DiscardDraft(c.Request.Context(), session); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Save godoc
// @Summary Save bulletin
// @Description Save the document remotely. A save that cannot reach the store is kept offline and answered with 202.
// @Tags Editor
// @Accept json
// @Produce json
// @Param X-Client-ID header string true "Editor client id"
// @Param payload body models.SaveRequest true "Save payload"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /editor/save [post]
func (h *EditorHandler) Save(c *gin.Context) {
	session, err := editorSession(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid save payload"))
		return
	}
	result, err := h.editor.Save(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if result.Offline {
		status = http.StatusAccepted
	}
	response.JSON(c, status, result, nil)
}

// Consolidate godoc
// @Summary Consolidate announcements
// @Description Merge announcements sharing an audience into one per audience
// @Tags Editor
// @Produce json
// @Param X-Client-ID header string true "Editor client id"
// @Success 200 {object} response.Envelope
// @Router /editor/consolidate [post]
func (h *EditorHandler) Consolidate(c *gin.Context) {
	session, err := editorSession(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	draft, err := h.editor.ConsolidateAnnouncements(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// Offline godoc
// @Summary List offline bulletins
// @Tags Editor
// @Produce json
// @Param X-Client-ID header string true "Editor client id"
// @Success 200 {object} response.Envelope
// @Router /editor/offline [get]
func (h *EditorHandler) Offline(c *gin.Context) {
	session, err := editorSession(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.editor.ListOffline(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// SyncOffline godoc
// @Summary Sync offline bulletins
// @Description Retry every offline bulletin of the signed-in owner
// @Tags Editor
// @Produce json
// @Param X-Client-ID header string true "Editor client id"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /editor/offline/sync [post]
func (h *EditorHandler) SyncOffline(c *gin.Context) {
	session, err := editorSession(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.editor.SyncOffline(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Defaults godoc
// @Summary Field defaults
// @Tags Editor
// @Produce json
// @Param X-Client-ID header string true "Editor client id"
// @Success 200 {object} response.Envelope
// @Router /editor/defaults [get]
func (h *EditorHandler) Defaults(c *gin.Context) {
	session, err := editorSession(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defaults, err := h.editor.Defaults(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, defaults, nil)
}

// SaveDefaults godoc
// @Summary Update field defaults
// @Description Merge non-empty fields into the saved defaults
// @Tags Editor
// @Accept json
// @Produce json
// @Param X-Client-ID header string true "Editor client id"
// @Param payload body models.FieldDefaults true "Defaults"
// @Success 200 {object} response.Envelope
// @Router /editor/defaults [put]
func (h *EditorHandler) SaveDefaults(c *gin.Context) {
	session, err := editorSession(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.FieldDefaults
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid defaults payload"))
		return
	}
	merged, err := h.editor.SaveDefaults(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, merged, nil)
}

// Terminology godoc
// @Summary Unit terminology
// @Tags Editor
// @Produce json
// @Param X-Client-ID header string true "Editor client id"
// @Success 200 {object} response.Envelope
// @Router /editor/terminology [get]
func (h *EditorHandler) Terminology(c *gin.Context) {
	session, err := editorSession(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	term, err := h.editor.Terminology(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, term, nil)
}

// SetTerminology godoc
// @Summary Set unit terminology
// @Tags Editor
// @Accept json
// @Produce json
// @Param X-Client-ID header string true "Editor client id"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /editor/terminology [put]
func (h *EditorHandler) SetTerminology(c *gin.Context) {
	session, err := editorSession(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req terminologyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid terminology payload"))
		return
	}
	term, err := h.editor.SetTerminology(c.Request.Context(), session, models.TerminologyKey(req.Key))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, term, nil)
}
