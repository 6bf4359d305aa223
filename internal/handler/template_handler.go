package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bulletin-api/internal/models"
	"github.com/noah-isme/bulletin-api/pkg/response"
)

type templateOperations interface {
	List(ctx context.Context, ownerID string) ([]models.Template, error)
	Get(ctx context.Context, ownerID, id string) (*models.Template, error)
	Create(ctx context.Context, session models.EditorSession, req models.CreateTemplateRequest) (*models.Template, error)
	Rename(ctx context.Context, ownerID, id string, req models.RenameTemplateRequest) (*models.Template, error)
	Delete(ctx context.Context, session models.EditorSession, id string) error
	Activate(ctx context.Context, session models.EditorSession, id string) (*models.Template, error)
	Deactivate(ctx context.Context, session models.EditorSession) error
}

// TemplateHandler manages reusable bulletin templates.
type TemplateHandler struct {
	templates templateOperations
}

// NewTemplateHandler constructs a template handler.
func NewTemplateHandler(templates templateOperations) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

// List godoc
// @Summary List templates
// @Tags Templates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /templates [get]
func (h *TemplateHandler) List(c *gin.Context) {
	owner, err := ownerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.templates.List(c.Request.Context(), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get template
// @Tags Templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /templates/{id} [get]
func (h *TemplateHandler) Get(c *gin.Context) {
	owner, err := ownerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	tpl, err := h.templates.Get(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl, nil)
}

// Create godoc
// @Summary Create template
// @Description Save the given snapshot, or the client's current draft, as a template
// @Tags Templates
// @Accept json
// @Produce json
// @Param X-Client-ID header string true "Editor client id"
// @Param payload body models.CreateTemplateRequest true "Template"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /templates [post]
func (h *TemplateHandler) Create(c *gin.Context) {
	session, err := editorSession(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid template payload"))
		return
	}
	tpl, err := h.templates.Create(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tpl)
}

// Rename godoc
// @Summary Rename template
// @Tags Templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param payload body models.RenameTemplateRequest true "Name"
// @Success 200 {object} response.Envelope
// @Router /templates/{id} [patch]
func (h *TemplateHandler) Rename(c *gin.Context) {
	owner, err := ownerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.RenameTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid template payload"))
		return
	}
	tpl, err := h.templates.Rename(c.Request.Context(), owner, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl, nil)
}

// Delete godoc
// @Summary Delete template
// @Tags Templates
// @Param X-Client-ID header string true "Editor client id"
// @Param id path string true "Template ID"
// @Success 204
// @Router /templates/{id} [delete]
func (h *TemplateHandler) Delete(c *gin.Context) {
	session, err := editorSession(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.templates.Delete(c.Request.Context(), session, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Activate godoc
// @Summary Start from template
// @Description Make the template the client's starting document and discard its draft
// @Tags Templates
// @Produce json
// @Param X-Client-ID header string true "Editor client id"
// @Param id path string true "Template ID"
// @Success 200 {object} response.Envelope
// @Router /templates/{id}/activate [post]
func (h *TemplateHandler) Activate(c *gin.Context) {
	session, err := editorSession(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	tpl, err := h.templates.Activate(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl, nil)
}

// Deactivate godoc
// @Summary Stop using template
// @Tags Templates
// @Param X-Client-ID header string true "Editor client id"
// @Success 204
// @Router /templates/active [delete]
func (h *TemplateHandler) Deactivate(c *gin.Context) {
	session, err := editorSession(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.templates.Deactivate(c.Request.Context(), session); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
