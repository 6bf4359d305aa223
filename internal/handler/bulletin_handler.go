package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/bulletin-api/internal/models"
	"github.com/noah-isme/bulletin-api/internal/service"
	"github.com/noah-isme/bulletin-api/pkg/response"
)

type bulletinRecords interface {
	GetBulletinsByOwner(ctx context.Context, ownerID string) ([]models.BulletinRecord, error)
	LoadOwnedDocument(ctx context.Context, ownerID, id string) (*models.StoredBulletin, error)
	DeleteBulletin(ctx context.Context, id, ownerID string) error
	SetActiveBulletinID(ctx context.Context, ownerID, bulletinID string) error
}

type shareCreator interface {
	Create(ctx context.Context, ownerID, bulletinID string) (*service.ShareLink, error)
}

type bulletinExporter interface {
	BulletinPDF(ctx context.Context, ownerID, bulletinID string) (*service.ExportFile, error)
}

type publicInvalidator interface {
	Invalidate(ctx context.Context, profileSlug string) error
}

// BulletinHandler manages an owner's saved bulletins.
type BulletinHandler struct {
	records bulletinRecords
	shares  shareCreator
	exports bulletinExporter
	public  publicInvalidator
	logger  *zap.Logger
}

// NewBulletinHandler constructs a bulletin handler.
func NewBulletinHandler(records bulletinRecords, shares shareCreator, exports bulletinExporter, public publicInvalidator, logger *zap.Logger) *BulletinHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulletinHandler{records: records, shares: shares, exports: exports, public: public, logger: logger}
}

// List godoc
// @Summary List bulletins
// @Description List the signed-in owner's bulletins, newest first
// @Tags Bulletins
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /bulletins [get]
func (h *BulletinHandler) List(c *gin.Context) {
	owner, err := ownerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.records.GetBulletinsByOwner(c.Request.Context(), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Get godoc
// @Summary Get bulletin
// @Tags Bulletins
// @Produce json
// @Param id path string true "Bulletin ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bulletins/{id} [get]
func (h *BulletinHandler) Get(c *gin.Context) {
	owner, err := ownerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	stored, err := h.records.LoadOwnedDocument(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stored, nil)
}

// Delete godoc
// @Summary Delete bulletin
// @Tags Bulletins
// @Param id path string true "Bulletin ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /bulletins/{id} [delete]
func (h *BulletinHandler) Delete(c *gin.Context) {
	owner, err := ownerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.records.DeleteBulletin(c.Request.Context(), c.Param("id"), owner); err != nil {
		response.Error(c, err)
		return
	}
	h.invalidate(c)
	response.NoContent(c)
}

// SetActive godoc
// @Summary Publish bulletin
// @Description Point the owner's public page at this bulletin
// @Tags Bulletins
// @Produce json
// @Param id path string true "Bulletin ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bulletins/{id}/active [put]
func (h *BulletinHandler) SetActive(c *gin.Context) {
	owner, err := ownerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	stored, err := h.records.LoadOwnedDocument(ctx, owner, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.records.SetActiveBulletinID(ctx, owner, stored.Record.ID); err != nil {
		response.Error(c, err)
		return
	}
	h.invalidate(c)
	response.JSON(c, http.StatusOK, stored.Record, nil)
}

// Share godoc
// @Summary Create share link
// @Description Issue a signed, expiring link to this bulletin
// @Tags Bulletins
// @Produce json
// @Param id path string true "Bulletin ID"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bulletins/{id}/share [post]
func (h *BulletinHandler) Share(c *gin.Context) {
	owner, err := ownerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	link, err := h.shares.Create(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// PDF godoc
// @Summary Printable program
// @Tags Bulletins
// @Produce application/pdf
// @Param id path string true "Bulletin ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /bulletins/{id}/pdf [get]
func (h *BulletinHandler) PDF(c *gin.Context) {
	owner, err := ownerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.BulletinPDF(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

func (h *BulletinHandler) invalidate(c *gin.Context) {
	claims := claimsFromContext(c)
	if h.public == nil || claims == nil || claims.ProfileSlug == "" {
		return
	}
	if err := h.public.Invalidate(c.Request.Context(), claims.ProfileSlug); err != nil {
		h.logger.Warn("failed to invalidate public bulletin cache",
			zap.String("profile_slug", claims.ProfileSlug), zap.Error(err))
	}
}
