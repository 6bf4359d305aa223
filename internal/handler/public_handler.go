package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bulletin-api/internal/middleware"
	"github.com/noah-isme/bulletin-api/internal/models"
	"github.com/noah-isme/bulletin-api/pkg/response"
)

type publicResolver interface {
	Resolve(ctx context.Context, profileSlug string) (*models.PublicBulletin, bool, error)
}

type shareResolver interface {
	Resolve(ctx context.Context, token string) (*models.PublicBulletin, error)
}

// PublicHandler serves bulletins to visitors without an account.
type PublicHandler struct {
	bulletins publicResolver
	shares    shareResolver
	maxAge    time.Duration
}

// NewPublicHandler constructs a public handler. maxAge is advertised to shared caches.
func NewPublicHandler(bulletins publicResolver, shares shareResolver, maxAge time.Duration) *PublicHandler {
	return &PublicHandler{bulletins: bulletins, shares: shares, maxAge: maxAge}
}

// Bulletin godoc
// @Summary Public bulletin
// @Description Resolve the active (or newest) bulletin of a profile
// @Tags Public
// @Produce json
// @Param profileSlug query string true "Profile slug"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /bulletin [get]
func (h *PublicHandler) Bulletin(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	bulletin, hit, err := h.bulletins.Resolve(c.Request.Context(), c.Query("profileSlug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	middleware.SetMeta(c, "bulletin_id", bulletin.ID)
	response.Cached(c, bulletin, h.maxAge, middleware.ExtractMeta(c))
}

// Share godoc
// @Summary Shared bulletin
// @Description Resolve a signed share link
// @Tags Public
// @Produce json
// @Param token path string true "Share token"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /share/{token} [get]
func (h *PublicHandler) Share(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	bulletin, err := h.shares.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Cached(c, bulletin, 0, nil)
}
