package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/bulletin-api/internal/models"
	appErrors "github.com/noah-isme/bulletin-api/pkg/errors"
	"github.com/noah-isme/bulletin-api/pkg/middleware/clientid"
	"github.com/noah-isme/bulletin-api/pkg/response"
)

type authOperations interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	RefreshSession(ctx context.Context, claims *models.JWTClaims) (*models.Session, error)
}

type pendingResumer interface {
	ResumePending(ctx context.Context, session models.EditorSession) (*models.SaveResult, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	auth   authOperations
	editor pendingResumer
	logger *zap.Logger
}

// NewAuthHandler creates a new handler. editor may be nil when no pending saves should
// be resumed after sign-in.
func NewAuthHandler(auth authOperations, editor pendingResumer, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{auth: auth, editor: editor, logger: logger}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by email and password, then resubmit any save stashed before sign-in
// @Tags Authentication
// @Accept json
// @Produce json
// @Param X-Client-ID header string false "Editor client id"
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.resume(c, res)
	response.JSON(c, http.StatusOK, res, nil)
}

func (h *AuthHandler) resume(c *gin.Context, res *models.LoginResponse) {
	client := clientid.Value(c)
	if h.editor == nil || client == "" || res.Session == nil {
		return
	}
	session := models.EditorSession{ClientID: client, OwnerID: res.User.ID, Claims: res.Session.Claims}
	resumed, err := h.editor.ResumePending(c.Request.Context(), session)
	if err != nil {
		h.logger.Warn("pending save could not be resumed",
			zap.String("user_id", res.User.ID), zap.String("client_id", client), zap.Error(err))
		res.ResumeWarning = appErrors.FromError(err).Message
		return
	}
	res.Resumed = resumed
}

// Refresh godoc
// @Summary Refresh access token
// @Description Re-check the account and issue a fresh access token
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	session, err := h.auth.RefreshSession(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Me godoc
// @Summary Current user
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, models.UserInfo{
		ID:          claims.UserID,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		ProfileSlug: claims.ProfileSlug,
	}, nil)
}
