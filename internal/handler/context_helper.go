package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bulletin-api/internal/middleware"
	"github.com/noah-isme/bulletin-api/internal/models"
	appErrors "github.com/noah-isme/bulletin-api/pkg/errors"
	"github.com/noah-isme/bulletin-api/pkg/middleware/clientid"
)

var errClientIDRequired = appErrors.Clone(appErrors.ErrValidation, "X-Client-ID header is required")

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// editorSession builds the caller's editor session. Local state is keyed by the client
// id, so a request without one cannot touch it.
func editorSession(c *gin.Context) (models.EditorSession, error) {
	session := models.EditorSession{ClientID: clientid.Value(c)}
	if claims := claimsFromContext(c); claims != nil {
		session.OwnerID = claims.UserID
		session.Claims = claims
	}
	if session.ClientID == "" {
		return session, errClientIDRequired
	}
	return session, nil
}

func ownerID(c *gin.Context) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil || claims.UserID == "" {
		return "", appErrors.ErrUnauthorized
	}
	return claims.UserID, nil
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
