package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/NikitaN05/youtube-companion-dashboard/internal/errors"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/logging"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/metrics"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/models"
)

// userContextKey is where the middleware stores the authenticated user.
const userContextKey = "auth_user"

// ErrorResponse is the wire shape for every error the API returns. Provider
// response bodies are never forwarded through it.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// SessionAuth validates the bearer session token and loads the user into
// the request context.
func SessionAuth(auth AuthService, m *metrics.Metrics, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Message: "Authorization header is required.",
				Code:    string(errors.KindNotAuthorized),
			})
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Message: "Authorization header must use the Bearer scheme.",
				Code:    string(errors.KindMalformed),
			})
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			kind := errors.KindOf(err)
			if m != nil {
				m.RecordSessionRejection(string(kind))
			}
			logger.WarnWithContext(c.Request.Context(), "session rejected", "kind", string(kind))
			abortWithError(c, err)
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// currentUser returns the user placed in the context by SessionAuth.
func currentUser(c *gin.Context) *models.User {
	value, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}

// statusForKind maps domain error kinds to stable HTTP statuses.
func statusForKind(kind errors.Kind) int {
	switch kind {
	case errors.KindNotAuthorized, errors.KindExpired, errors.KindInvalidSignature, errors.KindAuthorizationFailed:
		return http.StatusUnauthorized
	case errors.KindReauthorizationRequired, errors.KindPermissionDenied:
		return http.StatusForbidden
	case errors.KindResourceNotFound:
		return http.StatusNotFound
	case errors.KindMalformed:
		return http.StatusBadRequest
	case errors.KindQuotaExceeded:
		return http.StatusTooManyRequests
	case errors.KindConfigurationError, errors.KindDecryptionError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

// messageForKind is the stable, client-safe description per kind.
func messageForKind(kind errors.Kind) string {
	switch kind {
	case errors.KindNotAuthorized:
		return "Not authorized. Sign in first."
	case errors.KindReauthorizationRequired:
		return "Provider access was revoked or expired. Re-authorize the account."
	case errors.KindQuotaExceeded:
		return "Provider quota exhausted. Try again later."
	case errors.KindPermissionDenied:
		return "You do not have permission to perform this action."
	case errors.KindResourceNotFound:
		return "The requested resource does not exist."
	case errors.KindExpired:
		return "Session expired. Sign in again."
	case errors.KindInvalidSignature, errors.KindMalformed:
		return "The request could not be validated."
	case errors.KindAuthorizationFailed:
		return "Authorization could not be completed."
	case errors.KindConfigurationError, errors.KindDecryptionError:
		return "Internal error."
	default:
		return "The upstream service failed. Try again later."
	}
}

// abortWithError writes the canonical error body for a domain error.
// fail maps a service error onto the wire. When the provider reports the
// grant is gone for good, the stored credential is dropped so later calls
// fail fast with not_authorized; the session itself stays valid and the
// client re-runs the authorization flow.
func (s *Server) fail(c *gin.Context, err error) {
	if errors.KindOf(err) == errors.KindReauthorizationRequired && s.credentials != nil {
		if user := currentUser(c); user != nil {
			if derr := s.credentials.Invalidate(c.Request.Context(), user.ID); derr != nil {
				s.logger.WarnWithContext(c.Request.Context(), "failed to drop dead credential",
					"user_id", user.ID,
					"error", derr.Error(),
				)
			}
		}
	}
	abortWithError(c, err)
}

func abortWithError(c *gin.Context, err error) {
	kind := errors.KindOf(err)

	// ErrNotFound is infrastructure, not taxonomy; it surfaces as 404.
	var notFound *errors.ErrNotFound
	if errors.As(err, &notFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "The requested resource does not exist.",
			Code:    string(errors.KindResourceNotFound),
		})
		return
	}

	status := statusForKind(kind)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: messageForKind(kind),
		Code:    string(kind),
	})
}
