// Response helpers shared by every endpoint.
//
// Failures always carry an ErrorResponse with a stable code; successes are
// plain JSON documents or an empty 204.
//
//	HTTP/1.1 409 Conflict
//	{
//	  "request_id": "5d0c6a54-3f0b-4b0e-9a55-8f5b1f0d8a11",
//	  "code": "exchange_in_flight",
//	  "message": "an exchange is already running for this friend"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-companion-store/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by all endpoints.
type ErrorResponse struct {
	// Echo of X-Request-ID
	RequestID string `json:"request_id,omitempty" example:"5d0c6a54-3f0b-4b0e-9a55-8f5b1f0d8a11"`
	// Stable, machine-readable code (see errors.go)
	Code    string `json:"code" example:"not_found"`
	Message string `json:"message" example:"friend \"friend_AB12CD\": not found"`
}

// fail aborts with an ErrorResponse. 5xx responses are also logged with the
// request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail lets the router emit the same envelope (404/405 fallbacks).
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
