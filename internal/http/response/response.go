package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/identity-backend/internal/platform/apierr"
)

// ErrorBody is the payload of every non-2xx response:
// {"error":{"message":"...","code":"..."}}.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondAggregateError classifies err and writes its envelope. Retryable
// outcomes carry Retry-After so clients back off before resubmitting.
func RespondAggregateError(c *gin.Context, err error) {
	e := apierr.FromAggregate(err)
	if e.Retryable() {
		c.Header("Retry-After", "1")
	}
	// recorded for the request logger
	_ = c.Error(err)
	c.AbortWithStatusJSON(e.Status, ErrorEnvelope{Error: ErrorBody{Message: e.Message, Code: e.Code}})
}
