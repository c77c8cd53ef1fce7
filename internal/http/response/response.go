package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/siftnotes/sift-backend/internal/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError maps a typed service error to its status and code. Internal
// causes are not leaked: persistence failures get a generic message.
func RespondAPIError(c *gin.Context, err error) {
	ae := apierr.From(err, nil)
	if ae == nil {
		RespondError(c, http.StatusInternalServerError, apierr.CodePersistence, nil)
		return
	}
	if ae.Code == apierr.CodePersistence {
		c.JSON(ae.Status, ErrorEnvelope{
			Error: APIError{Message: "internal error", Code: ae.Code},
		})
		return
	}
	RespondError(c, ae.Status, ae.Code, ae)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
