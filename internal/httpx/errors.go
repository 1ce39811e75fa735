package httpx

import "github.com/gin-gonic/gin"

// ErrorBody is the JSON shape of every error response.
// swagger:model ErrorBody
type ErrorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	ProductID string `json:"product_id,omitempty"`
	Available *int   `json:"available,omitempty"`
	Requested *int   `json:"requested,omitempty"`
	Field     string `json:"field,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func Abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: msg, Code: code})
}
