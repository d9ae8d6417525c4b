package api

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static/index.html
var indexHTML []byte

// RegisterPageRoutes serves the single-page panel.
func RegisterPageRoutes(r *gin.Engine) {
	r.GET("/", handleIndex)
}

func handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}
