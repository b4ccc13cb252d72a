package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) slipHandler(format string) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := s.slipSvc.Render(c.Request.Context(), c.Param("id"), format)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		disposition := "inline"
		if c.Query("download") != "" {
			disposition = "attachment"
		}
		c.Header("Content-Disposition", fmt.Sprintf(`%s; filename="%s"`, disposition, doc.Filename))
		c.Data(http.StatusOK, doc.ContentType, doc.Body)
	}
}
