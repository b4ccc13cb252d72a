package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const maxBackupSize = 32 << 20

func (s *Server) ExportBackup(c *gin.Context) {
	data, filename, err := s.backupSvc.Export(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// ImportBackup accepts the backup either as the raw request body or as a
// multipart upload in the "file" field.
func (s *Server) ImportBackup(c *gin.Context) {
	var reader io.Reader = http.MaxBytesReader(c.Writer, c.Request.Body, maxBackupSize)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
		f, err := fh.Open()
		if err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
		defer f.Close()
		reader = io.LimitReader(f, maxBackupSize)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	n, err := s.backupSvc.Import(c.Request.Context(), data)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"imported": n}})
}
