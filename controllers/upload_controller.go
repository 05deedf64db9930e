package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/lescriminels/guild/app"
	"github.com/lescriminels/guild/attachment"

	"github.com/gin-gonic/gin"
)

type UploadController struct{ *Srv }

func NewUploadController(s *Srv) *UploadController { return &UploadController{Srv: s} }

// GET /uploads/:name
func (uc *UploadController) Serve(c *gin.Context) {
	rc, contentType, err := uc.Files.Open(c.Request.Context(), c.Param("name"))
	switch {
	case errors.Is(err, attachment.ErrNotFound), errors.Is(err, attachment.ErrInvalidRef):
		c.JSON(http.StatusNotFound, app.H{"error": "not found"})
		return
	case err != nil:
		uc.Log.Error("open attachment", "name", c.Param("name"), "err", err)
		c.JSON(http.StatusInternalServerError, app.H{"error": "internal error"})
		return
	}
	defer rc.Close()

	c.Header("Cache-Control", "private, max-age=3600")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Status(http.StatusOK)
	c.Header("Content-Type", contentType)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		uc.Log.Warn("stream attachment", "name", c.Param("name"), "err", err)
	}
}
