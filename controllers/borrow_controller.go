package controllers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/lescriminels/guild/app"
	"github.com/lescriminels/guild/lending"

	"github.com/gin-gonic/gin"
)

type BorrowController struct{ *Srv }

func NewBorrowController(s *Srv) *BorrowController { return &BorrowController{Srv: s} }

const defaultUploadLimit = 5 << 20

// readUpload reads an optional multipart file field. A missing field or a
// non multipart body yields nil.
func (bc *BorrowController) readUpload(c *gin.Context, field string) (*lending.Upload, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	limit := bc.Cfg.UploadMaxBytes
	if limit <= 0 {
		limit = defaultUploadLimit
	}
	// one byte over the limit lets the attachment manager reject it
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	ct := fh.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/octet-stream") {
		ct = "" // generic clients; let the content decide
	}
	return &lending.Upload{Data: data, ContentType: ct}, nil
}

// POST /api/items/:id/borrow  (multipart: proof_image)
func (bc *BorrowController) Request(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	proof, err := bc.readUpload(c, "proof_image")
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "unreadable upload"})
		return
	}
	b, err := bc.Lending.RequestBorrow(c.Request.Context(), a, c.Param("id"), proof)
	if err != nil {
		bc.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// POST /api/borrows/:id/approve
func (bc *BorrowController) Approve(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	b, err := bc.Lending.Approve(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		bc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// POST /api/borrows/:id/returning  (multipart, optional: return_proof_image)
func (bc *BorrowController) MarkReturning(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	proof, err := bc.readUpload(c, "return_proof_image")
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "unreadable upload"})
		return
	}
	b, err := bc.Lending.MarkReturning(c.Request.Context(), a, c.Param("id"), proof)
	if err != nil {
		bc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// POST /api/borrows/:id/cancel
func (bc *BorrowController) Cancel(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	removed, err := bc.Lending.Cancel(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		bc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "removed": removed})
}

// GET /api/borrows/mine
func (bc *BorrowController) ListMine(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	rows, err := bc.Lending.MyBorrows(c.Request.Context(), a)
	if err != nil {
		bc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"borrows": rows})
}

// GET /api/borrows/incoming
func (bc *BorrowController) ListIncoming(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	rows, err := bc.Lending.Incoming(c.Request.Context(), a)
	if err != nil {
		bc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"borrows": rows})
}

// GET /api/borrows/pending-count
func (bc *BorrowController) PendingCount(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	n, err := bc.Lending.PendingCount(c.Request.Context(), a)
	if err != nil {
		bc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"count": n})
}
