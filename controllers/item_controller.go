package controllers

import (
	"net/http"

	"github.com/lescriminels/guild/app"
	"github.com/lescriminels/guild/lending"

	"github.com/gin-gonic/gin"
)

type ItemController struct{ *Srv }

func NewItemController(s *Srv) *ItemController { return &ItemController{Srv: s} }

// POST /api/items
func (ic *ItemController) CreateItem(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var in struct {
		Name        string `json:"name" form:"name" binding:"required"`
		Description string `json:"description" form:"description"`
		OwnerID     string `json:"owner_id" form:"owner_id"`
	}
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "name is required"})
		return
	}
	it, err := ic.Lending.CreateItem(c.Request.Context(), a, lending.NewItem{
		Name:        in.Name,
		Description: in.Description,
		OwnerID:     in.OwnerID,
	})
	if err != nil {
		ic.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, it)
}

// GET /api/items/mine
func (ic *ItemController) ListMine(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	rows, err := ic.Lending.MyItems(c.Request.Context(), a)
	if err != nil {
		ic.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": rows})
}

// GET /api/items/borrowable
func (ic *ItemController) ListBorrowable(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	rows, err := ic.Lending.Borrowable(c.Request.Context(), a)
	if err != nil {
		ic.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": rows})
}
