package controllers

import (
	"net/http"

	"github.com/lescriminels/guild/app"
	"github.com/lescriminels/guild/lending"

	"github.com/gin-gonic/gin"
)

type AdminController struct{ *Srv }

func NewAdminController(s *Srv) *AdminController { return &AdminController{Srv: s} }

// GET /api/admin/users
func (ac *AdminController) ListUsers(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	users, err := ac.Lending.ListUsers(c.Request.Context(), a)
	if err != nil {
		ac.fail(c, err)
		return
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, userView{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin})
	}
	c.JSON(http.StatusOK, app.H{"users": out})
}

// PATCH /api/admin/users/:id
func (ac *AdminController) UpdateUser(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var in struct {
		Username *string `json:"username"`
		IsAdmin  *bool   `json:"is_admin"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	u, err := ac.Lending.UpdateUser(c.Request.Context(), a, c.Param("id"), lending.UserPatch{
		Username: in.Username,
		IsAdmin:  in.IsAdmin,
	})
	if err != nil {
		ac.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": userView{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin}})
}

// DELETE /api/admin/users/:id
func (ac *AdminController) DeleteUser(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := ac.Lending.DeleteUser(c.Request.Context(), a, id); err != nil {
		ac.fail(c, err)
		return
	}
	if err := ac.Sessions.RevokeUser(c.Request.Context(), id); err != nil {
		ac.Log.Warn("revoke sessions", "user_id", id, "err", err)
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /api/admin/items
func (ac *AdminController) ListItems(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	items, err := ac.Lending.ListItems(c.Request.Context(), a)
	if err != nil {
		ac.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": items})
}

// PATCH /api/admin/items/:id
func (ac *AdminController) UpdateItem(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var in struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	it, err := ac.Lending.UpdateItem(c.Request.Context(), a, c.Param("id"), lending.ItemPatch{
		Name:        in.Name,
		Description: in.Description,
	})
	if err != nil {
		ac.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

// DELETE /api/admin/items/:id
func (ac *AdminController) DeleteItem(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if err := ac.Lending.DeleteItem(c.Request.Context(), a, c.Param("id")); err != nil {
		ac.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
