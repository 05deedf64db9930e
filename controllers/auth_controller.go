package controllers

import (
	"net/http"

	"github.com/lescriminels/guild/app"

	"github.com/gin-gonic/gin"
)

type AuthController struct{ *Srv }

func NewAuthController(s *Srv) *AuthController { return &AuthController{Srv: s} }

type credentials struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// POST /api/auth/register
func (ac *AuthController) Register(c *gin.Context) {
	var in credentials
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "username and password are required"})
		return
	}
	u, err := ac.Lending.Register(c.Request.Context(), in.Username, in.Password)
	if err != nil {
		ac.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"user": userView{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin}})
}

// POST /api/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var in credentials
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "username and password are required"})
		return
	}
	u, err := ac.Lending.Authenticate(c.Request.Context(), in.Username, in.Password)
	if err != nil {
		ac.fail(c, err)
		return
	}
	id, err := ac.Sessions.Create(c.Request.Context(), u.ID)
	if err != nil {
		ac.Log.Error("create session", "user_id", u.ID, "err", err)
		c.JSON(http.StatusServiceUnavailable, app.H{"error": "session store unavailable"})
		return
	}
	ac.setSessionCookie(c.Writer, id, ac.Sessions.TTL())
	c.JSON(http.StatusOK, app.H{"user": userView{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin}})
}

// POST /api/auth/logout
func (ac *AuthController) Logout(c *gin.Context) {
	if id := c.GetString("sessionID"); id != "" {
		_ = ac.Sessions.Delete(c.Request.Context(), id)
	}
	ac.clearSessionCookie(c.Writer)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /api/auth/whoami
func (ac *AuthController) WhoAmI(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	u, err := ac.Lending.User(c.Request.Context(), a.UserID)
	if err != nil {
		ac.fail(c, err)
		return
	}
	pending, err := ac.Lending.PendingCount(c.Request.Context(), a)
	if err != nil {
		ac.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"user":    userView{ID: u.ID, Username: u.Username, IsAdmin: a.IsAdmin},
		"pending": pending,
	})
}
