package routes

import (
	"net/http"
	"time"

	"github.com/lescriminels/guild/app"
	"github.com/lescriminels/guild/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	s := controllers.GetSrv(a)
	authCtl := controllers.NewAuthController(s)
	itemCtl := controllers.NewItemController(s)
	borrowCtl := controllers.NewBorrowController(s)
	adminCtl := controllers.NewAdminController(s)
	uploadCtl := controllers.NewUploadController(s)

	authMW := app.AuthRequired(a.Sessions, a.Lending)
	adminMW := app.AdminOnly()
	submitMW := app.GuardDoubleSubmit(a.RDB, 2*time.Second)

	r.GET("/healthz", func(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"ok": true}) })
	if a.Metrics != nil {
		r.GET("/metrics", gin.WrapH(a.Metrics.Handler()))
	}

	// ------------------------------
	// Accounts
	// ------------------------------
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authCtl.Register)
		auth.POST("/login", authCtl.Login)
	}
	authed := auth.Group("", authMW)
	{
		authed.POST("/logout", authCtl.Logout)
		authed.GET("/whoami", authCtl.WhoAmI)
	}

	// ------------------------------
	// Items
	// ------------------------------
	items := r.Group("/api/items", authMW)
	{
		items.GET("/mine", itemCtl.ListMine)
		items.GET("/borrowable", itemCtl.ListBorrowable)
		items.POST("", itemCtl.CreateItem)
		items.POST("/:id/borrow", submitMW, borrowCtl.Request)
	}

	// ------------------------------
	// Borrow lifecycle
	// ------------------------------
	borrows := r.Group("/api/borrows", authMW)
	{
		borrows.GET("/mine", borrowCtl.ListMine)
		borrows.GET("/incoming", borrowCtl.ListIncoming)
		borrows.GET("/pending-count", borrowCtl.PendingCount)
		borrows.POST("/:id/approve", borrowCtl.Approve)
		borrows.POST("/:id/returning", submitMW, borrowCtl.MarkReturning)
		borrows.POST("/:id/cancel", borrowCtl.Cancel)
	}

	r.GET("/uploads/:name", authMW, uploadCtl.Serve)

	// ------------------------------
	// Administration
	// ------------------------------
	admin := r.Group("/api/admin", authMW, adminMW)
	{
		admin.GET("/users", adminCtl.ListUsers)
		admin.PATCH("/users/:id", adminCtl.UpdateUser)
		admin.DELETE("/users/:id", adminCtl.DeleteUser)
		admin.GET("/items", adminCtl.ListItems)
		admin.PATCH("/items/:id", adminCtl.UpdateItem)
		admin.DELETE("/items/:id", adminCtl.DeleteItem)
	}
}
