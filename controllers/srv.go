package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lescriminels/guild/app"
	"github.com/lescriminels/guild/attachment"
	"github.com/lescriminels/guild/config"
	"github.com/lescriminels/guild/lending"
	"github.com/lescriminels/guild/session"

	"github.com/gin-gonic/gin"
)

type Srv struct {
	Lending  *lending.Service
	Sessions *session.Store
	Files    *attachment.Manager
	Log      *slog.Logger
	Cfg      config.Config
}

func GetSrv(a *app.App) *Srv {
	log := a.Log
	if log == nil {
		log = slog.Default()
	}
	return &Srv{
		Lending:  a.Lending,
		Sessions: a.Sessions,
		Files:    a.Files,
		Log:      log,
		Cfg:      a.Config,
	}
}

// --- helpers ---

func (s *Srv) setSessionCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     app.SessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   strings.HasPrefix(s.Cfg.WebOrigin, "https://"),
		MaxAge:   int(maxAge / time.Second),
	})
}

func (s *Srv) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     app.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   strings.HasPrefix(s.Cfg.WebOrigin, "https://"),
	})
}

// actor returns the authenticated caller; routes without AuthRequired get
// a 401.
func actor(c *gin.Context) (lending.Actor, bool) {
	a, ok := app.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
	}
	return a, ok
}

var statusByCode = map[lending.Code]int{
	lending.CodeNotFound:   http.StatusNotFound,
	lending.CodeConflict:   http.StatusConflict,
	lending.CodeValidation: http.StatusBadRequest,
	lending.CodeForbidden:  http.StatusForbidden,
}

// fail writes err as a JSON error. Storage failures are logged and hidden
// behind a generic message.
func (s *Srv) fail(c *gin.Context, err error) {
	code := lending.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		s.Log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, app.H{"error": "internal error", "code": lending.CodeStorage})
		return
	}
	msg := err.Error()
	var le *lending.Error
	if errors.As(err, &le) {
		msg = le.Message
	}
	c.JSON(status, app.H{"error": msg, "code": code})
}

type userView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}
