package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lescriminels/guild/attachment"
	"github.com/lescriminels/guild/config"
	"github.com/lescriminels/guild/db"
	"github.com/lescriminels/guild/lending"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestMetricsRecordOperations(t *testing.T) {
	m := NewMetrics()
	m.ObserveOperation("approve", "ok")
	m.ObserveOperation("approve", "ok")
	m.ObserveOperation("approve", "conflict")
	m.ObserveCommit(3 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ops.WithLabelValues("approve", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ops.WithLabelValues("approve", "conflict")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.commits))
}

func TestBootstrapFirstAdmin(t *testing.T) {
	ctx := context.Background()
	store := db.NewStore(db.NewMemoryBackend(db.Snapshot{}), nil)
	a := &App{
		Config: config.Config{BootstrapUsername: "root", BootstrapPassword: "s3cret"},
		Log:    quietLogger(),
		Lending: lending.NewService(store,
			attachment.NewManager(attachment.NewMemoryStorage(), 0),
			lending.WithLogger(quietLogger()),
		),
	}

	BootstrapFirstAdmin(ctx, a)
	u, err := a.Lending.Authenticate(ctx, "root", "s3cret")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)

	// a second start leaves the existing accounts alone
	a.Config.BootstrapUsername = "other"
	BootstrapFirstAdmin(ctx, a)
	users, err := a.Lending.ListUsers(ctx, lending.Actor{UserID: u.ID, IsAdmin: true})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestGuardDoubleSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := gin.New()
	r.POST("/x", func(c *gin.Context) {
		WithActor(c, lending.Actor{UserID: c.GetHeader("X-User")})
		c.Next()
	}, GuardDoubleSubmit(rdb, time.Second), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	send := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, send("u1"))
	assert.Equal(t, http.StatusTooManyRequests, send("u1"))
	assert.Equal(t, http.StatusNoContent, send("u2"), "keys are per actor")

	mr.FastForward(2 * time.Second)
	assert.Equal(t, http.StatusNoContent, send("u1"))
}

func TestGuardDoubleSubmitWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/x", GuardDoubleSubmit(nil, time.Second), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for range 2 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}
