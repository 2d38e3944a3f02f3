package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/adapters/signal"
	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/core"
)

const (
	sessionName    = "MeetSessions"
	clientTokenKey = "ct"
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

// ClientTokenMiddleware keeps a per-browser token in the cookie session.
// It doubles as the correlation id when the page URL carries no uuid.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		token, _ := sess.Get(clientTokenKey).(string)
		if token == "" {
			token = genClientToken()
			sess.Set(clientTokenKey, token)
			if err := sess.Save(); err != nil {
				log.Error().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	reg *app.Registry,
	ctl *signal.SignalWSController,
	gatherer prometheus.Gatherer,
) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	// The component view lives in a third-party iframe, which needs
	// SameSite=None and therefore Secure.
	opts := sessions.Options{
		Path:     "/",
		MaxAge:   3600 * 24 * 7,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.Mode == "release" {
		opts.SameSite = http.SameSiteNoneMode
		opts.Secure = true
	}
	store.Options(opts)
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/component", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/component.html")
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	defaults := app.Defaults{
		LeaveURL: cfg.Session.DefaultLeaveURL,
		Role:     cfg.Session.DefaultRole,
	}

	api := r.Group("/api")

	// GET /api/session?<page query> - what the page URL resolves to
	api.GET("/session", func(c *gin.Context) {
		sc := app.ReadSessionConfig(c.Request.URL, defaults).WithCorrelationID(c.GetString("client_token"))
		c.JSON(http.StatusOK, gin.H{
			"config":   sc,
			"joinable": sc.Joinable(),
		})
	})

	if cfg.Admin.Password != "" {
		tabs := api.Group("/tabs", gin.BasicAuth(gin.Accounts{cfg.Admin.User: cfg.Admin.Password}))

		// GET /api/tabs - connected tabs and their lifecycle state
		tabs.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"tabs": reg.Snapshot()})
		})

		// DELETE /api/tabs/:sid - drop a tab's bridge connection
		tabs.DELETE("/:sid", func(c *gin.Context) {
			if !reg.Cancel(core.SessionID(c.Param("sid"))) {
				c.JSON(http.StatusNotFound, gin.H{"error": "tab not found"})
				return
			}
			c.Status(http.StatusNoContent)
		})
	} else {
		log.Warn().Str("module", "adapters.http").Msg("admin.password empty, tab API disabled")
	}

	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	return r
}
