// Package router assembles the Gin engine from the registered modules.
package router

import (
	"net/http"
	"time"

	apphttp "servicecert_backend/internal/http"
	"servicecert_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// New builds the HTTP engine: shared middleware, health endpoints, then each
// module's routes via the RouterContext.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if app.Config.GetCORSAllowAll() {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = app.Config.GetCORSOrigins()
		corsCfg.AllowCredentials = app.Config.GetCORSAllowCreds()
	}
	engine.Use(cors.New(corsCfg))

	ipLimiter := httpkit.NewIPRateLimiter(rate.Limit(10), 30, app.Logger)
	engine.Use(ipLimiter.RateLimit())

	engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/api/ready", func(c *gin.Context) {
		if err := app.Health.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	v1 := engine.Group("/api/v1")

	adminLimiter := httpkit.NewAdminRateLimiter(app.Logger)
	admin := v1.Group("/admin")
	admin.Use(adminLimiter.RateLimit())
	admin.Use(httpkit.AuthRequired(app.Config))
	admin.Use(httpkit.RequireRole("admin"))

	ctx := &apphttp.RouterContext{
		Engine:           engine,
		V1:               v1,
		Admin:            admin,
		Config:           app.Config,
		AdminRateLimiter: adminLimiter,
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(ctx)
		app.Logger.Info("registered module routes", "module", module.Name())
	}

	return engine
}
