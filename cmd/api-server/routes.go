package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"propertyhub/internal/articles"
	"propertyhub/internal/auth"
	"propertyhub/internal/contact"
	"propertyhub/internal/faqs"
	"propertyhub/internal/property"
	"propertyhub/internal/reference"
	synchub "propertyhub/internal/sync"
	"propertyhub/internal/titles"
	"propertyhub/pkg/utils"
)

type deps struct {
	DB       *sql.DB
	DBPath   string
	Config   utils.Config
	Hub      *synchub.Hub
	Notifier contact.Notifier
	Names    titles.NameLookup // optional; resolves legacy text in titles
}

func tokenService(cfg utils.AuthConfig) auth.TokenService {
	return auth.TokenService{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Duration: cfg.JWTDuration,
	}
}

func newRouter(d deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	tokens := tokenService(d.Config.Auth)
	authRepo := auth.NewRepo(d.DB)
	authed := auth.AuthMiddleware(tokens, authRepo)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": d.DBPath})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := d.Hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := d.DB.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	router.GET("/debug", authed, auth.RequireRole(auth.RoleAdmin), func(c *gin.Context) {
		stats := d.Hub.Stats()
		c.JSON(http.StatusOK, gin.H{
			"db":          d.DBPath,
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
			"events_sent": stats.Sent,
			"by_type":     stats.ByType,
		})
	})

	router.GET("/ws", authed, synchub.NewWSHandler(d.Hub, d.Config.Server.AllowedOrigins))

	staff := router.Group("/staff", authed, auth.RequireRole(auth.RoleAdmin, auth.RoleAgent))
	admin := router.Group("/admin", authed, auth.RequireRole(auth.RoleAdmin))

	// Reference data (public)
	refRepo := reference.NewRepo(d.DB)
	reference.NewHandler(refRepo).RegisterRoutes(router.Group("/reference"))

	// Listings
	gen := titles.NewGenerator(refRepo.Types(), refRepo.Statuses(), refRepo.Locations())
	if d.Names != nil {
		gen.Names = d.Names
	}
	propSvc := property.NewService(property.NewRepo(d.DB), gen, refRepo.Locations())
	propHandler := property.NewHandler(propSvc, d.Hub)
	propHandler.RegisterRoutes(&router.RouterGroup)
	propHandler.RegisterStaffRoutes(staff)

	// Auth and users
	limiter := auth.NewIPRateLimiter(d.Config.Auth.LoginRPS, 5)
	authHandler := auth.NewHandler(authRepo, tokens, d.Config.Auth.RefreshTTL, limiter)
	authHandler.RegisterRoutes(router.Group("/auth"))
	authHandler.RegisterUserRoutes(router.Group("/users", authed))
	authHandler.RegisterAdminRoutes(admin)

	// Content
	articleHandler := articles.NewHandler(articles.NewRepo(d.DB))
	articleHandler.RegisterPublicRoutes(&router.RouterGroup)
	articleHandler.RegisterAdminRoutes(admin)

	faqHandler := faqs.NewHandler(faqs.NewRepo(d.DB))
	faqHandler.RegisterPublicRoutes(&router.RouterGroup)
	faqHandler.RegisterAdminRoutes(admin)

	contactLimiter := auth.NewIPRateLimiter(d.Config.Auth.LoginRPS, 3)
	contactHandler := contact.NewHandler(contact.NewRepo(d.DB), d.Hub, d.Notifier, contactLimiter)
	contactHandler.RegisterPublicRoutes(&router.RouterGroup)
	contactHandler.RegisterStaffRoutes(staff)

	return router
}
