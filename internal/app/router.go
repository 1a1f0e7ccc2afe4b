package app

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"

	"carva/internal/auth"
	"carva/internal/handler"
	"carva/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	AccountHandler  *handler.AccountHandler
	RequestHandler  *handler.RequestHandler
	TripHandler     *handler.TripHandler
	DriverHandler   *handler.DriverHandler
	WorkshopHandler *handler.WorkshopHandler
	PaymentHandler  *handler.PaymentHandler
	SyncHandler     *handler.SyncHandler
	Tokens          *auth.TokenIssuer
	// ResponseCache backs Idempotency-Key replays. Nil disables them.
	ResponseCache middleware.ResponseCache
	AllowOrigins  []string
	NewRelicApp   *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(cors.New(corsConfig(deps.AllowOrigins)))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Public routes.
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/signup", deps.AccountHandler.Signup)
			authRoutes.POST("/login", deps.AccountHandler.Login)
		}
		v1.GET("/distance", handler.Distance)
		v1.GET("/workshops", deps.WorkshopHandler.List)

		secured := v1.Group("")
		secured.Use(middleware.Auth(deps.Tokens))
		secured.Use(middleware.TransactionAttributes())
		secured.Use(middleware.Idempotency(deps.ResponseCache))

		// Account routes.
		me := secured.Group("/me")
		{
			me.GET("", deps.AccountHandler.Me)
			me.GET("/payments", deps.AccountHandler.Payments)
			me.POST("/notifications/read", deps.AccountHandler.MarkAllNotificationsRead)
			me.POST("/notifications/:id/read", deps.AccountHandler.MarkNotificationRead)
			me.DELETE("/notifications/:id", deps.AccountHandler.DeleteNotification)
			me.POST("/garage", deps.AccountHandler.AddCar)
			me.PUT("/garage/:id", deps.AccountHandler.UpdateCar)
			me.DELETE("/garage/:id", deps.AccountHandler.DeleteCar)
		}

		// Request routes.
		requests := secured.Group("/requests")
		{
			requests.POST("", deps.RequestHandler.Submit)
			requests.GET("", deps.RequestHandler.List)
			requests.GET("/:id", deps.RequestHandler.Get)
			requests.PUT("/:id", deps.RequestHandler.Update)
			requests.GET("/:id/geojson", deps.RequestHandler.GeoJSON)
			requests.POST("/:id/cancel", deps.RequestHandler.Cancel)
			requests.POST("/:id/messages", deps.RequestHandler.SendMessage)

			requests.POST("/:id/accept", deps.TripHandler.Accept)
			requests.POST("/:id/reject", deps.TripHandler.Reject)
			requests.POST("/:id/confirm", deps.TripHandler.Confirm)

			requests.POST("/:id/negotiation/open", deps.RequestHandler.OpenNegotiation)
			requests.POST("/:id/negotiation/messages", deps.RequestHandler.SendNegotiationMessage)
			requests.PUT("/:id/bill", deps.RequestHandler.UpdateBill)
			requests.POST("/:id/bill/finalize", deps.RequestHandler.FinalizeBill)
			requests.POST("/:id/bill/agree", deps.RequestHandler.AgreeToBill)

			requests.POST("/:id/pay", deps.PaymentHandler.Pay)
			requests.GET("/:id/payment", deps.PaymentHandler.GetPayment)
		}

		// Driver routes.
		drivers := secured.Group("/drivers")
		{
			drivers.POST("/location", deps.DriverHandler.UpdateLocation)
			drivers.DELETE("/location", deps.DriverHandler.GoOffline)
			drivers.GET("/requests", deps.DriverHandler.PendingFeed)
		}

		// Workshop routes.
		secured.GET("/workshops/inbox", deps.WorkshopHandler.Inbox)
		secured.GET("/history/export", deps.WorkshopHandler.ExportHistory)

		// Live updates.
		secured.GET("/sync", deps.SyncHandler.Serve)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{"Content-Disposition", "Idempotent-Replay"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
