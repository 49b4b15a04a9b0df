// README: HTTP router registration.
package http

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"kurs/internal/http/handlers"
	"kurs/internal/http/middleware"
	"kurs/internal/infra"
	"kurs/internal/modules/role"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// PickupAPI is the pickup service as seen by both requester and collector routes.
type PickupAPI interface {
	handlers.PickupService
	handlers.JobService
}

type RouterDeps struct {
	Verifier      infra.TokenVerifier
	Sessions      middleware.SessionResolver
	Roles         handlers.RoleSwitcher
	Tokens        handlers.TokenRegistry
	Pickups       PickupAPI
	Collectors    handlers.CollectorService
	Payments      handlers.PaymentService
	Deposits      handlers.DepositService
	Facilities    handlers.FacilityService
	Events        handlers.EventSubscriber
	CallbackToken string
	CORSOrigins   []string
	Health        map[string]HealthCheck
	Log           zerolog.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(deps.Log),
		middleware.Logging(deps.Log),
		cors.New(corsConfig(deps.CORSOrigins)),
	)

	r.GET("/health", healthHandler(deps.Health))

	paymentHandler := handlers.NewPaymentHandler(deps.Payments, deps.CallbackToken, deps.Log)
	r.POST("/webhooks/xendit", paymentHandler.Webhook)

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.Verifier), middleware.Session(deps.Sessions))

	meHandler := handlers.NewMeHandler(deps.Roles, deps.Tokens)
	api.GET("/me/roles", meHandler.Roles)
	api.PUT("/me/role", meHandler.SwitchRole)
	api.PUT("/me/push-token", meHandler.RegisterPushToken)

	pickupHandler := handlers.NewPickupHandler(deps.Pickups, deps.Events)
	api.POST("/pickups", middleware.RequireActing(role.Requester), pickupHandler.Create)
	api.GET("/pickups", pickupHandler.List)
	api.GET("/pickups/:id", pickupHandler.Get)
	api.POST("/pickups/:id/cancel", pickupHandler.Cancel)
	api.GET("/pickups/:id/events", pickupHandler.Events)

	api.POST("/pickups/:id/payments", middleware.RequireActing(role.Requester), paymentHandler.Create)
	api.GET("/pickups/:id/payments/latest", paymentHandler.Latest)
	api.POST("/pickups/:id/payments/simulate", middleware.RequireActing(role.Requester), paymentHandler.Simulate)

	collectorHandler := handlers.NewCollectorHandler(deps.Pickups, deps.Collectors)
	col := api.Group("/collector", middleware.RequireActing(role.Collector))
	col.GET("/jobs", collectorHandler.ListJobs)
	col.GET("/jobs/active", collectorHandler.ListActive)
	col.GET("/jobs/history", collectorHandler.History)
	col.POST("/jobs/:id/accept", collectorHandler.Accept)
	col.POST("/jobs/:id/advance", collectorHandler.Advance)
	col.GET("/earnings", collectorHandler.Earnings)
	col.PUT("/availability", collectorHandler.SetAvailability)
	col.PUT("/location", collectorHandler.UpdateLocation)

	facilityHandler := handlers.NewFacilityHandler(deps.Facilities)
	api.GET("/facilities", facilityHandler.List)
	api.GET("/facilities/:id", facilityHandler.Get)

	depositHandler := handlers.NewDepositHandler(deps.Deposits)
	api.POST("/deposits", depositHandler.Record)
	api.GET("/deposits", depositHandler.ListMine)
	api.GET("/staff/deposits", depositHandler.ListVerified)
	api.GET("/staff/deposits/export", depositHandler.ExportVerified)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		failed := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "failed": failed})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
