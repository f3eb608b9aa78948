// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"serial-relay/internal/channel"
	"serial-relay/internal/config"
	"serial-relay/internal/discovery"
	"serial-relay/internal/handler"
	"serial-relay/internal/middleware"
	"serial-relay/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config    *config.Config
	logger    *zap.Logger
	relay     handler.RelayService
	rx        channel.Channel
	tx        channel.Channel
	scanners  *discovery.ScannerManager
	eventBus  *handler.EventBus
	wsHandler *handler.WebSocketHandler
}

// NewRouter creates a new router instance
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	relay handler.RelayService,
	rx, tx channel.Channel,
	scanners *discovery.ScannerManager,
	eventBus *handler.EventBus,
	wsHandler *handler.WebSocketHandler,
) *Router {
	return &Router{
		config:    config,
		logger:    logger,
		relay:     relay,
		rx:        rx,
		tx:        tx,
		scanners:  scanners,
		eventBus:  eventBus,
		wsHandler: wsHandler,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Security))

	r.logger.Debug("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.relay, r.config, r.logger)
	relayHandler := handler.NewRelayHandler(r.relay, r.rx, r.tx, &r.config.Relay, r.eventBus, r.logger)
	discoveryHandler := handler.NewDiscoveryHandler(r.scanners, &r.config.Relay, r.logger)

	r.addHealthRoutes(router, healthHandler)

	apiV1 := router.Group("/api/v1")
	r.addRelayRoutes(apiV1, relayHandler)
	r.addPortRoutes(apiV1, discoveryHandler)

	if r.wsHandler != nil {
		r.addWebSocketRoutes(router, r.wsHandler)
	}

	r.addDocumentationRoutes(router)

	r.logger.Debug("All routes configured successfully")
}

// addHealthRoutes sets up health check routes
func (r *Router) addHealthRoutes(router *gin.Engine, handler *handler.HealthHandler) {
	health := router.Group("")
	{
		health.GET("/health", handler.HealthCheck)
		health.GET("/ready", handler.ReadinessCheck)
		health.GET("/live", handler.LivenessCheck)
	}
}

// addRelayRoutes sets up relay observation routes
func (r *Router) addRelayRoutes(api *gin.RouterGroup, handler *handler.RelayHandler) {
	relay := api.Group("/relay")
	{
		relay.GET("/status", handler.GetStatus)
		relay.GET("/stats", handler.GetStats)
	}
}

// addPortRoutes sets up serial port discovery routes
func (r *Router) addPortRoutes(api *gin.RouterGroup, handler *handler.DiscoveryHandler) {
	ports := api.Group("/ports")
	{
		ports.GET("", handler.ListPorts)
		ports.GET("/scanners", handler.ListScanners)
	}
}

// addWebSocketRoutes sets up WebSocket routes
func (r *Router) addWebSocketRoutes(router *gin.Engine, handler *handler.WebSocketHandler) {
	ws := router.Group("/ws")
	{
		ws.GET("/events", handler.HandleEventConnection)
	}
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
