package handlers

import (
	"mppt_sweep/internal/logger"
	"mppt_sweep/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires the HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	stream   *service.Broadcaster
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies. The
// broadcaster feeds websocket clients with live sweep output.
func NewHandler(services *service.Service, stream *service.Broadcaster, log *logger.Logger) *Handler {
	return &Handler{services: services, stream: stream, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// WebSocket live stream of sweep output — same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.operatorMiddleware)
	{
		h.registerSweepRoutes(api)
		h.registerRunRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerSweepRoutes(api *gin.RouterGroup) {
	sweep := api.Group("/sweep")
	{
		// Body example: {"config":{"start_voltage":0,"stop_voltage":5,...},"simulation":true}
		sweep.POST("/start", h.startSweep)
		sweep.POST("/abort", h.abortSweep)
		sweep.GET("/status", h.sweepStatus)
	}
}

func (h *Handler) registerRunRoutes(api *gin.RouterGroup) {
	runs := api.Group("/runs")
	{
		runs.GET("/", h.listRuns)
		runs.GET("/:id", h.getRun)
		runs.GET("/:id/csv", h.exportRunCSV)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
