package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"message-scheduler/internal/dispatcher"
	"message-scheduler/internal/model"
	"message-scheduler/internal/repository"
)

// MessageStore is the message collection the API mutates
type MessageStore interface {
	List() []model.Message
	Get(id string) (model.Message, bool)
	Create(draft model.Message) (model.Message, error)
	Update(id string, draft model.Message) (model.Message, bool)
	Delete(id string) (model.Message, bool)
	Len() int
	Pending() int
}

// Handlers contains all HTTP handlers
type Handlers struct {
	store      MessageStore
	dispatcher *dispatcher.Dispatcher
	logs       *repository.Repository
}

// NewHandlers creates new HTTP handlers. logs may be nil when the delivery
// log is disabled.
func NewHandlers(store MessageStore, d *dispatcher.Dispatcher, logs *repository.Repository) *Handlers {
	return &Handlers{
		store:      store,
		dispatcher: d,
		logs:       logs,
	}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/healthz", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.NoRoute(h.NotFound)

	api := router.Group("/api")
	{
		api.GET("/messages", h.GetMessages)
		api.GET("/message/:id", h.GetMessage)
		api.POST("/message", h.CreateMessage)
		api.PUT("/message/:id", h.UpdateMessage)
		api.DELETE("/message/:id", h.DeleteMessage)

		if h.logs != nil {
			api.GET("/message/:id/logs", h.GetMessageLogs)
			api.GET("/logs", h.GetLogs)
			api.GET("/logs/:id", h.GetLog)
		}

		api.POST("/scheduler/start", h.StartScheduler)
		api.POST("/scheduler/stop", h.StopScheduler)
		api.POST("/scheduler/run-once", h.RunOnce)
		api.GET("/scheduler/status", h.GetSchedulerStatus)
	}
}

// Health is the static liveness check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{Message: "Everything is working fine"})
}

// NotFound answers every unmatched route
func (h *Handlers) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, StatusResponse{Message: "Resource not found"})
}

// HealthCheck reports dependency and dispatcher state
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:      "ok",
		Timestamp:   time.Now(),
		DeliveryLog: "disabled",
		Metrics:     make(map[string]string),
	}

	if h.logs != nil {
		response.DeliveryLog = "ok"
		if err := h.logs.Ping(); err != nil {
			response.Status = "error"
			response.DeliveryLog = "error"
			logrus.Errorf("Delivery log health check failed: %v", err)
		}
	}

	if h.dispatcher.IsRunning() {
		response.Dispatcher = "running"
		response.Metrics["next_run"] = h.dispatcher.NextRun().Format(time.RFC3339)
	} else {
		response.Dispatcher = "stopped"
	}
	if last := h.dispatcher.LastRun(); !last.IsZero() {
		response.Metrics["last_run"] = last.Format(time.RFC3339)
	}

	response.Metrics["stored_messages"] = strconv.Itoa(h.store.Len())
	response.Metrics["pending_messages"] = strconv.Itoa(h.store.Pending())

	statusCode := http.StatusOK
	if response.Status == "error" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}
