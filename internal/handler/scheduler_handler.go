package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StartScheduler starts the dispatcher schedule
func (h *Handlers) StartScheduler(c *gin.Context) {
	if err := h.dispatcher.Start(); err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "scheduler_error",
			Message: err.Error(),
			Code:    http.StatusConflict,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Scheduler started successfully",
		"status":  "running",
	})
}

// StopScheduler stops the dispatcher schedule
func (h *Handlers) StopScheduler(c *gin.Context) {
	if err := h.dispatcher.Stop(); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "scheduler_error",
			Message: "Failed to stop scheduler",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Scheduler stopped successfully",
		"status":  "stopped",
	})
}

// RunOnce runs one dispatch tick and reports what it did
func (h *Handlers) RunOnce(c *gin.Context) {
	result := h.dispatcher.RunOnce()

	c.JSON(http.StatusOK, gin.H{
		"message": "Dispatch completed",
		"result":  result,
	})
}

// GetSchedulerStatus returns the current dispatcher status
func (h *Handlers) GetSchedulerStatus(c *gin.Context) {
	status := "stopped"
	if h.dispatcher.IsRunning() {
		status = "running"
	}

	c.JSON(http.StatusOK, SchedulerStatusResponse{
		Status:   status,
		Interval: h.dispatcher.Interval().String(),
		NextRun:  h.dispatcher.NextRun(),
		LastRun:  h.dispatcher.LastRun(),
	})
}
