package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"message-scheduler/internal/model"
	"message-scheduler/internal/repository"
)

// GetLogs returns delivery logs with pagination
func (h *Handlers) GetLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	logs, total, err := h.logs.ListLogs(page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch logs",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	if logs == nil {
		logs = []model.DeliveryLog{}
	}

	c.JSON(http.StatusOK, gin.H{
		"logs": logs,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetLog returns a specific delivery log entry
func (h *Handlers) GetLog(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid log ID",
			Code:    http.StatusBadRequest,
		})
		return
	}

	log, err := h.logs.GetLog(uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Log not found",
				Code:    http.StatusNotFound,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch log",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, log)
}

// GetMessageLogs returns every delivery attempt for one message
func (h *Handlers) GetMessageLogs(c *gin.Context) {
	logs, err := h.logs.LogsForMessage(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch logs",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	if logs == nil {
		logs = []model.DeliveryLog{}
	}
	c.JSON(http.StatusOK, logs)
}
