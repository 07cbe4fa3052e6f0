package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"message-scheduler/internal/model"
)

func messageNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{
		Error:   "not_found",
		Message: "Message not found",
		Code:    http.StatusNotFound,
	})
}

func invalidBody(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: "Invalid request body: " + err.Error(),
		Code:    http.StatusBadRequest,
	})
}

// GetMessages returns all messages
func (h *Handlers) GetMessages(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.List())
}

// GetMessage returns a single message by ID
func (h *Handlers) GetMessage(c *gin.Context) {
	msg, ok := h.store.Get(c.Param("id"))
	if !ok {
		messageNotFound(c)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// CreateMessage schedules a new message
func (h *Handlers) CreateMessage(c *gin.Context) {
	var draft model.Message
	if err := c.ShouldBindJSON(&draft); err != nil {
		invalidBody(c, err)
		return
	}

	msg, err := h.store.Create(draft)
	if err != nil {
		logrus.Errorf("Failed to create message: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "store_error",
			Message: "Failed to create message",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, msg)
}

// UpdateMessage replaces a message; the id in the path wins over the body
func (h *Handlers) UpdateMessage(c *gin.Context) {
	var draft model.Message
	if err := c.ShouldBindJSON(&draft); err != nil {
		invalidBody(c, err)
		return
	}

	msg, ok := h.store.Update(c.Param("id"), draft)
	if !ok {
		messageNotFound(c)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// DeleteMessage removes a message and returns it
func (h *Handlers) DeleteMessage(c *gin.Context) {
	msg, ok := h.store.Delete(c.Param("id"))
	if !ok {
		messageNotFound(c)
		return
	}
	c.JSON(http.StatusOK, msg)
}
