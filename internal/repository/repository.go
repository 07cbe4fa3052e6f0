package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"message-scheduler/internal/model"
)

// ErrNotFound is returned when a delivery log entry does not exist
var ErrNotFound = errors.New("delivery log not found")

type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// LogDeliveryAttempt records the outcome of one delivery attempt
func (r *Repository) LogDeliveryAttempt(messageID, recipient, status, errorMsg string) error {
	log := model.DeliveryLog{
		MessageID: messageID,
		Recipient: recipient,
		Status:    status,
		ErrorMsg:  errorMsg,
		CreatedAt: r.now(),
	}
	if err := r.db.Create(&log).Error; err != nil {
		return fmt.Errorf("failed to log delivery attempt: %w", err)
	}
	return nil
}

// ListLogs returns one page of logs, newest first, and the total count
func (r *Repository) ListLogs(page, limit int) ([]model.DeliveryLog, int64, error) {
	var total int64
	if err := r.db.Model(&model.DeliveryLog{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count logs: %w", err)
	}

	var logs []model.DeliveryLog
	offset := (page - 1) * limit
	if err := r.db.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to get logs: %w", err)
	}
	return logs, total, nil
}

// LogsForMessage returns every attempt recorded for a message, oldest first
func (r *Repository) LogsForMessage(messageID string) ([]model.DeliveryLog, error) {
	var logs []model.DeliveryLog
	if err := r.db.Where("message_id = ?", messageID).Order("id ASC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to get logs for message: %w", err)
	}
	return logs, nil
}

func (r *Repository) GetLog(id uint) (*model.DeliveryLog, error) {
	var log model.DeliveryLog
	result := r.db.First(&log, id)
	if result.Error == nil {
		return &log, nil
	}
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return nil, fmt.Errorf("database error: %w", result.Error)
}

// Ping checks the database connection
func (r *Repository) Ping() error {
	return r.db.Exec("SELECT 1").Error
}
