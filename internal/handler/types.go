package handler

import "time"

// StatusResponse is the static body of /health and unmatched routes
type StatusResponse struct {
	Message string `json:"message"`
}

// HealthResponse represents the detailed health check response
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	DeliveryLog string            `json:"delivery_log"`
	Dispatcher  string            `json:"dispatcher"`
	Metrics     map[string]string `json:"metrics,omitempty"`
}

// SchedulerStatusResponse describes the dispatcher schedule
type SchedulerStatusResponse struct {
	Status   string    `json:"status"`
	Interval string    `json:"interval"`
	NextRun  time.Time `json:"next_run"`
	LastRun  time.Time `json:"last_run"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
