package model

import "time"

type Session struct {
	ID         int64     `json:"id"`
	EmployeeID int64     `json:"employee_id"`
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
	IsActive   bool      `json:"is_active"`
	DeviceInfo string    `json:"device_info"`
	CreatedAt  time.Time `json:"created_at"`
}

// SessionStats is an operational snapshot of the session registry.
// Active, expired and inactive partition the total.
type SessionStats struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Expired  int64 `json:"expired"`
	Inactive int64 `json:"inactive"`
}
