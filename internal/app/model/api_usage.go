package model

import "time"

// UsageDateLayout is the calendar-day key of an ApiUsage row.
const UsageDateLayout = "2006-01-02"

// ApiUsage counts places-provider requests for one calendar day.
type ApiUsage struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Date         string    `gorm:"type:varchar(10);uniqueIndex;not null" json:"date"` // YYYY-MM-DD
	RequestCount int       `gorm:"not null;default:0" json:"request_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (ApiUsage) TableName() string {
	return "api_usage"
}

// UsageStats snapshot of today's quota
type UsageStats struct {
	Date         string  `json:"date"`
	RequestCount int     `json:"request_count"`
	DailyLimit   int     `json:"daily_limit"`
	Remaining    int     `json:"remaining"`
	PercentUsed  float64 `json:"percent_used"`
}
