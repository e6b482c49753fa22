package models

import (
	"strings"
	"time"
)

// MetricRecord is one synced sheet row: a single adser's counters for one
// calendar day inside a team.
type MetricRecord struct {
	ID    int64     `json:"id,omitempty"`
	Team  string    `json:"team"`
	Adser *string   `json:"adser"`
	Date  time.Time `json:"date"`

	Message       float64 `json:"message"`
	PlanMessage   float64 `json:"planMessage"`
	Spend         float64 `json:"spend"`
	PlanSpend     float64 `json:"planSpend"`
	NetMessages   float64 `json:"netMessages"`
	LostMessages  float64 `json:"lostMessages"`
	Deposit       float64 `json:"deposit"`
	Turnover      float64 `json:"turnover"`
	TurnoverAdser float64 `json:"turnoverAdser"`
	Silent        float64 `json:"silent"`
	Duplicate     float64 `json:"duplicate"`
	HasUser       float64 `json:"hasUser"`
	Spam          float64 `json:"spam"`
	Blocked       float64 `json:"blocked"`
	Under18       float64 `json:"under18"`
	Over50        float64 `json:"over50"`
	Foreign       float64 `json:"foreign"`
}

// AdserName returns the trimmed adser name, or "" when the sheet row had none.
func (r *MetricRecord) AdserName() string {
	if r.Adser == nil {
		return ""
	}
	return strings.TrimSpace(*r.Adser)
}

// StringPtr is a helper for building records with an adser.
func StringPtr(s string) *string {
	return &s
}
