package models

import "time"

// ExchangeRate is a THB per USD conversion rate captured at Timestamp.
type ExchangeRate struct {
	ID        int64     `json:"id,omitempty"`
	Rate      float64   `json:"rate"`
	Timestamp time.Time `json:"timestamp"`
}
