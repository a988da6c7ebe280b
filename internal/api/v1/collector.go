package v1

import "time"

// Collector identifies one browser session. A collector is created when a
// page first loads stats.js and every event it fires carries the collector
// id back.
type Collector struct {
	ID        string    `json:"id"`
	Origin    string    `json:"origin"`
	Country   string    `json:"country"`
	City      string    `json:"city"`
	OS        string    `json:"os,omitempty"`
	Browser   string    `json:"browser,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
