package monitor

import "time"

type Status struct {
	PostgreSQL    bool      `json:"postgresql"`
	Redis         bool      `json:"redis"`
	Overlay       bool      `json:"overlay"`
	OverlayKeys   int       `json:"overlay_keys"`
	PendingAudits int       `json:"pending_audits"`
	LastCheck     time.Time `json:"last_check"`
}
