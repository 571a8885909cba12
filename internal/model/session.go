package model

import "time"

// Session is the durable identity record a SessionContext's Soul is loaded
// from. Sessions are long-lived (an agent's persona), unlike the
// per-submission TaskInput.
type Session struct {
	ID        int64     `json:"id"`
	Soul      string    `json:"soul"`
	CreatedAt time.Time `json:"created_at"`
}
