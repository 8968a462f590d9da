package models

import (
	"time"
)

// AgentLocation is the beacon message published for a field agent.
type AgentLocation struct {
	AgentID   string    `json:"agent_id"`
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}
