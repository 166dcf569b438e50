// FilePath: internal/models/models.sensor.go
package models

import "time"

// KnownSensor is a sensor that registered with the gateway at some point. Unlike
// the in-memory registry it survives restarts and keeps its history.
type KnownSensor struct {
	Name      string    `json:"name" db:"name"`
	Address   string    `json:"address" db:"address"`
	Active    bool      `json:"active" db:"active"`
	FirstSeen time.Time `json:"first_seen" db:"first_seen"`
	LastSeen  time.Time `json:"last_seen" db:"last_seen"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
