// FilePath: internal/models/models.sensor_data.go
package models

import (
	"database/sql/driver"
	"time"

	"github.com/segmentio/encoding/json"
)

// Value implements the driver.Valuer interface
func (r Representation) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements the sql.Scanner interface
func (r *Representation) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, r)
}

// Reading is one observed attribute value as persisted by the gateway
type Reading struct {
	ID         string    `json:"id" db:"id"`
	Slot       string    `json:"slot" db:"slot"`
	URI        string    `json:"uri" db:"uri"`
	Attribute  string    `json:"attribute" db:"attribute"`
	Value      string    `json:"value" db:"value"`
	ObservedAt time.Time `json:"observed_at" db:"observed_at"`
}

// Command is an actuator update issued by the rule engine
type Command struct {
	RequestID string         `json:"request_id" db:"request_id"`
	Slot      string         `json:"slot" db:"slot"`
	URI       string         `json:"uri" db:"uri"`
	Rule      string         `json:"rule" db:"rule"`
	Delta     Representation `json:"delta" db:"delta"`
	IssuedAt  time.Time      `json:"issued_at" db:"issued_at"`
}

// ObservationUpdate is the message body published for every observation
type ObservationUpdate struct {
	StationID       string         `json:"station_id"`
	ObservationType string         `json:"observation_type"`
	URI             string         `json:"uri"`
	State           Representation `json:"state"`
	MeasuredAt      time.Time      `json:"measured_at"`
}
