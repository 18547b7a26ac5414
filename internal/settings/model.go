package settings

import "time"

type ValueType string

const (
	TypeString  ValueType = "string"
	TypeNumber  ValueType = "number"
	TypeBoolean ValueType = "boolean"
	TypeJSON    ValueType = "json"
)

// Setting is one row of the typed key/value store. Value is always
// string-encoded; Type says how to decode it.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Type      ValueType `json:"type"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Well-known keys consumed by the order pipeline.
const (
	KeySchedule    = "schedule"
	KeyOrdersOn    = "orders_enabled"
	KeyPrepMinutes = "prep_time_minutes"
)
