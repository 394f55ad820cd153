package models

// EventType tags a session event.
type EventType string

const (
	EventMessage EventType = "message"
	EventUpdate  EventType = "update"
	EventPOIMap  EventType = "poi_map"
)

// Event is what the session publishes onto its channel.
type Event struct {
	SessionID string    `json:"session_id"`
	Type      EventType `json:"type"`
	Content   string    `json:"content"`
	IsFinal   bool      `json:"is_final"`
	Title     string    `json:"title,omitempty"`
	POIData   []POI     `json:"poi_data,omitempty"`
}
