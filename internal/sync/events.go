package sync

import "time"

const (
	PropertyCreated = "property.created"
	PropertyUpdated = "property.updated"
	PropertyDeleted = "property.deleted"
	ContactReceived = "contact.new"
)

// Event is the envelope every broadcast line carries.
type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data,omitempty"`
}

// PropertyChange is the payload of the property.* events.
type PropertyChange struct {
	ID      int64  `json:"id"`
	Code    string `json:"property_code,omitempty"`
	TeamID  string `json:"team_id,omitempty"`
	TitleEN string `json:"title_en,omitempty"`
	ActorID string `json:"actor_id,omitempty"`
}
