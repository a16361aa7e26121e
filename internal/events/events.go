package events

import "time"

const PlanetAdded = "planet.added"

type Event struct {
	Type string    `json:"type"` // "planet.added"
	Name string    `json:"name,omitempty"`
	ID   string    `json:"id,omitempty"`
	At   time.Time `json:"at"`
}
