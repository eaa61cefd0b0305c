// Package types contains the status views shared by the service, the admin API and the CLI.
package types

import "time"

// CameraStatus is a point-in-time view of one camera.
type CameraStatus struct {
	Key            string    `json:"key"`
	URL            string    `json:"url"`
	Agent          string    `json:"agent"`
	Vendor         string    `json:"type"`
	Mode           string    `json:"mode"`
	Position       int       `json:"position"`
	PresetActive   int       `json:"preset_active"`
	PresetInactive int       `json:"preset_inactive"`
	LastResend     time.Time `json:"last_resend,omitzero"`
}

// Event is the JSON view of a scheduled recording.
type Event struct {
	Title  string    `json:"title"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Active bool      `json:"active"`
}

// AgentStatus is a point-in-time view of one capture agent schedule.
type AgentStatus struct {
	ID          string    `json:"id"`
	Initialized bool      `json:"initialized"`
	LastUpdate  time.Time `json:"last_update,omitzero"`
	Events      int       `json:"events"`
	Current     *Event    `json:"current,omitempty"`
}

// ModeResponse answers the control endpoints.
type ModeResponse struct {
	Camera string `json:"camera"`
	Mode   string `json:"mode"`
}
