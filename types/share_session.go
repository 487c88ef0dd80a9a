package types

import "time"

// SessionState is the lifecycle state of the share session slot.
type SessionState string

const (
	SessionIdle     SessionState = "idle"
	SessionStarting SessionState = "starting"
	SessionActive   SessionState = "active"
	SessionClosing  SessionState = "closing"
)

// SessionStatus is a read-only snapshot of the share session slot, returned by /_/status.
type SessionStatus struct {
	State        SessionState `json:"state"`
	SessionId    string       `json:"sessionId,omitempty"`
	ArtifactName string       `json:"artifactName,omitempty"`
	ArtifactSize int64        `json:"artifactSize,omitempty"`
	PublicUrl    string       `json:"publicUrl,omitempty"`
	LocalUrl     string       `json:"localUrl,omitempty"`
	StartedAt    *time.Time   `json:"startedAt,omitempty"`
}
