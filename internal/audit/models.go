// Package audit captures structured events for the certificate lifecycle.
// Events are append-only and transport-agnostic so sinks can fan out.
package audit

import "time"

const (
	ActionIssued        = "certificate.issued"
	ActionStatusChanged = "certificate.status_changed"
	ActionUpdated       = "certificate.updated"
	ActionDeleted       = "certificate.deleted"
)

// Event is emitted from domain logic to capture key actions.
type Event struct {
	Timestamp         time.Time `json:"timestamp"`
	Action            string    `json:"action"`
	Actor             string    `json:"actor,omitempty"`
	CertificateNumber string    `json:"certificateNumber,omitempty"`
	ParcelID          string    `json:"parcelId,omitempty"`
	Detail            string    `json:"detail,omitempty"`
}
