// Package models holds the canonical certificate entities shared by the
// stores, services, and transport layer.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the stored lifecycle state of a certificate.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	// StatusExpired is never stored; it is a read-time classification of an
	// active record whose expiration date has passed.
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"
)

// transitions is the allowed stored-status state machine. Expiry is absent on
// purpose: it is computed, not stored.
var transitions = map[Status][]Status{
	StatusDraft:   {StatusPending},
	StatusPending: {StatusActive, StatusRevoked},
	StatusActive:  {StatusRevoked},
	StatusRevoked: {},
}

// CanTransition reports whether the stored status may move from one state to
// another. Revoked is terminal.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Bilingual pairs the primary-language value of a field with its local
// translation. Absence of a translation is an empty Local, not a missing key.
type Bilingual struct {
	Primary string `json:"primary"`
	Local   string `json:"local,omitempty"`
}

// OwnerIdentity identifies the certificate holder.
type OwnerIdentity struct {
	FirstName  Bilingual `json:"firstName"`
	LastName   Bilingual `json:"lastName"`
	NationalID string    `json:"nationalId"`
	Phone      string    `json:"phone,omitempty"`
	Address    Bilingual `json:"address"`
}

// DisplayName is the primary-language full name used on the artifact and in
// the optical-code payload.
func (o OwnerIdentity) DisplayName() string {
	if o.FirstName.Primary == "" {
		return o.LastName.Primary
	}
	if o.LastName.Primary == "" {
		return o.FirstName.Primary
	}
	return o.FirstName.Primary + " " + o.LastName.Primary
}

// SizeUnit is the unit of the stored land size.
type SizeUnit string

const (
	UnitSquareMeters SizeUnit = "square_meters"
	UnitHectares     SizeUnit = "hectares"
)

// LandDescriptor locates and describes the parcel the certificate covers.
type LandDescriptor struct {
	Region      Bilingual `json:"region"`
	Zone        Bilingual `json:"zone,omitempty"`
	Woreda      Bilingual `json:"woreda,omitempty"`
	Kebele      Bilingual `json:"kebele,omitempty"`
	Block       Bilingual `json:"block,omitempty"`
	Size        float64   `json:"size"`
	SizeUnit    SizeUnit  `json:"sizeUnit"`
	UseCategory string    `json:"useCategory"`
	Description Bilingual `json:"description,omitempty"`
}

// LegalText is the defaulted rights statement and terms printed on the
// artifact. It is not user-authored.
type LegalText struct {
	RightsStatement    Bilingual `json:"rightsStatement"`
	TermsAndConditions Bilingual `json:"termsAndConditions"`
}

// DefaultLegalText returns the standard bilingual legal text embedded in
// every certificate.
func DefaultLegalText() LegalText {
	return LegalText{
		RightsStatement: Bilingual{
			Primary: "This certificate confirms the holder's registered right to use and hold the parcel of land described herein, subject to the land administration laws of the issuing jurisdiction.",
			Local:   "ይህ የምስክር ወረቀት ባለቤቱ በዚህ ሰነድ የተገለጸውን መሬት የመጠቀምና የመያዝ የተመዘገበ መብት እንዳለው ያረጋግጣል።",
		},
		TermsAndConditions: Bilingual{
			Primary: "The holding right is not transferable by sale. Transfer by inheritance or donation must be registered with the issuing authority. The holder shall use the land in accordance with its registered use category.",
			Local:   "የይዞታ መብቱ በሽያጭ አይተላለፍም። በውርስ ወይም በስጦታ የሚደረግ ዝውውር በሚመለከተው ባለስልጣን መመዝገብ አለበት።",
		},
	}
}

// AssetSlot names the six embeddable image positions on a certificate.
type AssetSlot string

const (
	SlotOwnerPhoto       AssetSlot = "ownerPhoto"
	SlotLandPhoto        AssetSlot = "landPhoto"
	SlotBoundaryPhoto    AssetSlot = "boundaryPhoto"
	SlotLandPlan         AssetSlot = "landPlanImage"
	SlotOwnerSignature   AssetSlot = "ownerSignature"
	SlotOfficerSignature AssetSlot = "officerSignature"
)

// AllSlots lists every asset slot in artifact order.
func AllSlots() []AssetSlot {
	return []AssetSlot{
		SlotOwnerPhoto,
		SlotLandPhoto,
		SlotBoundaryPhoto,
		SlotLandPlan,
		SlotOwnerSignature,
		SlotOfficerSignature,
	}
}

// AssetOutcome records how a slot was resolved.
type AssetOutcome string

const (
	OutcomeResolved AssetOutcome = "resolved"
	OutcomeFallback AssetOutcome = "fallback"
)

// ResolvedAsset is the canonical embeddable representation of one slot:
// normalized PNG bytes plus the resolution outcome for diagnostics.
type ResolvedAsset struct {
	Slot    AssetSlot    `json:"slot"`
	Data    []byte       `json:"-"`
	Outcome AssetOutcome `json:"outcome"`
	// Reason is set when the original source was unusable and the slot
	// degraded to its default.
	Reason string `json:"reason,omitempty"`
}

// AssetMap holds the resolution result for all six slots.
type AssetMap map[AssetSlot]ResolvedAsset

// Issuance captures the dates and authority of an issued certificate.
type Issuance struct {
	IssuedDate       time.Time  `json:"issuedDate"`
	ExpirationDate   *time.Time `json:"expirationDate,omitempty"`
	IssuingAuthority Bilingual  `json:"issuingAuthority"`
}

// Record is the canonical persisted certificate.
type Record struct {
	ID                 uuid.UUID      `json:"id"`
	CertificateNumber  string         `json:"certificateNumber"`
	RegistrationNumber string         `json:"registrationNumber"`
	ParcelID           string         `json:"parcelId"`
	Owner              OwnerIdentity  `json:"ownerIdentity"`
	Land               LandDescriptor `json:"landDescriptor"`
	Legal              LegalText      `json:"legalText"`
	Issuance           Issuance       `json:"issuance"`
	Status             Status         `json:"status"`
	// IssuedBy links the record to the authoring officer account. It is kept
	// for audit and never appears in the public verification view.
	IssuedBy  string    `json:"issuedBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EffectiveStatus classifies the record as seen at the given instant. A
// stored active status past its expiration date reads as expired; the stored
// field itself is never mutated by the passage of time.
func (r Record) EffectiveStatus(now time.Time) Status {
	if r.Status == StatusActive && r.Issuance.ExpirationDate != nil && now.After(*r.Issuance.ExpirationDate) {
		return StatusExpired
	}
	return r.Status
}

// Live reports whether the record occupies its parcel: exactly one live
// certificate may exist per parcel at any time.
func (r Record) Live() bool {
	switch r.Status {
	case StatusDraft, StatusPending, StatusActive:
		return true
	}
	return false
}
