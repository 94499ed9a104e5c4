package assets

import (
	"embed"
	"fmt"

	"landcert/internal/certificate/models"
)

//go:embed defaults/*.png
var defaultFS embed.FS

var defaultFiles = map[Kind]string{
	KindProfilePhoto: "defaults/profile_photo.png",
	KindSignature:    "defaults/signature.png",
	KindLandPlan:     "defaults/land_plan.png",
	KindEmblem:       "defaults/emblem.png",
}

// DefaultFor returns the embedded placeholder image for a kind. The embedded
// files are validated at startup, so lookups cannot fail at resolution time.
func DefaultFor(kind Kind) []byte {
	data, err := defaultFS.ReadFile(defaultFiles[kind])
	if err != nil {
		panic(fmt.Sprintf("assets: missing embedded default for kind %q: %v", kind, err))
	}
	return data
}

// KindForSlot maps each certificate asset slot to its validation/fallback
// policy.
func KindForSlot(slot models.AssetSlot) Kind {
	switch slot {
	case models.SlotOwnerSignature, models.SlotOfficerSignature:
		return KindSignature
	case models.SlotLandPlan:
		return KindLandPlan
	default:
		return KindProfilePhoto
	}
}
