package service

import (
	"time"

	"landcert/internal/certificate/models"
	dErrors "landcert/pkg/domainerrors"
)

// recordFields checks the mutable parts of a record and reports every failing
// field at once, so the caller can fix the submission in one pass.
func recordFields(owner models.OwnerIdentity, land models.LandDescriptor, issued time.Time, expiration *time.Time) map[string]string {
	fields := map[string]string{}

	if owner.FirstName.Primary == "" {
		fields["ownerIdentity.firstName"] = "required"
	}
	if owner.LastName.Primary == "" {
		fields["ownerIdentity.lastName"] = "required"
	}
	if owner.NationalID == "" {
		fields["ownerIdentity.nationalId"] = "required"
	}
	if land.Region.Primary == "" {
		fields["landDescriptor.region"] = "required"
	}
	if land.Size <= 0 {
		fields["landDescriptor.size"] = "must be positive"
	}
	switch land.SizeUnit {
	case models.UnitSquareMeters, models.UnitHectares:
	case "":
		fields["landDescriptor.sizeUnit"] = "required"
	default:
		fields["landDescriptor.sizeUnit"] = "unknown unit"
	}
	if land.UseCategory == "" {
		fields["landDescriptor.useCategory"] = "required"
	}
	if expiration != nil && !expiration.After(issued) {
		fields["issuance.expirationDate"] = "must be after the issue date"
	}

	return fields
}

func validateIssue(req IssueRequest) error {
	fields := recordFields(req.Owner, req.Land, req.IssuedDate, req.ExpirationDate)
	if req.ParcelID == "" {
		fields["parcelId"] = "required"
	}
	if len(fields) > 0 {
		return dErrors.NewValidation("invalid certificate record", fields)
	}
	return nil
}

func validateUpdate(req UpdateRequest) error {
	if fields := recordFields(req.Owner, req.Land, req.IssuedDate, req.ExpirationDate); len(fields) > 0 {
		return dErrors.NewValidation("invalid certificate record", fields)
	}
	return nil
}
