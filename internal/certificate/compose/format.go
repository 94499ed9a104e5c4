package compose

import (
	"strconv"

	"landcert/internal/certificate/models"
)

// hectareThreshold is the square-meter value at and above which land size is
// presented in hectares. Display conversion only; the stored numeric value is
// never mutated.
const hectareThreshold = 10_000

const squareMetersPerHectare = 10_000

// FormatLandSize renders the land size with a unit-aware bilingual label.
func FormatLandSize(size float64, unit models.SizeUnit) models.Bilingual {
	value := size
	displayUnit := unit
	if unit == models.UnitSquareMeters && size >= hectareThreshold {
		value = size / squareMetersPerHectare
		displayUnit = models.UnitHectares
	}

	n := strconv.FormatFloat(value, 'f', -1, 64)
	switch displayUnit {
	case models.UnitHectares:
		return models.Bilingual{Primary: n + " hectares", Local: n + " ሄክታር"}
	default:
		return models.Bilingual{Primary: n + " square meters", Local: n + " ካሬ ሜትር"}
	}
}
