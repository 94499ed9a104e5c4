package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"landcert/internal/certificate/models"
)

func TestFormatLandSize(t *testing.T) {
	tests := []struct {
		name    string
		size    float64
		unit    models.SizeUnit
		primary string
		local   string
	}{
		{"small parcel in square meters", 500, models.UnitSquareMeters, "500 square meters", "500 ካሬ ሜትር"},
		{"fractional square meters", 250.5, models.UnitSquareMeters, "250.5 square meters", "250.5 ካሬ ሜትር"},
		{"threshold converts to hectares", 10000, models.UnitSquareMeters, "1 hectares", "1 ሄክታር"},
		{"large parcel converts to hectares", 25000, models.UnitSquareMeters, "2.5 hectares", "2.5 ሄክታር"},
		{"just under threshold stays in square meters", 9999, models.UnitSquareMeters, "9999 square meters", "9999 ካሬ ሜትር"},
		{"hectares pass through", 3, models.UnitHectares, "3 hectares", "3 ሄክታር"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatLandSize(tt.size, tt.unit)
			assert.Equal(t, tt.primary, got.Primary)
			assert.Equal(t, tt.local, got.Local)
		})
	}
}
