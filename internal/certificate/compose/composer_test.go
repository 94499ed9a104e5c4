package compose

import (
	"bytes"
	"context"
	"image/png"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"landcert/internal/certificate/assets"
	"landcert/internal/certificate/models"
	"landcert/internal/certificate/qr"
)

func composeFixtures(t *testing.T) (models.Record, models.AssetMap, []byte, []byte) {
	t.Helper()

	expiration := time.Date(2046, 4, 2, 0, 0, 0, 0, time.UTC)
	record := models.Record{
		ID:                 uuid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"),
		CertificateNumber:  "LRMS-2026-654321",
		RegistrationNumber: "REG-2026-112233",
		ParcelID:           "parcel-13-07-0042",
		Owner: models.OwnerIdentity{
			FirstName:  models.Bilingual{Primary: "Abebe", Local: "አበበ"},
			LastName:   models.Bilingual{Primary: "Kebede", Local: "ከበደ"},
			NationalID: "ETH-1234567890",
			Address:    models.Bilingual{Primary: "Addis Ababa", Local: "አዲስ አበባ"},
		},
		Land: models.LandDescriptor{
			Region:      models.Bilingual{Primary: "Oromia", Local: "ኦሮሚያ"},
			Zone:        models.Bilingual{Primary: "East Shewa"},
			Woreda:      models.Bilingual{Primary: "Adama"},
			Kebele:      models.Bilingual{Primary: "04"},
			Size:        25000,
			SizeUnit:    models.UnitSquareMeters,
			UseCategory: "agricultural",
		},
		Legal: models.DefaultLegalText(),
		Issuance: models.Issuance{
			IssuedDate:       time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
			ExpirationDate:   &expiration,
			IssuingAuthority: models.Bilingual{Primary: "Land Registration and Management Authority"},
		},
		Status: models.StatusActive,
	}

	resolver := assets.NewResolver(time.Second, zap.NewNop())
	resolved := resolver.ResolveAll(context.Background(), nil)

	code, err := qr.Encode(qr.NewPayload(record))
	require.NoError(t, err)

	return record, resolved, code, assets.DefaultFor(assets.KindEmblem)
}

func TestComposeProducesPDF(t *testing.T) {
	record, resolved, code, emblem := composeFixtures(t)
	c := New(Options{})

	artifact, err := c.Compose(record, resolved, code, emblem)
	require.NoError(t, err)

	require.NotEmpty(t, artifact.PDF)
	assert.True(t, bytes.HasPrefix(artifact.PDF, []byte("%PDF")), "output must be a PDF document")
}

func TestComposeIsByteIdentical(t *testing.T) {
	record, resolved, code, emblem := composeFixtures(t)
	c := New(Options{})

	first, err := c.Compose(record, resolved, code, emblem)
	require.NoError(t, err)

	// Straddle a wall-clock second so any unpinned document timestamp would
	// change between the two renders.
	next := time.Now().Truncate(time.Second).Add(time.Second + 50*time.Millisecond)
	time.Sleep(time.Until(next))

	second, err := c.Compose(record, resolved, code, emblem)
	require.NoError(t, err)

	assert.Equal(t, first.PDF, second.PDF, "same record and assets must produce identical bytes")
}

func TestComposeWithoutExpiration(t *testing.T) {
	record, resolved, code, emblem := composeFixtures(t)
	record.Issuance.ExpirationDate = nil
	c := New(Options{})

	artifact, err := c.Compose(record, resolved, code, emblem)
	require.NoError(t, err)
	assert.NotEmpty(t, artifact.PDF)
}

func TestComposePNG(t *testing.T) {
	record, resolved, code, emblem := composeFixtures(t)
	c := New(Options{})

	img, err := c.ComposePNG(record, resolved, code, emblem)
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(img))
	require.NoError(t, err)
	bounds := decoded.Bounds()
	assert.Greater(t, bounds.Dx(), bounds.Dy(), "raster export keeps the landscape orientation")
}
