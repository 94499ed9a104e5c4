//go:build integration

package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"landcert/internal/certificate/models"
	"landcert/internal/certificate/store"
	"landcert/pkg/platform/sentinel"
	"landcert/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "certificate_assets", "certificates")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) record(number, regNumber, parcel string, status models.Status) models.Record {
	expiration := time.Date(2046, 4, 2, 0, 0, 0, 0, time.UTC)
	return models.Record{
		ID:                 uuid.New(),
		CertificateNumber:  number,
		RegistrationNumber: regNumber,
		ParcelID:           parcel,
		Owner: models.OwnerIdentity{
			FirstName:  models.Bilingual{Primary: "Abebe", Local: "አበበ"},
			LastName:   models.Bilingual{Primary: "Kebede", Local: "ከበደ"},
			NationalID: "ETH-1234567890",
		},
		Land: models.LandDescriptor{
			Region:      models.Bilingual{Primary: "Oromia", Local: "ኦሮሚያ"},
			Size:        500,
			SizeUnit:    models.UnitSquareMeters,
			UseCategory: "residential",
		},
		Legal: models.DefaultLegalText(),
		Issuance: models.Issuance{
			IssuedDate:       time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
			ExpirationDate:   &expiration,
			IssuingAuthority: models.Bilingual{Primary: "Land Registration and Management Authority"},
		},
		Status:   status,
		IssuedBy: "officer-1",
	}
}

func (s *PostgresStoreSuite) TestCreateAndGetRoundTrip() {
	ctx := context.Background()
	record := s.record("LRMS-2026-000001", "REG-2026-000001", "parcel-1", models.StatusPending)

	created, err := s.store.Create(ctx, record)
	s.Require().NoError(err)
	s.False(created.CreatedAt.IsZero())

	got, err := s.store.GetByID(ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(record.CertificateNumber, got.CertificateNumber)
	s.Equal(record.Owner, got.Owner)
	s.Equal(record.Land, got.Land)
	s.Equal(record.Legal, got.Legal)
	s.Equal("officer-1", got.IssuedBy)
	s.Require().NotNil(got.Issuance.ExpirationDate)
	s.True(got.Issuance.ExpirationDate.Equal(*record.Issuance.ExpirationDate))

	byNumber, err := s.store.GetByNumber(ctx, record.CertificateNumber)
	s.Require().NoError(err)
	s.Equal(record.ID, byNumber.ID)
}

func (s *PostgresStoreSuite) TestDuplicateNumber() {
	ctx := context.Background()
	_, err := s.store.Create(ctx, s.record("LRMS-2026-000001", "REG-2026-000001", "parcel-1", models.StatusPending))
	s.Require().NoError(err)

	_, err = s.store.Create(ctx, s.record("LRMS-2026-000001", "REG-2026-000002", "parcel-2", models.StatusPending))
	s.ErrorIs(err, sentinel.ErrDuplicateNumber)
}

func (s *PostgresStoreSuite) TestDuplicateParcel() {
	ctx := context.Background()
	_, err := s.store.Create(ctx, s.record("LRMS-2026-000001", "REG-2026-000001", "parcel-1", models.StatusActive))
	s.Require().NoError(err)

	_, err = s.store.Create(ctx, s.record("LRMS-2026-000002", "REG-2026-000002", "parcel-1", models.StatusPending))
	s.ErrorIs(err, sentinel.ErrDuplicateParcel)
}

func (s *PostgresStoreSuite) TestRevokedParcelCanBeReissued() {
	ctx := context.Background()
	_, err := s.store.Create(ctx, s.record("LRMS-2026-000001", "REG-2026-000001", "parcel-1", models.StatusRevoked))
	s.Require().NoError(err)

	_, err = s.store.Create(ctx, s.record("LRMS-2026-000002", "REG-2026-000002", "parcel-1", models.StatusPending))
	s.NoError(err, "the partial unique index covers live statuses only")
}

// TestConcurrentIssuanceSameParcel drives concurrent inserts against the
// partial unique index: exactly one insert per parcel may win.
func (s *PostgresStoreSuite) TestConcurrentIssuanceSameParcel() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var successes, parcelConflicts atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			record := s.record(
				fmt.Sprintf("LRMS-2026-%06d", idx),
				fmt.Sprintf("REG-2026-%06d", idx),
				"parcel-contended", models.StatusPending,
			)

			_, err := s.store.Create(ctx, record)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrDuplicateParcel):
				parcelConflicts.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(goroutines-1), parcelConflicts.Load())
}

func (s *PostgresStoreSuite) TestUpdateStatusTransitions() {
	ctx := context.Background()
	record := s.record("LRMS-2026-000001", "REG-2026-000001", "parcel-1", models.StatusPending)
	_, err := s.store.Create(ctx, record)
	s.Require().NoError(err)

	updated, err := s.store.UpdateStatus(ctx, record.CertificateNumber, models.StatusActive)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, updated.Status)

	updated, err = s.store.UpdateStatus(ctx, record.CertificateNumber, models.StatusRevoked)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, updated.Status)

	_, err = s.store.UpdateStatus(ctx, record.CertificateNumber, models.StatusActive)
	s.ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *PostgresStoreSuite) TestUpdateStatusMissing() {
	_, err := s.store.UpdateStatus(context.Background(), "LRMS-2099-000000", models.StatusActive)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdate() {
	ctx := context.Background()
	record := s.record("LRMS-2026-000001", "REG-2026-000001", "parcel-1", models.StatusPending)
	_, err := s.store.Create(ctx, record)
	s.Require().NoError(err)

	record.Owner.FirstName.Primary = "Almaz"
	record.Land.Size = 750
	updated, err := s.store.Update(ctx, record)
	s.Require().NoError(err)
	s.Equal("Almaz", updated.Owner.FirstName.Primary)
	s.Equal(float64(750), updated.Land.Size)
}

func (s *PostgresStoreSuite) TestDelete() {
	ctx := context.Background()
	record := s.record("LRMS-2026-000001", "REG-2026-000001", "parcel-1", models.StatusPending)
	_, err := s.store.Create(ctx, record)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Delete(ctx, record.ID))
	_, err = s.store.GetByID(ctx, record.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.Delete(ctx, record.ID), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestSaveAndGetAssets() {
	ctx := context.Background()
	record := s.record("LRMS-2026-000001", "REG-2026-000001", "parcel-1", models.StatusPending)
	_, err := s.store.Create(ctx, record)
	s.Require().NoError(err)

	_, err = s.store.GetAssets(ctx, record.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	saved := models.AssetMap{
		models.SlotOwnerPhoto: {
			Slot:    models.SlotOwnerPhoto,
			Data:    []byte{0x89, 0x50, 0x4e, 0x47},
			Outcome: models.OutcomeResolved,
		},
		models.SlotOwnerSignature: {
			Slot:    models.SlotOwnerSignature,
			Data:    []byte{0x89, 0x50, 0x4e, 0x47},
			Outcome: models.OutcomeFallback,
			Reason:  "no source supplied",
		},
	}
	s.Require().NoError(s.store.SaveAssets(ctx, record.ID, saved))

	got, err := s.store.GetAssets(ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(saved, got)

	// Upsert replaces slots in place.
	saved[models.SlotOwnerPhoto] = models.ResolvedAsset{
		Slot:    models.SlotOwnerPhoto,
		Data:    []byte{0x01},
		Outcome: models.OutcomeResolved,
	}
	s.Require().NoError(s.store.SaveAssets(ctx, record.ID, saved))
	got, err = s.store.GetAssets(ctx, record.ID)
	s.Require().NoError(err)
	s.Equal([]byte{0x01}, got[models.SlotOwnerPhoto].Data)
}

func (s *PostgresStoreSuite) TestDeleteCascadesAssets() {
	ctx := context.Background()
	record := s.record("LRMS-2026-000001", "REG-2026-000001", "parcel-1", models.StatusPending)
	_, err := s.store.Create(ctx, record)
	s.Require().NoError(err)

	saved := models.AssetMap{
		models.SlotOwnerPhoto: {Slot: models.SlotOwnerPhoto, Data: []byte{0x01}, Outcome: models.OutcomeResolved},
	}
	s.Require().NoError(s.store.SaveAssets(ctx, record.ID, saved))

	s.Require().NoError(s.store.Delete(ctx, record.ID))
	_, err = s.store.GetAssets(ctx, record.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
