// Package service orchestrates certificate issuance: validation, identifier
// assignment, asset resolution, artifact composition, and persistence.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"landcert/internal/audit"
	"landcert/internal/certificate/assets"
	"landcert/internal/certificate/compose"
	"landcert/internal/certificate/idgen"
	"landcert/internal/certificate/models"
	"landcert/internal/certificate/qr"
	"landcert/internal/certificate/store"
	"landcert/internal/platform/metrics"
	dErrors "landcert/pkg/domainerrors"
	"landcert/pkg/platform/sentinel"
)

// IssueRequest is a finalized record submitted for issuance, plus the asset
// sources collected by the data-entry wizard.
type IssueRequest struct {
	ParcelID         string
	Owner            models.OwnerIdentity
	Land             models.LandDescriptor
	IssuedDate       time.Time
	ExpirationDate   *time.Time
	IssuingAuthority models.Bilingual
	Assets           map[models.AssetSlot]assets.Source
	IssuedBy         string
}

// UpdateRequest carries the mutable parts of a record for PUT, with optional
// replacement asset sources.
type UpdateRequest struct {
	Owner            models.OwnerIdentity
	Land             models.LandDescriptor
	IssuedDate       time.Time
	ExpirationDate   *time.Time
	IssuingAuthority models.Bilingual
	Assets           map[models.AssetSlot]assets.Source
}

type Service struct {
	store    store.Store
	resolver *assets.Resolver
	composer *compose.Composer
	gen      *idgen.Generator
	audit    *audit.Publisher
	metrics  *metrics.Metrics
	logger   *zap.Logger
	emblem   []byte
}

func New(
	st store.Store,
	resolver *assets.Resolver,
	composer *compose.Composer,
	auditPub *audit.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:    st,
		resolver: resolver,
		composer: composer,
		gen:      idgen.New(),
		audit:    auditPub,
		metrics:  m,
		logger:   logger,
		emblem:   assets.DefaultFor(assets.KindEmblem),
	}
}

// defaultAuthority is printed when the wizard does not supply one.
var defaultAuthority = models.Bilingual{
	Primary: "Land Registration and Management Authority",
	Local:   "የመሬት ምዝገባና አስተዳደር ባለስልጣን",
}

// Issue turns a finalized record into a persisted, uniquely numbered
// certificate. Asset failures degrade and never block issuance; identifier
// and persistence failures surface as typed errors.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (models.Record, models.AssetMap, error) {
	if err := validateIssue(req); err != nil {
		return models.Record{}, nil, err
	}

	if req.IssuedDate.IsZero() {
		req.IssuedDate = time.Now().UTC()
	}
	authority := req.IssuingAuthority
	if authority.Primary == "" {
		authority = defaultAuthority
	}

	record := models.Record{
		ID:       uuid.New(),
		ParcelID: req.ParcelID,
		Owner:    req.Owner,
		Land:     req.Land,
		Legal:    models.DefaultLegalText(),
		Issuance: models.Issuance{
			IssuedDate:       req.IssuedDate,
			ExpirationDate:   req.ExpirationDate,
			IssuingAuthority: authority,
		},
		Status:   models.StatusPending,
		IssuedBy: req.IssuedBy,
	}

	created, err := s.createWithRetry(ctx, record)
	if err != nil {
		return models.Record{}, nil, err
	}

	resolved := s.resolver.ResolveAll(ctx, req.Assets)
	s.countFallbacks(resolved)
	if err := s.store.SaveAssets(ctx, created.ID, resolved); err != nil {
		// The record exists and is valid; losing stored assets only costs a
		// re-resolution on the next artifact export.
		s.logger.Error("failed to persist resolved assets",
			zap.String("certificate_number", created.CertificateNumber),
			zap.Error(err),
		)
	}

	s.metrics.CertificatesIssued.Inc()
	s.emitAudit(ctx, audit.Event{
		Action:            audit.ActionIssued,
		Actor:             created.IssuedBy,
		CertificateNumber: created.CertificateNumber,
		ParcelID:          created.ParcelID,
	})
	s.logger.Info("certificate issued",
		zap.String("certificate_number", created.CertificateNumber),
		zap.String("parcel_id", created.ParcelID),
	)
	return created, resolved, nil
}

// createWithRetry pairs the identifier generator with the bounded
// retry-on-collision policy: attempt the insert, regenerate on a number
// collision, give up after idgen.MaxAttempts. Parcel conflicts are caller
// errors and never retried.
func (s *Service) createWithRetry(ctx context.Context, record models.Record) (models.Record, error) {
	for attempt := 1; attempt <= idgen.MaxAttempts; attempt++ {
		record.CertificateNumber = s.gen.GenerateCertificateNumber()
		record.RegistrationNumber = s.gen.GenerateRegistrationNumber()

		created, err := s.store.Create(ctx, record)
		switch {
		case err == nil:
			return created, nil
		case errors.Is(err, sentinel.ErrDuplicateNumber):
			s.metrics.NumberCollisions.Inc()
			s.logger.Warn("identifier collision, regenerating",
				zap.Int("attempt", attempt),
				zap.String("parcel_id", record.ParcelID),
			)
		case errors.Is(err, sentinel.ErrDuplicateParcel):
			return models.Record{}, dErrors.New(dErrors.CodeDuplicate,
				"a live certificate already exists for this parcel")
		default:
			return models.Record{}, dErrors.Wrap(dErrors.CodeInternal, "create certificate", err)
		}
	}
	return models.Record{}, dErrors.New(dErrors.CodeGenerationExhausted,
		fmt.Sprintf("could not assign a unique number after %d attempts", idgen.MaxAttempts))
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.Record, error) {
	record, err := s.store.GetByID(ctx, id)
	if err != nil {
		return models.Record{}, translateStoreErr(err, "certificate")
	}
	return record, nil
}

// Update replaces the mutable fields and, when replacement sources are
// supplied, re-resolves those asset slots.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (models.Record, error) {
	if err := validateUpdate(req); err != nil {
		return models.Record{}, err
	}

	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return models.Record{}, translateStoreErr(err, "certificate")
	}

	existing.Owner = req.Owner
	existing.Land = req.Land
	existing.Issuance.IssuedDate = req.IssuedDate
	existing.Issuance.ExpirationDate = req.ExpirationDate
	if req.IssuingAuthority.Primary != "" {
		existing.Issuance.IssuingAuthority = req.IssuingAuthority
	}

	updated, err := s.store.Update(ctx, existing)
	if err != nil {
		return models.Record{}, translateStoreErr(err, "certificate")
	}

	if len(req.Assets) > 0 {
		current, err := s.store.GetAssets(ctx, id)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return models.Record{}, dErrors.Wrap(dErrors.CodeInternal, "load assets", err)
		}
		if current == nil {
			current = models.AssetMap{}
		}
		for slot, source := range req.Assets {
			res := s.resolver.Resolve(ctx, source, assets.KindForSlot(slot))
			current[slot] = models.ResolvedAsset{
				Slot:    slot,
				Data:    res.Data,
				Outcome: res.Outcome,
				Reason:  res.Reason,
			}
		}
		s.countFallbacks(current)
		if err := s.store.SaveAssets(ctx, id, current); err != nil {
			return models.Record{}, dErrors.Wrap(dErrors.CodeInternal, "save assets", err)
		}
	}

	s.emitAudit(ctx, audit.Event{
		Action:            audit.ActionUpdated,
		CertificateNumber: updated.CertificateNumber,
		ParcelID:          updated.ParcelID,
	})
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	record, err := s.store.GetByID(ctx, id)
	if err != nil {
		return translateStoreErr(err, "certificate")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return translateStoreErr(err, "certificate")
	}
	s.emitAudit(ctx, audit.Event{
		Action:            audit.ActionDeleted,
		CertificateNumber: record.CertificateNumber,
		ParcelID:          record.ParcelID,
	})
	return nil
}

// ChangeStatus applies a lifecycle transition to the record with the given
// internal id. Revocation is terminal; expiry is never a stored transition.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, to models.Status, actor string) (models.Record, error) {
	if to == models.StatusExpired {
		return models.Record{}, dErrors.New(dErrors.CodeInvalidTransition,
			"expired is computed at read time, not stored")
	}
	record, err := s.store.GetByID(ctx, id)
	if err != nil {
		return models.Record{}, translateStoreErr(err, "certificate")
	}

	updated, err := s.store.UpdateStatus(ctx, record.CertificateNumber, to)
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return models.Record{}, dErrors.New(dErrors.CodeInvalidTransition,
				fmt.Sprintf("cannot move certificate from %s to %s", record.Status, to))
		}
		return models.Record{}, translateStoreErr(err, "certificate")
	}

	s.emitAudit(ctx, audit.Event{
		Action:            audit.ActionStatusChanged,
		Actor:             actor,
		CertificateNumber: updated.CertificateNumber,
		ParcelID:          updated.ParcelID,
		Detail:            string(to),
	})
	return updated, nil
}

// Artifact recomposes the print-ready PDF from the persisted record and its
// stored resolved assets. Asset resolution is never re-run here.
func (s *Service) Artifact(ctx context.Context, id uuid.UUID) ([]byte, error) {
	record, resolved, code, err := s.artifactInputs(ctx, id)
	if err != nil {
		return nil, err
	}
	artifact, err := s.composer.Compose(record, resolved, code, s.emblem)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "compose artifact", err)
	}
	return artifact.PDF, nil
}

// ArtifactPNG renders the flattened raster export of the same layout.
func (s *Service) ArtifactPNG(ctx context.Context, id uuid.UUID) ([]byte, error) {
	record, resolved, code, err := s.artifactInputs(ctx, id)
	if err != nil {
		return nil, err
	}
	img, err := s.composer.ComposePNG(record, resolved, code, s.emblem)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "compose raster artifact", err)
	}
	return img, nil
}

func (s *Service) artifactInputs(ctx context.Context, id uuid.UUID) (models.Record, models.AssetMap, []byte, error) {
	record, err := s.store.GetByID(ctx, id)
	if err != nil {
		return models.Record{}, nil, nil, translateStoreErr(err, "certificate")
	}

	resolved, err := s.store.GetAssets(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		// Assets were never stored; fall back to the defaults for every slot.
		resolved = s.resolver.ResolveAll(ctx, nil)
	} else if err != nil {
		return models.Record{}, nil, nil, dErrors.Wrap(dErrors.CodeInternal, "load assets", err)
	}

	code, err := qr.Encode(qr.NewPayload(record))
	if err != nil {
		return models.Record{}, nil, nil, dErrors.Wrap(dErrors.CodeInternal, "encode optical code", err)
	}
	return record, resolved, code, nil
}

func (s *Service) countFallbacks(resolved models.AssetMap) {
	for slot, asset := range resolved {
		if asset.Outcome == models.OutcomeFallback && asset.Reason != "no source supplied" {
			s.metrics.AssetFallbacks.WithLabelValues(string(assets.KindForSlot(slot))).Inc()
		}
	}
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.Warn("audit emit failed", zap.String("action", event.Action), zap.Error(err))
	}
}

func translateStoreErr(err error, what string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	case errors.Is(err, sentinel.ErrDuplicateNumber), errors.Is(err, sentinel.ErrDuplicateParcel):
		return dErrors.Wrap(dErrors.CodeDuplicate, what+" conflict", err)
	default:
		return dErrors.Wrap(dErrors.CodeInternal, what+" store failure", err)
	}
}
