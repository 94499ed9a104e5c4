// Package verify is the public read path: it resolves a certificate number
// (typed or scanned) to an authoritative, redacted, status-annotated view.
package verify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"landcert/internal/certificate/compose"
	"landcert/internal/certificate/idgen"
	"landcert/internal/certificate/models"
	"landcert/internal/certificate/qr"
	"landcert/internal/platform/metrics"
	dErrors "landcert/pkg/domainerrors"
)

// Lookup is the slice of the registry the verification service reads.
type Lookup interface {
	GetByNumber(ctx context.Context, number string) (models.Record, error)
}

// Cache is an optional read-through cache for verification lookups. Only the
// stored record is cached; the effective status is recomputed on every read
// so a cached active record past its expiration still reports expired.
type Cache interface {
	Get(ctx context.Context, number string) (models.Record, bool)
	Set(ctx context.Context, number string, record models.Record)
}

// RedactedRecord is the subset of a certificate safe for unauthenticated
// disclosure. The linkage to the authoring officer account is deliberately
// absent; it stays on the authoritative record for audit.
type RedactedRecord struct {
	CertificateNumber string           `json:"certificateNumber"`
	OwnerName         models.Bilingual `json:"ownerName"`
	Region            models.Bilingual `json:"region"`
	LandSize          models.Bilingual `json:"landSize"`
	UseCategory       string           `json:"useCategory"`
	IssuedDate        string           `json:"issuedDate"`
	ExpirationDate    string           `json:"expirationDate,omitempty"`
	IssuingAuthority  models.Bilingual `json:"issuingAuthority"`
}

// Result is the verification outcome. A lookup miss is a neutral not-found,
// never an error: external callers cannot distinguish a malformed number
// from an absent one.
type Result struct {
	Found  bool            `json:"found"`
	Status models.Status   `json:"status,omitempty"`
	Record *RedactedRecord `json:"record,omitempty"`
}

type Service struct {
	lookup  Lookup
	cache   Cache
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func New(lookup Lookup, cache Cache, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		lookup:  lookup,
		cache:   cache,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Verify resolves typed or scanned-payload input to a status-annotated view.
// It is side-effect-free and idempotent: two calls with no intervening state
// change return identical results.
func (s *Service) Verify(ctx context.Context, input string) Result {
	number := qr.ExtractNumber(input)
	if !idgen.Valid(number) {
		return s.notFound()
	}

	record, ok := s.cachedLookup(ctx, number)
	if !ok {
		return s.notFound()
	}

	status := record.EffectiveStatus(s.now())
	s.metrics.VerificationRequests.WithLabelValues(string(status)).Inc()
	return Result{
		Found:  true,
		Status: status,
		Record: redact(record),
	}
}

// VerifyScan decodes an optical-code image and converges on the same lookup
// as typed entry. Unreadable input returns a DecodeFailed error so the
// scanning UI can offer a re-scan or manual entry.
func (s *Service) VerifyScan(ctx context.Context, imageBytes []byte) (Result, error) {
	text, err := qr.Decode(imageBytes)
	if err != nil {
		return Result{}, dErrors.Wrap(dErrors.CodeDecodeFailed, "optical code unreadable", err)
	}
	return s.Verify(ctx, text), nil
}

func (s *Service) cachedLookup(ctx context.Context, number string) (models.Record, bool) {
	if s.cache != nil {
		if record, ok := s.cache.Get(ctx, number); ok {
			return record, true
		}
	}
	record, err := s.lookup.GetByNumber(ctx, number)
	if err != nil {
		// Any failure, including store faults, collapses to not-found so the
		// public surface never leaks internal error states.
		s.logger.Debug("verification lookup miss", zap.String("number", number), zap.Error(err))
		return models.Record{}, false
	}
	if s.cache != nil {
		s.cache.Set(ctx, number, record)
	}
	return record, true
}

func (s *Service) notFound() Result {
	s.metrics.VerificationRequests.WithLabelValues("not_found").Inc()
	return Result{Found: false}
}

func redact(record models.Record) *RedactedRecord {
	out := &RedactedRecord{
		CertificateNumber: record.CertificateNumber,
		OwnerName: models.Bilingual{
			Primary: record.Owner.DisplayName(),
			Local:   localName(record.Owner),
		},
		Region:           record.Land.Region,
		LandSize:         compose.FormatLandSize(record.Land.Size, record.Land.SizeUnit),
		UseCategory:      record.Land.UseCategory,
		IssuedDate:       record.Issuance.IssuedDate.Format(time.DateOnly),
		IssuingAuthority: record.Issuance.IssuingAuthority,
	}
	if record.Issuance.ExpirationDate != nil {
		out.ExpirationDate = record.Issuance.ExpirationDate.Format(time.DateOnly)
	}
	return out
}

func localName(owner models.OwnerIdentity) string {
	first, last := owner.FirstName.Local, owner.LastName.Local
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
