package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"landcert/internal/certificate/models"
	"landcert/pkg/platform/sentinel"
)

// InMemoryStore mirrors the Postgres store's uniqueness semantics for unit
// tests and local development.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]models.Record
	assets  map[uuid.UUID]models.AssetMap
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[uuid.UUID]models.Record),
		assets:  make(map[uuid.UUID]models.AssetMap),
	}
}

func (s *InMemoryStore) Create(_ context.Context, record models.Record) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.records {
		if existing.CertificateNumber == record.CertificateNumber ||
			existing.RegistrationNumber == record.RegistrationNumber {
			return models.Record{}, sentinel.ErrDuplicateNumber
		}
		if existing.ParcelID == record.ParcelID && existing.Live() && record.Live() {
			return models.Record{}, sentinel.ErrDuplicateParcel
		}
	}

	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	s.records[record.ID] = record
	return record, nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id uuid.UUID) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.records[id]; ok {
		return record, nil
	}
	return models.Record{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) GetByNumber(_ context.Context, number string) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.records {
		if record.CertificateNumber == number {
			return record, nil
		}
	}
	return models.Record{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Update(_ context.Context, record models.Record) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[record.ID]
	if !ok {
		return models.Record{}, sentinel.ErrNotFound
	}

	existing.Owner = record.Owner
	existing.Land = record.Land
	existing.Legal = record.Legal
	existing.Issuance = record.Issuance
	existing.UpdatedAt = time.Now().UTC()
	s.records[existing.ID] = existing
	return existing, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, number string, to models.Status) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, record := range s.records {
		if record.CertificateNumber != number {
			continue
		}
		if !models.CanTransition(record.Status, to) {
			return models.Record{}, sentinel.ErrInvalidState
		}
		record.Status = to
		record.UpdatedAt = time.Now().UTC()
		s.records[id] = record
		return record, nil
	}
	return models.Record{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, id)
	delete(s.assets, id)
	return nil
}

func (s *InMemoryStore) SaveAssets(_ context.Context, certificateID uuid.UUID, assets models.AssetMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[certificateID]; !ok {
		return sentinel.ErrNotFound
	}
	stored := make(models.AssetMap, len(assets))
	for slot, asset := range assets {
		stored[slot] = asset
	}
	s.assets[certificateID] = stored
	return nil
}

func (s *InMemoryStore) GetAssets(_ context.Context, certificateID uuid.UUID) (models.AssetMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	assets, ok := s.assets[certificateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := make(models.AssetMap, len(assets))
	for slot, asset := range assets {
		out[slot] = asset
	}
	return out, nil
}
