package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"landcert/internal/certificate/models"
	"landcert/pkg/platform/sentinel"
)

// PostgresStore persists certificates in PostgreSQL. Number uniqueness and
// the one-live-certificate-per-parcel invariant live in the schema: unique
// constraints on both numbers and a partial unique index on parcel_id over
// live statuses, so concurrent issuance collapses to one success without
// application locks.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const uniqueViolation = "23505"

// mapUniqueViolation translates a Postgres unique violation into the
// matching sentinel so the service can tell a number collision (retryable)
// from a parcel conflict (a caller error).
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	if strings.Contains(pgErr.ConstraintName, "parcel") {
		return sentinel.ErrDuplicateParcel
	}
	return sentinel.ErrDuplicateNumber
}

func (s *PostgresStore) Create(ctx context.Context, record models.Record) (models.Record, error) {
	owner, land, legal, authority, err := marshalParts(record)
	if err != nil {
		return models.Record{}, err
	}

	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO certificates (
			id, certificate_number, registration_number, parcel_id,
			owner, land, legal, issued_date, expiration_date,
			issuing_authority, status, issued_by, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		record.ID, record.CertificateNumber, record.RegistrationNumber, record.ParcelID,
		owner, land, legal, record.Issuance.IssuedDate, record.Issuance.ExpirationDate,
		authority, record.Status, nullString(record.IssuedBy), record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != err {
			return models.Record{}, mapped
		}
		return models.Record{}, fmt.Errorf("insert certificate: %w", err)
	}
	return record, nil
}

const selectColumns = `
	id, certificate_number, registration_number, parcel_id,
	owner, land, legal, issued_date, expiration_date,
	issuing_authority, status, issued_by, created_at, updated_at`

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (models.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM certificates WHERE id = $1`, id)
	return scanRecord(row)
}

func (s *PostgresStore) GetByNumber(ctx context.Context, number string) (models.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM certificates WHERE certificate_number = $1`, number)
	return scanRecord(row)
}

func (s *PostgresStore) Update(ctx context.Context, record models.Record) (models.Record, error) {
	owner, land, legal, authority, err := marshalParts(record)
	if err != nil {
		return models.Record{}, err
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE certificates
		SET owner = $2, land = $3, legal = $4,
			issued_date = $5, expiration_date = $6, issuing_authority = $7,
			updated_at = now()
		WHERE id = $1
		RETURNING `+selectColumns,
		record.ID, owner, land, legal,
		record.Issuance.IssuedDate, record.Issuance.ExpirationDate, authority,
	)
	return scanRecord(row)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, number string, to models.Status) (models.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Record{}, fmt.Errorf("begin status transition: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var current models.Status
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM certificates WHERE certificate_number = $1 FOR UPDATE`, number,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Record{}, fmt.Errorf("read status: %w", err)
	}
	if !models.CanTransition(current, to) {
		return models.Record{}, sentinel.ErrInvalidState
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE certificates SET status = $2, updated_at = now()
		WHERE certificate_number = $1
		RETURNING `+selectColumns, number, to)
	record, err := scanRecord(row)
	if err != nil {
		return models.Record{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Record{}, fmt.Errorf("commit status transition: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM certificates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SaveAssets(ctx context.Context, certificateID uuid.UUID, assets models.AssetMap) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save assets: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, slot := range models.AllSlots() {
		asset, ok := assets[slot]
		if !ok {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO certificate_assets (certificate_id, slot, data, outcome, reason)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (certificate_id, slot)
			DO UPDATE SET data = EXCLUDED.data, outcome = EXCLUDED.outcome, reason = EXCLUDED.reason`,
			certificateID, slot, asset.Data, asset.Outcome, asset.Reason,
		)
		if err != nil {
			return fmt.Errorf("save asset %s: %w", slot, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save assets: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAssets(ctx context.Context, certificateID uuid.UUID) (models.AssetMap, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slot, data, outcome, reason
		FROM certificate_assets WHERE certificate_id = $1`, certificateID)
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}
	defer rows.Close()

	assets := make(models.AssetMap)
	for rows.Next() {
		var asset models.ResolvedAsset
		var slot string
		if err := rows.Scan(&slot, &asset.Data, &asset.Outcome, &asset.Reason); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		asset.Slot = models.AssetSlot(slot)
		assets[asset.Slot] = asset
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}
	if len(assets) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return assets, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.Record, error) {
	var (
		record                        models.Record
		owner, land, legal, authority []byte
		expiration                    sql.NullTime
		issuedBy                      sql.NullString
	)
	err := row.Scan(
		&record.ID, &record.CertificateNumber, &record.RegistrationNumber, &record.ParcelID,
		&owner, &land, &legal, &record.Issuance.IssuedDate, &expiration,
		&authority, &record.Status, &issuedBy, &record.CreatedAt, &record.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Record{}, fmt.Errorf("scan certificate: %w", err)
	}

	if err := json.Unmarshal(owner, &record.Owner); err != nil {
		return models.Record{}, fmt.Errorf("unmarshal owner: %w", err)
	}
	if err := json.Unmarshal(land, &record.Land); err != nil {
		return models.Record{}, fmt.Errorf("unmarshal land: %w", err)
	}
	if err := json.Unmarshal(legal, &record.Legal); err != nil {
		return models.Record{}, fmt.Errorf("unmarshal legal text: %w", err)
	}
	if err := json.Unmarshal(authority, &record.Issuance.IssuingAuthority); err != nil {
		return models.Record{}, fmt.Errorf("unmarshal issuing authority: %w", err)
	}
	if expiration.Valid {
		t := expiration.Time
		record.Issuance.ExpirationDate = &t
	}
	record.IssuedBy = issuedBy.String
	return record, nil
}

func marshalParts(record models.Record) (owner, land, legal, authority []byte, err error) {
	if owner, err = json.Marshal(record.Owner); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal owner: %w", err)
	}
	if land, err = json.Marshal(record.Land); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal land: %w", err)
	}
	if legal, err = json.Marshal(record.Legal); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal legal text: %w", err)
	}
	if authority, err = json.Marshal(record.Issuance.IssuingAuthority); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal issuing authority: %w", err)
	}
	return owner, land, legal, authority, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
