package evidence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// PostgresStore persists evidence in PostgreSQL. Execute wraps the
// validate/mutate pair in a transaction with SELECT FOR UPDATE, giving the
// same per-record serialization the memory store provides with its mutexes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const evidenceColumns = `id, case_id, submitted_by, content_hash, content_id, anchor_id,
	status, priority, assigned_to, reviewed_by, reviewed_at, created_at, metadata, tags, enrichment`

func (s *PostgresStore) Create(ctx context.Context, record *Evidence) error {
	metadata, tags, enrichment, err := marshalEvidenceJSON(record)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO evidence (`+evidenceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		record.ID.String(), record.CaseID, record.SubmittedBy.String(),
		record.ContentHash, record.ContentID, record.AnchorID,
		string(record.Status), string(record.Priority),
		nullableAddress(record.AssignedTo), nullableAddress(record.ReviewedBy),
		record.ReviewedAt, record.CreatedAt, metadata, tags, enrichment)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create evidence: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, evidenceID id.EvidenceID) (*Evidence, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+evidenceColumns+` FROM evidence WHERE id = $1`, evidenceID.String())
	record, err := scanEvidence(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find evidence: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Evidence, error) {
	// ULID ids sort by creation time, which keeps insertion order.
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+evidenceColumns+` FROM evidence ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	defer rows.Close()

	var out []*Evidence
	for rows.Next() {
		record, err := scanEvidence(rows)
		if err != nil {
			return nil, fmt.Errorf("list evidence: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Execute(ctx context.Context, evidenceID id.EvidenceID,
	validate func(*Evidence) error, mutate func(*Evidence)) (*Evidence, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+evidenceColumns+` FROM evidence WHERE id = $1 FOR UPDATE`, evidenceID.String())
	record, err := scanEvidence(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock evidence: %w", err)
	}

	if err := validate(record); err != nil {
		return nil, err
	}
	mutate(record)

	metadata, tags, enrichment, err := marshalEvidenceJSON(record)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE evidence SET
			case_id = $2, status = $3, priority = $4, assigned_to = $5,
			reviewed_by = $6, reviewed_at = $7, metadata = $8, tags = $9, enrichment = $10
		WHERE id = $1`,
		record.ID.String(), record.CaseID, string(record.Status), string(record.Priority),
		nullableAddress(record.AssignedTo), nullableAddress(record.ReviewedBy),
		record.ReviewedAt, metadata, tags, enrichment)
	if err != nil {
		return nil, fmt.Errorf("update evidence: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Delete(ctx context.Context, evidenceID id.EvidenceID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM evidence WHERE id = $1`, evidenceID.String())
	if err != nil {
		return fmt.Errorf("delete evidence: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete evidence: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func marshalEvidenceJSON(record *Evidence) (metadata, tags, enrichment []byte, err error) {
	metadata, err = json.Marshal(record.Metadata)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal metadata: %w", err)
	}
	if record.Tags == nil {
		tags = []byte(`[]`)
	} else if tags, err = json.Marshal(record.Tags); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal tags: %w", err)
	}
	if record.Enrichment != nil {
		if enrichment, err = json.Marshal(record.Enrichment); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal enrichment: %w", err)
		}
	}
	return metadata, tags, enrichment, nil
}

func nullableAddress(addr id.Address) sql.NullString {
	if addr.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: addr.String(), Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvidence(row rowScanner) (*Evidence, error) {
	var (
		record     Evidence
		evidenceID string
		submitter  string
		status     string
		priority   string
		assignedTo sql.NullString
		reviewedBy sql.NullString
		reviewedAt sql.NullTime
		metadata   []byte
		tags       []byte
		enrichment []byte
	)
	if err := row.Scan(&evidenceID, &record.CaseID, &submitter,
		&record.ContentHash, &record.ContentID, &record.AnchorID,
		&status, &priority, &assignedTo, &reviewedBy, &reviewedAt,
		&record.CreatedAt, &metadata, &tags, &enrichment); err != nil {
		return nil, err
	}
	record.ID = id.EvidenceID(evidenceID)
	record.SubmittedBy = id.Address(submitter)
	record.Status = Status(status)
	record.Priority = Priority(priority)
	if assignedTo.Valid {
		record.AssignedTo = id.Address(assignedTo.String)
	}
	if reviewedBy.Valid {
		record.ReviewedBy = id.Address(reviewedBy.String)
	}
	if reviewedAt.Valid {
		at := reviewedAt.Time
		record.ReviewedAt = &at
	}
	if err := json.Unmarshal(metadata, &record.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &record.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	if len(enrichment) > 0 {
		if err := json.Unmarshal(enrichment, &record.Enrichment); err != nil {
			return nil, fmt.Errorf("unmarshal enrichment: %w", err)
		}
	}
	return &record, nil
}
