package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/dian-fe/internal/domain/entity"
	"github.com/tu-usuario/dian-fe/internal/domain/repository"
)

var _ repository.SubmissionRepository = (*SubmissionRepo)(nil)

// SubmissionRepo implementación de SubmissionRepository (usable con pool o tx).
type SubmissionRepo struct {
	q Querier
}

// NewSubmissionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSubmissionRepository(q Querier) *SubmissionRepo {
	return &SubmissionRepo{q: q}
}

// Create persiste un envío recién entregado al servicio web de la DIAN.
func (r *SubmissionRepo) Create(ctx context.Context, sub *entity.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	now := time.Now()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	const q = `
		INSERT INTO submissions
			(id, doc_type, prefix, number, uuid, uuid_scheme, issue_date,
			 zip_key, status, is_valid, status_code, status_description, error_messages,
			 total, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, q,
		sub.ID, sub.DocType, sub.Prefix, sub.Number, sub.UUID, sub.UUIDScheme, sub.IssueDate,
		nullIfEmpty(sub.ZipKey), sub.Status, sub.IsValid,
		nullIfEmpty(sub.StatusCode), nullIfEmpty(sub.StatusDescription), sub.ErrorMessages,
		sub.Total, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("el consecutivo %s%s ya fue enviado: %w", sub.Prefix, sub.Number, err)
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// UpdateStatus actualiza el resultado del polling de GetStatusZip.
func (r *SubmissionRepo) UpdateStatus(ctx context.Context, sub *entity.Submission) error {
	sub.UpdatedAt = time.Now()
	const q = `
		UPDATE submissions
		SET zip_key            = COALESCE($2, zip_key),
		    status             = $3,
		    is_valid           = $4,
		    status_code        = COALESCE($5, status_code),
		    status_description = COALESCE($6, status_description),
		    error_messages     = $7,
		    updated_at         = $8
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, q,
		sub.ID, nullIfEmpty(sub.ZipKey), sub.Status, sub.IsValid,
		nullIfEmpty(sub.StatusCode), nullIfEmpty(sub.StatusDescription), sub.ErrorMessages,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("submission %s no existe", sub.ID)
	}
	return nil
}

// GetByNumber busca un envío por prefijo y consecutivo.
func (r *SubmissionRepo) GetByNumber(ctx context.Context, prefix, number string) (*entity.Submission, error) {
	const q = submissionSelect + ` WHERE prefix = $1 AND number = $2`
	sub, err := scanSubmission(r.q.QueryRow(ctx, q, prefix, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get submission by number: %w", err)
	}
	return sub, nil
}

// GetByZipKey busca un envío por el TrackID devuelto por la DIAN.
func (r *SubmissionRepo) GetByZipKey(ctx context.Context, zipKey string) (*entity.Submission, error) {
	const q = submissionSelect + ` WHERE zip_key = $1`
	sub, err := scanSubmission(r.q.QueryRow(ctx, q, zipKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get submission by zip_key: %w", err)
	}
	return sub, nil
}

// ListPending devuelve los envíos sin veredicto definitivo, los más antiguos primero.
func (r *SubmissionRepo) ListPending(ctx context.Context, limit int) ([]*entity.Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = submissionSelect + `
		WHERE status IN ('SENT', 'PENDING')
		ORDER BY created_at ASC
		LIMIT $1`
	rows, err := r.q.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending submissions: %w", err)
	}
	defer rows.Close()
	var list []*entity.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		list = append(list, sub)
	}
	return list, rows.Err()
}

// ── helpers ───────────────────────────────────────────────────────────────────

const submissionSelect = `
	SELECT id, doc_type, prefix, number, uuid, uuid_scheme, issue_date,
	       zip_key, status, is_valid, status_code, status_description, error_messages,
	       total, created_at, updated_at
	FROM submissions`

func scanSubmission(row pgxScanner) (*entity.Submission, error) {
	var sub entity.Submission
	var zipKey, statusCode, statusDesc *string
	err := row.Scan(
		&sub.ID, &sub.DocType, &sub.Prefix, &sub.Number, &sub.UUID, &sub.UUIDScheme, &sub.IssueDate,
		&zipKey, &sub.Status, &sub.IsValid, &statusCode, &statusDesc, &sub.ErrorMessages,
		&sub.Total, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if zipKey != nil {
		sub.ZipKey = *zipKey
	}
	if statusCode != nil {
		sub.StatusCode = *statusCode
	}
	if statusDesc != nil {
		sub.StatusDescription = *statusDesc
	}
	return &sub, nil
}
