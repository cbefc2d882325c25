package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/dian-fe/internal/domain/entity"
	"github.com/tu-usuario/dian-fe/internal/domain/repository"
)

var _ repository.NumberingRepository = (*NumberingRepo)(nil)

// ErrRangeExhausted indica que el rango autorizado se consumió o está vencido.
// El emisor debe solicitar una nueva resolución a la DIAN antes de seguir facturando.
var ErrRangeExhausted = errors.New("postgres: rango de numeración agotado o vencido")

// NumberingRepo implementa NumberingRepository sobre PostgreSQL.
type NumberingRepo struct {
	q Querier
}

// NewNumberingRepository construye el adaptador. Pasar pool o tx (Querier).
func NewNumberingRepository(q Querier) *NumberingRepo {
	return &NumberingRepo{q: q}
}

func (r *NumberingRepo) Create(ctx context.Context, rng *entity.NumberingRange) error {
	if rng.ID == "" {
		rng.ID = uuid.New().String()
	}
	if rng.CurrentNumber == 0 {
		rng.CurrentNumber = rng.RangeFrom - 1
	}
	const q = `
		INSERT INTO numbering_ranges
			(id, resolution_number, prefix, technical_key, range_from, range_to,
			 current_number, date_from, date_to, is_active, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())`
	_, err := r.q.Exec(ctx, q,
		rng.ID, rng.ResolutionNumber, rng.Prefix, rng.TechnicalKey,
		rng.RangeFrom, rng.RangeTo, rng.CurrentNumber,
		rng.DateFrom, rng.DateTo, rng.IsActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("ya existe una resolución activa para el prefijo %s: %w", rng.Prefix, err)
		}
		return fmt.Errorf("insert numbering_range: %w", err)
	}
	return nil
}

// GetActiveByPrefix devuelve la resolución activa y vigente para el prefijo.
// Devuelve nil, nil si no hay resolución activa.
func (r *NumberingRepo) GetActiveByPrefix(ctx context.Context, prefix string) (*entity.NumberingRange, error) {
	const q = numberingSelect + `
		WHERE prefix    = $1
		  AND is_active = true
		  AND date_to  >= CURRENT_DATE
		ORDER BY date_from DESC
		LIMIT 1`
	rng, err := scanNumberingRange(r.q.QueryRow(ctx, q, prefix))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active numbering_range: %w", err)
	}
	return rng, nil
}

// AllocateNextNumber asigna el siguiente consecutivo de forma atómica.
// El UPDATE condicionado garantiza que dos envíos concurrentes nunca reciban
// el mismo número sin necesidad de SELECT FOR UPDATE.
func (r *NumberingRepo) AllocateNextNumber(ctx context.Context, prefix string) (int64, error) {
	const q = `
		UPDATE numbering_ranges
		SET current_number = current_number + 1,
		    updated_at     = now()
		WHERE prefix          = $1
		  AND is_active       = true
		  AND date_to        >= CURRENT_DATE
		  AND current_number  < range_to
		RETURNING current_number`
	var number int64
	if err := r.q.QueryRow(ctx, q, prefix).Scan(&number); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrRangeExhausted
		}
		return 0, fmt.Errorf("allocate next number: %w", err)
	}
	return number, nil
}

func (r *NumberingRepo) List(ctx context.Context) ([]*entity.NumberingRange, error) {
	const q = numberingSelect + ` ORDER BY prefix, date_from DESC`
	rows, err := r.q.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list numbering_ranges: %w", err)
	}
	defer rows.Close()
	var list []*entity.NumberingRange
	for rows.Next() {
		rng, err := scanNumberingRange(rows)
		if err != nil {
			return nil, fmt.Errorf("scan numbering_range: %w", err)
		}
		list = append(list, rng)
	}
	return list, rows.Err()
}

// ── helpers ───────────────────────────────────────────────────────────────────

const numberingSelect = `
	SELECT id, resolution_number, prefix, technical_key, range_from, range_to,
	       current_number, date_from, date_to, is_active, created_at, updated_at
	FROM numbering_ranges`

func scanNumberingRange(row pgxScanner) (*entity.NumberingRange, error) {
	var rng entity.NumberingRange
	err := row.Scan(
		&rng.ID, &rng.ResolutionNumber, &rng.Prefix, &rng.TechnicalKey,
		&rng.RangeFrom, &rng.RangeTo, &rng.CurrentNumber,
		&rng.DateFrom, &rng.DateTo,
		&rng.IsActive, &rng.CreatedAt, &rng.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rng, nil
}
