package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/dian-fe/internal/application/dto"
	"github.com/tu-usuario/dian-fe/internal/domain"
	"github.com/tu-usuario/dian-fe/internal/domain/entity"
	"github.com/tu-usuario/dian-fe/internal/domain/repository"
)

// NumberingUseCase administra los rangos de numeración autorizados por la DIAN.
type NumberingUseCase struct {
	repo repository.NumberingRepository
}

// NewNumberingUseCase construye el caso de uso con el puerto de persistencia.
func NewNumberingUseCase(repo repository.NumberingRepository) *NumberingUseCase {
	return &NumberingUseCase{repo: repo}
}

// Create registra una resolución de numeración. Devuelve domain.ErrConflict si
// ya hay una resolución activa para el prefijo.
func (uc *NumberingUseCase) Create(ctx context.Context, in dto.NumberingRangeRequest) (*dto.NumberingRangeResponse, error) {
	if in.Prefix == "" || in.ResolutionNumber == "" || in.RangeFrom < 1 || in.RangeTo <= in.RangeFrom {
		return nil, domain.ErrInvalidInput
	}
	dateFrom, err := time.Parse("2006-01-02", in.DateFrom)
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	dateTo, err := time.Parse("2006-01-02", in.DateTo)
	if err != nil || dateTo.Before(dateFrom) {
		return nil, domain.ErrInvalidInput
	}
	existing, err := uc.repo.GetActiveByPrefix(ctx, in.Prefix)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrConflict
	}
	rng := &entity.NumberingRange{
		ID:               uuid.New().String(),
		ResolutionNumber: in.ResolutionNumber,
		Prefix:           in.Prefix,
		TechnicalKey:     in.TechnicalKey,
		RangeFrom:        in.RangeFrom,
		RangeTo:          in.RangeTo,
		CurrentNumber:    in.RangeFrom - 1,
		DateFrom:         dateFrom,
		DateTo:           dateTo,
		IsActive:         true,
	}
	if err := uc.repo.Create(ctx, rng); err != nil {
		return nil, err
	}
	return toNumberingResponse(rng), nil
}

// List lista todas las resoluciones registradas.
func (uc *NumberingUseCase) List(ctx context.Context) ([]dto.NumberingRangeResponse, error) {
	ranges, err := uc.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.NumberingRangeResponse, 0, len(ranges))
	for _, rng := range ranges {
		out = append(out, *toNumberingResponse(rng))
	}
	return out, nil
}

func toNumberingResponse(rng *entity.NumberingRange) *dto.NumberingRangeResponse {
	return &dto.NumberingRangeResponse{
		ID:               rng.ID,
		ResolutionNumber: rng.ResolutionNumber,
		Prefix:           rng.Prefix,
		RangeFrom:        rng.RangeFrom,
		RangeTo:          rng.RangeTo,
		CurrentNumber:    rng.CurrentNumber,
		DateFrom:         rng.DateFrom.Format("2006-01-02"),
		DateTo:           rng.DateTo.Format("2006-01-02"),
		IsActive:         rng.IsActive,
	}
}
