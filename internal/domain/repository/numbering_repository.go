package repository

import (
	"context"

	"github.com/tu-usuario/dian-fe/internal/domain/entity"
)

// NumberingRepository define el puerto de persistencia para rangos de numeración.
type NumberingRepository interface {
	Create(ctx context.Context, rng *entity.NumberingRange) error

	// GetActiveByPrefix devuelve la resolución activa y vigente para el prefijo.
	// Devuelve nil, nil si no hay resolución activa.
	GetActiveByPrefix(ctx context.Context, prefix string) (*entity.NumberingRange, error)

	// AllocateNextNumber asigna el siguiente consecutivo del rango de forma atómica
	// (UPDATE ... RETURNING). Falla si el rango está agotado o vencido.
	AllocateNextNumber(ctx context.Context, prefix string) (int64, error)

	List(ctx context.Context) ([]*entity.NumberingRange, error)
}
