package repository

import (
	"context"

	"github.com/tu-usuario/dian-fe/internal/domain/entity"
)

// SubmissionRepository define el puerto de persistencia para envíos DIAN.
type SubmissionRepository interface {
	Create(ctx context.Context, sub *entity.Submission) error

	// UpdateStatus actualiza el resultado del polling: estado, veredicto,
	// código/descripción de estado DIAN y mensajes de rechazo.
	UpdateStatus(ctx context.Context, sub *entity.Submission) error

	GetByNumber(ctx context.Context, prefix, number string) (*entity.Submission, error)
	GetByZipKey(ctx context.Context, zipKey string) (*entity.Submission, error)

	// ListPending devuelve los envíos sin veredicto definitivo (SENT o PENDING),
	// candidatos a una nueva ronda de GetStatusZip.
	ListPending(ctx context.Context, limit int) ([]*entity.Submission, error)
}
