package billing

import (
	"context"
	"time"

	"github.com/tu-usuario/dian-fe/internal/domain/repository"
	"github.com/tu-usuario/dian-fe/internal/infrastructure/dian/soap"
)

// Submitter es el puerto hacia el servicio web de la DIAN.
// La implementación real es soap.Client; los tests usan un doble en memoria.
type Submitter interface {
	SendBillAsync(ctx context.Context, fileName string, zipContent []byte) (*soap.UploadResponse, error)
	SendBillSync(ctx context.Context, fileName string, zipContent []byte) (*soap.StatusResponse, error)
	SendTestSetAsync(ctx context.Context, fileName string, zipContent []byte, testSetID string) (*soap.UploadResponse, error)

	// VerifyStatusWithRetry consulta GetStatusZip con espera entre intentos
	// hasta obtener veredicto o agotar los reintentos configurados.
	VerifyStatusWithRetry(ctx context.Context, trackID string) (*soap.StatusResponse, error)
}

// DocumentSigner firma el XML UBL con XAdES-EPES. Implementado por signer.XadesSigner.
type DocumentSigner interface {
	SignBytes(xmlBytes []byte, signingTime time.Time) ([]byte, error)
}

// TxRunner ejecuta fn dentro de una transacción con los repos atados a ella.
// La asignación del consecutivo y la creación del registro del envío van juntas:
// si algo falla antes del commit, el número se libera con el rollback.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		subRepo repository.SubmissionRepository,
		numRepo repository.NumberingRepository,
	) error) error
}
