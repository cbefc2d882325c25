package billing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/beevik/etree"
	domaindian "github.com/tu-usuario/dian-fe/internal/domain/dian"
	"github.com/tu-usuario/dian-fe/internal/domain/entity"
	"github.com/tu-usuario/dian-fe/internal/domain/repository"
	infradian "github.com/tu-usuario/dian-fe/internal/infrastructure/dian"
	"github.com/tu-usuario/dian-fe/pkg/config"
	"github.com/tu-usuario/dian-fe/pkg/dian"
	"github.com/tu-usuario/dian-fe/pkg/logger"
)

// DocumentInput describe un documento UBL listo para radicar.
// XML trae el documento sin firmar, con los dos contenedores de extensión
// y los elementos cbc:ID / cbc:UUID / cbc:ProfileExecutionID declarados.
type DocumentInput struct {
	DocType string // "01", "91", "92", "05", ...
	Prefix  string // Prefijo autorizado (ej: "SETP")
	XML     []byte

	// Params alimenta el cálculo del CUFE/CUDE/CUDS. Si Number viene vacío,
	// el pipeline asigna el siguiente consecutivo del rango del prefijo.
	Params domaindian.IdentifierParams

	CustomerIDType string // Tipo de identificación del adquiriente ("31" NIT, "13" CC, ...)
	CustomerFullID string // Identificación completa, con DV si es NIT
}

// Result resume el desenlace de la radicación.
type Result struct {
	Submission *entity.Submission
	SignedXML  []byte
	QRData     string // payload del QR para la representación gráfica
	Status     *StatusSummary
}

// StatusSummary copia los campos relevantes de la respuesta de GetStatusZip
// para que el caller no dependa del paquete soap.
type StatusSummary struct {
	StatusCode        string
	StatusDescription string
	Messages          []string
}

// Pipeline orquesta el ciclo completo de radicación ante la DIAN:
//
//	validar → calcular identificador → fijarlo en el XML → firmar XAdES-EPES
//	→ comprimir → registrar envío → radicar SOAP → polling de estado → persistir veredicto
//
// En habilitación radica con SendTestSetAsync (TestSetId); en producción con
// SendBillAsync. "Pending" tras agotar el polling no es un error: el registro
// queda en PENDING y RefreshPending lo retoma después.
type Pipeline struct {
	identifiers *domaindian.IdentifierService
	signer      DocumentSigner
	submitter   Submitter
	txRunner    TxRunner
	subRepo     repository.SubmissionRepository
	numRepo     repository.NumberingRepository
	cfg         config.DIANConfig
	log         *logger.Logger
	now         func() time.Time
}

// NewPipeline construye el pipeline con todas sus dependencias.
func NewPipeline(
	signer DocumentSigner,
	submitter Submitter,
	txRunner TxRunner,
	subRepo repository.SubmissionRepository,
	numRepo repository.NumberingRepository,
	cfg config.DIANConfig,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		identifiers: domaindian.NewIdentifierService(),
		signer:      signer,
		submitter:   submitter,
		txRunner:    txRunner,
		subRepo:     subRepo,
		numRepo:     numRepo,
		cfg:         cfg,
		log:         log.Component("pipeline"),
		now:         time.Now,
	}
}

// Process radica un documento y espera el veredicto de la DIAN.
// Devuelve el registro persistido; si la DIAN rechazó el documento, el error
// es un *domaindian.DianError con el detalle de las reglas incumplidas.
func (p *Pipeline) Process(ctx context.Context, input *DocumentInput) (*Result, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(input.XML); err != nil {
		return nil, fmt.Errorf("%w: XML de entrada inválido: %v", domaindian.ErrXMLBuild, err)
	}

	if input.Params.Environment == "" {
		input.Params.Environment = p.cfg.Environment
	}
	if input.Params.SupplierNIT == "" {
		input.Params.SupplierNIT = p.cfg.SupplierNIT
	}

	technicalKey := p.cfg.TechnicalKey
	var sub *entity.Submission

	// Asignación de consecutivo + registro del envío en una sola transacción:
	// un fallo posterior a la firma no deja números quemados sin registro.
	err := p.txRunner.Run(ctx, func(subRepo repository.SubmissionRepository, numRepo repository.NumberingRepository) error {
		if input.Params.Number == "" {
			rng, err := numRepo.GetActiveByPrefix(ctx, input.Prefix)
			if err != nil {
				return err
			}
			if rng == nil {
				return fmt.Errorf("%w: no hay resolución de numeración activa para el prefijo %s",
					domaindian.ErrValidation, input.Prefix)
			}
			if rng.TechnicalKey != "" {
				technicalKey = rng.TechnicalKey
			}
			n, err := numRepo.AllocateNextNumber(ctx, input.Prefix)
			if err != nil {
				return err
			}
			input.Params.Number = input.Prefix + strconv.FormatInt(n, 10)
			if err := infradian.EmbedNumber(doc, input.Params.Number); err != nil {
				return err
			}
		}

		if err := domaindian.ValidateForSubmission(&input.Params, input.DocType, input.CustomerIDType, input.CustomerFullID); err != nil {
			return err
		}

		uuid, scheme, err := p.identifiers.ForDocType(&input.Params, input.DocType, technicalKey, p.cfg.SoftwarePIN)
		if err != nil {
			return err
		}

		issueDate, err := time.Parse("2006-01-02", input.Params.IssueDate)
		if err != nil {
			return fmt.Errorf("%w: fecha de emisión inválida: %v", domaindian.ErrIdentifier, err)
		}

		sub = &entity.Submission{
			DocType:    input.DocType,
			Prefix:     input.Prefix,
			Number:     input.Params.Number,
			UUID:       uuid,
			UUIDScheme: scheme,
			IssueDate:  issueDate,
			Status:     entity.SubmissionStatusSent,
			Total:      input.Params.Total,
		}
		return subRepo.Create(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	signed, zipContent, zipName, err := p.prepare(doc, sub)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Submission: sub,
		SignedXML:  signed,
		QRData:     dian.QRPayload(sub.Number, input.Params.IssueDate, input.Params.Total, input.Params.TaxIVA, sub.UUID),
	}

	upload, err := p.upload(ctx, zipName, zipContent)
	if err != nil {
		p.log.Error().Err(err).Str("number", sub.Number).Msg("radicación fallida")
		return result, err
	}
	sub.ZipKey = upload.ZipKey
	p.log.Info().Str("number", sub.Number).Str("zip_key", sub.ZipKey).Msg("documento radicado")

	status, err := p.submitter.VerifyStatusWithRetry(ctx, sub.ZipKey)
	if err != nil || status == nil {
		// Sin respuesta de estado: el envío queda SENT con su ZipKey para
		// retomarlo con RefreshPending.
		if uerr := p.subRepo.UpdateStatus(ctx, sub); uerr != nil {
			p.log.Error().Err(uerr).Str("number", sub.Number).Msg("no se pudo persistir el ZipKey")
		}
		return result, err
	}

	result.Status = &StatusSummary{
		StatusCode:        status.StatusCode,
		StatusDescription: status.StatusDescription,
		Messages:          status.ErrorMessages,
	}
	p.applyVerdict(sub, status.IsValid, status.StatusCode, status.StatusDescription, status.ErrorMessages)
	if err := p.subRepo.UpdateStatus(ctx, sub); err != nil {
		return result, err
	}
	if sub.Status == entity.SubmissionStatusRejected {
		return result, status.RejectionError()
	}
	return result, nil
}

// RefreshPending consulta de nuevo el estado de los envíos sin veredicto.
// Devuelve cuántos registros cambiaron de estado.
func (p *Pipeline) RefreshPending(ctx context.Context, limit int) (int, error) {
	pending, err := p.subRepo.ListPending(ctx, limit)
	if err != nil {
		return 0, err
	}
	resolved := 0
	for _, sub := range pending {
		if sub.ZipKey == "" {
			continue // radicación nunca confirmada: no hay TrackID que consultar
		}
		status, err := p.submitter.VerifyStatusWithRetry(ctx, sub.ZipKey)
		if err != nil || status == nil {
			p.log.Warn().Err(err).Str("zip_key", sub.ZipKey).Msg("polling sin respuesta")
			continue
		}
		before := sub.Status
		p.applyVerdict(sub, status.IsValid, status.StatusCode, status.StatusDescription, status.ErrorMessages)
		if err := p.subRepo.UpdateStatus(ctx, sub); err != nil {
			return resolved, err
		}
		if sub.Status != before && sub.Resolved() {
			resolved++
		}
	}
	return resolved, nil
}

// GetByNumber expone la consulta de un envío por consecutivo.
func (p *Pipeline) GetByNumber(ctx context.Context, prefix, number string) (*entity.Submission, error) {
	return p.subRepo.GetByNumber(ctx, prefix, number)
}

// ListPending expone los envíos sin veredicto definitivo.
func (p *Pipeline) ListPending(ctx context.Context, limit int) ([]*entity.Submission, error) {
	return p.subRepo.ListPending(ctx, limit)
}

// ── pasos internos ────────────────────────────────────────────────────────────

// prepare fija identificador, SSC y ambiente en el XML, lo firma y lo comprime.
func (p *Pipeline) prepare(doc *etree.Document, sub *entity.Submission) (signed, zipContent []byte, zipName string, err error) {
	if err = infradian.EmbedIdentifier(doc, sub.UUID, p.cfg.Environment, sub.UUIDScheme); err != nil {
		return nil, nil, "", err
	}
	if p.cfg.SoftwareID != "" {
		ssc, cerr := domaindian.SoftwareSecurityCode(p.cfg.SoftwareID, p.cfg.SoftwarePIN, sub.Number)
		if cerr != nil {
			return nil, nil, "", cerr
		}
		if _, cerr = infradian.EmbedSoftwareSecurityCode(doc, ssc); cerr != nil {
			return nil, nil, "", cerr
		}
	}
	infradian.EmbedProfileExecutionID(doc, p.cfg.Environment)

	unsigned, err := doc.WriteToBytes()
	if err != nil {
		return nil, nil, "", fmt.Errorf("%w: %v", domaindian.ErrXMLBuild, err)
	}
	signed, err = p.signer.SignBytes(unsigned, p.now())
	if err != nil {
		return nil, nil, "", err
	}

	number := sub.Number
	if len(number) > len(sub.Prefix) && number[:len(sub.Prefix)] == sub.Prefix {
		number = number[len(sub.Prefix):]
	}
	xmlName, zipName := infradian.Filenames(p.cfg.SupplierNIT, sub.Prefix, number)
	zipContent, err = infradian.CompressXMLToZip(signed, xmlName)
	if err != nil {
		return nil, nil, "", err
	}
	return signed, zipContent, zipName, nil
}

// upload radica el ZIP en el ambiente configurado.
func (p *Pipeline) upload(ctx context.Context, zipName string, zipContent []byte) (*uploadResult, error) {
	if p.cfg.IsProduction() {
		resp, err := p.submitter.SendBillAsync(ctx, zipName, zipContent)
		if err != nil {
			return nil, err
		}
		return &uploadResult{ZipKey: resp.ZipKey, Errors: resp.ErrorMessages}, nil
	}
	resp, err := p.submitter.SendTestSetAsync(ctx, zipName, zipContent, p.cfg.TestSetID)
	if err != nil {
		return nil, err
	}
	return &uploadResult{ZipKey: resp.ZipKey, Errors: resp.ErrorMessages}, nil
}

// applyVerdict traduce la respuesta de GetStatusZip al estado del registro.
func (p *Pipeline) applyVerdict(sub *entity.Submission, isValid *bool, code, desc string, msgs []string) {
	sub.IsValid = isValid
	sub.StatusCode = code
	sub.StatusDescription = desc
	sub.ErrorMessages = msgs
	switch {
	case isValid == nil:
		sub.Status = entity.SubmissionStatusPending
	case *isValid:
		sub.Status = entity.SubmissionStatusAccepted
	default:
		sub.Status = entity.SubmissionStatusRejected
	}
	if sub.StatusDescription == "" && sub.StatusCode != "" {
		sub.StatusDescription = dian.StatusDescription(sub.StatusCode)
	}
}

type uploadResult struct {
	ZipKey string
	Errors []string
}
