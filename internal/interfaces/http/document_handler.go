package http

import (
	"encoding/base64"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/dian-fe/internal/application/billing"
	"github.com/tu-usuario/dian-fe/internal/application/dto"
	domaindian "github.com/tu-usuario/dian-fe/internal/domain/dian"
	"github.com/tu-usuario/dian-fe/internal/domain/entity"
)

// DocumentHandler maneja la radicación y consulta de documentos electrónicos.
type DocumentHandler struct {
	pipeline *billing.Pipeline
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(pipeline *billing.Pipeline) *DocumentHandler {
	return &DocumentHandler{pipeline: pipeline}
}

// Submit radica un documento y espera el veredicto de la DIAN.
// El veredicto (aceptado, rechazado o pendiente) es parte de la respuesta 200:
// un rechazo de la DIAN no es un error HTTP. POST /api/documents
func (h *DocumentHandler) Submit(c *fiber.Ctx) error {
	var in dto.SubmitDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}

	input, err := toDocumentInput(&in, GetNIT(c))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}

	result, err := h.pipeline.Process(c.Context(), input)
	if err != nil {
		var dianErr *domaindian.DianError
		switch {
		case errors.As(err, &dianErr):
			// Rechazo definitivo: el registro quedó REJECTED, se devuelve completo.
			out := toSubmissionResponse(result.Submission)
			out.QRData = result.QRData
			return c.JSON(out)
		case errors.Is(err, domaindian.ErrValidation),
			errors.Is(err, domaindian.ErrIdentifier),
			errors.Is(err, domaindian.ErrXMLBuild):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
		case errors.Is(err, domaindian.ErrNetwork), errors.Is(err, domaindian.ErrTimeout):
			return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "DIAN_UNAVAILABLE", Message: err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
		}
	}
	out := toSubmissionResponse(result.Submission)
	out.QRData = result.QRData
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByNumber consulta un envío por prefijo y consecutivo.
// GET /api/documents/:prefix/:number
func (h *DocumentHandler) GetByNumber(c *fiber.Ctx) error {
	prefix, number := c.Params("prefix"), c.Params("number")
	if prefix == "" || number == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "prefix y number requeridos"})
	}
	sub, err := h.pipeline.GetByNumber(c.Context(), prefix, number)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	if sub == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "envío no encontrado"})
	}
	return c.JSON(toSubmissionResponse(sub))
}

// ListPending lista los envíos sin veredicto definitivo.
// GET /api/documents/pending
func (h *DocumentHandler) ListPending(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()
	subs, err := h.pipeline.ListPending(c.Context(), page.Limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	out := make([]dto.SubmissionResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, toSubmissionResponse(s))
	}
	return c.JSON(out)
}

// RefreshPending consulta de nuevo el estado de los envíos pendientes.
// POST /api/documents/refresh
func (h *DocumentHandler) RefreshPending(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()
	resolved, err := h.pipeline.RefreshPending(c.Context(), page.Limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(fiber.Map{"resolved": resolved})
}

// ── conversión DTO ↔ dominio ──────────────────────────────────────────────────

func toDocumentInput(in *dto.SubmitDocumentRequest, supplierNIT string) (*billing.DocumentInput, error) {
	xmlBytes, err := base64.StdEncoding.DecodeString(in.XMLBase64)
	if err != nil {
		return nil, errors.New("xml_base64 no es base64 válido")
	}
	subtotal, err := parseAmount(in.Subtotal, true)
	if err != nil {
		return nil, errors.New("subtotal inválido")
	}
	total, err := parseAmount(in.Total, true)
	if err != nil {
		return nil, errors.New("total inválido")
	}
	iva, err := parseAmount(in.TaxIVA, false)
	if err != nil {
		return nil, errors.New("tax_iva inválido")
	}
	inc, err := parseAmount(in.TaxINC, false)
	if err != nil {
		return nil, errors.New("tax_inc inválido")
	}
	ica, err := parseAmount(in.TaxICA, false)
	if err != nil {
		return nil, errors.New("tax_ica inválido")
	}
	return &billing.DocumentInput{
		DocType: in.DocType,
		Prefix:  in.Prefix,
		XML:     xmlBytes,
		Params: domaindian.IdentifierParams{
			Number:      in.Number,
			IssueDate:   in.IssueDate,
			IssueTime:   in.IssueTime,
			Subtotal:    subtotal,
			TaxIVA:      iva,
			TaxINC:      inc,
			TaxICA:      ica,
			Total:       total,
			SupplierNIT: supplierNIT,
			CustomerID:  onlyIDDigits(in.CustomerID, in.CustomerIDType),
			Environment: "", // lo fija el pipeline desde la configuración
		},
		CustomerIDType: in.CustomerIDType,
		CustomerFullID: in.CustomerID,
	}, nil
}

func parseAmount(s string, required bool) (decimal.Decimal, error) {
	if s == "" {
		if required {
			return decimal.Zero, errors.New("requerido")
		}
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// onlyIDDigits recorta el DV del NIT para la cadena del identificador: el CUFE
// usa la identificación sin dígito de verificación.
func onlyIDDigits(id, idType string) string {
	if idType != "31" {
		return id
	}
	if i := len(id) - 2; i > 0 && id[i] == '-' {
		return id[:i]
	}
	return id
}

func toSubmissionResponse(sub *entity.Submission) dto.SubmissionResponse {
	return dto.SubmissionResponse{
		ID:                sub.ID,
		DocType:           sub.DocType,
		Prefix:            sub.Prefix,
		Number:            sub.Number,
		UUID:              sub.UUID,
		UUIDScheme:        sub.UUIDScheme,
		IssueDate:         sub.IssueDate.Format("2006-01-02"),
		ZipKey:            sub.ZipKey,
		Status:            sub.Status,
		IsValid:           sub.IsValid,
		StatusCode:        sub.StatusCode,
		StatusDescription: sub.StatusDescription,
		ErrorMessages:     sub.ErrorMessages,
		Total:             sub.Total.StringFixed(2),
		CreatedAt:         sub.CreatedAt,
		UpdatedAt:         sub.UpdatedAt,
	}
}
