package billing

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domaindian "github.com/tu-usuario/dian-fe/internal/domain/dian"
	"github.com/tu-usuario/dian-fe/internal/domain/entity"
	"github.com/tu-usuario/dian-fe/internal/domain/repository"
	"github.com/tu-usuario/dian-fe/internal/infrastructure/dian/soap"
	"github.com/tu-usuario/dian-fe/pkg/config"
	"github.com/tu-usuario/dian-fe/pkg/logger"
)

const ublEntrada = `<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
         xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
         xmlns:ext="urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
         xmlns:sts="dian:gov:co:facturaelectronica:Structures-2-1">
  <ext:UBLExtensions>
    <ext:UBLExtension>
      <ext:ExtensionContent>
        <sts:DianExtensions>
          <sts:SoftwareSecurityCode schemeAgencyID="195"></sts:SoftwareSecurityCode>
        </sts:DianExtensions>
      </ext:ExtensionContent>
    </ext:UBLExtension>
    <ext:UBLExtension>
      <ext:ExtensionContent/>
    </ext:UBLExtension>
  </ext:UBLExtensions>
  <cbc:ProfileExecutionID>2</cbc:ProfileExecutionID>
  <cbc:ID>SETP990000001</cbc:ID>
  <cbc:UUID schemeID="" schemeName=""></cbc:UUID>
</Invoice>`

// ── dobles en memoria ─────────────────────────────────────────────────────────

type fakeSigner struct {
	falla error
}

func (f *fakeSigner) SignBytes(xmlBytes []byte, _ time.Time) ([]byte, error) {
	if f.falla != nil {
		return nil, f.falla
	}
	return append(xmlBytes, []byte("<!--firma-->")...), nil
}

type fakeSubmitter struct {
	upload     *soap.UploadResponse
	uploadErr  error
	status     *soap.StatusResponse
	statusErr  error
	envios     int
	consultas  int
	testSetIDs []string
	prodCalls  int
	lastZip    []byte
	lastName   string
}

func (f *fakeSubmitter) SendBillAsync(_ context.Context, fileName string, zipContent []byte) (*soap.UploadResponse, error) {
	f.envios++
	f.prodCalls++
	f.lastName, f.lastZip = fileName, zipContent
	return f.upload, f.uploadErr
}

func (f *fakeSubmitter) SendBillSync(_ context.Context, fileName string, zipContent []byte) (*soap.StatusResponse, error) {
	return f.status, f.statusErr
}

func (f *fakeSubmitter) SendTestSetAsync(_ context.Context, fileName string, zipContent []byte, testSetID string) (*soap.UploadResponse, error) {
	f.envios++
	f.testSetIDs = append(f.testSetIDs, testSetID)
	f.lastName, f.lastZip = fileName, zipContent
	return f.upload, f.uploadErr
}

func (f *fakeSubmitter) VerifyStatusWithRetry(_ context.Context, trackID string) (*soap.StatusResponse, error) {
	f.consultas++
	return f.status, f.statusErr
}

type memSubmissionRepo struct {
	mu   sync.Mutex
	subs map[string]*entity.Submission
}

func newMemSubmissionRepo() *memSubmissionRepo {
	return &memSubmissionRepo{subs: map[string]*entity.Submission{}}
}

func (m *memSubmissionRepo) Create(_ context.Context, sub *entity.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub.ID == "" {
		sub.ID = sub.Prefix + sub.Number
	}
	if _, ok := m.subs[sub.ID]; ok {
		return errors.New("consecutivo duplicado")
	}
	copia := *sub
	m.subs[sub.ID] = &copia
	return nil
}

func (m *memSubmissionRepo) UpdateStatus(_ context.Context, sub *entity.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[sub.ID]; !ok {
		return errors.New("no existe")
	}
	copia := *sub
	m.subs[sub.ID] = &copia
	return nil
}

func (m *memSubmissionRepo) GetByNumber(_ context.Context, prefix, number string) (*entity.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.Prefix == prefix && s.Number == number {
			copia := *s
			return &copia, nil
		}
	}
	return nil, nil
}

func (m *memSubmissionRepo) GetByZipKey(_ context.Context, zipKey string) (*entity.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.ZipKey == zipKey {
			copia := *s
			return &copia, nil
		}
	}
	return nil, nil
}

func (m *memSubmissionRepo) ListPending(_ context.Context, limit int) ([]*entity.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*entity.Submission
	for _, s := range m.subs {
		if s.Status == entity.SubmissionStatusSent || s.Status == entity.SubmissionStatusPending {
			copia := *s
			list = append(list, &copia)
		}
	}
	return list, nil
}

type memNumberingRepo struct {
	rango *entity.NumberingRange
}

func (m *memNumberingRepo) Create(_ context.Context, rng *entity.NumberingRange) error {
	m.rango = rng
	return nil
}

func (m *memNumberingRepo) GetActiveByPrefix(_ context.Context, prefix string) (*entity.NumberingRange, error) {
	if m.rango == nil || m.rango.Prefix != prefix {
		return nil, nil
	}
	return m.rango, nil
}

func (m *memNumberingRepo) AllocateNextNumber(_ context.Context, prefix string) (int64, error) {
	if m.rango == nil || m.rango.Prefix != prefix {
		return 0, errors.New("sin rango activo")
	}
	if m.rango.CurrentNumber >= m.rango.RangeTo {
		return 0, errors.New("rango agotado")
	}
	m.rango.CurrentNumber++
	return m.rango.CurrentNumber, nil
}

func (m *memNumberingRepo) List(_ context.Context) ([]*entity.NumberingRange, error) {
	if m.rango == nil {
		return nil, nil
	}
	return []*entity.NumberingRange{m.rango}, nil
}

// memTxRunner ejecuta el callback directamente contra los repos en memoria.
type memTxRunner struct {
	subRepo repository.SubmissionRepository
	numRepo repository.NumberingRepository
}

func (m *memTxRunner) Run(ctx context.Context, fn func(
	subRepo repository.SubmissionRepository,
	numRepo repository.NumberingRepository,
) error) error {
	return fn(m.subRepo, m.numRepo)
}

// ── armado ────────────────────────────────────────────────────────────────────

func boolPtr(b bool) *bool { return &b }

func testConfig() config.DIANConfig {
	return config.DIANConfig{
		Environment:  "2",
		TechnicalKey: "693ff6f2a553c3646a063436fd4dd9ded0311471",
		SoftwareID:   "a1b2c3d4-e5f6-7890-abcd-ef1234567890",
		SoftwarePIN:  "10201",
		TestSetID:    "c9e8d7f6-0000-1111-2222-333344445555",
		SupplierNIT:  "900373115",
	}
}

func testInput() *DocumentInput {
	return &DocumentInput{
		DocType: "01",
		Prefix:  "SETP",
		XML:     []byte(ublEntrada),
		Params: domaindian.IdentifierParams{
			Number:      "SETP990000001",
			IssueDate:   "2026-01-18",
			IssueTime:   "10:30:00-05:00",
			Subtotal:    decimal.NewFromInt(100000),
			TaxIVA:      decimal.NewFromInt(19000),
			TaxINC:      decimal.Zero,
			TaxICA:      decimal.Zero,
			Total:       decimal.NewFromInt(119000),
			SupplierNIT: "900373115",
			CustomerID:  "8355990",
			Environment: "2",
		},
		CustomerIDType: "13",
		CustomerFullID: "8355990",
	}
}

func newTestPipeline(sub *fakeSubmitter) (*Pipeline, *memSubmissionRepo, *memNumberingRepo) {
	subRepo := newMemSubmissionRepo()
	numRepo := &memNumberingRepo{}
	tx := &memTxRunner{subRepo: subRepo, numRepo: numRepo}
	log := logger.New(logger.Config{Env: "production", Level: "error"})
	p := NewPipeline(&fakeSigner{}, sub, tx, subRepo, numRepo, testConfig(), log)
	return p, subRepo, numRepo
}

func respuestaAceptada() *soap.StatusResponse {
	return &soap.StatusResponse{
		IsValid:           boolPtr(true),
		StatusCode:        "00",
		StatusDescription: "Procesado Correctamente",
	}
}

// ── tests ─────────────────────────────────────────────────────────────────────

func TestProcess_DocumentoAceptado(t *testing.T) {
	submitter := &fakeSubmitter{
		upload: &soap.UploadResponse{ZipKey: "d9fb6eb1-21ac-4a34-90c0-9e0b1f2d8f55"},
		status: respuestaAceptada(),
	}
	p, repo, _ := newTestPipeline(submitter)

	result, err := p.Process(context.Background(), testInput())
	require.NoError(t, err, "un documento aceptado no debe devolver error")
	require.NotNil(t, result.Submission)

	sub := result.Submission
	assert.Equal(t, entity.SubmissionStatusAccepted, sub.Status)
	assert.Equal(t, "d9fb6eb1-21ac-4a34-90c0-9e0b1f2d8f55", sub.ZipKey)
	assert.Equal(t, "CUFE-SHA384", sub.UUIDScheme)
	assert.Len(t, sub.UUID, 96, "el CUFE debe tener 96 hex")
	assert.Equal(t, "00", result.Status.StatusCode)
	assert.Contains(t, result.QRData, sub.UUID, "el payload QR lleva el CUFE")

	// En habilitación se radica con SendTestSetAsync y el TestSetId configurado.
	require.Len(t, submitter.testSetIDs, 1)
	assert.Equal(t, testConfig().TestSetID, submitter.testSetIDs[0])
	assert.Zero(t, submitter.prodCalls, "en habilitación no se usa SendBillAsync")

	// El registro persistido refleja el veredicto.
	guardado, err := repo.GetByNumber(context.Background(), "SETP", "SETP990000001")
	require.NoError(t, err)
	require.NotNil(t, guardado)
	assert.Equal(t, entity.SubmissionStatusAccepted, guardado.Status)
	require.NotNil(t, guardado.IsValid)
	assert.True(t, *guardado.IsValid)
}

func TestProcess_NombresYContenidoDelZip(t *testing.T) {
	submitter := &fakeSubmitter{
		upload: &soap.UploadResponse{ZipKey: "zk-1"},
		status: respuestaAceptada(),
	}
	p, _, _ := newTestPipeline(submitter)

	result, err := p.Process(context.Background(), testInput())
	require.NoError(t, err)

	assert.Equal(t, "900373115SETP990000001.zip", submitter.lastName)

	zr, err := zip.NewReader(bytes.NewReader(submitter.lastZip), int64(len(submitter.lastZip)))
	require.NoError(t, err, "lo radicado debe ser un ZIP válido")
	require.Len(t, zr.File, 1)
	assert.Equal(t, "900373115SETP990000001.xml", zr.File[0].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(rc)
	require.NoError(t, err)

	firmado := buf.String()
	assert.Contains(t, firmado, "<!--firma-->", "el ZIP debe llevar el XML firmado")
	assert.Contains(t, firmado, result.Submission.UUID, "el CUFE debe quedar fijado en el cbc:UUID")
	assert.Contains(t, firmado, `schemeName="CUFE-SHA384"`)
	assert.Equal(t, firmado, string(result.SignedXML))
}

func TestProcess_DocumentoRechazado(t *testing.T) {
	submitter := &fakeSubmitter{
		upload: &soap.UploadResponse{ZipKey: "zk-2"},
		status: &soap.StatusResponse{
			IsValid:           boolPtr(false),
			StatusCode:        "99",
			StatusDescription: "Validación contiene errores en campos mandatorios",
			ErrorMessages:     []string{"Regla: FAJ44, Rechazo: CUFE no coincide"},
		},
	}
	p, repo, _ := newTestPipeline(submitter)

	result, err := p.Process(context.Background(), testInput())
	require.Error(t, err, "un rechazo definitivo sí es un error")

	var dianErr *domaindian.DianError
	require.ErrorAs(t, err, &dianErr)
	assert.Equal(t, "99", dianErr.StatusCode)
	assert.Contains(t, dianErr.Messages[0], "FAJ44")

	require.NotNil(t, result, "el rechazo también devuelve el registro")
	guardado, gerr := repo.GetByNumber(context.Background(), "SETP", "SETP990000001")
	require.NoError(t, gerr)
	assert.Equal(t, entity.SubmissionStatusRejected, guardado.Status)
	assert.Equal(t, submitter.status.ErrorMessages, guardado.ErrorMessages)
}

func TestProcess_SinVeredictoQuedaPendiente(t *testing.T) {
	submitter := &fakeSubmitter{
		upload: &soap.UploadResponse{ZipKey: "zk-3"},
		status: &soap.StatusResponse{StatusCode: "98", StatusDescription: "En proceso de validación"},
	}
	p, repo, _ := newTestPipeline(submitter)

	_, err := p.Process(context.Background(), testInput())
	require.NoError(t, err, "quedar en cola de la DIAN no es un error")

	guardado, err := repo.GetByNumber(context.Background(), "SETP", "SETP990000001")
	require.NoError(t, err)
	assert.Equal(t, entity.SubmissionStatusPending, guardado.Status)
	assert.Nil(t, guardado.IsValid)
	assert.Equal(t, "98", guardado.StatusCode)
}

func TestProcess_AsignaConsecutivoDelRango(t *testing.T) {
	submitter := &fakeSubmitter{
		upload: &soap.UploadResponse{ZipKey: "zk-4"},
		status: respuestaAceptada(),
	}
	p, _, numRepo := newTestPipeline(submitter)
	numRepo.rango = &entity.NumberingRange{
		Prefix:        "SETP",
		TechnicalKey:  "693ff6f2a553c3646a063436fd4dd9ded0311471",
		RangeFrom:     990000000,
		RangeTo:       995000000,
		CurrentNumber: 990000041,
		IsActive:      true,
	}

	input := testInput()
	input.Params.Number = "" // el pipeline debe asignarlo

	result, err := p.Process(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, "SETP990000042", result.Submission.Number)
	assert.Contains(t, string(result.SignedXML), "<cbc:ID>SETP990000042</cbc:ID>",
		"el consecutivo asignado debe quedar en el cbc:ID")
	assert.EqualValues(t, 990000042, numRepo.rango.CurrentNumber)
}

func TestProcess_SinRangoActivoFalla(t *testing.T) {
	submitter := &fakeSubmitter{}
	p, _, _ := newTestPipeline(submitter)

	input := testInput()
	input.Params.Number = ""

	_, err := p.Process(context.Background(), input)
	require.Error(t, err)
	assert.ErrorIs(t, err, domaindian.ErrValidation)
	assert.Zero(t, submitter.envios, "sin consecutivo no se radica nada")
}

func TestProcess_FalloDeRadicacionDejaElRegistroSent(t *testing.T) {
	submitter := &fakeSubmitter{uploadErr: domaindian.ErrNetwork}
	p, repo, _ := newTestPipeline(submitter)

	result, err := p.Process(context.Background(), testInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, domaindian.ErrNetwork)
	require.NotNil(t, result)

	guardado, gerr := repo.GetByNumber(context.Background(), "SETP", "SETP990000001")
	require.NoError(t, gerr)
	assert.Equal(t, entity.SubmissionStatusSent, guardado.Status,
		"el registro queda SENT para reintentar luego")
	assert.Empty(t, guardado.ZipKey)
}

func TestProcess_ValidacionPreviaBloquea(t *testing.T) {
	submitter := &fakeSubmitter{}
	p, _, _ := newTestPipeline(submitter)

	input := testInput()
	input.Params.Total = decimal.NewFromInt(999) // no cuadra con subtotal + impuestos

	_, err := p.Process(context.Background(), input)
	require.Error(t, err)
	assert.ErrorIs(t, err, domaindian.ErrValidation)
	assert.Zero(t, submitter.envios)
}

func TestRefreshPending_ResuelveEnviosPendientes(t *testing.T) {
	submitter := &fakeSubmitter{status: respuestaAceptada()}
	p, repo, _ := newTestPipeline(submitter)

	require.NoError(t, repo.Create(context.Background(), &entity.Submission{
		ID: "s1", DocType: "01", Prefix: "SETP", Number: "SETP990000007",
		Status: entity.SubmissionStatusPending, ZipKey: "zk-7",
	}))
	require.NoError(t, repo.Create(context.Background(), &entity.Submission{
		ID: "s2", DocType: "01", Prefix: "SETP", Number: "SETP990000008",
		Status: entity.SubmissionStatusSent, // sin ZipKey: no hay nada que consultar
	}))

	resolved, err := p.RefreshPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
	assert.Equal(t, 1, submitter.consultas, "solo se consulta el envío con TrackID")

	guardado, err := repo.GetByNumber(context.Background(), "SETP", "SETP990000007")
	require.NoError(t, err)
	assert.Equal(t, entity.SubmissionStatusAccepted, guardado.Status)
}
