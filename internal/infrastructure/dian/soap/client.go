// Cliente de WcfDianCustomerServices. Usa net/http de la stdlib; el WS DIAN
// puede tardar varios segundos en responder, de ahí el timeout generoso.

package soap

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beevik/etree"

	domaindian "github.com/tu-usuario/dian-fe/internal/domain/dian"
	"github.com/tu-usuario/dian-fe/internal/infrastructure/dian/signer"
	"github.com/tu-usuario/dian-fe/pkg/dian"
	"github.com/tu-usuario/dian-fe/pkg/logger"
)

// maxResponseSize limita la lectura de respuestas; GetStatusZip devuelve el
// AttachedDocument completo en base64.
const maxResponseSize = 16 << 20

// Client habla con los servicios web DIAN firmando cada sobre con WS-Security.
type Client struct {
	endpoint   string
	httpClient *http.Client
	builder    *EnvelopeBuilder
	log        *logger.Logger

	// política del ciclo de verificación tras radicar
	statusRetries int
	statusWait    time.Duration
	sleep         func(ctx context.Context, d time.Duration) error
}

// Option configura el cliente.
type Option func(*Client)

// WithHTTPClient reemplaza el cliente HTTP (pruebas, proxies corporativos).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithEndpoint apunta a una URL distinta de las oficiales (pruebas).
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithRetryPolicy ajusta el ciclo de verificación de estado.
func WithRetryPolicy(retries int, wait time.Duration) Option {
	return func(c *Client) {
		c.statusRetries = retries
		c.statusWait = wait
	}
}

// WithSleep reemplaza la espera entre consultas (pruebas).
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// NewClient crea el cliente para el ambiente indicado ("1" producción,
// "2" habilitación) con el material de firma del emisor.
func NewClient(environment string, mat *signer.KeyMaterial, log *logger.Logger, opts ...Option) *Client {
	endpoint := EndpointHabilitacion
	if environment == dian.EnvironmentProduccion {
		endpoint = EndpointProduccion
	}
	c := &Client{
		endpoint:      endpoint,
		httpClient:    &http.Client{Timeout: 60 * time.Second},
		builder:       NewEnvelopeBuilder(mat),
		log:           log.Component("soap"),
		statusRetries: 3,
		statusWait:    10 * time.Second,
		sleep:         sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ── Operaciones ───────────────────────────────────────────────────────────────

// SendBillAsync radica el ZIP en producción; el resultado se consulta después
// con el ZipKey devuelto.
func (c *Client) SendBillAsync(ctx context.Context, fileName string, zipContent []byte) (*UploadResponse, error) {
	body := operationBody("SendBillAsync",
		field{"fileName", fileName},
		field{"contentFile", base64.StdEncoding.EncodeToString(zipContent)},
	)
	raw, err := c.call(ctx, "SendBillAsync", body)
	if err != nil {
		return nil, err
	}
	return parseUploadResponse(raw)
}

// SendBillSync radica y espera el veredicto en la misma llamada.
func (c *Client) SendBillSync(ctx context.Context, fileName string, zipContent []byte) (*StatusResponse, error) {
	body := operationBody("SendBillSync",
		field{"fileName", fileName},
		field{"contentFile", base64.StdEncoding.EncodeToString(zipContent)},
	)
	raw, err := c.call(ctx, "SendBillSync", body)
	if err != nil {
		return nil, err
	}
	return parseStatusResponse(raw)
}

// SendTestSetAsync radica contra el set de pruebas de habilitación.
func (c *Client) SendTestSetAsync(ctx context.Context, fileName string, zipContent []byte, testSetID string) (*UploadResponse, error) {
	body := operationBody("SendTestSetAsync",
		field{"fileName", fileName},
		field{"contentFile", base64.StdEncoding.EncodeToString(zipContent)},
		field{"testSetId", testSetID},
	)
	raw, err := c.call(ctx, "SendTestSetAsync", body)
	if err != nil {
		return nil, err
	}
	return parseUploadResponse(raw)
}

// GetStatus consulta el estado de un documento por su CUFE/CUDE.
func (c *Client) GetStatus(ctx context.Context, trackID string) (*StatusResponse, error) {
	raw, err := c.call(ctx, "GetStatus", operationBody("GetStatus", field{"trackId", trackID}))
	if err != nil {
		return nil, err
	}
	return parseStatusResponse(raw)
}

// GetStatusZip consulta el resultado de un envío asíncrono por su ZipKey.
func (c *Client) GetStatusZip(ctx context.Context, trackID string) (*StatusResponse, error) {
	raw, err := c.call(ctx, "GetStatusZip", operationBody("GetStatusZip", field{"trackId", trackID}))
	if err != nil {
		return nil, err
	}
	return parseStatusResponse(raw)
}

// VerifyStatusWithRetry consulta el estado hasta statusRetries veces, esperando
// statusWait antes de cada consulta (la DIAN tarda en procesar el ZIP recién
// radicado). Si agota los intentos sin veredicto devuelve la última respuesta
// con IsValid nil: "en proceso" es un estado del documento, no un error.
func (c *Client) VerifyStatusWithRetry(ctx context.Context, trackID string) (*StatusResponse, error) {
	var last *StatusResponse
	var lastErr error
	for attempt := 1; attempt <= c.statusRetries; attempt++ {
		if err := c.sleep(ctx, c.statusWait); err != nil {
			if last != nil {
				return last, nil
			}
			return nil, fmt.Errorf("%w: verificación cancelada: %v", domaindian.ErrTimeout, err)
		}
		st, err := c.GetStatusZip(ctx, trackID)
		if err != nil {
			c.log.Warn().Err(err).Str("track_id", trackID).Int("intento", attempt).
				Msg("consulta de estado fallida")
			lastErr = err
			continue
		}
		last = st
		if !st.Pending() {
			return st, nil
		}
		c.log.Info().Str("track_id", trackID).Int("intento", attempt).
			Msg("documento aún en proceso")
	}
	if last == nil {
		return nil, lastErr
	}
	return last, nil
}

// ── Transporte ────────────────────────────────────────────────────────────────

type field struct {
	name  string
	value string
}

func operationBody(op string, fields ...field) *etree.Element {
	el := etree.NewElement("wcf:" + op)
	for _, f := range fields {
		el.CreateElement("wcf:" + f.name).SetText(f.value)
	}
	return el
}

func (c *Client) call(ctx context.Context, op string, body *etree.Element) ([]byte, error) {
	action := actionBase + op
	payload, err := c.builder.Build(action, c.endpoint, body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: crear request: %v", domaindian.ErrNetwork, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("SOAPAction", action)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || (ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
			return nil, fmt.Errorf("%w: %s: %v", domaindian.ErrTimeout, op, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", domaindian.ErrNetwork, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: leer respuesta de %s: %v", domaindian.ErrNetwork, op, err)
	}

	c.log.Debug().Str("operacion", op).Int("http_status", resp.StatusCode).
		Dur("duracion", time.Since(start)).Msg("llamada al WS DIAN")

	// El WS responde los faults con 500; el cuerpo se parsea igual y el
	// fault sale como error desde parseEnvelope.
	return raw, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
