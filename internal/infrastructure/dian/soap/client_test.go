package soap_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domaindian "github.com/tu-usuario/dian-fe/internal/domain/dian"
	"github.com/tu-usuario/dian-fe/internal/infrastructure/dian/soap"
	"github.com/tu-usuario/dian-fe/pkg/logger"
)

const respUpload = `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body>` +
	`<SendTestSetAsyncResponse xmlns="http://wcf.dian.colombia">` +
	`<SendTestSetAsyncResult xmlns:b="http://schemas.datacontract.org/2004/07/UploadDocumentResponse">` +
	`<b:ErrorMessageList/>` +
	`<b:ZipKey>d9fb6eb1-1405-4622-862e-1976d313e103</b:ZipKey>` +
	`</SendTestSetAsyncResult></SendTestSetAsyncResponse></s:Body></s:Envelope>`

const respPending = `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body>` +
	`<GetStatusZipResponse xmlns="http://wcf.dian.colombia">` +
	`<GetStatusZipResult xmlns:b="http://schemas.datacontract.org/2004/07/DianResponse">` +
	`<b:StatusCode>98</b:StatusCode>` +
	`<b:StatusDescription>Procesamiento en curso</b:StatusDescription>` +
	`</GetStatusZipResult></GetStatusZipResponse></s:Body></s:Envelope>`

const respAccepted = `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body>` +
	`<GetStatusZipResponse xmlns="http://wcf.dian.colombia">` +
	`<GetStatusZipResult xmlns:b="http://schemas.datacontract.org/2004/07/DianResponse">` +
	`<b:IsValid>true</b:IsValid>` +
	`<b:StatusCode>00</b:StatusCode>` +
	`<b:StatusDescription>Procesado Correctamente</b:StatusDescription>` +
	`<b:StatusMessage>La Factura electrónica ha sido autorizada</b:StatusMessage>` +
	`</GetStatusZipResult></GetStatusZipResponse></s:Body></s:Envelope>`

const respRejected = `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body>` +
	`<GetStatusZipResponse xmlns="http://wcf.dian.colombia">` +
	`<GetStatusZipResult xmlns:b="http://schemas.datacontract.org/2004/07/DianResponse">` +
	`<b:IsValid>false</b:IsValid>` +
	`<b:StatusCode>99</b:StatusCode>` +
	`<b:StatusDescription>Validaciones contienen errores</b:StatusDescription>` +
	`<b:ErrorMessage xmlns:c="http://schemas.microsoft.com/2003/10/Serialization/Arrays">` +
	`<c:string>Regla: FAJ44, Rechazo: CUFE no coincide</c:string>` +
	`<c:string>Regla: ZE02, Rechazo: fecha fuera de rango</c:string>` +
	`</b:ErrorMessage>` +
	`</GetStatusZipResult></GetStatusZipResponse></s:Body></s:Envelope>`

// respAcceptedNSWcf usa el namespace del servicio en vez del contrato de datos.
const respAcceptedNSWcf = `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body>` +
	`<GetStatusZipResponse xmlns="http://wcf.dian.colombia">` +
	`<GetStatusZipResult>` +
	`<IsValid xmlns="http://wcf.dian.colombia">true</IsValid>` +
	`<StatusCode xmlns="http://wcf.dian.colombia">00</StatusCode>` +
	`</GetStatusZipResult></GetStatusZipResponse></s:Body></s:Envelope>`

const respFault = `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body>` +
	`<s:Fault><s:Code><s:Value>s:Sender</s:Value></s:Code>` +
	`<s:Reason><s:Text xml:lang="es">Fallo en la validación del token de seguridad</s:Text></s:Reason>` +
	`</s:Fault></s:Body></s:Envelope>`

func noSleep(context.Context, time.Duration) error { return nil }

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Env: "production", Level: "error"})
}

// newTestClient levanta un servidor con respuestas en secuencia y devuelve el
// cliente apuntando a él más el contador de peticiones recibidas.
func newTestClient(t *testing.T, responses ...string) (*soap.Client, *int) {
	t.Helper()
	count := new(int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idx := *count
		*count++
		if idx >= len(responses) {
			idx = len(responses) - 1
		}
		w.Header().Set("Content-Type", contentTypeSOAP)
		_, _ = io.WriteString(w, responses[idx])
	}))
	t.Cleanup(srv.Close)

	c := soap.NewClient("2", newTestMaterial(t), testLogger(),
		soap.WithEndpoint(srv.URL),
		soap.WithRetryPolicy(3, time.Millisecond),
		soap.WithSleep(noSleep),
	)
	return c, count
}

const contentTypeSOAP = "application/soap+xml;charset=UTF-8"

func TestSendTestSetAsync(t *testing.T) {
	var gotContentType, gotAction, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotAction = r.Header.Get("SOAPAction")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		_, _ = io.WriteString(w, respUpload)
	}))
	t.Cleanup(srv.Close)

	c := soap.NewClient("2", newTestMaterial(t), testLogger(), soap.WithEndpoint(srv.URL))
	resp, err := c.SendTestSetAsync(context.Background(), "ws900373115000SETP990000001.zip",
		[]byte("zip de prueba"), "a1b2c3d4-testset")
	require.NoError(t, err)

	assert.Equal(t, "d9fb6eb1-1405-4622-862e-1976d313e103", resp.ZipKey)
	assert.Empty(t, resp.ErrorMessages)

	assert.Equal(t, contentTypeSOAP, gotContentType)
	assert.Equal(t, "http://wcf.dian.colombia/IWcfDianCustomerServices/SendTestSetAsync", gotAction)
	// El sobre va firmado y lleva la operación completa.
	assert.Contains(t, gotBody, "BinarySecurityToken")
	assert.Contains(t, gotBody, "SignatureValue")
	assert.Contains(t, gotBody, "ws900373115000SETP990000001.zip")
	assert.Contains(t, gotBody, "a1b2c3d4-testset")
}

func TestGetStatusZip_Veredictos(t *testing.T) {
	t.Run("en proceso", func(t *testing.T) {
		c, _ := newTestClient(t, respPending)
		st, err := c.GetStatusZip(context.Background(), "zk")
		require.NoError(t, err)
		assert.True(t, st.Pending(), "sin IsValid el documento sigue en proceso")
		assert.Nil(t, st.IsValid)
		assert.Equal(t, "98", st.StatusCode)
	})

	t.Run("aceptado", func(t *testing.T) {
		c, _ := newTestClient(t, respAccepted)
		st, err := c.GetStatusZip(context.Background(), "zk")
		require.NoError(t, err)
		assert.True(t, st.Accepted())
		assert.Equal(t, "00", st.StatusCode)
		assert.Equal(t, "La Factura electrónica ha sido autorizada", st.StatusMessage)
		assert.NoError(t, st.RejectionError())
	})

	t.Run("rechazado", func(t *testing.T) {
		c, _ := newTestClient(t, respRejected)
		st, err := c.GetStatusZip(context.Background(), "zk")
		require.NoError(t, err, "un rechazo de negocio no es error de transporte")
		assert.True(t, st.Rejected())

		rejErr := st.RejectionError()
		require.Error(t, rejErr)
		var dianErr *domaindian.DianError
		require.ErrorAs(t, rejErr, &dianErr)
		assert.Equal(t, "99", dianErr.StatusCode)
		require.Len(t, dianErr.Messages, 2)
		assert.Contains(t, dianErr.Messages[0], "FAJ44")
	})

	t.Run("namespace alterno", func(t *testing.T) {
		c, _ := newTestClient(t, respAcceptedNSWcf)
		st, err := c.GetStatusZip(context.Background(), "zk")
		require.NoError(t, err)
		assert.True(t, st.Accepted(), "el parseo debe aceptar ambos namespaces de respuesta")
		assert.Equal(t, "00", st.StatusCode)
	})
}

func TestVerifyStatusWithRetry_SinVeredicto(t *testing.T) {
	c, count := newTestClient(t, respPending)

	st, err := c.VerifyStatusWithRetry(context.Background(), "zk")
	require.NoError(t, err, "agotar los reintentos sin veredicto no es un error")
	assert.True(t, st.Pending())
	assert.Equal(t, 3, *count, "debe consultar exactamente los reintentos configurados")
}

func TestVerifyStatusWithRetry_VeredictoIntermedio(t *testing.T) {
	c, count := newTestClient(t, respPending, respAccepted)

	st, err := c.VerifyStatusWithRetry(context.Background(), "zk")
	require.NoError(t, err)
	assert.True(t, st.Accepted())
	assert.Equal(t, 2, *count, "debe detenerse en cuanto hay veredicto")
}

func TestVerifyStatusWithRetry_RechazoNoReintenta(t *testing.T) {
	c, count := newTestClient(t, respRejected)

	st, err := c.VerifyStatusWithRetry(context.Background(), "zk")
	require.NoError(t, err)
	assert.True(t, st.Rejected())
	assert.Equal(t, 1, *count)
}

func TestCall_SOAPFault(t *testing.T) {
	c, _ := newTestClient(t, respFault)

	_, err := c.GetStatusZip(context.Background(), "zk")
	require.Error(t, err)
	assert.ErrorIs(t, err, domaindian.ErrNetwork)
	assert.Contains(t, err.Error(), "token de seguridad")
}

func TestVerifyStatusWithRetry_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Con el sleep real un contexto cancelado corta la espera inicial.
	c := soap.NewClient("2", newTestMaterial(t), testLogger(),
		soap.WithRetryPolicy(3, time.Hour))
	_, err := c.VerifyStatusWithRetry(ctx, "zk")
	require.Error(t, err)
	assert.ErrorIs(t, err, domaindian.ErrTimeout)
}
