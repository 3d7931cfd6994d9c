package sri_test

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsri "github.com/josfe/facturacion-sri/internal/application/sri"
	infra "github.com/josfe/facturacion-sri/internal/infrastructure/sri"
	"github.com/josfe/facturacion-sri/pkg/config"
	"github.com/josfe/facturacion-sri/pkg/logger"
)

const envRecibida = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
<soap:Body>
<ns2:validarComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.recepcion">
<RespuestaRecepcionComprobante>
<estado>RECIBIDA</estado>
<comprobantes/>
</RespuestaRecepcionComprobante>
</ns2:validarComprobanteResponse>
</soap:Body>
</soap:Envelope>`

const envDevueltaClaveRegistrada = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
<soap:Body>
<ns2:validarComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.recepcion">
<RespuestaRecepcionComprobante>
<estado>DEVUELTA</estado>
<comprobantes>
<comprobante>
<claveAcceso>0601201601176001321000110011230000000081234567817</claveAcceso>
<mensajes>
<mensaje>
<identificador>43</identificador>
<mensaje>CLAVE ACCESO REGISTRADA</mensaje>
<informacionAdicional>La clave ya fue recibida anteriormente</informacionAdicional>
<tipo>ERROR</tipo>
</mensaje>
</mensajes>
</comprobante>
</comprobantes>
</RespuestaRecepcionComprobante>
</ns2:validarComprobanteResponse>
</soap:Body>
</soap:Envelope>`

const envAutorizado = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
<soap:Body>
<ns2:autorizacionComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.autorizacion">
<RespuestaAutorizacionComprobante>
<claveAccesoConsultada>0601201601176001321000110011230000000081234567817</claveAccesoConsultada>
<numeroComprobantes>1</numeroComprobantes>
<autorizaciones>
<autorizacion>
<estado>AUTORIZADO</estado>
<numeroAutorizacion>0601201601176001321000110011230000000081234567817</numeroAutorizacion>
<fechaAutorizacion>2025-01-10T12:30:45-05:00</fechaAutorizacion>
<ambiente>PRUEBAS</ambiente>
<comprobante>&lt;factura id="comprobante"&gt;&lt;/factura&gt;</comprobante>
<mensajes/>
</autorizacion>
</autorizaciones>
</RespuestaAutorizacionComprobante>
</ns2:autorizacionComprobanteResponse>
</soap:Body>
</soap:Envelope>`

const envNoAutorizado = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
<soap:Body>
<ns2:autorizacionComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.autorizacion">
<RespuestaAutorizacionComprobante>
<autorizaciones>
<autorizacion>
<estado>NO AUTORIZADO</estado>
<mensajes>
<mensaje>
<identificador>56</identificador>
<mensaje>ERROR SECUENCIAL REGISTRADO</mensaje>
<tipo>ERROR</tipo>
</mensaje>
</mensajes>
</autorizacion>
</autorizaciones>
</RespuestaAutorizacionComprobante>
</ns2:autorizacionComprobanteResponse>
</soap:Body>
</soap:Envelope>`

const envSinAutorizaciones = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
<soap:Body>
<ns2:autorizacionComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.autorizacion">
<RespuestaAutorizacionComprobante>
<autorizaciones/>
</RespuestaAutorizacionComprobante>
</ns2:autorizacionComprobanteResponse>
</soap:Body>
</soap:Envelope>`

const envFault = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
<soap:Body>
<soap:Fault>
<faultcode>soap:Server</faultcode>
<faultstring>Servicio temporalmente fuera de línea</faultstring>
</soap:Fault>
</soap:Body>
</soap:Envelope>`

// xmlServer levanta un WS falso que responde body fijo y captura la petición.
func xmlServer(t *testing.T, status int, body string, captured *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if captured != nil {
			*captured = string(raw)
		}
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(cfg config.SRIConfig) *infra.SOAPClient {
	return infra.NewSOAPClient(cfg, logger.Nop())
}

func TestSubmit_RecibidaConPayloadBase64(t *testing.T) {
	var captured string
	srv := xmlServer(t, http.StatusOK, envRecibida, &captured)
	c := newClient(config.SRIConfig{RecepcionURLPruebas: srv.URL})

	comprobante := []byte(`<factura id="comprobante"><infoTributaria><ambiente>1</ambiente></infoTributaria></factura>`)
	res, err := c.Submit(context.Background(), comprobante, "1")
	require.NoError(t, err)
	assert.Equal(t, appsri.EstadoRecibida, res.Estado)
	assert.Empty(t, res.Mensajes)
	assert.Empty(t, res.Wrapper)

	b64 := base64.StdEncoding.EncodeToString(comprobante)
	assert.Contains(t, captured, "validarComprobante")
	assert.Contains(t, captured, b64, "el comprobante viaja en Base64")
}

func TestSubmit_DevueltaConClaveRegistrada(t *testing.T) {
	srv := xmlServer(t, http.StatusOK, envDevueltaClaveRegistrada, nil)
	c := newClient(config.SRIConfig{RecepcionURLPruebas: srv.URL})

	res, err := c.Submit(context.Background(), []byte(`<factura/>`), "1")
	require.NoError(t, err)
	assert.Equal(t, appsri.EstadoDevuelta, res.Estado)
	require.Len(t, res.Mensajes, 1)
	assert.Equal(t, "43", res.Mensajes[0].Identificador)
	assert.True(t, res.ClaveYaRegistrada())

	assert.Contains(t, res.Wrapper, "<respuestaRecepcion>")
	assert.Contains(t, res.Wrapper, "CLAVE ACCESO REGISTRADA")
}

func TestSubmit_FaultEsErrorDeTransporte(t *testing.T) {
	srv := xmlServer(t, http.StatusInternalServerError, envFault, nil)
	c := newClient(config.SRIConfig{RecepcionURLPruebas: srv.URL})

	_, err := c.Submit(context.Background(), []byte(`<factura/>`), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fuera de línea")
}

func TestSubmit_HusmeaElAmbienteDelPayload(t *testing.T) {
	var pruebasHit, prodHit bool
	pruebas := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pruebasHit = true
		_, _ = w.Write([]byte(envRecibida))
	}))
	t.Cleanup(pruebas.Close)
	prod := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prodHit = true
		_, _ = w.Write([]byte(envRecibida))
	}))
	t.Cleanup(prod.Close)

	c := newClient(config.SRIConfig{
		RecepcionURLPruebas:    pruebas.URL,
		RecepcionURLProduccion: prod.URL,
	})

	// Sin ambiente explícito: el <ambiente> del payload decide.
	_, err := c.Submit(context.Background(),
		[]byte(`<factura><infoTributaria><ambiente>1</ambiente></infoTributaria></factura>`), "")
	require.NoError(t, err)
	assert.True(t, pruebasHit)
	assert.False(t, prodHit)

	pruebasHit, prodHit = false, false
	_, err = c.Submit(context.Background(),
		[]byte(`<factura><infoTributaria><ambiente>2</ambiente></infoTributaria></factura>`), "")
	require.NoError(t, err)
	assert.True(t, prodHit)
	assert.False(t, pruebasHit)
}

func TestQueryAuthorization_Autorizado(t *testing.T) {
	var captured string
	srv := xmlServer(t, http.StatusOK, envAutorizado, &captured)
	c := newClient(config.SRIConfig{AutorizacionURLPruebas: srv.URL})

	clave := strings.Repeat("1", 49)
	res, err := c.QueryAuthorization(context.Background(), clave, "1")
	require.NoError(t, err)

	assert.Equal(t, appsri.EstadoAutorizado, res.Estado)
	assert.NotEmpty(t, res.NumeroAutorizacion)
	require.NotNil(t, res.FechaAutorizacion)
	assert.Equal(t, 2025, res.FechaAutorizacion.Year())

	assert.Contains(t, captured, "autorizacionComprobante")
	assert.Contains(t, captured, clave)

	// El comprobante original viaja embebido en CDATA dentro del wrapper.
	assert.Contains(t, res.XMLAutorizado, "<autorizacion>")
	assert.Contains(t, res.XMLAutorizado, "CDATA")
	assert.Contains(t, res.XMLAutorizado, `<factura id="comprobante">`)
}

func TestQueryAuthorization_NoAutorizadoConMensajes(t *testing.T) {
	srv := xmlServer(t, http.StatusOK, envNoAutorizado, nil)
	c := newClient(config.SRIConfig{AutorizacionURLPruebas: srv.URL})

	res, err := c.QueryAuthorization(context.Background(), strings.Repeat("1", 49), "1")
	require.NoError(t, err)

	assert.Equal(t, appsri.EstadoNoAutorizado, res.Estado)
	assert.Empty(t, res.XMLAutorizado, "un rechazo no produce XML autorizado")
	require.Len(t, res.Mensajes, 1)
	assert.Equal(t, "56", res.Mensajes[0].Identificador)
	assert.Contains(t, res.Wrapper, "ERROR SECUENCIAL REGISTRADO")
}

func TestQueryAuthorization_SinItemsEsProcesando(t *testing.T) {
	srv := xmlServer(t, http.StatusOK, envSinAutorizaciones, nil)
	c := newClient(config.SRIConfig{AutorizacionURLPruebas: srv.URL})

	res, err := c.QueryAuthorization(context.Background(), strings.Repeat("1", 49), "1")
	require.NoError(t, err)
	assert.Equal(t, appsri.EstadoPPR, res.Estado)
}

func TestQueryAuthorization_RespuestaIlegibleEsError(t *testing.T) {
	srv := xmlServer(t, http.StatusOK, "no soy xml <<<", nil)
	c := newClient(config.SRIConfig{AutorizacionURLPruebas: srv.URL})

	_, err := c.QueryAuthorization(context.Background(), strings.Repeat("1", 49), "1")
	assert.Error(t, err)
}
