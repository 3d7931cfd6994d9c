// Cliente SOAP de los WS del SRI: Recepción (validarComprobante) y
// Autorización (autorizacionComprobante), con endpoints por ambiente.

package sri

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"

	appsri "github.com/josfe/facturacion-sri/internal/application/sri"
	"github.com/josfe/facturacion-sri/pkg/config"
	"github.com/josfe/facturacion-sri/pkg/logger"
	pkgsri "github.com/josfe/facturacion-sri/pkg/sri"
)

// Endpoints oficiales del SRI (offline). La configuración puede sustituirlos.
const (
	recepcionURLPruebas       = "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline"
	recepcionURLProduccion    = "https://cel.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline"
	autorizacionURLPruebas    = "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline"
	autorizacionURLProduccion = "https://cel.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline"

	nsSOAPEnv      = "http://schemas.xmlsoap.org/soap/envelope/"
	nsRecepcion    = "http://ec.gob.sri.ws.recepcion"
	nsAutorizacion = "http://ec.gob.sri.ws.autorizacion"
)

// SOAPClient implementa el puerto Transmitter sobre net/http.
type SOAPClient struct {
	httpClient *http.Client
	cfg        config.SRIConfig
	log        *logger.Logger
}

// NewSOAPClient construye el cliente con el timeout configurado (el SRI puede
// tardar varios segundos en responder).
func NewSOAPClient(cfg config.SRIConfig, log *logger.Logger) *SOAPClient {
	timeout := cfg.SOAPTimeout
	if timeout <= 0 {
		timeout = 40 * time.Second
	}
	return &SOAPClient{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		log:        log,
	}
}

var _ appsri.Transmitter = (*SOAPClient)(nil)

// ── Envelopes de petición ─────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName xml.Name    `xml:"soapenv:Envelope"`
	XmlnsS  string      `xml:"xmlns:soapenv,attr"`
	XmlnsEC string      `xml:"xmlns:ec,attr"`
	Body    soapReqBody `xml:"soapenv:Body"`
}

type soapReqBody struct {
	Content interface{}
}

func (b soapReqBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "soapenv:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

type validarComprobanteReq struct {
	XMLName xml.Name `xml:"ec:validarComprobante"`
	XML     string   `xml:"xml"` // comprobante en Base64
}

type autorizacionComprobanteReq struct {
	XMLName     xml.Name `xml:"ec:autorizacionComprobante"`
	ClaveAcceso string   `xml:"claveAccesoComprobante"`
}

// ── Envelopes de respuesta ────────────────────────────────────────────────────

type mensajeXML struct {
	Identificador        string `xml:"identificador"`
	Mensaje              string `xml:"mensaje"`
	InformacionAdicional string `xml:"informacionAdicional"`
	Tipo                 string `xml:"tipo"`
}

type recepcionRespEnvelope struct {
	Respuesta struct {
		Estado       string `xml:"estado"`
		Comprobantes struct {
			Comprobante []struct {
				ClaveAcceso string `xml:"claveAcceso"`
				Mensajes    struct {
					Mensaje []mensajeXML `xml:"mensaje"`
				} `xml:"mensajes"`
			} `xml:"comprobante"`
		} `xml:"comprobantes"`
	} `xml:"Body>validarComprobanteResponse>RespuestaRecepcionComprobante"`
	Fault *soapFault `xml:"Body>Fault"`
}

type autorizacionRespEnvelope struct {
	Respuesta struct {
		ClaveAcceso    string `xml:"claveAccesoConsultada"`
		Autorizaciones struct {
			Autorizacion []autorizacionXML `xml:"autorizacion"`
		} `xml:"autorizaciones"`
	} `xml:"Body>autorizacionComprobanteResponse>RespuestaAutorizacionComprobante"`
	Fault *soapFault `xml:"Body>Fault"`
}

type autorizacionXML struct {
	Estado             string `xml:"estado"`
	NumeroAutorizacion string `xml:"numeroAutorizacion"`
	FechaAutorizacion  string `xml:"fechaAutorizacion"`
	Ambiente           string `xml:"ambiente"`
	Comprobante        string `xml:"comprobante"`
	Mensajes           struct {
		Mensaje []mensajeXML `xml:"mensaje"`
	} `xml:"mensajes"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

// ── Submit (Recepción) ────────────────────────────────────────────────────────

// Submit envía el comprobante a validarComprobante. Los errores devueltos son
// de transporte/protocolo: el caller los trata como "procesando", nunca como
// rechazo de la autoridad.
func (c *SOAPClient) Submit(ctx context.Context, xmlBytes []byte, ambiente string) (*appsri.ReceptionResult, error) {
	amb := c.resolveAmbiente(ambiente, xmlBytes)
	url := c.recepcionURL(amb)

	req := soapEnvelope{
		XmlnsS:  nsSOAPEnv,
		XmlnsEC: nsRecepcion,
		Body: soapReqBody{Content: validarComprobanteReq{
			XML: base64.StdEncoding.EncodeToString(xmlBytes),
		}},
	}
	raw, err := c.call(ctx, url, req)
	if err != nil {
		return nil, err
	}

	var env recepcionRespEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("respuesta de Recepción ilegible: %w", err)
	}
	if env.Fault != nil {
		return nil, fmt.Errorf("SOAP fault de Recepción [%s]: %s", env.Fault.Code, env.Fault.String)
	}

	estado := strings.ToUpper(strings.TrimSpace(env.Respuesta.Estado))
	if estado == "" {
		return nil, fmt.Errorf("respuesta de Recepción sin estado")
	}

	var mensajes []appsri.Mensaje
	for _, comp := range env.Respuesta.Comprobantes.Comprobante {
		for _, m := range comp.Mensajes.Mensaje {
			mensajes = append(mensajes, appsri.Mensaje(m))
		}
	}

	res := &appsri.ReceptionResult{Estado: estado, Mensajes: mensajes}
	if estado == appsri.EstadoDevuelta || estado == appsri.EstadoRechazado {
		res.Wrapper = buildRecepcionWrapper(estado, amb, mensajes)
	}
	c.log.Debug().Str("estado", estado).Int("mensajes", len(mensajes)).
		Msg("respuesta de Recepción")
	return res, nil
}

// ── QueryAuthorization (Autorización) ─────────────────────────────────────────

// QueryAuthorization consulta autorizacionComprobante por clave de acceso.
// Una respuesta sin ítems de autorización se reporta como PPR (procesando).
func (c *SOAPClient) QueryAuthorization(ctx context.Context, claveAcceso, ambiente string) (*appsri.AuthResult, error) {
	amb := c.resolveAmbiente(ambiente, nil)
	url := c.autorizacionURL(amb)

	req := soapEnvelope{
		XmlnsS:  nsSOAPEnv,
		XmlnsEC: nsAutorizacion,
		Body:    soapReqBody{Content: autorizacionComprobanteReq{ClaveAcceso: claveAcceso}},
	}
	raw, err := c.call(ctx, url, req)
	if err != nil {
		return nil, err
	}

	var env autorizacionRespEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("respuesta de Autorización ilegible: %w", err)
	}
	if env.Fault != nil {
		return nil, fmt.Errorf("SOAP fault de Autorización [%s]: %s", env.Fault.Code, env.Fault.String)
	}

	auths := env.Respuesta.Autorizaciones.Autorizacion
	if len(auths) == 0 {
		// El SRI aún no resuelve la clave: procesando.
		return &appsri.AuthResult{Estado: appsri.EstadoPPR}, nil
	}

	a := auths[0]
	estado := strings.ToUpper(strings.TrimSpace(a.Estado))

	var mensajes []appsri.Mensaje
	for _, m := range a.Mensajes.Mensaje {
		mensajes = append(mensajes, appsri.Mensaje(m))
	}

	res := &appsri.AuthResult{
		Estado:             estado,
		NumeroAutorizacion: a.NumeroAutorizacion,
		FechaAutorizacion:  parseFechaAutorizacion(a.FechaAutorizacion),
		Mensajes:           mensajes,
		Wrapper:            buildAutorizacionWrapper(&a, estado),
	}
	if estado == appsri.EstadoAutorizado {
		res.XMLAutorizado = res.Wrapper
	}
	c.log.Debug().Str("estado", estado).Str("clave_acceso", claveAcceso).
		Msg("respuesta de Autorización")
	return res, nil
}

// ── Transporte ────────────────────────────────────────────────────────────────

func (c *SOAPClient) call(ctx context.Context, url string, envelope soapEnvelope) ([]byte, error) {
	payload, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("serializar envelope SOAP: %w", err)
	}
	payload = append([]byte(xml.Header), payload...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("crear petición SOAP: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("llamada SOAP cancelada o con timeout: %w", ctx.Err())
		}
		return nil, fmt.Errorf("llamada SOAP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("leer respuesta SOAP: %w", err)
	}
	// Con estado HTTP != 200 el cuerpo puede traer un Fault que se parsea
	// arriba; si ni eso, el estado manda.
	if resp.StatusCode != http.StatusOK && !bytes.Contains(raw, []byte("Fault")) {
		return nil, fmt.Errorf("WS del SRI respondió HTTP %d", resp.StatusCode)
	}
	return raw, nil
}

// resolveAmbiente usa el ambiente explícito; sin él, lo husmea del
// <ambiente> del payload. Por omisión, producción.
func (c *SOAPClient) resolveAmbiente(ambiente string, payload []byte) string {
	if ambiente == pkgsri.AmbientePruebas || ambiente == pkgsri.AmbienteProduccion {
		return ambiente
	}
	if len(payload) > 0 {
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(payload); err == nil {
			if el := doc.FindElement("//ambiente"); el != nil {
				if v := strings.TrimSpace(el.Text()); v == pkgsri.AmbientePruebas {
					return pkgsri.AmbientePruebas
				}
			}
		}
	}
	return pkgsri.AmbienteProduccion
}

func (c *SOAPClient) recepcionURL(ambiente string) string {
	if ambiente == pkgsri.AmbientePruebas {
		if c.cfg.RecepcionURLPruebas != "" {
			return c.cfg.RecepcionURLPruebas
		}
		return recepcionURLPruebas
	}
	if c.cfg.RecepcionURLProduccion != "" {
		return c.cfg.RecepcionURLProduccion
	}
	return recepcionURLProduccion
}

func (c *SOAPClient) autorizacionURL(ambiente string) string {
	if ambiente == pkgsri.AmbientePruebas {
		if c.cfg.AutorizacionURLPruebas != "" {
			return c.cfg.AutorizacionURLPruebas
		}
		return autorizacionURLPruebas
	}
	if c.cfg.AutorizacionURLProduccion != "" {
		return c.cfg.AutorizacionURLProduccion
	}
	return autorizacionURLProduccion
}

// ── Wrappers compactos de auditoría ───────────────────────────────────────────

func parseFechaAutorizacion(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000-07:00",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// buildRecepcionWrapper arma el <respuestaRecepcion> compacto que acompaña al
// comprobante devuelto en Recepción.
func buildRecepcionWrapper(estado, ambiente string, mensajes []appsri.Mensaje) string {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("respuestaRecepcion")
	texto(root, "estado", estado)
	texto(root, "ambiente", ambiente)
	appendMensajes(root, mensajes)
	doc.Indent(2)
	out, _ := doc.WriteToString()
	return out
}

// buildAutorizacionWrapper arma el <autorizacion> compacto con el comprobante
// original embebido en CDATA.
func buildAutorizacionWrapper(a *autorizacionXML, estado string) string {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("autorizacion")
	texto(root, "estado", estado)
	texto(root, "numeroAutorizacion", a.NumeroAutorizacion)
	texto(root, "fechaAutorizacion", a.FechaAutorizacion)
	if a.Ambiente != "" {
		texto(root, "ambiente", a.Ambiente)
	}
	comp := root.CreateElement("comprobante")
	comp.CreateCData(a.Comprobante)

	var mensajes []appsri.Mensaje
	for _, m := range a.Mensajes.Mensaje {
		mensajes = append(mensajes, appsri.Mensaje(m))
	}
	appendMensajes(root, mensajes)

	doc.Indent(2)
	out, _ := doc.WriteToString()
	return out
}

func appendMensajes(root *etree.Element, mensajes []appsri.Mensaje) {
	if len(mensajes) == 0 {
		return
	}
	ms := root.CreateElement("mensajes")
	for _, m := range mensajes {
		me := ms.CreateElement("mensaje")
		if m.Identificador != "" {
			texto(me, "identificador", m.Identificador)
		}
		if m.Mensaje != "" {
			texto(me, "mensaje", m.Mensaje)
		}
		if m.InformacionAdicional != "" {
			texto(me, "informacionAdicional", m.InformacionAdicional)
		}
		if m.Tipo != "" {
			texto(me, "tipo", m.Tipo)
		}
	}
}
