// Firma XAdES-BES: inyección de la plantilla ds:Signature en el comprobante y
// cómputo de digests/firma con xmlsec1 como subproceso.

package sri

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	appsri "github.com/josfe/facturacion-sri/internal/application/sri"
	"github.com/josfe/facturacion-sri/pkg/logger"
)

// Namespaces y algoritmos XMLDSig / XAdES.
const (
	nsDS    = "http://www.w3.org/2000/09/xmldsig#"
	nsXAdES = "http://uri.etsi.org/01903/v1.3.2#"

	algC14N       = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	algRSASHA1    = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
	algSHA1       = "http://www.w3.org/2000/09/xmldsig#sha1"
	algEnveloped  = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
	typeSignedPro = "http://uri.etsi.org/01903#SignedProperties"
)

// comprobanteID identificador del elemento raíz que referencia la firma.
const comprobanteID = "comprobante"

// sigTemplate plantilla XAdES-BES con las tres referencias que exige el SRI:
// el comprobante completo (enveloped + c14n), las SignedProperties y el
// KeyInfo. xmlsec1 llena DigestValue y SignatureValue.
const sigTemplate = `<ds:Signature xmlns:ds="` + nsDS + `" xmlns:etsi="` + nsXAdES + `" Id="Signature">
  <ds:SignedInfo>
    <ds:CanonicalizationMethod Algorithm="` + algC14N + `"/>
    <ds:SignatureMethod Algorithm="` + algRSASHA1 + `"/>
    <ds:Reference Id="SignedPropertiesRef" Type="` + typeSignedPro + `" URI="#SignedPropertiesID">
      <ds:DigestMethod Algorithm="` + algSHA1 + `"/>
      <ds:DigestValue></ds:DigestValue>
    </ds:Reference>
    <ds:Reference URI="#KeyInfo">
      <ds:DigestMethod Algorithm="` + algSHA1 + `"/>
      <ds:DigestValue></ds:DigestValue>
    </ds:Reference>
    <ds:Reference Id="SignedDataRef" URI="#comprobante">
      <ds:Transforms>
        <ds:Transform Algorithm="` + algEnveloped + `"/>
        <ds:Transform Algorithm="` + algC14N + `"/>
      </ds:Transforms>
      <ds:DigestMethod Algorithm="` + algSHA1 + `"/>
      <ds:DigestValue></ds:DigestValue>
    </ds:Reference>
  </ds:SignedInfo>
  <ds:SignatureValue></ds:SignatureValue>
  <ds:KeyInfo Id="KeyInfo">
    <ds:X509Data>
      <ds:X509Certificate></ds:X509Certificate>
    </ds:X509Data>
  </ds:KeyInfo>
  <ds:Object>
    <etsi:QualifyingProperties Target="#Signature">
      <etsi:SignedProperties Id="SignedPropertiesID">
        <etsi:SignedSignatureProperties>
          <etsi:SigningTime></etsi:SigningTime>
          <etsi:SigningCertificate>
            <etsi:Cert>
              <etsi:CertDigest>
                <ds:DigestMethod Algorithm="` + algSHA1 + `"/>
                <ds:DigestValue></ds:DigestValue>
              </etsi:CertDigest>
              <etsi:IssuerSerial>
                <ds:X509IssuerName></ds:X509IssuerName>
                <ds:X509SerialNumber></ds:X509SerialNumber>
              </etsi:IssuerSerial>
            </etsi:Cert>
          </etsi:SigningCertificate>
        </etsi:SignedSignatureProperties>
      </etsi:SignedProperties>
    </etsi:QualifyingProperties>
  </ds:Object>
</ds:Signature>`

// XmlsecSigner implementa el puerto Signer: prepara la plantilla y delega el
// cálculo criptográfico en el binario xmlsec1.
type XmlsecSigner struct {
	bin string
	log *logger.Logger
	now func() time.Time
}

// NewXmlsecSigner construye el firmador; bin vacío usa "xmlsec1" del PATH.
func NewXmlsecSigner(bin string, log *logger.Logger) *XmlsecSigner {
	if bin == "" {
		bin = "xmlsec1"
	}
	return &XmlsecSigner{bin: bin, log: log, now: time.Now}
}

var _ appsri.Signer = (*XmlsecSigner)(nil)

// Sign firma el XML con la llave y el certificado PEM dados. Cualquier fallo
// (archivos ausentes, xmlsec1 con salida distinta de cero, firma incompleta)
// es un error: el comprobante jamás avanza sin firmar.
func (s *XmlsecSigner) Sign(ctx context.Context, xmlBytes []byte, keyPath, certPath string) ([]byte, error) {
	if _, err := os.Stat(keyPath); err != nil {
		return nil, fmt.Errorf("llave privada no disponible en %s: %w", keyPath, err)
	}
	if _, err := os.Stat(certPath); err != nil {
		return nil, fmt.Errorf("certificado no disponible en %s: %w", certPath, err)
	}

	prepared, rootTag, err := s.injectTemplate(xmlBytes, certPath)
	if err != nil {
		return nil, err
	}

	// Canonicalizar antes de firmar; si la canonicalización falla se firma el
	// documento tal cual.
	if canon, err := canonicalizeXML(prepared); err == nil {
		prepared = canon
	}

	signed, err := s.runXmlsec(ctx, prepared, rootTag, keyPath, certPath)
	if err != nil {
		return nil, err
	}
	if err := verifySignedOutput(signed); err != nil {
		return nil, err
	}
	return signed, nil
}

// injectTemplate asegura id="comprobante" en la raíz e inyecta la plantilla
// ds:Signature con SigningTime y los datos del certificado ya poblados.
// Devuelve el XML preparado y el tag de la raíz (factura, notaCredito, ...).
func (s *XmlsecSigner) injectTemplate(xmlBytes []byte, certPath string) ([]byte, string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, "", fmt.Errorf("parsear comprobante: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, "", fmt.Errorf("comprobante sin elemento raíz")
	}

	if root.SelectAttrValue("id", "") != comprobanteID {
		root.RemoveAttr("Id")
		root.CreateAttr("id", comprobanteID)
	}

	// Idempotente: si ya hay firma no se inyecta otra plantilla.
	if root.FindElement("Signature") == nil {
		info, err := ExtractCertInfo(certPath)
		if err != nil {
			return nil, "", err
		}
		sigDoc := etree.NewDocument()
		if err := sigDoc.ReadFromString(sigTemplate); err != nil {
			return nil, "", fmt.Errorf("parsear plantilla de firma: %w", err)
		}
		sig := sigDoc.Root()
		setText(sig, "//SigningTime", s.now().UTC().Format("2006-01-02T15:04:05Z"))
		setText(sig, "//CertDigest/DigestValue", info.DigestSHA1)
		setText(sig, "//X509IssuerName", info.Issuer)
		setText(sig, "//X509SerialNumber", info.Serial)
		setText(sig, "//X509Certificate", info.RawB64)
		root.AddChild(sig)
	}

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, "", fmt.Errorf("serializar comprobante preparado: %w", err)
	}
	return out, root.Tag, nil
}

// runXmlsec invoca el binario firmador sobre archivos temporales. El stderr
// crudo viaja en el error para diagnóstico.
func (s *XmlsecSigner) runXmlsec(ctx context.Context, input []byte, rootTag, keyPath, certPath string) ([]byte, error) {
	td, err := os.MkdirTemp("", "firma-sri-*")
	if err != nil {
		return nil, fmt.Errorf("crear directorio temporal de firma: %w", err)
	}
	defer os.RemoveAll(td)

	inPath := filepath.Join(td, "in.xml")
	outPath := filepath.Join(td, "out.xml")
	if err := os.WriteFile(inPath, input, 0o600); err != nil {
		return nil, fmt.Errorf("escribir XML temporal: %w", err)
	}

	cmd := exec.CommandContext(ctx, s.bin,
		"--sign",
		"--privkey-pem", keyPath+","+certPath,
		"--id-attr:id", rootTag,
		"--id-attr:Id", "SignedProperties",
		"--id-attr:Id", "KeyInfo",
		"--output", outPath,
		inPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("firma cancelada: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%s falló: %w: %s", s.bin, err, stderr.String())
	}

	signed, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("leer XML firmado: %w", err)
	}
	s.log.Debug().Str("root", rootTag).Int("bytes", len(signed)).Msg("comprobante firmado")
	return signed, nil
}

// verifySignedOutput exige exactamente una ds:Signature con DigestValue y
// SignatureValue no vacíos.
func verifySignedOutput(signed []byte) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(signed); err != nil {
		return fmt.Errorf("parsear XML firmado: %w", err)
	}
	sigs := doc.FindElements("//Signature")
	if len(sigs) != 1 {
		return fmt.Errorf("el XML firmado tiene %d firmas, se esperaba exactamente 1", len(sigs))
	}
	sig := sigs[0]
	for _, dv := range sig.FindElements("//DigestValue") {
		if dv.Text() == "" {
			return fmt.Errorf("la firma tiene un DigestValue vacío")
		}
	}
	sv := sig.FindElement("//SignatureValue")
	if sv == nil || sv.Text() == "" {
		return fmt.Errorf("la firma no tiene SignatureValue")
	}
	return nil
}

func canonicalizeXML(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

func setText(root *etree.Element, path, value string) {
	if el := root.FindElement(path); el != nil {
		el.SetText(value)
	}
}
