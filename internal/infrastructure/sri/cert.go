// Carga de la firma electrónica: certificado PEM o archivo .p12 (PKCS#12).

package sri

import (
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/pkcs12"
)

// loadCertificate lee el primer bloque CERTIFICATE de un archivo PEM.
func loadCertificate(certPath string) (*x509.Certificate, error) {
	data, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("leer certificado: %w", err)
	}
	var block *pem.Block
	for {
		block, data = pem.Decode(data)
		if block == nil {
			return nil, fmt.Errorf("el archivo %s no contiene un bloque CERTIFICATE", certPath)
		}
		if block.Type == "CERTIFICATE" {
			break
		}
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsear certificado: %w", err)
	}
	return cert, nil
}

// CertInfo datos del certificado que van en las SignedProperties XAdES.
type CertInfo struct {
	// DigestSHA1 digest SHA-1 del certificado DER, en Base64.
	DigestSHA1 string
	// Issuer nombre del emisor en formato RFC 2253.
	Issuer string
	// Serial número de serie en decimal.
	Serial string
	// RawB64 certificado DER en Base64, para el X509Certificate del KeyInfo.
	RawB64 string
}

// ExtractCertInfo lee un certificado PEM y extrae los datos para la firma.
func ExtractCertInfo(certPath string) (*CertInfo, error) {
	cert, err := loadCertificate(certPath)
	if err != nil {
		return nil, err
	}
	sum := sha1.Sum(cert.Raw)
	return &CertInfo{
		DigestSHA1: base64.StdEncoding.EncodeToString(sum[:]),
		Issuer:     cert.Issuer.String(),
		Serial:     cert.SerialNumber.String(),
		RawB64:     base64.StdEncoding.EncodeToString(cert.Raw),
	}, nil
}

// P12Converter convierte firmas .p12 al par PEM que consume xmlsec1,
// escribiéndolas bajo OutRoot/<companyID>/. Implementa el puerto Converter
// del servicio de credenciales.
type P12Converter struct {
	OutRoot string
}

// Convert extrae llave y certificado del .p12 y devuelve las rutas PEM más
// el vencimiento del certificado.
func (c *P12Converter) Convert(p12Path, password, companyID string) (keyPath, certPath string, notAfter time.Time, err error) {
	outDir := filepath.Join(c.OutRoot, companyID)
	keyPath, certPath, err = PEMFromP12(p12Path, password, outDir)
	if err != nil {
		return "", "", time.Time{}, err
	}
	info, err := loadCertificate(certPath)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return keyPath, certPath, info.NotAfter, nil
}

// PEMFromP12 convierte una firma .p12/.pfx al par PEM (llave y certificado)
// que consume xmlsec1, y lo escribe bajo outDir. Devuelve ambas rutas.
func PEMFromP12(p12Path, password, outDir string) (keyPath, certPath string, err error) {
	data, err := os.ReadFile(p12Path)
	if err != nil {
		return "", "", fmt.Errorf("leer p12: %w", err)
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return "", "", fmt.Errorf("decodificar p12: %w", err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", "", fmt.Errorf("serializar llave privada: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return "", "", fmt.Errorf("crear directorio de firma: %w", err)
	}

	keyPath = filepath.Join(outDir, "firma_key.pem")
	certPath = filepath.Join(outDir, "firma_cert.pem")

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return "", "", fmt.Errorf("escribir llave PEM: %w", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	if err := os.WriteFile(certPath, certPEM, 0o600); err != nil {
		return "", "", fmt.Errorf("escribir certificado PEM: %w", err)
	}
	return keyPath, certPath, nil
}
