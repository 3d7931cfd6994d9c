// Catálogos de la Ficha Técnica de Comprobantes Electrónicos SRI (Ecuador).

package sri

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ── Ambiente y tipo de emisión ────────────────────────────────────────────────

const (
	AmbientePruebas    = "1"
	AmbienteProduccion = "2"

	TipoEmisionNormal = "1"
)

// ── Tipos de comprobante (Tabla 3) ────────────────────────────────────────────

const (
	CodDocFactura     = "01"
	CodDocNotaCredito = "04"
	CodDocNotaDebito  = "05"
	CodDocGuiaRemision = "06"
	CodDocRetencion   = "07"
	CodDocLiquidacion = "03"
)

// ── Tipos de identificación del comprador (Tabla 6) ───────────────────────────

const (
	IDTipoRUC       = "04"
	IDTipoCedula    = "05"
	IDTipoPasaporte = "06"
)

// BuyerIDType infiere el tipo de identificación del comprador por el largo:
// 13 dígitos = RUC, 10 = cédula, otro = pasaporte/otros.
func BuyerIDType(taxID string) string {
	s := strings.TrimSpace(taxID)
	switch len(s) {
	case 13:
		return IDTipoRUC
	case 10:
		return IDTipoCedula
	}
	return IDTipoPasaporte
}

// ── Impuestos (Tablas 16/17): codigo + codigoPorcentaje ───────────────────────

const (
	TaxCodeIVA    = "2"
	TaxCodeICE    = "3"
	TaxCodeIRBPNR = "5"
)

// TaxBucket identifica un balde de impuesto en el XML: (codigo, codigoPorcentaje).
type TaxBucket struct {
	Codigo           string
	CodigoPorcentaje string
	Tarifa           decimal.Decimal // porcentaje; para exento/no objeto es 0
}

// Clases especiales de IVA que no se derivan del porcentaje.
const (
	IVAClaseNinguna  = ""
	IVAClaseExento   = "exento"
	IVAClaseNoObjeto = "no_objeto"
)

// ivaPorcentajeCode mapea la tarifa entera de IVA al codigoPorcentaje del SRI.
var ivaPorcentajeCode = map[int]string{
	0:  "0",
	5:  "5",
	8:  "8",
	12: "2",
	13: "10",
	14: "3",
	15: "4",
}

// IVABucket resuelve el balde SRI para una tarifa de IVA.
// clase distingue exento ("7") y no objeto ("6"); para ambas la tarifa es 0.
// Tarifas no catalogadas caen a 0% (mismo criterio del sistema original).
func IVABucket(rate decimal.Decimal, clase string) TaxBucket {
	switch clase {
	case IVAClaseExento:
		return TaxBucket{Codigo: TaxCodeIVA, CodigoPorcentaje: "7", Tarifa: decimal.Zero}
	case IVAClaseNoObjeto:
		return TaxBucket{Codigo: TaxCodeIVA, CodigoPorcentaje: "6", Tarifa: decimal.Zero}
	}
	pct := int(rate.Round(0).IntPart())
	if code, ok := ivaPorcentajeCode[pct]; ok {
		return TaxBucket{Codigo: TaxCodeIVA, CodigoPorcentaje: code, Tarifa: decimal.NewFromInt(int64(pct))}
	}
	return TaxBucket{Codigo: TaxCodeIVA, CodigoPorcentaje: "0", Tarifa: decimal.Zero}
}

// ICEBucket balde genérico para ICE (el SRI espera subcódigos por tarifa;
// se usa el genérico "0" como el sistema original).
func ICEBucket(rate decimal.Decimal) TaxBucket {
	return TaxBucket{Codigo: TaxCodeICE, CodigoPorcentaje: "0", Tarifa: rate}
}

// IRBPNRBucket balde para el impuesto redimible a botellas plásticas.
func IRBPNRBucket(rate decimal.Decimal) TaxBucket {
	return TaxBucket{Codigo: TaxCodeIRBPNR, CodigoPorcentaje: "0", Tarifa: rate}
}

// ── Formas de pago (Tabla 24) ─────────────────────────────────────────────────

const (
	FormaPagoEfectivo       = "01"
	FormaPagoDebito         = "16"
	FormaPagoCredito        = "19"
	FormaPagoTransferencia  = "20"
)

var formaPagoCodeRe = regexp.MustCompile(`^\s*(\d{2})\b`)

// fallback por palabra para datos antiguos sin código
var formaPagoWordMap = []struct {
	word string
	code string
}{
	{"EFECTIVO", FormaPagoEfectivo},
	{"TRANSFEREN", FormaPagoTransferencia},
	{"CHEQUE", FormaPagoTransferencia},
	{"DEP", FormaPagoTransferencia},
	{"DÉBITO", FormaPagoDebito},
	{"DEBITO", FormaPagoDebito},
	{"CRÉDITO", FormaPagoCredito},
	{"CREDITO", FormaPagoCredito},
}

// ExtractPaymentCode acepta "01", "01 - Efectivo" o "Efectivo" y devuelve "01".
// Devuelve "" si no puede resolver un código.
func ExtractPaymentCode(val string) string {
	s := strings.TrimSpace(val)
	if s == "" {
		return ""
	}
	if m := formaPagoCodeRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	upper := strings.ToUpper(s)
	for _, wm := range formaPagoWordMap {
		if strings.Contains(upper, wm.word) {
			return wm.code
		}
	}
	return ""
}
