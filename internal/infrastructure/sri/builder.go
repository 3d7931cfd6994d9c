// Package sri contiene los adaptadores de infraestructura del ciclo de
// comprobantes electrónicos: constructor de XML (etree), firmador XAdES-BES
// (plantilla + xmlsec1) y cliente SOAP de Recepción/Autorización.
package sri

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	appsri "github.com/josfe/facturacion-sri/internal/application/sri"
	"github.com/josfe/facturacion-sri/internal/domain"
	"github.com/josfe/facturacion-sri/internal/domain/entity"
	"github.com/josfe/facturacion-sri/pkg/logger"
	pkgsri "github.com/josfe/facturacion-sri/pkg/sri"
)

// schemaVersion versión del esquema de factura y nota de crédito del SRI.
const schemaVersion = "1.0.0"

// taxTolerance tolerancia de un centavo entre los impuestos del XML y el
// total registrado en el documento contable.
var taxTolerance = decimal.NewFromFloat(0.01)

// BuilderOptions configuración del constructor de XML.
type BuilderOptions struct {
	// CodigoNumerico fijo de 8 dígitos para la clave de acceso. Vacío =
	// derivado determinísticamente del identificador del documento.
	CodigoNumerico string
	// Moneda del comprobante; vacío = USD.
	Moneda string
}

// XMLBuilder implementa el puerto Builder sobre beevik/etree.
type XMLBuilder struct {
	opts BuilderOptions
	log  *logger.Logger
}

// NewXMLBuilder construye el generador de XML de comprobantes.
func NewXMLBuilder(opts BuilderOptions, log *logger.Logger) *XMLBuilder {
	if opts.Moneda == "" {
		opts.Moneda = "USD"
	}
	return &XMLBuilder{opts: opts, log: log}
}

var _ appsri.Builder = (*XMLBuilder)(nil)

// BuildInvoice arma el XML de una factura (codDoc 01) con su clave de acceso.
// La numeración (estab, ptoEmi, secuencial) debe venir ya asignada.
func (b *XMLBuilder) BuildInvoice(bc *appsri.InvoiceBuildContext) (*appsri.BuildResult, error) {
	inv := bc.Invoice
	if err := validarNumeracion(inv.Estab, inv.PtoEmi, inv.Secuencial); err != nil {
		return nil, err
	}

	clave, err := pkgsri.GenerateAccessKey(pkgsri.AccessKeyParams{
		FechaEmision:   pkgsri.DDMMYYYY(inv.Date),
		CodDoc:         pkgsri.CodDocFactura,
		RUC:            bc.Company.RUC,
		Ambiente:       bc.Ambiente,
		Estab:          inv.Estab,
		PtoEmi:         inv.PtoEmi,
		Secuencial:     inv.Secuencial,
		CodigoNumerico: b.codigoNumerico(inv.ID),
		TipoEmision:    pkgsri.TipoEmisionNormal,
	})
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	factura := doc.CreateElement("factura")
	factura.CreateAttr("id", "comprobante")
	factura.CreateAttr("version", schemaVersion)

	b.writeInfoTributaria(factura, bc.Company, bc.Ambiente, clave,
		pkgsri.CodDocFactura, inv.Estab, inv.PtoEmi, inv.Secuencial)

	// infoFactura
	info := factura.CreateElement("infoFactura")
	texto(info, "fechaEmision", inv.Date.Format("02/01/2006"))
	if bc.Establishment.Address != "" {
		texto(info, "dirEstablecimiento", pkgsri.CleanText(bc.Establishment.Address, 300))
	}
	if bc.Company.ContribuyenteEspecial != "" {
		texto(info, "contribuyenteEspecial", bc.Company.ContribuyenteEspecial)
	}
	texto(info, "obligadoContabilidad", siNo(bc.Company.ObligadoContabilidad))
	texto(info, "tipoIdentificacionComprador", pkgsri.BuyerIDType(bc.Customer.TaxID))
	texto(info, "razonSocialComprador", pkgsri.CleanText(bc.Customer.Name, 300))
	texto(info, "identificacionComprador", bc.Customer.TaxID)
	if bc.Customer.Address != "" {
		texto(info, "direccionComprador", pkgsri.CleanText(bc.Customer.Address, 300))
	}

	texto(info, "totalSinImpuestos", pkgsri.Money2(inv.Subtotal))
	texto(info, "totalDescuento", pkgsri.Money2(inv.Descuento))

	buckets, taxSum := aggregateInvoiceTaxes(bc.Lines)
	totalConImp := info.CreateElement("totalConImpuestos")
	for _, bu := range buckets {
		ti := totalConImp.CreateElement("totalImpuesto")
		texto(ti, "codigo", bu.Codigo)
		texto(ti, "codigoPorcentaje", bu.CodigoPorcentaje)
		texto(ti, "baseImponible", pkgsri.Money2(bu.Base))
		texto(ti, "valor", pkgsri.Money2(bu.Valor))
	}
	texto(info, "propina", pkgsri.Money2(inv.Propina))
	texto(info, "importeTotal", pkgsri.Money2(inv.GrandTotal))
	texto(info, "moneda", b.opts.Moneda)

	if len(bc.Payments) > 0 {
		pagos := info.CreateElement("pagos")
		for _, p := range bc.Payments {
			code := pkgsri.ExtractPaymentCode(p.FormaPago)
			if code == "" {
				code = pkgsri.FormaPagoEfectivo
			}
			pago := pagos.CreateElement("pago")
			texto(pago, "formaPago", code)
			texto(pago, "total", pkgsri.Money2(p.Total))
			if p.Plazo > 0 {
				texto(pago, "plazo", fmt.Sprintf("%d", p.Plazo))
				texto(pago, "unidadTiempo", p.Unidad)
			}
		}
	}

	// detalles
	detalles := factura.CreateElement("detalles")
	for _, l := range bc.Lines {
		det := detalles.CreateElement("detalle")
		texto(det, "codigoPrincipal", l.ItemCode)
		texto(det, "descripcion", pkgsri.CleanText(l.Description, 300))
		texto(det, "cantidad", pkgsri.Qty6(l.Quantity))
		texto(det, "precioUnitario", pkgsri.Money2(l.UnitPrice))
		texto(det, "descuento", pkgsri.Money2(l.Discount))
		texto(det, "precioTotalSinImpuesto", pkgsri.Money2(l.Subtotal))
		writeLineTaxes(det, l.Subtotal, l.IVARate, l.IVAClase, l.ICERate)
	}

	// infoAdicional
	writeInfoAdicional(factura, bc.Customer)

	// Conciliación contra el total contable: el XML jamás sale descuadrado.
	if err := reconcileTaxes(taxSum, inv.TaxTotal); err != nil {
		return nil, err
	}

	doc.Indent(2)
	xml, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serializar factura: %w", err)
	}
	return &appsri.BuildResult{
		XML:         xml,
		ClaveAcceso: clave,
		Estab:       inv.Estab,
		PtoEmi:      inv.PtoEmi,
		Secuencial:  inv.Secuencial,
		Total:       inv.GrandTotal,
	}, nil
}

// ── Secciones compartidas ─────────────────────────────────────────────────────

func (b *XMLBuilder) writeInfoTributaria(root *etree.Element, co *entity.Company,
	ambiente, clave, codDoc, estab, ptoEmi, secuencial string) {

	it := root.CreateElement("infoTributaria")
	texto(it, "ambiente", ambiente)
	texto(it, "tipoEmision", pkgsri.TipoEmisionNormal)
	texto(it, "razonSocial", pkgsri.CleanText(co.RazonSocial, 300))
	nombre := co.NombreComercial
	if nombre == "" {
		nombre = co.RazonSocial
	}
	texto(it, "nombreComercial", pkgsri.CleanText(nombre, 300))
	texto(it, "ruc", co.RUC)
	texto(it, "claveAcceso", clave)
	texto(it, "codDoc", codDoc)
	texto(it, "estab", estab)
	texto(it, "ptoEmi", ptoEmi)
	texto(it, "secuencial", secuencial)
	texto(it, "dirMatriz", pkgsri.CleanText(co.DirMatriz, 300))
}

// writeLineTaxes escribe los <impuesto> de una línea: IVA siempre, ICE solo
// cuando la línea lo tiene.
func writeLineTaxes(det *etree.Element, base, ivaRate decimal.Decimal, ivaClase string, iceRate decimal.Decimal) {
	imp := det.CreateElement("impuestos")

	iva := pkgsri.IVABucket(ivaRate, ivaClase)
	el := imp.CreateElement("impuesto")
	texto(el, "codigo", iva.Codigo)
	texto(el, "codigoPorcentaje", iva.CodigoPorcentaje)
	texto(el, "tarifa", pkgsri.Money2(iva.Tarifa))
	texto(el, "baseImponible", pkgsri.Money2(base))
	texto(el, "valor", pkgsri.Money2(taxValue(base, iva.Tarifa)))

	if iceRate.IsPositive() {
		ice := pkgsri.ICEBucket(iceRate)
		el := imp.CreateElement("impuesto")
		texto(el, "codigo", ice.Codigo)
		texto(el, "codigoPorcentaje", ice.CodigoPorcentaje)
		texto(el, "tarifa", pkgsri.Money2(ice.Tarifa))
		texto(el, "baseImponible", pkgsri.Money2(base))
		texto(el, "valor", pkgsri.Money2(taxValue(base, ice.Tarifa)))
	}
}

func writeInfoAdicional(root *etree.Element, cu *entity.Customer) {
	if cu.Email == "" && cu.Phone == "" {
		return
	}
	ia := root.CreateElement("infoAdicional")
	if cu.Email != "" {
		campo := ia.CreateElement("campoAdicional")
		campo.CreateAttr("nombre", "Email")
		campo.SetText(pkgsri.CleanText(cu.Email, 300))
	}
	if cu.Phone != "" {
		campo := ia.CreateElement("campoAdicional")
		campo.CreateAttr("nombre", "Telefono")
		campo.SetText(pkgsri.CleanText(cu.Phone, 300))
	}
}

// ── Agregación y conciliación de impuestos ────────────────────────────────────

// taxTotal balde a nivel de comprobante: (codigo, codigoPorcentaje) con base y
// valor acumulados.
type taxTotal struct {
	Codigo           string
	CodigoPorcentaje string
	Base             decimal.Decimal
	Valor            decimal.Decimal
}

// taxValue calcula el impuesto de una base con tarifa porcentual, a 2 decimales.
func taxValue(base, tarifa decimal.Decimal) decimal.Decimal {
	return base.Mul(tarifa).Div(decimal.NewFromInt(100)).Round(2)
}

// aggregateInvoiceTaxes acumula los impuestos de línea en baldes de comprobante
// preservando el orden de primera aparición, y devuelve la suma total.
func aggregateInvoiceTaxes(lines []*entity.InvoiceLine) ([]taxTotal, decimal.Decimal) {
	type key struct{ codigo, pct string }
	index := map[key]int{}
	var out []taxTotal
	sum := decimal.Zero

	add := func(bu pkgsri.TaxBucket, base decimal.Decimal) {
		valor := taxValue(base, bu.Tarifa)
		sum = sum.Add(valor)
		k := key{bu.Codigo, bu.CodigoPorcentaje}
		if i, ok := index[k]; ok {
			out[i].Base = out[i].Base.Add(base)
			out[i].Valor = out[i].Valor.Add(valor)
			return
		}
		index[k] = len(out)
		out = append(out, taxTotal{
			Codigo:           bu.Codigo,
			CodigoPorcentaje: bu.CodigoPorcentaje,
			Base:             base,
			Valor:            valor,
		})
	}

	for _, l := range lines {
		add(pkgsri.IVABucket(l.IVARate, l.IVAClase), l.Subtotal)
		if l.ICERate.IsPositive() {
			add(pkgsri.ICEBucket(l.ICERate), l.Subtotal)
		}
	}
	return out, sum
}

// reconcileTaxes compara los impuestos calculados del XML contra el total
// contable del documento; más de un centavo de diferencia es fatal.
func reconcileTaxes(xmlSum, recorded decimal.Decimal) error {
	if xmlSum.Sub(recorded).Abs().GreaterThan(taxTolerance) {
		return fmt.Errorf("%w: impuestos del XML %s vs contabilidad %s",
			domain.ErrTaxMismatch, xmlSum.StringFixed(2), recorded.StringFixed(2))
	}
	return nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (b *XMLBuilder) codigoNumerico(seed string) string {
	if b.opts.CodigoNumerico != "" {
		return b.opts.CodigoNumerico
	}
	return pkgsri.Hash8FromString(seed)
}

func validarNumeracion(estab, ptoEmi, secuencial string) error {
	if len(estab) != 3 || len(ptoEmi) != 3 || len(secuencial) != 9 {
		return fmt.Errorf("%w: numeración incompleta %q-%q-%q",
			domain.ErrInvalidInput, estab, ptoEmi, secuencial)
	}
	return nil
}

func texto(parent *etree.Element, tag, value string) {
	parent.CreateElement(tag).SetText(value)
}

func siNo(v bool) string {
	if v {
		return "SI"
	}
	return "NO"
}
