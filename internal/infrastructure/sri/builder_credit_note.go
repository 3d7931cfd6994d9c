package sri

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	appsri "github.com/josfe/facturacion-sri/internal/application/sri"
	"github.com/josfe/facturacion-sri/internal/domain"
	"github.com/josfe/facturacion-sri/internal/domain/entity"
	pkgsri "github.com/josfe/facturacion-sri/pkg/sri"
)

// BuildCreditNote arma el XML de una nota de crédito (codDoc 04) que modifica
// una factura ya autorizada. Las líneas con código de ítem se topan a la
// cantidad retornable restante de la factura original; las líneas de servicio
// libre no tienen tope.
func (b *XMLBuilder) BuildCreditNote(bc *appsri.CreditNoteBuildContext) (*appsri.BuildResult, error) {
	nc := bc.CreditNote
	if err := validarNumeracion(nc.Estab, nc.PtoEmi, nc.Secuencial); err != nil {
		return nil, err
	}
	if nc.InvoiceNumero == "" {
		return nil, fmt.Errorf("%w: la nota de crédito no referencia factura modificada",
			domain.ErrInvalidInput)
	}
	if err := validarRetornables(bc.Lines, bc.InvoiceLines, bc.Returned); err != nil {
		return nil, err
	}

	clave, err := pkgsri.GenerateAccessKey(pkgsri.AccessKeyParams{
		FechaEmision:   pkgsri.DDMMYYYY(nc.Date),
		CodDoc:         pkgsri.CodDocNotaCredito,
		RUC:            bc.Company.RUC,
		Ambiente:       bc.Ambiente,
		Estab:          nc.Estab,
		PtoEmi:         nc.PtoEmi,
		Secuencial:     nc.Secuencial,
		CodigoNumerico: b.codigoNumerico(nc.ID),
		TipoEmision:    pkgsri.TipoEmisionNormal,
	})
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("notaCredito")
	root.CreateAttr("id", "comprobante")
	root.CreateAttr("version", schemaVersion)

	b.writeInfoTributaria(root, bc.Company, bc.Ambiente, clave,
		pkgsri.CodDocNotaCredito, nc.Estab, nc.PtoEmi, nc.Secuencial)

	// infoNotaCredito
	info := root.CreateElement("infoNotaCredito")
	texto(info, "fechaEmision", nc.Date.Format("02/01/2006"))
	if bc.Establishment.Address != "" {
		texto(info, "dirEstablecimiento", pkgsri.CleanText(bc.Establishment.Address, 300))
	}
	texto(info, "tipoIdentificacionComprador", pkgsri.BuyerIDType(bc.Customer.TaxID))
	texto(info, "razonSocialComprador", pkgsri.CleanText(bc.Customer.Name, 300))
	texto(info, "identificacionComprador", bc.Customer.TaxID)
	if bc.Company.ContribuyenteEspecial != "" {
		texto(info, "contribuyenteEspecial", bc.Company.ContribuyenteEspecial)
	}
	texto(info, "obligadoContabilidad", siNo(bc.Company.ObligadoContabilidad))

	// Documento sustento: siempre la factura original.
	texto(info, "codDocModificado", pkgsri.CodDocFactura)
	texto(info, "numDocModificado", nc.InvoiceNumero)
	texto(info, "fechaEmisionDocSustento", nc.InvoiceDate.Format("02/01/2006"))

	texto(info, "totalSinImpuestos", pkgsri.Money2(nc.Subtotal))
	texto(info, "valorModificacion", pkgsri.Money2(nc.GrandTotal))
	texto(info, "moneda", b.opts.Moneda)

	buckets, taxSum := aggregateCreditNoteTaxes(bc.Lines)
	totalConImp := info.CreateElement("totalConImpuestos")
	for _, bu := range buckets {
		ti := totalConImp.CreateElement("totalImpuesto")
		texto(ti, "codigo", bu.Codigo)
		texto(ti, "codigoPorcentaje", bu.CodigoPorcentaje)
		texto(ti, "baseImponible", pkgsri.Money2(bu.Base))
		texto(ti, "valor", pkgsri.Money2(bu.Valor))
	}

	motivo := nc.Motivo
	if motivo == "" {
		motivo = "Devolución"
	}
	texto(info, "motivo", pkgsri.CleanText(motivo, 300))

	// detalles
	detalles := root.CreateElement("detalles")
	for _, l := range bc.Lines {
		det := detalles.CreateElement("detalle")
		code := l.ItemCode
		if code == "" {
			code = "SERVICIO"
		}
		texto(det, "codigoInterno", code)
		texto(det, "descripcion", pkgsri.CleanText(descOr(l.Description, code), 300))
		texto(det, "cantidad", pkgsri.Qty6(l.Quantity))
		texto(det, "precioUnitario", pkgsri.Money2(l.UnitPrice))
		texto(det, "descuento", "0.00")
		texto(det, "precioTotalSinImpuesto", pkgsri.Money2(l.Subtotal))
		writeLineTaxes(det, l.Subtotal, l.IVARate, l.IVAClase, l.ICERate)
	}

	// infoAdicional: referencia legible al documento interno.
	ia := root.CreateElement("infoAdicional")
	campo := ia.CreateElement("campoAdicional")
	campo.CreateAttr("nombre", "Documento")
	campo.SetText(nc.NumeroCompleto())

	if err := reconcileTaxes(taxSum, nc.TaxTotal); err != nil {
		return nil, err
	}

	doc.Indent(2)
	xml, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serializar nota de crédito: %w", err)
	}
	return &appsri.BuildResult{
		XML:         xml,
		ClaveAcceso: clave,
		Estab:       nc.Estab,
		PtoEmi:      nc.PtoEmi,
		Secuencial:  nc.Secuencial,
		Total:       nc.GrandTotal,
	}, nil
}

// validarRetornables verifica por ítem que la cantidad devuelta no exceda lo
// retornable restante: cantidad facturada menos lo ya devuelto en otras notas.
func validarRetornables(lines []*entity.CreditNoteLine, invLines []*entity.InvoiceLine,
	returned map[string]decimal.Decimal) error {

	if len(invLines) == 0 {
		return nil
	}
	facturado := map[string]decimal.Decimal{}
	for _, il := range invLines {
		facturado[il.ItemCode] = facturado[il.ItemCode].Add(il.Quantity)
	}

	porItem := map[string]decimal.Decimal{}
	for _, l := range lines {
		if l.ItemCode == "" {
			continue // servicio libre, sin tope
		}
		qty, ok := facturado[l.ItemCode]
		if !ok {
			continue // no es un ítem de la factura: se trata como libre
		}
		porItem[l.ItemCode] = porItem[l.ItemCode].Add(l.Quantity)
		restante := qty.Sub(returned[l.ItemCode])
		if porItem[l.ItemCode].GreaterThan(restante) {
			return fmt.Errorf("%w: la devolución de %s (%s) excede lo retornable (%s)",
				domain.ErrInvalidInput, l.ItemCode,
				porItem[l.ItemCode].String(), restante.String())
		}
	}
	return nil
}

func aggregateCreditNoteTaxes(lines []*entity.CreditNoteLine) ([]taxTotal, decimal.Decimal) {
	converted := make([]*entity.InvoiceLine, 0, len(lines))
	for _, l := range lines {
		converted = append(converted, &entity.InvoiceLine{
			Subtotal: l.Subtotal,
			IVARate:  l.IVARate,
			IVAClase: l.IVAClase,
			ICERate:  l.ICERate,
		})
	}
	return aggregateInvoiceTaxes(converted)
}

func descOr(desc, fallback string) string {
	if strings.TrimSpace(desc) != "" {
		return desc
	}
	return fallback
}
