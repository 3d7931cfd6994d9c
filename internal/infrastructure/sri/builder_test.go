package sri_test

import (
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsri "github.com/josfe/facturacion-sri/internal/application/sri"
	"github.com/josfe/facturacion-sri/internal/domain"
	"github.com/josfe/facturacion-sri/internal/domain/entity"
	infra "github.com/josfe/facturacion-sri/internal/infrastructure/sri"
	"github.com/josfe/facturacion-sri/pkg/logger"
	pkgsri "github.com/josfe/facturacion-sri/pkg/sri"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testCompany() *entity.Company {
	return &entity.Company{
		ID:                   "co-1",
		RazonSocial:          "Comercial Andina S.A.",
		NombreComercial:      "Andina",
		RUC:                  "1760013210001",
		DirMatriz:            "Av. Amazonas N24-03, Quito",
		ObligadoContabilidad: true,
	}
}

func testCustomer() *entity.Customer {
	return &entity.Customer{
		ID:      "cu-1",
		Name:    "Cliente Ejemplo",
		TaxID:   "1712345678001",
		Address: "Calle Larga 123, Cuenca",
		Email:   "cliente@ejemplo.ec",
	}
}

func testEstablishment() *entity.Establishment {
	return &entity.Establishment{
		ID:      "loc-1",
		Code:    "001",
		Address: "Av. 6 de Diciembre y Colón",
	}
}

func invoiceContext() *appsri.InvoiceBuildContext {
	inv := &entity.Invoice{
		ID:         "inv-1",
		Date:       time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Estab:      "001",
		PtoEmi:     "002",
		Secuencial: "000000012",
		Subtotal:   dec("140.00"),
		TaxTotal:   dec("15.00"),
		Descuento:  dec("0.00"),
		GrandTotal: dec("155.00"),
		Propina:    dec("0.00"),
	}
	lines := []*entity.InvoiceLine{
		{
			ItemCode:    "PROD-A",
			Description: "Producto A",
			Quantity:    dec("2"),
			UnitPrice:   dec("50.00"),
			Discount:    dec("0.00"),
			Subtotal:    dec("100.00"),
			IVARate:     dec("15"),
		},
		{
			ItemCode:    "PROD-B",
			Description: "Producto B",
			Quantity:    dec("1"),
			UnitPrice:   dec("40.00"),
			Discount:    dec("0.00"),
			Subtotal:    dec("40.00"),
			IVARate:     dec("0"),
		},
	}
	payments := []*entity.InvoicePayment{
		{FormaPago: "01 - Efectivo", Total: dec("155.00")},
	}
	return &appsri.InvoiceBuildContext{
		Invoice:       inv,
		Lines:         lines,
		Payments:      payments,
		Company:       testCompany(),
		Customer:      testCustomer(),
		Establishment: testEstablishment(),
		Ambiente:      pkgsri.AmbientePruebas,
	}
}

func newBuilder(codigo string) *infra.XMLBuilder {
	return infra.NewXMLBuilder(infra.BuilderOptions{CodigoNumerico: codigo}, logger.Nop())
}

func parseXML(t *testing.T, data []byte) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(data))
	return doc
}

func elText(t *testing.T, doc *etree.Document, path string) string {
	t.Helper()
	el := doc.FindElement(path)
	require.NotNilf(t, el, "no se encontró %s", path)
	return el.Text()
}

func TestBuildInvoice_EstructuraYClaveDeAcceso(t *testing.T) {
	b := newBuilder("12345678")
	res, err := b.BuildInvoice(invoiceContext())
	require.NoError(t, err)

	assert.Len(t, res.ClaveAcceso, 49)
	dv := int(res.ClaveAcceso[48] - '0')
	assert.Equal(t, pkgsri.Mod11(res.ClaveAcceso[:48]), dv,
		"el dígito verificador debe salir del módulo 11")
	assert.Equal(t, "001", res.Estab)
	assert.Equal(t, "002", res.PtoEmi)
	assert.Equal(t, "000000012", res.Secuencial)
	assert.True(t, res.Total.Equal(dec("155.00")))

	doc := parseXML(t, res.XML)
	root := doc.Root()
	require.Equal(t, "factura", root.Tag)
	assert.Equal(t, "comprobante", root.SelectAttrValue("id", ""))

	assert.Equal(t, "1", elText(t, doc, "//infoTributaria/ambiente"))
	assert.Equal(t, "01", elText(t, doc, "//infoTributaria/codDoc"))
	assert.Equal(t, res.ClaveAcceso, elText(t, doc, "//infoTributaria/claveAcceso"))
	assert.Equal(t, "1760013210001", elText(t, doc, "//infoTributaria/ruc"))

	assert.Equal(t, "10/01/2025", elText(t, doc, "//infoFactura/fechaEmision"))
	assert.Equal(t, "SI", elText(t, doc, "//infoFactura/obligadoContabilidad"))
	assert.Equal(t, "04", elText(t, doc, "//infoFactura/tipoIdentificacionComprador"),
		"13 dígitos es RUC")
	assert.Equal(t, "140.00", elText(t, doc, "//infoFactura/totalSinImpuestos"))
	assert.Equal(t, "155.00", elText(t, doc, "//infoFactura/importeTotal"))
	assert.Equal(t, "01", elText(t, doc, "//pagos/pago/formaPago"))

	detalles := doc.FindElements("//detalles/detalle")
	assert.Len(t, detalles, 2)
	assert.Equal(t, "2.000000", elText(t, doc, "//detalles/detalle/cantidad"))
}

func TestBuildInvoice_BaldesDeImpuestoPorTarifa(t *testing.T) {
	b := newBuilder("12345678")
	res, err := b.BuildInvoice(invoiceContext())
	require.NoError(t, err)

	doc := parseXML(t, res.XML)
	totales := doc.FindElements("//totalConImpuestos/totalImpuesto")
	require.Len(t, totales, 2, "IVA 15 y IVA 0 son baldes distintos")

	// Primer balde: IVA 15% (codigoPorcentaje 4) sobre 100.00.
	assert.Equal(t, "2", totales[0].FindElement("codigo").Text())
	assert.Equal(t, "4", totales[0].FindElement("codigoPorcentaje").Text())
	assert.Equal(t, "100.00", totales[0].FindElement("baseImponible").Text())
	assert.Equal(t, "15.00", totales[0].FindElement("valor").Text())

	// Segundo balde: IVA 0% sobre 40.00.
	assert.Equal(t, "0", totales[1].FindElement("codigoPorcentaje").Text())
	assert.Equal(t, "40.00", totales[1].FindElement("baseImponible").Text())
	assert.Equal(t, "0.00", totales[1].FindElement("valor").Text())
}

func TestBuildInvoice_MismaTarifaSeAcumulaEnUnBalde(t *testing.T) {
	bc := invoiceContext()
	bc.Lines[1].IVARate = dec("15")
	bc.Invoice.TaxTotal = dec("21.00") // 15.00 + 6.00

	b := newBuilder("12345678")
	res, err := b.BuildInvoice(bc)
	require.NoError(t, err)

	doc := parseXML(t, res.XML)
	totales := doc.FindElements("//totalConImpuestos/totalImpuesto")
	require.Len(t, totales, 1)
	assert.Equal(t, "140.00", totales[0].FindElement("baseImponible").Text())
	assert.Equal(t, "21.00", totales[0].FindElement("valor").Text())
}

func TestBuildInvoice_DescuadreDeImpuestosFallaAlto(t *testing.T) {
	bc := invoiceContext()
	bc.Invoice.TaxTotal = dec("15.05") // 5 centavos de deriva

	b := newBuilder("12345678")
	_, err := b.BuildInvoice(bc)
	assert.ErrorIs(t, err, domain.ErrTaxMismatch)
}

func TestBuildInvoice_UnCentavoDeToleranciaPasa(t *testing.T) {
	bc := invoiceContext()
	bc.Invoice.TaxTotal = dec("15.01")

	b := newBuilder("12345678")
	_, err := b.BuildInvoice(bc)
	assert.NoError(t, err)
}

func TestBuildInvoice_NumeracionIncompletaFalla(t *testing.T) {
	bc := invoiceContext()
	bc.Invoice.Secuencial = ""

	b := newBuilder("12345678")
	_, err := b.BuildInvoice(bc)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBuildInvoice_CodigoNumericoDerivadoEsDeterminista(t *testing.T) {
	b := newBuilder("") // sin código fijo: se deriva del ID del documento

	r1, err := b.BuildInvoice(invoiceContext())
	require.NoError(t, err)
	r2, err := b.BuildInvoice(invoiceContext())
	require.NoError(t, err)
	assert.Equal(t, r1.ClaveAcceso, r2.ClaveAcceso)
}

// ── Nota de crédito ───────────────────────────────────────────────────────────

func creditNoteContext() *appsri.CreditNoteBuildContext {
	nc := &entity.CreditNote{
		ID:            "nc-1",
		Date:          time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC),
		Estab:         "001",
		PtoEmi:        "002",
		Secuencial:    "000000003",
		InvoiceID:     "inv-1",
		InvoiceNumero: "001-002-000000012",
		InvoiceDate:   time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Motivo:        "Devolución de mercadería",
		Subtotal:      dec("50.00"),
		TaxTotal:      dec("7.50"),
		GrandTotal:    dec("57.50"),
	}
	lines := []*entity.CreditNoteLine{
		{
			ItemCode:    "PROD-A",
			Description: "Producto A",
			Quantity:    dec("1"),
			UnitPrice:   dec("50.00"),
			Subtotal:    dec("50.00"),
			IVARate:     dec("15"),
		},
	}
	invLines := []*entity.InvoiceLine{
		{ItemCode: "PROD-A", Quantity: dec("2"), Subtotal: dec("100.00"), IVARate: dec("15")},
	}
	return &appsri.CreditNoteBuildContext{
		CreditNote:    nc,
		Lines:         lines,
		Company:       testCompany(),
		Customer:      testCustomer(),
		Establishment: testEstablishment(),
		Ambiente:      pkgsri.AmbientePruebas,
		InvoiceLines:  invLines,
		Returned:      map[string]decimal.Decimal{},
	}
}

func TestBuildCreditNote_ReferenciaElDocumentoSustento(t *testing.T) {
	b := newBuilder("12345678")
	res, err := b.BuildCreditNote(creditNoteContext())
	require.NoError(t, err)

	doc := parseXML(t, res.XML)
	require.Equal(t, "notaCredito", doc.Root().Tag)
	assert.Equal(t, "comprobante", doc.Root().SelectAttrValue("id", ""))

	assert.Equal(t, "04", elText(t, doc, "//infoTributaria/codDoc"))
	assert.Equal(t, "01", elText(t, doc, "//infoNotaCredito/codDocModificado"))
	assert.Equal(t, "001-002-000000012", elText(t, doc, "//infoNotaCredito/numDocModificado"))
	assert.Equal(t, "10/01/2025", elText(t, doc, "//infoNotaCredito/fechaEmisionDocSustento"))
	assert.Equal(t, "Devolución de mercadería", elText(t, doc, "//infoNotaCredito/motivo"))
	assert.Equal(t, "57.50", elText(t, doc, "//infoNotaCredito/valorModificacion"))
}

func TestBuildCreditNote_TopeDeCantidadRetornable(t *testing.T) {
	bc := creditNoteContext()
	bc.Returned["PROD-A"] = dec("2") // ya se devolvió todo lo facturado

	b := newBuilder("12345678")
	_, err := b.BuildCreditNote(bc)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBuildCreditNote_DevolucionParcialDentroDelTope(t *testing.T) {
	bc := creditNoteContext()
	bc.Returned["PROD-A"] = dec("1") // queda 1 retornable y se devuelve 1

	b := newBuilder("12345678")
	_, err := b.BuildCreditNote(bc)
	assert.NoError(t, err)
}

func TestBuildCreditNote_LineaLibreNoTieneTope(t *testing.T) {
	bc := creditNoteContext()
	bc.Lines = []*entity.CreditNoteLine{
		{
			Description: "Ajuste por servicio",
			Quantity:    dec("10"),
			UnitPrice:   dec("5.00"),
			Subtotal:    dec("50.00"),
			IVARate:     dec("15"),
		},
	}

	b := newBuilder("12345678")
	res, err := b.BuildCreditNote(bc)
	require.NoError(t, err)

	doc := parseXML(t, res.XML)
	assert.Equal(t, "SERVICIO", elText(t, doc, "//detalles/detalle/codigoInterno"))
}

func TestBuildCreditNote_SinFacturaReferenciadaFalla(t *testing.T) {
	bc := creditNoteContext()
	bc.CreditNote.InvoiceNumero = ""

	b := newBuilder("12345678")
	_, err := b.BuildCreditNote(bc)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
