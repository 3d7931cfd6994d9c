package sri_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josfe/facturacion-sri/pkg/sri"
)

// ──────────────────────────────────────────────────────────────────────────────
// TestGenerateAccessKey valida que la clave de acceso de 49 dígitos coincide
// exactamente con el vector de referencia de la Ficha Técnica del SRI.
//
// Este test es el "canario en la mina" de la integración SRI: si alguien
// modifica el orden de concatenación, los pesos del módulo 11 o el manejo de
// los residuos 10/11, el test falla inmediatamente.
//
// Vector de referencia:
//
//	fecha=06012016 codDoc=01 RUC=1760013210001 ambiente=1
//	estab=001 ptoEmi=123 secuencial=000000008 codigoNumerico=12345678 emision=1
//	-> base de 48 dígitos + dígito verificador 7
// ──────────────────────────────────────────────────────────────────────────────

const testClaveEsperada = "0601201601176001321000110011230000000081234567817"

func buildTestParams() sri.AccessKeyParams {
	return sri.AccessKeyParams{
		FechaEmision:   "06012016",
		CodDoc:         sri.CodDocFactura,
		RUC:            "1760013210001",
		Ambiente:       sri.AmbientePruebas,
		Estab:          "001",
		PtoEmi:         "123",
		Secuencial:     "000000008",
		CodigoNumerico: "12345678",
		TipoEmision:    sri.TipoEmisionNormal,
	}
}

func TestGenerateAccessKey_VectorExacto(t *testing.T) {
	clave, err := sri.GenerateAccessKey(buildTestParams())
	require.NoError(t, err, "GenerateAccessKey no debe retornar error con parámetros válidos")
	assert.Equal(t, testClaveEsperada, clave,
		"la clave debe coincidir exactamente con el vector de referencia SRI")
	assert.Len(t, clave, 49, "la clave de acceso siempre tiene 49 dígitos")
}

// TestGenerateAccessKey_Determinista verifica que el mismo input produce
// siempre la misma clave (no hay aleatoriedad escondida).
func TestGenerateAccessKey_Determinista(t *testing.T) {
	c1, err1 := sri.GenerateAccessKey(buildTestParams())
	c2, err2 := sri.GenerateAccessKey(buildTestParams())

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, c1, c2, "el mismo input siempre debe producir la misma clave")
}

// TestGenerateAccessKey_AmbienteAfectaClave verifica que pruebas y producción
// producen claves distintas para el mismo comprobante.
func TestGenerateAccessKey_AmbienteAfectaClave(t *testing.T) {
	pPruebas := buildTestParams()

	pProduccion := buildTestParams()
	pProduccion.Ambiente = sri.AmbienteProduccion

	c1, _ := sri.GenerateAccessKey(pPruebas)
	c2, _ := sri.GenerateAccessKey(pProduccion)

	assert.NotEqual(t, c1, c2,
		"las claves de ambiente pruebas y producción deben ser distintas")
}

// ── Errores de validación ─────────────────────────────────────────────────────

func TestGenerateAccessKey_ErrorSiRUCCorto(t *testing.T) {
	p := buildTestParams()
	p.RUC = "176001321000" // 12 dígitos
	_, err := sri.GenerateAccessKey(p)
	assert.Error(t, err, "un RUC de 12 dígitos debe rechazarse")
	assert.Contains(t, err.Error(), "RUC")
}

func TestGenerateAccessKey_ErrorSiSecuencialNoNumerico(t *testing.T) {
	p := buildTestParams()
	p.Secuencial = "00000000X"
	_, err := sri.GenerateAccessKey(p)
	assert.Error(t, err, "un secuencial con letras debe rechazarse")
}

func TestGenerateAccessKey_ErrorSiFechaVacia(t *testing.T) {
	p := buildTestParams()
	p.FechaEmision = ""
	_, err := sri.GenerateAccessKey(p)
	assert.Error(t, err, "sin fecha de emisión debe retornar error")
}

func TestGenerateAccessKey_ErrorSiCodigoNumericoCorto(t *testing.T) {
	p := buildTestParams()
	p.CodigoNumerico = "1234567" // 7 dígitos
	_, err := sri.GenerateAccessKey(p)
	assert.Error(t, err)
}

// ── Mod11 ─────────────────────────────────────────────────────────────────────

// TestMod11_Residuos cubre las dos reglas especiales del verificador:
// residuo 11 se convierte en 0 y residuo 10 en 1.
func TestMod11_Residuos(t *testing.T) {
	// "0": total 0, 11-0=11 -> 0
	assert.Equal(t, 0, sri.Mod11("0"), "residuo 11 debe mapearse a 0")
	// "6": total 12, 12%11=1, 11-1=10 -> 1
	assert.Equal(t, 1, sri.Mod11("6"), "residuo 10 debe mapearse a 1")
}

func TestMod11_VectorBase48(t *testing.T) {
	base := testClaveEsperada[:48]
	assert.Equal(t, 7, sri.Mod11(base),
		"el verificador del vector de referencia debe ser 7")
}

// ── Helpers de fecha y código numérico ────────────────────────────────────────

func TestDDMMYYYY_Formato(t *testing.T) {
	d := time.Date(2016, time.January, 6, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, "06012016", sri.DDMMYYYY(d))
}

func TestHash8FromString_OchoDigitosEstables(t *testing.T) {
	h1 := sri.Hash8FromString("FAC-001-001-000000008")
	h2 := sri.Hash8FromString("FAC-001-001-000000008")
	h3 := sri.Hash8FromString("FAC-001-001-000000009")

	assert.Len(t, h1, 8, "el código numérico derivado debe tener 8 dígitos")
	assert.Equal(t, h1, h2, "misma semilla, mismo código")
	assert.NotEqual(t, h1, h3, "semillas distintas deben producir códigos distintos")
	for _, r := range h1 {
		assert.True(t, r >= '0' && r <= '9', "el código debe ser puramente numérico")
	}
}
