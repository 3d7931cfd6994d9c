package sri_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josfe/facturacion-sri/pkg/sri"
)

// Los montos del XML van siempre a 2 decimales con redondeo half-up.
func TestMoney2_RedondeoHalfUp(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"10", "10.00"},
		{"10.005", "10.01"},
		{"10.004", "10.00"},
		{"0.125", "0.13"},
	}
	for _, tc := range cases {
		d, err := decimal.NewFromString(tc.in)
		require.NoError(t, err)
		assert.Equalf(t, tc.expected, sri.Money2(d), "Money2(%s)", tc.in)
	}
}

func TestQty6_SeisDecimales(t *testing.T) {
	d := decimal.RequireFromString("1.5")
	assert.Equal(t, "1.500000", sri.Qty6(d))

	d = decimal.RequireFromString("0.3333335")
	assert.Equal(t, "0.333334", sri.Qty6(d), "half-up en el sexto decimal")
}

func TestZ3yZ9_Rellenos(t *testing.T) {
	assert.Equal(t, "001", sri.Z3("1"))
	assert.Equal(t, "021", sri.Z3("21"))
	assert.Equal(t, "123", sri.Z3("123"))
	assert.Equal(t, "000000008", sri.Z9(8))
	assert.Equal(t, "000012345", sri.Z9(12345))
}

func TestParseSecuencial(t *testing.T) {
	n, err := sri.ParseSecuencial("000000008")
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)

	n, err = sri.ParseSecuencial("000000000")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = sri.ParseSecuencial("00000000X")
	assert.Error(t, err)
}

func TestCleanText_NormalizaYRecorta(t *testing.T) {
	// NFC: "n" + tilde combinante debe colapsar a "ñ"
	in := "Compañía  "
	out := sri.CleanText(in, 300)
	assert.Equal(t, "Compañía", out)

	// caracteres de control fuera
	assert.Equal(t, "AB", sri.CleanText("A\x00B", 300))

	// recorte por runas, no por bytes
	assert.Equal(t, "ññ", sri.CleanText("ñññññ", 2))
}

func TestNumeroComprobante(t *testing.T) {
	assert.Equal(t, "001-123-000000008", sri.NumeroComprobante("1", "123", "000000008"))
}
