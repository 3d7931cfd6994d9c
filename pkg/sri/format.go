// Helpers de formato: montos, cantidades, rellenos y texto XML-seguro.

package sri

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Money2 redondea half-up a 2 decimales: el formato de todos los montos del XML.
func Money2(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// Qty6 redondea half-up a 6 decimales: el formato de cantidades del XML.
func Qty6(d decimal.Decimal) string {
	return d.Round(6).StringFixed(6)
}

// Z3 rellena a 3 dígitos (establecimiento / punto de emisión).
func Z3(v string) string {
	s := strings.TrimSpace(v)
	if len(s) > 3 {
		return s[len(s)-3:]
	}
	return strings.Repeat("0", 3-len(s)) + s
}

// Z9 rellena el secuencial a 9 dígitos.
func Z9(n int64) string {
	return fmt.Sprintf("%09d", n)
}

// ParseSecuencial extrae el entero de un secuencial de 9 dígitos.
func ParseSecuencial(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimLeft(strings.TrimSpace(s), "0"), 10, 64)
	if err != nil {
		if strings.Trim(strings.TrimSpace(s), "0") == "" && s != "" {
			return 0, nil
		}
		return 0, fmt.Errorf("sri: secuencial inválido %q", s)
	}
	return n, nil
}

// CleanText normaliza texto libre para el XML: NFC, sin caracteres de control,
// recortado al largo máximo que acepta el esquema.
func CleanText(s string, max int) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if r >= 0x20 || r == '\n' || r == '\t' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if max > 0 && len([]rune(out)) > max {
		out = string([]rune(out)[:max])
	}
	return out
}

// NumeroComprobante arma el número legible EEE-PPP-SSSSSSSSS.
func NumeroComprobante(estab, ptoEmi, secuencial string) string {
	return Z3(estab) + "-" + Z3(ptoEmi) + "-" + secuencial
}
