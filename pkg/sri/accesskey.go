// Package sri contiene la lógica pura de comprobantes electrónicos SRI (Ecuador):
// clave de acceso (módulo 11), catálogos de la Ficha Técnica y helpers de formato.
// Sin I/O: todo lo que toca red, disco o DB vive en internal/infrastructure.
package sri

import (
	"crypto/sha1"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// AccessKeyParams campos posicionales de la clave de acceso (48 dígitos + verificador).
// Cada campo debe ser numérico y del largo exacto indicado.
type AccessKeyParams struct {
	FechaEmision   string // ddmmaaaa (8)
	CodDoc         string // tipo de comprobante (2): 01 factura, 04 nota de crédito, ...
	RUC            string // RUC del emisor (13)
	Ambiente       string // 1 = Pruebas, 2 = Producción (1)
	Estab          string // código de establecimiento (3)
	PtoEmi         string // código de punto de emisión (3)
	Secuencial     string // secuencial del comprobante (9)
	CodigoNumerico string // código numérico arbitrario (8)
	TipoEmision    string // 1 = emisión normal (1)
}

// GenerateAccessKey arma la clave de acceso de 49 dígitos: los 48 dígitos
// posicionales más el dígito verificador módulo 11.
// Valida largo y contenido de cada campo antes de concatenar.
func GenerateAccessKey(p AccessKeyParams) (string, error) {
	fields := []struct {
		name string
		val  string
		size int
	}{
		{"fecha de emisión", p.FechaEmision, 8},
		{"código de documento", p.CodDoc, 2},
		{"RUC", p.RUC, 13},
		{"ambiente", p.Ambiente, 1},
		{"establecimiento", p.Estab, 3},
		{"punto de emisión", p.PtoEmi, 3},
		{"secuencial", p.Secuencial, 9},
		{"código numérico", p.CodigoNumerico, 8},
		{"tipo de emisión", p.TipoEmision, 1},
	}

	var sb strings.Builder
	for _, f := range fields {
		v := strings.TrimSpace(f.val)
		if len(v) != f.size {
			return "", fmt.Errorf("sri: %s debe tener %d dígitos, tiene %d", f.name, f.size, len(v))
		}
		if !isDigits(v) {
			return "", fmt.Errorf("sri: %s debe ser numérico, recibido %q", f.name, v)
		}
		sb.WriteString(v)
	}

	base48 := sb.String()
	if len(base48) != 48 {
		return "", fmt.Errorf("sri: la base de la clave debe tener 48 dígitos, tiene %d", len(base48))
	}

	return base48 + string(rune('0'+Mod11(base48))), nil
}

// Mod11 calcula el dígito verificador módulo 11 del SRI: pesos cíclicos
// 2,3,4,5,6,7 aplicados de derecha a izquierda; residuo 11 -> 0, residuo 10 -> 1.
// digits debe contener solo caracteres '0'-'9'.
func Mod11(digits string) int {
	weights := [...]int{2, 3, 4, 5, 6, 7}
	total := 0
	for i := 0; i < len(digits); i++ {
		d := int(digits[len(digits)-1-i] - '0')
		total += d * weights[i%len(weights)]
	}
	dv := 11 - (total % 11)
	switch dv {
	case 11:
		return 0
	case 10:
		return 1
	}
	return dv
}

// DDMMYYYY formatea una fecha al formato de la clave de acceso (ddmmaaaa).
func DDMMYYYY(t time.Time) string {
	return fmt.Sprintf("%02d%02d%04d", t.Day(), int(t.Month()), t.Year())
}

// Hash8FromString deriva un código numérico de 8 dígitos determinista a partir
// de una semilla (SHA-1 mod 10^8). Útil cuando no se quiere el código fijo.
func Hash8FromString(s string) string {
	sum := sha1.Sum([]byte(s))
	n := new(big.Int).SetBytes(sum[:])
	n.Mod(n, big.NewInt(100_000_000))
	return fmt.Sprintf("%08d", n)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
