package entity

import (
	"fmt"
	"time"
)

// DocType tipo de comprobante soportado por los contadores de secuencial.
type DocType string

const (
	DocFactura      DocType = "factura"
	DocNotaCredito  DocType = "nota_credito"
	DocNotaDebito   DocType = "nota_debito"
	DocRetencion    DocType = "retencion"
	DocLiquidacion  DocType = "liquidacion"
	DocGuiaRemision DocType = "guia_remision"
)

// AllDocTypes orden canónico de los seis contadores.
var AllDocTypes = []DocType{
	DocFactura, DocNotaCredito, DocNotaDebito,
	DocRetencion, DocLiquidacion, DocGuiaRemision,
}

// Estados de un punto de emisión. A lo sumo uno Activo por establecimiento.
const (
	EmissionPointActivo   = "Activo"
	EmissionPointInactivo = "Inactivo"
)

// EmissionPointCounter una fila por (establecimiento, punto de emisión) con los
// seis contadores monotónicos de secuencial, uno por tipo de comprobante.
// Cada contador guarda el PRÓXIMO número a emitir.
type EmissionPointCounter struct {
	ID              string
	EstablishmentID string
	Estab           string // 3 dígitos (redundante con Establishment.Code, fija el prefijo)
	PtoEmi          string // 3 dígitos
	Estado          string // Activo | Inactivo
	Initiated       bool   // tras INIT todos los contadores son >= 1

	SecFactura      int64
	SecNotaCredito  int64
	SecNotaDebito   int64
	SecRetencion    int64
	SecLiquidacion  int64
	SecGuiaRemision int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Counter devuelve el valor del contador para el tipo de comprobante.
func (e *EmissionPointCounter) Counter(dt DocType) (int64, error) {
	switch dt {
	case DocFactura:
		return e.SecFactura, nil
	case DocNotaCredito:
		return e.SecNotaCredito, nil
	case DocNotaDebito:
		return e.SecNotaDebito, nil
	case DocRetencion:
		return e.SecRetencion, nil
	case DocLiquidacion:
		return e.SecLiquidacion, nil
	case DocGuiaRemision:
		return e.SecGuiaRemision, nil
	}
	return 0, fmt.Errorf("tipo de comprobante desconocido: %q", dt)
}

// SetCounter fija el valor del contador para el tipo de comprobante.
func (e *EmissionPointCounter) SetCounter(dt DocType, v int64) error {
	switch dt {
	case DocFactura:
		e.SecFactura = v
	case DocNotaCredito:
		e.SecNotaCredito = v
	case DocNotaDebito:
		e.SecNotaDebito = v
	case DocRetencion:
		e.SecRetencion = v
	case DocLiquidacion:
		e.SecLiquidacion = v
	case DocGuiaRemision:
		e.SecGuiaRemision = v
	default:
		return fmt.Errorf("tipo de comprobante desconocido: %q", dt)
	}
	return nil
}
