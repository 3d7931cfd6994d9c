// Package queue define la máquina de estados de la cola de comprobantes
// electrónicos. Es lógica pura: la persistencia y el movimiento de archivos
// viven en las capas de application e infrastructure.
package queue

import "fmt"

// State estado de un comprobante dentro de la cola SRI.
type State string

const (
	StateGenerado   State = "Generado"   // XML construido, sin firmar
	StateFirmado    State = "Firmado"    // XML firmado (XAdES-BES), listo para enviar
	StateEnviado    State = "Enviado"    // aceptado en Recepción, autorización pendiente
	StateAutorizado State = "Autorizado" // autorizado por el SRI (terminal)
	StateDevuelto   State = "Devuelto"   // rechazado por el SRI (Recepción o Autorización)
	StateCancelado  State = "Cancelado"  // anulado por el operador (terminal)
	StateError      State = "Error"      // fallo interno; retorna a Generado para reintentar
)

// RejectionOrigin distingue de qué fase del protocolo vino un rechazo:
// los devueltos en Recepción y los no autorizados en Autorización se archivan
// en carpetas distintas.
type RejectionOrigin string

const (
	OriginNinguno      RejectionOrigin = ""
	OriginRecepcion    RejectionOrigin = "recepcion"
	OriginAutorizacion RejectionOrigin = "autorizacion"
)

// allowed transiciones legales. Enviado→Enviado es el "reenvío": re-consulta
// Autorización sin volver a pasar por Recepción.
var allowed = map[State][]State{
	StateGenerado: {StateFirmado, StateCancelado, StateError},
	StateFirmado:  {StateEnviado, StateCancelado, StateError},
	StateEnviado:  {StateEnviado, StateAutorizado, StateDevuelto, StateCancelado, StateError},
	StateDevuelto: {StateGenerado, StateCancelado},
	StateError:    {StateGenerado, StateCancelado},
	// Autorizado y Cancelado son terminales: sin salidas.
	StateAutorizado: {},
	StateCancelado:  {},
}

// TransitionError error con nombre para transiciones ilegales; identifica
// los estados origen y destino.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transición no permitida: %s → %s", e.From, e.To)
}

// Valid reporta si s es un estado conocido.
func (s State) Valid() bool {
	_, ok := allowed[s]
	return ok
}

// Terminal reporta si el estado no admite más transiciones.
func (s State) Terminal() bool {
	return s == StateAutorizado || s == StateCancelado
}

// AllowedFrom devuelve los estados alcanzables desde s (copia defensiva).
func AllowedFrom(s State) []State {
	outs := allowed[s]
	cp := make([]State, len(outs))
	copy(cp, outs)
	return cp
}

// CanTransition valida la transición from→to; retorna *TransitionError si es ilegal.
func CanTransition(from, to State) error {
	if !from.Valid() {
		return fmt.Errorf("estado origen desconocido: %q", from)
	}
	if !to.Valid() {
		return fmt.Errorf("estado destino desconocido: %q", to)
	}
	for _, s := range allowed[from] {
		if s == to {
			return nil
		}
	}
	return &TransitionError{From: from, To: to}
}

// IsResend reporta si la transición es el reenvío idempotente Enviado→Enviado.
func IsResend(from, to State) bool {
	return from == StateEnviado && to == StateEnviado
}
