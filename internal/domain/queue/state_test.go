package queue_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josfe/facturacion-sri/internal/domain/queue"
)

// ──────────────────────────────────────────────────────────────────────────────
// Camino feliz: Generado → Firmado → Enviado → Autorizado
// ──────────────────────────────────────────────────────────────────────────────

func TestCanTransition_CaminoFeliz(t *testing.T) {
	camino := []queue.State{
		queue.StateGenerado, queue.StateFirmado, queue.StateEnviado, queue.StateAutorizado,
	}
	for i := 0; i < len(camino)-1; i++ {
		assert.NoErrorf(t, queue.CanTransition(camino[i], camino[i+1]),
			"%s → %s debe ser legal", camino[i], camino[i+1])
	}
}

// Saltarse la firma y el envío es ilegal: Generado → Autorizado debe fallar
// con el error tipado que identifica origen y destino.
func TestCanTransition_GeneradoAAutorizadoIlegal(t *testing.T) {
	err := queue.CanTransition(queue.StateGenerado, queue.StateAutorizado)
	require.Error(t, err)

	var te *queue.TransitionError
	require.ErrorAs(t, err, &te, "el error debe ser *TransitionError")
	assert.Equal(t, queue.StateGenerado, te.From)
	assert.Equal(t, queue.StateAutorizado, te.To)
	assert.Contains(t, err.Error(), "Generado")
	assert.Contains(t, err.Error(), "Autorizado")
}

// ──────────────────────────────────────────────────────────────────────────────
// Estados terminales
// ──────────────────────────────────────────────────────────────────────────────

func TestEstadosTerminales_SinSalidas(t *testing.T) {
	for _, terminal := range []queue.State{queue.StateAutorizado, queue.StateCancelado} {
		assert.Truef(t, terminal.Terminal(), "%s debe ser terminal", terminal)
		assert.Emptyf(t, queue.AllowedFrom(terminal), "%s no debe tener salidas", terminal)

		for _, destino := range []queue.State{
			queue.StateGenerado, queue.StateFirmado, queue.StateEnviado,
			queue.StateDevuelto, queue.StateCancelado, queue.StateError,
		} {
			err := queue.CanTransition(terminal, destino)
			assert.Errorf(t, err, "%s → %s debe ser ilegal", terminal, destino)
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Reintentos y cancelación
// ──────────────────────────────────────────────────────────────────────────────

// Devuelto y Error pueden regresar a Generado para reintentar con un
// documento corregido.
func TestCanTransition_ReintentoDesdeDevueltoYError(t *testing.T) {
	assert.NoError(t, queue.CanTransition(queue.StateDevuelto, queue.StateGenerado))
	assert.NoError(t, queue.CanTransition(queue.StateError, queue.StateGenerado))
}

// Cancelado es alcanzable desde todo estado no terminal.
func TestCanTransition_CanceladoDesdeNoTerminales(t *testing.T) {
	for _, from := range []queue.State{
		queue.StateGenerado, queue.StateFirmado, queue.StateEnviado,
		queue.StateDevuelto, queue.StateError,
	} {
		assert.NoErrorf(t, queue.CanTransition(from, queue.StateCancelado),
			"%s → Cancelado debe ser legal", from)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Reenvío (Enviado → Enviado)
// ──────────────────────────────────────────────────────────────────────────────

func TestIsResend(t *testing.T) {
	assert.NoError(t, queue.CanTransition(queue.StateEnviado, queue.StateEnviado),
		"el reenvío Enviado → Enviado debe ser legal")
	assert.True(t, queue.IsResend(queue.StateEnviado, queue.StateEnviado))
	assert.False(t, queue.IsResend(queue.StateFirmado, queue.StateEnviado))
	assert.False(t, queue.IsResend(queue.StateEnviado, queue.StateAutorizado))
}

// ──────────────────────────────────────────────────────────────────────────────
// Estados desconocidos
// ──────────────────────────────────────────────────────────────────────────────

func TestCanTransition_EstadoDesconocido(t *testing.T) {
	err := queue.CanTransition(queue.State("Pendiente"), queue.StateFirmado)
	require.Error(t, err)
	var te *queue.TransitionError
	assert.False(t, errors.As(err, &te),
		"un estado desconocido no es una transición ilegal, es input inválido")

	assert.Error(t, queue.CanTransition(queue.StateGenerado, queue.State("Listo")))
	assert.False(t, queue.State("Pendiente").Valid())
	assert.True(t, queue.StateEnviado.Valid())
}
