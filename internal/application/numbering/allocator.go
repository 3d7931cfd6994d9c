// Package numbering implementa la asignación de secuenciales legales de
// comprobantes: monotónica, sin huecos y exactamente-una-vez bajo concurrencia.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josfe/facturacion-sri/internal/domain"
	"github.com/josfe/facturacion-sri/internal/domain/entity"
	"github.com/josfe/facturacion-sri/internal/domain/repository"
	"github.com/josfe/facturacion-sri/pkg/logger"
)

// ErrLockContention lo envuelve el CounterStore cuando la fila del contador
// está en deadlock o lock timeout; el allocator reintenta ante este error.
var ErrLockContention = errors.New("contención de bloqueo en el contador")

// maxRetries reintentos completos de la operación ante contención.
const maxRetries = 3

// CounterStore puerto de acceso atómico a la fila de contadores.
// MutateLocked debe cargar la fila Activa de la ubicación con bloqueo de fila
// (SELECT ... FOR UPDATE), invocar fn y persistir la fila mutada en la misma
// transacción; la bitácora que recibe fn está atada a esa transacción.
type CounterStore interface {
	MutateLocked(ctx context.Context, locationID string,
		fn func(ep *entity.EmissionPointCounter, logs repository.SequenceLogRepository) error) error
	// Peek carga la fila Activa sin bloqueo (solo lectura, para preview).
	Peek(ctx context.Context, locationID string) (*entity.EmissionPointCounter, error)
}

// Allocator asigna secuenciales con semántica post-incremento: devuelve el
// valor actual del contador y deja almacenado valor+1.
type Allocator struct {
	store CounterStore
	log   *logger.Logger
}

// NewAllocator construye el allocator.
func NewAllocator(store CounterStore, log *logger.Logger) *Allocator {
	return &Allocator{store: store, log: log}
}

// AllocateNext asigna el próximo secuencial para el tipo de comprobante en la
// ubicación. Atómico bajo concurrencia: dos llamadas simultáneas nunca reciben
// el mismo número. Reintenta hasta 3 veces ante contención de bloqueo.
func (a *Allocator) AllocateNext(ctx context.Context, locationID string, dt entity.DocType) (int64, error) {
	var assigned int64
	err := a.withRetry(ctx, func() error {
		return a.store.MutateLocked(ctx, locationID, func(ep *entity.EmissionPointCounter, _ repository.SequenceLogRepository) error {
			if !ep.Initiated {
				return domain.ErrCounterNotInitiated
			}
			current, err := ep.Counter(dt)
			if err != nil {
				return err
			}
			assigned = current
			return ep.SetCounter(dt, current+1)
		})
	})
	if err != nil {
		return 0, err
	}
	a.log.Debug().
		Str("location_id", locationID).
		Str("doc_type", string(dt)).
		Int64("secuencial", assigned).
		Msg("secuencial asignado")
	return assigned, nil
}

// PeekNext devuelve el número que AllocateNext entregaría ahora mismo, sin
// asignarlo ni bloquear la fila. Para previsualización en UI.
func (a *Allocator) PeekNext(ctx context.Context, locationID string, dt entity.DocType) (int64, error) {
	ep, err := a.store.Peek(ctx, locationID)
	if err != nil {
		return 0, err
	}
	if !ep.Initiated {
		return 0, domain.ErrCounterNotInitiated
	}
	return ep.Counter(dt)
}

// InitiateOrEdit fija administrativamente el valor de un contador.
//
// Antes de inicializar: el valor debe ser >= 1; los demás contadores que sigan
// en 0 se elevan a 1 y la fila queda marcada como inicializada.
// Después de inicializar: el valor nunca puede retroceder — bajar el contador
// falla con ErrSequenceBackward y fijar el valor actual es un no-op silencioso.
// Todo cambio aceptado se registra en la bitácora inmutable.
func (a *Allocator) InitiateOrEdit(ctx context.Context, locationID string, dt entity.DocType, newValue int64, actor, note string) error {
	return a.withRetry(ctx, func() error {
		return a.store.MutateLocked(ctx, locationID, func(ep *entity.EmissionPointCounter, logs repository.SequenceLogRepository) error {
			if newValue < 1 {
				return fmt.Errorf("%w: el secuencial debe ser >= 1, recibido %d", domain.ErrInvalidInput, newValue)
			}
			current, err := ep.Counter(dt)
			if err != nil {
				return err
			}

			if ep.Initiated {
				if newValue < current {
					return fmt.Errorf("%w: %d < %d (%s)", domain.ErrSequenceBackward, newValue, current, dt)
				}
				if newValue == current {
					return nil // no-op silencioso
				}
				if err := ep.SetCounter(dt, newValue); err != nil {
					return err
				}
				return appendLog(logs, ep, dt, current, newValue, actor, note)
			}

			// INIT: fijar el contador pedido, elevar el resto a >= 1 y marcar
			// la fila como inicializada.
			if err := ep.SetCounter(dt, newValue); err != nil {
				return err
			}
			if err := appendLog(logs, ep, dt, current, newValue, actor, note); err != nil {
				return err
			}
			for _, other := range entity.AllDocTypes {
				v, err := ep.Counter(other)
				if err != nil {
					return err
				}
				if v < 1 {
					if err := ep.SetCounter(other, 1); err != nil {
						return err
					}
					if err := appendLog(logs, ep, other, v, 1, actor, note); err != nil {
						return err
					}
				}
			}
			ep.Initiated = true
			return nil
		})
	})
}

// Reseed recalcula el contador tras la remoción excepcional de una fila:
// próximo = máximo secuencial observado + 1. Devuelve el nuevo valor y un
// booleano que indica si NO había comprobantes (no hay forma segura de
// inferir el próximo número; el operador debe ser advertido).
func (a *Allocator) Reseed(ctx context.Context, locationID string, dt entity.DocType, observedMax int64, actor, note string) (int64, bool, error) {
	next := observedMax + 1
	noDocs := observedMax <= 0
	if noDocs {
		next = 1
		a.log.Warn().
			Str("location_id", locationID).
			Str("doc_type", string(dt)).
			Msg("reseed sin comprobantes observados: se asume secuencial 1")
	}
	err := a.withRetry(ctx, func() error {
		return a.store.MutateLocked(ctx, locationID, func(ep *entity.EmissionPointCounter, logs repository.SequenceLogRepository) error {
			current, err := ep.Counter(dt)
			if err != nil {
				return err
			}
			if err := ep.SetCounter(dt, next); err != nil {
				return err
			}
			return appendLog(logs, ep, dt, current, next, actor, note)
		})
	})
	if err != nil {
		return 0, noDocs, err
	}
	return next, noDocs, nil
}

// withRetry ejecuta op reintentando la operación completa ante contención de
// bloqueo, hasta maxRetries intentos.
func (a *Allocator) withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil || !errors.Is(err, ErrLockContention) {
			return err
		}
		a.log.Warn().
			Int("attempt", attempt).
			Err(err).
			Msg("contención en el contador de secuenciales, reintentando")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 25 * time.Millisecond):
		}
	}
	return err
}

func appendLog(logs repository.SequenceLogRepository, ep *entity.EmissionPointCounter, dt entity.DocType, oldV, newV int64, actor, note string) error {
	return logs.Append(&entity.SequenceLog{
		ID:              uuid.New().String(),
		EmissionPointID: ep.ID,
		DocType:         dt,
		OldValue:        oldV,
		NewValue:        newV,
		Actor:           actor,
		Note:            note,
		CreatedAt:       time.Now(),
	})
}
