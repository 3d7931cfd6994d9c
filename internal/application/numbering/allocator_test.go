package numbering_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josfe/facturacion-sri/internal/application/numbering"
	"github.com/josfe/facturacion-sri/internal/domain"
	"github.com/josfe/facturacion-sri/internal/domain/entity"
	"github.com/josfe/facturacion-sri/internal/domain/repository"
	"github.com/josfe/facturacion-sri/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Doble de CounterStore: emula el bloqueo de fila con un mutex y aplica la
// semántica transaccional (mutación y bitácora se descartan si fn falla).
// ──────────────────────────────────────────────────────────────────────────────

type fakeStore struct {
	mu           sync.Mutex
	ep           *entity.EmissionPointCounter
	logs         []*entity.SequenceLog
	failuresLeft int // inyecta ErrLockContention en las próximas N llamadas
	mutateCalls  int
}

type capturedLogs struct {
	pending []*entity.SequenceLog
}

func (c *capturedLogs) Append(l *entity.SequenceLog) error {
	c.pending = append(c.pending, l)
	return nil
}

func (c *capturedLogs) ListByEmissionPoint(string) ([]*entity.SequenceLog, error) {
	return nil, nil
}

var _ repository.SequenceLogRepository = (*capturedLogs)(nil)

func (s *fakeStore) MutateLocked(_ context.Context, _ string,
	fn func(*entity.EmissionPointCounter, repository.SequenceLogRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutateCalls++
	if s.failuresLeft > 0 {
		s.failuresLeft--
		return fmt.Errorf("%w: deadlock detected", numbering.ErrLockContention)
	}
	cp := *s.ep
	captured := &capturedLogs{}
	if err := fn(&cp, captured); err != nil {
		return err // rollback: ni la fila ni la bitácora cambian
	}
	s.ep = &cp
	s.logs = append(s.logs, captured.pending...)
	return nil
}

func (s *fakeStore) Peek(context.Context, string) (*entity.EmissionPointCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.ep
	return &cp, nil
}

func newStore(initiated bool) *fakeStore {
	return &fakeStore{
		ep: &entity.EmissionPointCounter{
			ID:              "ep-1",
			EstablishmentID: "loc-1",
			Estab:           "001",
			PtoEmi:          "001",
			Estado:          entity.EmissionPointActivo,
			Initiated:       initiated,
			SecFactura:      5,
			SecNotaCredito:  1,
			SecNotaDebito:   1,
			SecRetencion:    1,
			SecLiquidacion:  1,
			SecGuiaRemision: 1,
		},
	}
}

func newAllocator(s *fakeStore) *numbering.Allocator {
	return numbering.NewAllocator(s, logger.Nop())
}

// ──────────────────────────────────────────────────────────────────────────────
// AllocateNext: semántica post-incremento
// ──────────────────────────────────────────────────────────────────────────────

func TestAllocateNext_PostIncremento(t *testing.T) {
	s := newStore(true)
	a := newAllocator(s)

	n, err := a.AllocateNext(context.Background(), "loc-1", entity.DocFactura)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n, "debe devolver el valor actual del contador")
	assert.Equal(t, int64(6), s.ep.SecFactura, "el contador debe quedar en valor+1")

	n2, err := a.AllocateNext(context.Background(), "loc-1", entity.DocFactura)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n2, "la segunda asignación sigue al valor anterior sin huecos")
}

func TestAllocateNext_ErrorSiNoInicializado(t *testing.T) {
	a := newAllocator(newStore(false))
	_, err := a.AllocateNext(context.Background(), "loc-1", entity.DocFactura)
	assert.ErrorIs(t, err, domain.ErrCounterNotInitiated)
}

// Cada tipo de comprobante tiene su propio contador independiente.
func TestAllocateNext_ContadoresIndependientes(t *testing.T) {
	s := newStore(true)
	a := newAllocator(s)

	_, err := a.AllocateNext(context.Background(), "loc-1", entity.DocFactura)
	require.NoError(t, err)

	nc, err := a.AllocateNext(context.Background(), "loc-1", entity.DocNotaCredito)
	require.NoError(t, err)
	assert.Equal(t, int64(1), nc, "el contador de notas de crédito no se ve afectado por facturas")
}

// Bajo concurrencia no se repite ni se salta ningún número.
func TestAllocateNext_ConcurrenciaSinDuplicados(t *testing.T) {
	const goroutines = 50
	s := newStore(true)
	a := newAllocator(s)

	results := make(chan int64, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := a.AllocateNext(context.Background(), "loc-1", entity.DocFactura)
			assert.NoError(t, err)
			results <- n
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]bool, goroutines)
	for n := range results {
		assert.Falsef(t, seen[n], "el secuencial %d se asignó dos veces", n)
		seen[n] = true
	}
	assert.Len(t, seen, goroutines)
	assert.Equal(t, int64(5+goroutines), s.ep.SecFactura,
		"el contador final debe reflejar exactamente las asignaciones hechas")
}

// ──────────────────────────────────────────────────────────────────────────────
// PeekNext: lectura sin asignar
// ──────────────────────────────────────────────────────────────────────────────

func TestPeekNext_NoAvanzaElContador(t *testing.T) {
	s := newStore(true)
	a := newAllocator(s)

	peeked, err := a.PeekNext(context.Background(), "loc-1", entity.DocFactura)
	require.NoError(t, err)

	allocated, err := a.AllocateNext(context.Background(), "loc-1", entity.DocFactura)
	require.NoError(t, err)

	assert.Equal(t, peeked, allocated,
		"PeekNext debe devolver lo mismo que AllocateNext inmediatamente después")
	assert.Equal(t, int64(5), peeked)
}

// ──────────────────────────────────────────────────────────────────────────────
// InitiateOrEdit
// ──────────────────────────────────────────────────────────────────────────────

func TestInitiateOrEdit_InicializaYElevaElResto(t *testing.T) {
	s := newStore(false)
	s.ep.SecFactura = 0
	s.ep.SecNotaCredito = 0
	a := newAllocator(s)

	err := a.InitiateOrEdit(context.Background(), "loc-1", entity.DocFactura, 100, "user-1", "apertura")
	require.NoError(t, err)

	assert.True(t, s.ep.Initiated)
	assert.Equal(t, int64(100), s.ep.SecFactura)
	assert.Equal(t, int64(1), s.ep.SecNotaCredito,
		"los contadores en 0 deben elevarse a 1 al inicializar")
	assert.NotEmpty(t, s.logs, "la inicialización debe dejar rastro en la bitácora")
}

func TestInitiateOrEdit_NoRetrocede(t *testing.T) {
	s := newStore(true)
	a := newAllocator(s)

	err := a.InitiateOrEdit(context.Background(), "loc-1", entity.DocFactura, 3, "user-1", "")
	assert.ErrorIs(t, err, domain.ErrSequenceBackward)
	assert.Equal(t, int64(5), s.ep.SecFactura, "el contador no debe cambiar tras el rechazo")
	assert.Empty(t, s.logs, "un cambio rechazado no deja rastro en la bitácora")
}

func TestInitiateOrEdit_ValorIgualEsNoOp(t *testing.T) {
	s := newStore(true)
	a := newAllocator(s)

	err := a.InitiateOrEdit(context.Background(), "loc-1", entity.DocFactura, 5, "user-1", "")
	require.NoError(t, err, "fijar el valor actual es un no-op silencioso")
	assert.Empty(t, s.logs, "un no-op no genera entrada de bitácora")
}

func TestInitiateOrEdit_AvanceConBitacora(t *testing.T) {
	s := newStore(true)
	a := newAllocator(s)

	err := a.InitiateOrEdit(context.Background(), "loc-1", entity.DocFactura, 50, "user-1", "salto por migración")
	require.NoError(t, err)
	assert.Equal(t, int64(50), s.ep.SecFactura)

	require.Len(t, s.logs, 1)
	entry := s.logs[0]
	assert.Equal(t, int64(5), entry.OldValue)
	assert.Equal(t, int64(50), entry.NewValue)
	assert.Equal(t, "user-1", entry.Actor)
	assert.Equal(t, "salto por migración", entry.Note)
}

func TestInitiateOrEdit_RechazaValoresMenoresAUno(t *testing.T) {
	a := newAllocator(newStore(false))
	err := a.InitiateOrEdit(context.Background(), "loc-1", entity.DocFactura, 0, "user-1", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Reintentos ante contención
// ──────────────────────────────────────────────────────────────────────────────

func TestAllocateNext_ReintentaAnteContencion(t *testing.T) {
	s := newStore(true)
	s.failuresLeft = 2 // las dos primeras llamadas fallan con deadlock
	a := newAllocator(s)

	n, err := a.AllocateNext(context.Background(), "loc-1", entity.DocFactura)
	require.NoError(t, err, "dos deadlocks seguidos deben absorberse con reintentos")
	assert.Equal(t, int64(5), n)
	assert.Equal(t, 3, s.mutateCalls, "debe haber exactamente 3 intentos")
}

func TestAllocateNext_AgotaReintentos(t *testing.T) {
	s := newStore(true)
	s.failuresLeft = 10 // nunca se recupera
	a := newAllocator(s)

	_, err := a.AllocateNext(context.Background(), "loc-1", entity.DocFactura)
	require.Error(t, err)
	assert.ErrorIs(t, err, numbering.ErrLockContention)
	assert.Equal(t, 3, s.mutateCalls, "tras 3 intentos el error se propaga al caller")
	assert.Equal(t, int64(5), s.ep.SecFactura, "el contador queda intacto")
}

// ──────────────────────────────────────────────────────────────────────────────
// Reseed
// ──────────────────────────────────────────────────────────────────────────────

func TestReseed_DesdeMaximoObservado(t *testing.T) {
	s := newStore(true)
	a := newAllocator(s)

	next, noDocs, err := a.Reseed(context.Background(), "loc-1", entity.DocFactura, 41, "user-1", "fila removida")
	require.NoError(t, err)
	assert.Equal(t, int64(42), next, "próximo = máximo observado + 1")
	assert.False(t, noDocs)
	assert.Equal(t, int64(42), s.ep.SecFactura)
	assert.NotEmpty(t, s.logs)
}

func TestReseed_SinComprobantesAdvierte(t *testing.T) {
	s := newStore(true)
	s.ep.SecFactura = 1
	a := newAllocator(s)

	next, noDocs, err := a.Reseed(context.Background(), "loc-1", entity.DocFactura, 0, "user-1", "")
	require.NoError(t, err)
	assert.True(t, noDocs, "sin comprobantes no hay forma segura de inferir el próximo número")
	assert.Equal(t, int64(1), next)
}
