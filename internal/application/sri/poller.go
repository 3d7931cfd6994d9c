package sri

import (
	"time"

	"github.com/josfe/facturacion-sri/pkg/logger"
)

// backoffDelays espera antes de cada intento del poller de autorización.
var backoffDelays = [...]time.Duration{
	30 * time.Second,
	60 * time.Second,
	180 * time.Second,
	300 * time.Second,
	600 * time.Second,
}

// MaxPollAttempts intentos del poller antes de dejar la entrada en Enviado
// para reintento manual.
const MaxPollAttempts = len(backoffDelays)

// Poller programa los re-consultas de Autorización con backoff. No hace la
// consulta él mismo: dispara el job que le entrega el orquestador.
type Poller struct {
	sched Scheduler
	log   *logger.Logger
}

// NewPoller construye el poller. En producción sched es AfterFuncScheduler().
func NewPoller(sched Scheduler, log *logger.Logger) *Poller {
	return &Poller{sched: sched, log: log}
}

// ScheduleNext programa el intento número attempt (1-indexado) y devuelve
// true; con los intentos agotados no programa nada y devuelve false.
func (p *Poller) ScheduleNext(attempt int, job func()) bool {
	if attempt < 1 || attempt > MaxPollAttempts {
		return false
	}
	delay := backoffDelays[attempt-1]
	p.log.Debug().
		Int("attempt", attempt).
		Dur("delay", delay).
		Msg("re-consulta de autorización programada")
	p.sched.Schedule(delay, job)
	return true
}

// Delay expone la espera del intento (1-indexado); 0 si está fuera de rango.
func (p *Poller) Delay(attempt int) time.Duration {
	if attempt < 1 || attempt > MaxPollAttempts {
		return 0
	}
	return backoffDelays[attempt-1]
}
