package sri

import (
	"time"

	"github.com/josfe/facturacion-sri/internal/domain/entity"
	"github.com/josfe/facturacion-sri/internal/domain/queue"
	"github.com/josfe/facturacion-sri/internal/domain/repository"
	"github.com/josfe/facturacion-sri/pkg/logger"
)

// QueueService aplica las transiciones guardadas de la cola: valida la
// legalidad, mueve el archivo XML a la carpeta de la nueva etapa y persiste la
// entrada como una unidad. Si la persistencia falla después del movimiento,
// el archivo se regresa a su carpeta anterior (compensación): nunca queda un
// archivo renombrado sin estado actualizado ni al revés.
type QueueService struct {
	repo   repository.QueueRepository
	stager Stager
	log    *logger.Logger
}

// NewQueueService construye el servicio de cola.
func NewQueueService(repo repository.QueueRepository, stager Stager, log *logger.Logger) *QueueService {
	return &QueueService{repo: repo, stager: stager, log: log}
}

// Transition mueve la entrada al estado destino reubicando su archivo XML.
// Cancelado y Error no mueven el archivo (el XML queda donde está para
// inspección); el reenvío Enviado→Enviado tampoco.
func (s *QueueService) Transition(e *entity.QueueEntry, to queue.State, actor string) error {
	return s.transition(e, to, actor, nil)
}

// TransitionWithContent igual que Transition pero escribe bytes nuevos en la
// carpeta destino en lugar de mover el archivo actual (lo usa la firma: mismo
// comprobante, contenido nuevo).
func (s *QueueService) TransitionWithContent(e *entity.QueueEntry, to queue.State, actor string, content []byte) error {
	return s.transition(e, to, actor, content)
}

func (s *QueueService) transition(e *entity.QueueEntry, to queue.State, actor string, content []byte) error {
	if err := queue.CanTransition(e.State, to); err != nil {
		return err
	}

	prev := *e // copia para restaurar ante fallo de persistencia
	movesFile := to != queue.StateCancelado && to != queue.StateError && !queue.IsResend(e.State, to)
	replaced := false
	var prevContent []byte

	if movesFile {
		var newPath string
		var err error
		if content != nil {
			// El destino puede coincidir con la ruta actual (reintento con el
			// archivo todavía en la carpeta destino); se respaldan los bytes
			// originales para poder restaurarlos si la persistencia falla.
			if e.XMLFile != "" {
				prevContent, err = s.stager.Read(e.XMLFile)
			}
			if err == nil {
				newPath, err = s.stager.Replace(e.XMLFile, to, e.RejectOrigin, content)
				replaced = err == nil
			}
		} else {
			newPath, err = s.stager.Move(e.XMLFile, to, e.RejectOrigin)
		}
		if err != nil {
			s.log.Error().Err(err).
				Str("queue_id", e.ID).
				Str("from", string(e.State)).
				Str("to", string(to)).
				Msg("fallo moviendo el XML de etapa; la entrada conserva su estado")
			return err
		}
		e.XMLFile = newPath
	}

	e.State = to
	e.LastTransitionAt = time.Now()
	e.LastTransitionBy = actor
	e.UpdatedAt = e.LastTransitionAt

	if err := s.repo.Update(e); err != nil {
		// Compensación: deshacer el efecto en disco y restaurar la entrada en
		// memoria, dejando el último estado válido intacto.
		if movesFile {
			var undoErr error
			switch {
			case replaced && e.XMLFile != prev.XMLFile:
				undoErr = s.stager.Remove(e.XMLFile) // el original nunca se tocó
			case replaced:
				// Misma ruta: el original fue sobrescrito, se restauran los
				// bytes respaldados.
				_, undoErr = s.stager.Replace(e.XMLFile, to, prev.RejectOrigin, prevContent)
			case e.XMLFile != prev.XMLFile:
				_, undoErr = s.stager.Move(e.XMLFile, prev.State, prev.RejectOrigin)
			}
			if undoErr != nil {
				s.log.Error().Err(undoErr).
					Str("queue_id", e.ID).
					Str("xml_file", e.XMLFile).
					Msg("no se pudo deshacer el movimiento tras fallo de persistencia; requiere inspección manual")
			}
		}
		*e = prev
		return err
	}

	if replaced && prev.XMLFile != "" && prev.XMLFile != e.XMLFile {
		if err := s.stager.Remove(prev.XMLFile); err != nil {
			s.log.Warn().Err(err).
				Str("queue_id", e.ID).
				Str("xml_file", prev.XMLFile).
				Msg("no se pudo limpiar el XML de la etapa anterior")
		}
	}

	s.log.Info().
		Str("queue_id", e.ID).
		Str("from", string(prev.State)).
		Str("to", string(to)).
		Str("actor", actor).
		Msg("transición de cola aplicada")
	return nil
}

// RecordError deja constancia de un fallo sin cambiar el estado de la entrada.
func (s *QueueService) RecordError(e *entity.QueueEntry, cause string) {
	e.LastError = cause
	e.UpdatedAt = time.Now()
	if err := s.repo.Update(e); err != nil {
		s.log.Error().Err(err).Str("queue_id", e.ID).Msg("no se pudo persistir last_error")
	}
}
